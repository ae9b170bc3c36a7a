// Package tree renders externally supplied trees of labeled items into
// client-toggleable HTML and keeps the last rendered tree in a per-session
// state slot so later requests can re-render without repopulating.
//
// Two layouts are supported. ModeNested writes every branch's children into
// a hidden container nested inside the branch markup; client script flips
// containers with ToggleDiv(id). ModeFlat writes each level into its own
// container, all of them DOM siblings, and switches between them with
// DisplayDiv(id). Both layouts assign ids from one pre-order counter, so the
// same snapshot always renders the same ids.
package tree

import (
	"errors"
)

// ErrCycle is returned when a forest revisits a node on the path from a root.
var ErrCycle = errors.New("tree: forest contains a cycle")

// Node is one item of a tree. A node with children is a branch; a node
// without children is a leaf. Action is only meaningful on leaves.
type Node struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Action   string  `json:"action,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Leaf creates a node invoked through action.
func Leaf(name, label, action string) *Node {
	return &Node{Name: name, Label: label, Action: action}
}

// Branch creates a node expanded to show children.
func Branch(name, label string, children ...*Node) *Node {
	return &Node{Name: name, Label: label, Children: children}
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Count returns the number of nodes in forest, nil entries excluded.
func Count(forest []*Node) int {
	total := 0
	for _, n := range forest {
		if n == nil {
			continue
		}
		total += 1 + Count(n.Children)
	}
	return total
}

// Clone deep-copies forest. Nil entries are dropped and branch actions are
// cleared, since only leaves carry one. A node that appears twice on one
// root-to-leaf path yields ErrCycle.
func Clone(forest []*Node) ([]*Node, error) {
	onPath := make(map[*Node]bool)
	return cloneLevel(forest, onPath)
}

func cloneLevel(level []*Node, onPath map[*Node]bool) ([]*Node, error) {
	if len(level) == 0 {
		return nil, nil
	}
	out := make([]*Node, 0, len(level))
	for _, n := range level {
		if n == nil {
			continue
		}
		if onPath[n] {
			return nil, ErrCycle
		}
		onPath[n] = true
		children, err := cloneLevel(n.Children, onPath)
		delete(onPath, n)
		if err != nil {
			return nil, err
		}

		c := &Node{Name: n.Name, Label: n.Label, Children: children}
		if len(children) == 0 {
			c.Action = n.Action
		}
		out = append(out, c)
	}
	return out, nil
}

// Walk visits forest in pre-order. depth is zero for roots.
func Walk(forest []*Node, fn func(n *Node, depth int)) {
	walk(forest, 0, fn)
}

func walk(level []*Node, depth int, fn func(n *Node, depth int)) {
	for _, n := range level {
		if n == nil {
			continue
		}
		fn(n, depth)
		walk(n.Children, depth+1, fn)
	}
}
