package tree

import "strconv"

// allocator hands out "{widgetID}_sub_{n}" identifiers from a counter that
// starts at zero. One allocator serves exactly one render pass.
type allocator struct {
	prefix string
	next   int
}

func newAllocator(widgetID string) *allocator {
	return &allocator{prefix: widgetID + "_sub_"}
}

func (a *allocator) allocate() string {
	id := a.prefix + strconv.Itoa(a.next)
	a.next++
	return id
}

// placed pairs a node with the id allocated to it.
type placed struct {
	node     *Node
	id       string
	children []*placed
}

func (p *placed) isLeaf() bool {
	return len(p.children) == 0
}

// assign walks forest in pre-order, allocating one id per node before its
// children are visited.
func assign(forest []*Node, a *allocator) []*placed {
	out := make([]*placed, 0, len(forest))
	for _, n := range forest {
		if n == nil {
			continue
		}
		p := &placed{node: n, id: a.allocate()}
		p.children = assign(n.Children, a)
		out = append(out, p)
	}
	return out
}
