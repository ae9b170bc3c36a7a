package tree

import (
	"fmt"
	"html/template"
)

// Mode selects the layout strategy.
type Mode int

const (
	// ModeNested nests each branch's children inside the branch markup.
	ModeNested Mode = iota
	// ModeFlat renders each level into its own sibling container.
	ModeFlat
)

func (m Mode) String() string {
	switch m {
	case ModeNested:
		return "nested"
	case ModeFlat:
		return "flat"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeNested, ModeFlat:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("tree: unknown mode %d", int(m))
	}
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "nested":
		*m = ModeNested
	case "flat":
		*m = ModeFlat
	default:
		return fmt.Errorf("tree: unknown mode %q", text)
	}
	return nil
}

// Config holds the presentational settings of a widget. UpLevelContent and
// NodePrefix are trusted host markup and are written unescaped.
type Config struct {
	LeafClass      string        `json:"leaf_class,omitempty"`
	NodeClass      string        `json:"node_class,omitempty"`
	ContainerClass string        `json:"container_class,omitempty"`
	UpClass        string        `json:"up_class,omitempty"`
	UpLevelContent template.HTML `json:"up_level_content,omitempty"`
	NodePrefix     template.HTML `json:"node_prefix,omitempty"`
}

// DefaultConfig returns the class names styled by the stock theme.
func DefaultConfig() Config {
	return Config{
		LeafClass:      "treeleaf",
		NodeClass:      "treenode",
		ContainerClass: "treesub",
		UpClass:        "browserup",
		UpLevelContent: "..",
	}
}
