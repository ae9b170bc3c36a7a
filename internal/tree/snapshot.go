package tree

import (
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/goccy/go-json"
)

// SnapshotVersion is the encoding version written by Encode.
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when decoding a snapshot written by an
// incompatible version.
var ErrSnapshotVersion = errors.New("tree: unsupported snapshot version")

// Snapshot captures a populated forest together with the configuration in
// effect at population time. Nodes is a private copy; nothing outside the
// snapshot holds a reference to it.
type Snapshot struct {
	Version    int       `json:"v"`
	WidgetID   string    `json:"widget"`
	Mode       Mode      `json:"mode"`
	Config     Config    `json:"config"`
	Nodes      []*Node   `json:"nodes"`
	CapturedAt time.Time `json:"captured_at"`
}

// Capture copies forest into a new snapshot.
func Capture(widgetID string, mode Mode, cfg Config, forest []*Node) (*Snapshot, error) {
	nodes, err := Clone(forest)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Version:    SnapshotVersion,
		WidgetID:   widgetID,
		Mode:       mode,
		Config:     cfg,
		Nodes:      nodes,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// NodeCount returns the number of nodes held by the snapshot.
func (s *Snapshot) NodeCount() int {
	return Count(s.Nodes)
}

// Render reproduces the markup with the configuration captured at
// population time.
func (s *Snapshot) Render() template.HTML {
	return renderHTML(s.WidgetID, s.Mode, s.Config, s.Nodes)
}

// Encode serializes the snapshot.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses data written by Encode.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	return &s, nil
}
