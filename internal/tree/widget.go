package tree

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/razvandimescu/peekwiki/internal/logger"
)

// Widget ties a data source, a layout and a state cache together. A Widget
// is shared by all requests; per-session state lives only in the cache.
type Widget struct {
	id     string
	mode   Mode
	cfg    Config
	source DataSource
	store  Store
	cache  *StateCache
	log    *logger.Logger
}

// Option configures a Widget.
type Option func(*Widget)

// WithConfig sets the presentational configuration.
func WithConfig(cfg Config) Option {
	return func(w *Widget) { w.cfg = cfg }
}

// WithSource sets the data source consulted on population.
func WithSource(src DataSource) Option {
	return func(w *Widget) { w.source = src }
}

// WithStore enables the state cache on store.
func WithStore(store Store) Option {
	return func(w *Widget) { w.store = store }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(w *Widget) { w.log = log }
}

// NewWidget creates a widget whose markup is rooted at an element with id.
// Without a store the widget renders populated snapshots but cannot
// re-render them on later requests.
func NewWidget(id string, mode Mode, opts ...Option) *Widget {
	w := &Widget{
		id:   id,
		mode: mode,
		cfg:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Nop()
	}
	w.log = w.log.With("widget", id)
	if w.store != nil {
		w.cache = NewStateCache(w.store, id, w.log)
	}
	return w
}

// ID returns the widget id.
func (w *Widget) ID() string { return w.id }

// Mode returns the layout strategy.
func (w *Widget) Mode() Mode { return w.mode }

// Config returns the presentational configuration.
func (w *Widget) Config() Config { return w.cfg }

// Populate calls the data source once, captures the result and stores it as
// the snapshot of scope, replacing any previous one. The returned snapshot is
// always usable: a failing or cyclic source degrades to an empty forest and
// the failure is returned alongside it.
func (w *Widget) Populate(ctx context.Context, scope string) (*Snapshot, error) {
	var forest []*Node
	var srcErr error
	if w.source != nil {
		forest, srcErr = w.source.Populate(ctx)
		if srcErr != nil {
			w.log.Warnw("data source failed, using empty tree", "error", srcErr)
			forest = nil
		}
	}

	snap, err := Capture(w.id, w.mode, w.cfg, forest)
	if err != nil {
		w.log.Warnw("rejecting populated tree", "error", err)
		srcErr = errors.Join(srcErr, err)
		snap, _ = Capture(w.id, w.mode, w.cfg, nil)
	}

	if w.cache != nil {
		if err := w.cache.Save(ctx, scope, snap); err != nil {
			w.log.Errorw("failed to save view state", "scope", scope, "error", err)
			return snap, errors.Join(srcErr, err)
		}
	}

	w.log.Debugw("populated", "scope", scope, "nodes", snap.NodeCount())
	return snap, srcErr
}

// Load returns the stored snapshot of scope.
func (w *Widget) Load(ctx context.Context, scope string) (*Snapshot, bool, error) {
	if w.cache == nil {
		return nil, false, nil
	}
	return w.cache.Load(ctx, scope)
}

// Render re-renders the stored snapshot of scope without consulting the
// data source. A scope never populated renders an empty top-level
// container; so does a store failure, which is also returned.
func (w *Widget) Render(ctx context.Context, scope string) (template.HTML, error) {
	snap, found, err := w.Load(ctx, scope)
	if err != nil {
		w.log.Errorw("failed to load view state", "scope", scope, "error", err)
		return w.RenderSnapshot(nil), err
	}
	if !found {
		return w.RenderSnapshot(nil), nil
	}
	return w.RenderSnapshot(snap), nil
}

// RenderSnapshot renders snap with the widget's id, mode and configuration.
// A nil snapshot renders an empty container.
func (w *Widget) RenderSnapshot(snap *Snapshot) template.HTML {
	var nodes []*Node
	if snap != nil {
		nodes = snap.Nodes
	}
	return renderHTML(w.id, w.mode, w.cfg, nodes)
}

// Reset discards the stored snapshot of scope.
func (w *Widget) Reset(ctx context.Context, scope string) error {
	if w.cache == nil {
		return nil
	}
	if err := w.cache.Clear(ctx, scope); err != nil {
		return fmt.Errorf("reset widget %s: %w", w.id, err)
	}
	return nil
}
