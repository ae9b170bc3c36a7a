package tree

import "context"

// DataSource produces a fresh forest on demand. The widget calls Populate
// once per population request and never mutates the result.
type DataSource interface {
	Populate(ctx context.Context) ([]*Node, error)
}

// SourceFunc adapts a function to DataSource.
type SourceFunc func(ctx context.Context) ([]*Node, error)

// Populate calls f.
func (f SourceFunc) Populate(ctx context.Context) ([]*Node, error) {
	return f(ctx)
}

// Static returns a DataSource that always yields forest.
func Static(forest ...*Node) DataSource {
	return SourceFunc(func(context.Context) ([]*Node, error) {
		return forest, nil
	})
}
