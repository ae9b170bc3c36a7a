// Package viewstate provides the blob stores behind widget state caches.
// Every store keeps opaque bytes by key with a time-to-live; a key that is
// missing or expired reads as not found.
package viewstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("viewstate: unknown backend")

// DefaultTTL bounds how long an untouched slot survives.
const DefaultTTL = 30 * time.Minute

// Backend is a closable blob store.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	io.Closer
}

// Sweeper is implemented by backends that need expired entries removed
// periodically.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	TTL        time.Duration
	RedisURL   string
	SQLitePath string
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch opts.Backend {
	case "", "memory":
		return NewMemory(ttl), nil
	case "redis":
		r, err := NewRedis(ctx, opts.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "sqlite":
		s, err := NewSQLite(ctx, opts.SQLitePath, ttl)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
