package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/razvandimescu/peekwiki/internal/logger"
)

// Store persists opaque blobs by key. Implementations live in
// internal/viewstate.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// StateCache keeps the last snapshot of one widget per scope (a session).
// Each slot holds at most one snapshot and Save replaces it.
type StateCache struct {
	store    Store
	widgetID string
	log      *logger.Logger
	locks    slotLocks
}

// NewStateCache binds store to widgetID.
func NewStateCache(store Store, widgetID string, log *logger.Logger) *StateCache {
	if log == nil {
		log = logger.Nop()
	}
	return &StateCache{
		store:    store,
		widgetID: widgetID,
		log:      log,
		locks:    slotLocks{slots: make(map[string]*slotLock)},
	}
}

// keyPartEscaper keeps the separator out of key parts so no two
// (scope, widget) pairs share a key.
var keyPartEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Key returns the store key of the slot for scope.
func (c *StateCache) Key(scope string) string {
	return "viewstate:" + keyPartEscaper.Replace(scope) + ":" + keyPartEscaper.Replace(c.widgetID)
}

// Save replaces the slot for scope with snap.
func (c *StateCache) Save(ctx context.Context, scope string, snap *Snapshot) error {
	if snap == nil {
		return errors.New("save snapshot: nil snapshot")
	}
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	key := c.Key(scope)
	unlock := c.locks.lock(key)
	defer unlock()

	if err := c.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Load returns the snapshot for scope. A missing slot is reported as
// (nil, false, nil). An undecodable slot is logged and also reported as
// missing.
func (c *StateCache) Load(ctx context.Context, scope string) (*Snapshot, bool, error) {
	key := c.Key(scope)
	unlock := c.locks.lock(key)
	data, found, err := c.store.Get(ctx, key)
	unlock()

	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	if !found {
		return nil, false, nil
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		c.log.Warnw("discarding unreadable view state", "key", key, "error", err)
		return nil, false, nil
	}
	return snap, true, nil
}

// Clear empties the slot for scope.
func (c *StateCache) Clear(ctx context.Context, scope string) error {
	key := c.Key(scope)
	unlock := c.locks.lock(key)
	defer unlock()

	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear snapshot %s: %w", key, err)
	}
	return nil
}

// slotLocks hands out one mutex per key and forgets it once no caller
// holds or waits for it.
type slotLocks struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

type slotLock struct {
	sync.Mutex
	refs int
}

func (l *slotLocks) lock(key string) (unlock func()) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slotLock{}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	s.Lock()
	return func() {
		s.Unlock()
		l.mu.Lock()
		s.refs--
		if s.refs == 0 {
			delete(l.slots, key)
		}
		l.mu.Unlock()
	}
}

func (l *slotLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
