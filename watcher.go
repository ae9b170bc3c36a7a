package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/razvandimescu/peekwiki/internal/logger"
)

// contentWatcher records when each watched root last changed on disk.
// Widgets listing a root repopulate when their snapshot is older.
type contentWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	roots   []string
	changed map[string]time.Time
	log     *logger.Logger
	now     func() time.Time
}

func newContentWatcher(log *logger.Logger) (*contentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &contentWatcher{
		watcher: watcher,
		changed: make(map[string]time.Time),
		log:     log,
		now:     time.Now,
	}, nil
}

// watchDirectory adds root and every non-excluded directory below it.
func (m *contentWatcher) watchDirectory(root string) error {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	if err := m.watcher.Add(resolved); err != nil {
		return err
	}

	m.mu.Lock()
	m.roots = append(m.roots, resolved)
	m.mu.Unlock()

	dirsToWatch, err := collectDirectories(resolved, parseIgnoreFile(resolved, m.log))
	if err != nil {
		return fmt.Errorf("directory walk failed: %w", err)
	}
	for _, dir := range dirsToWatch {
		if err := m.watcher.Add(dir); err != nil {
			m.log.Warnw("cannot watch directory", "dir", dir, "error", err)
		}
	}
	return nil
}

// collectDirectories walks the directory tree and returns paths to watch
func collectDirectories(root string, patterns []string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != root {
			if isExcludedDir(d.Name(), patterns) {
				return filepath.SkipDir
			}
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// run consumes watcher events until ctx is cancelled.
func (m *contentWatcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			m.handle(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Warnw("content watcher error", "error", err)
		}
	}
}

func (m *contentWatcher) handle(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			m.handleDirCreated(event.Name)
		}
	}

	root := m.rootOf(event.Name)
	if root == "" {
		return
	}
	m.log.Debugw("content changed", "path", event.Name, "op", event.Op.String())
	m.touch(root)
}

// handleDirCreated watches a new directory unless it is excluded or resolves
// outside every root.
func (m *contentWatcher) handleDirCreated(dir string) {
	if isExcludedDir(filepath.Base(dir), nil) {
		return
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil || m.rootOf(resolved) == "" {
		return
	}
	if err := m.watcher.Add(dir); err != nil {
		m.log.Warnw("cannot watch new directory", "dir", dir, "error", err)
		return
	}
	m.log.Debugw("watching new directory", "dir", dir)
}

func (m *contentWatcher) rootOf(p string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, root := range m.roots {
		if withinRoot(root, p) {
			return root
		}
	}
	return ""
}

// touch marks root as changed now.
func (m *contentWatcher) touch(root string) {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	m.mu.Lock()
	m.changed[root] = m.now()
	m.mu.Unlock()
}

// lastChange returns the last recorded change under root, zero if none.
func (m *contentWatcher) lastChange(root string) time.Time {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed[root]
}

// staleSince reports whether a snapshot captured at t predates the last
// change under root.
func (m *contentWatcher) staleSince(root string, t time.Time) bool {
	return t.Before(m.lastChange(root))
}

func (m *contentWatcher) close() error {
	return m.watcher.Close()
}
