package tree

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
)

// memStore is a minimal Store for tests in this package.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	puts    int
	failGet error
	failPut error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.puts++
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, false, s.failGet
	}
	data, ok := s.data[key]
	return data, ok, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var errBackend = errors.New("backend unavailable")

// exampleForest is the documentation scenario: one folder with one file,
// followed by a top-level file.
func exampleForest() []*Node {
	return []*Node{
		Branch("docs", "Docs", Leaf("a.txt", "a.txt", "open('a.txt')")),
		Leaf("readme.md", "readme.md", "open('readme.md')"),
	}
}

// deepForest has three levels and mixed siblings.
func deepForest() []*Node {
	return []*Node{
		Branch("guides", "Guides",
			Leaf("install", "Install", "go('install')"),
			Branch("advanced", "Advanced",
				Leaf("tuning", "Tuning", "go('tuning')"),
				Leaf("scaling", "Scaling", "go('scaling')"),
			),
		),
		Leaf("faq", "FAQ", "go('faq')"),
		Branch("api", "API", Leaf("rest", "REST", "go('rest')")),
	}
}

var idAttr = regexp.MustCompile(` id="([^"]*)"`)

// renderedIDs returns every id attribute in document order.
func renderedIDs(t *testing.T, html string) []string {
	t.Helper()
	var ids []string
	for _, m := range idAttr.FindAllStringSubmatch(html, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func assertUnique(t *testing.T, ids []string) {
	t.Helper()
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %q in %v", id, ids)
		}
		seen[id] = true
	}
}
