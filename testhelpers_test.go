package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/razvandimescu/peekwiki/internal/logger"
	"github.com/razvandimescu/peekwiki/internal/viewstate"
)

// testApp serves a wiki rooted in temporary directories.
type testApp struct {
	*app
	handler http.Handler
}

// newTestApp builds an app over empty content and attachment directories.
// Options adjust the config before the app is built.
func newTestApp(t *testing.T, opts ...func(*Config)) *testApp {
	t.Helper()
	return newTestAppWithStore(t, viewstate.NewMemory(time.Minute), opts...)
}

func newTestAppWithStore(t *testing.T, store viewstate.Backend, opts ...func(*Config)) *testApp {
	t.Helper()

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Listen = testListenAddr
	cfg.ContentDir = filepath.Join(dir, "pages")
	cfg.AttachmentsDir = filepath.Join(dir, "attachments")
	for _, opt := range opts {
		opt(&cfg)
	}

	a, err := newApp(cfg, logger.Nop(), store)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() {
		a.close()
		store.Close()
	})
	return &testApp{app: a, handler: a.routes()}
}

// serve runs one request through the router, attaching cookies.
func (ta *testApp) serve(t *testing.T, method, target string, body io.Reader, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if method == http.MethodPost && body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

// session performs a request to obtain a session cookie.
func (ta *testApp) session(t *testing.T) *http.Cookie {
	t.Helper()
	rec := ta.serve(t, http.MethodGet, "/widgets/nav", nil)
	c := findCookie(rec, sessionCookieName)
	if c == nil {
		t.Fatal("expected a session cookie")
	}
	return c
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// createTestFile writes content to root/rel, creating parent directories.
func createTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", p, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file %s: %v", p, err)
	}
	return p
}

// symlinkOrSkip creates a symlink, skipping the test where that is not
// permitted.
func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

// failingStore is a backend whose health check always fails.
type failingStore struct {
	*viewstate.Memory
}

var errStoreDown = errors.New("store down")

func (failingStore) Ping(context.Context) error { return errStoreDown }

// assertContains checks if the content contains all expected strings
func assertContains(t *testing.T, content string, expected ...string) {
	t.Helper()
	for _, exp := range expected {
		if !strings.Contains(content, exp) {
			t.Errorf("expected content to contain %q", exp)
		}
	}
}

// assertNotContains checks if the content does not contain any of the strings
func assertNotContains(t *testing.T, content string, unexpected ...string) {
	t.Helper()
	for _, unexp := range unexpected {
		if strings.Contains(content, unexp) {
			t.Errorf("expected content NOT to contain %q", unexp)
		}
	}
}

// assertStatusCode checks if the status code matches expected
func assertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected status code %d, got %d", want, got)
	}
}
