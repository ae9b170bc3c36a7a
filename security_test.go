package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestPageStoreResolve(t *testing.T) {
	store, err := newPageStore(t.TempDir())
	if err != nil {
		t.Fatalf("newPageStore: %v", err)
	}

	tests := []struct {
		name      string
		input     string
		wantClean string
		wantErr   bool
	}{
		{name: "simple page", input: "index", wantClean: "index"},
		{name: "nested page", input: "guides/install", wantClean: "guides/install"},
		{name: "markdown suffix stripped", input: "guides/install.md", wantClean: "guides/install"},
		{name: "leading slash", input: "/index", wantClean: "index"},
		{name: "duplicate slashes", input: "guides//install", wantClean: "guides/install"},
		{name: "current dir segment", input: "./guides/install", wantClean: "guides/install"},
		{name: "spaces allowed", input: "my notes/day one", wantClean: "my notes/day one"},
		{name: "empty", input: "", wantErr: true},
		{name: "root only", input: "/", wantErr: true},
		{name: "dot", input: ".", wantErr: true},
		{name: "path traversal", input: testPathTraversal, wantErr: true},
		{name: "traversal in the middle", input: "guides/../../secret", wantErr: true},
		{name: "traversal that stays inside", input: "guides/../index", wantErr: true},
		{name: "null byte", input: testPathNullByte, wantErr: true},
		{name: "backslash", input: `guides\install`, wantErr: true},
		{name: "hidden file", input: ".env", wantErr: true},
		{name: "hidden directory", input: ".git/config", wantErr: true},
		{name: "hidden nested directory", input: "guides/.drafts/wip", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, abs, err := store.resolve(tt.input)
			if tt.wantErr {
				if !errors.Is(err, errInvalidPath) {
					t.Errorf("expected errInvalidPath for %q, got clean=%q err=%v", tt.input, clean, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.input, err)
			}
			if clean != tt.wantClean {
				t.Errorf("expected clean path %q, got %q", tt.wantClean, clean)
			}
			wantAbs := filepath.Join(store.root, filepath.FromSlash(tt.wantClean)+".md")
			if abs != wantAbs {
				t.Errorf("expected abs path %q, got %q", wantAbs, abs)
			}
		})
	}
}

func TestPageStoreResolve_SymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	createTestFile(t, outside, "secret.md", "# Secret")

	store, err := newPageStore(t.TempDir())
	if err != nil {
		t.Fatalf("newPageStore: %v", err)
	}
	createTestFile(t, store.root, "real.md", "# Real")

	symlinkOrSkip(t, filepath.Join(outside, "secret.md"), filepath.Join(store.root, "leak.md"))
	symlinkOrSkip(t, outside, filepath.Join(store.root, "linked"))
	symlinkOrSkip(t, filepath.Join(store.root, "real.md"), filepath.Join(store.root, "alias.md"))

	for _, p := range []string{"leak", "linked/secret"} {
		if _, _, err := store.resolve(p); !errors.Is(err, errInvalidPath) {
			t.Errorf("expected symlink escape %q to be rejected, got %v", p, err)
		}
		if _, err := store.Read(p); err == nil {
			t.Errorf("expected Read(%q) to fail", p)
		}
	}

	// Links that stay under the root are fine.
	data, err := store.Read("alias")
	if err != nil {
		t.Fatalf("Read(alias): %v", err)
	}
	if string(data) != "# Real" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestHTTPPathTraversal(t *testing.T) {
	ta := newTestApp(t)
	createTestFile(t, filepath.Dir(ta.pages.root), "secret.md", "# Secret")

	for _, target := range []string{
		testPathURLEncoded,
		"/wiki/..%2fsecret",
		"/edit/..%2fsecret",
		"/wiki/guides/..%2f..%2fsecret",
		"/wiki/.git%2fconfig",
	} {
		t.Run(target, func(t *testing.T) {
			rec := ta.serve(t, http.MethodGet, target, nil)
			assertStatusCode(t, rec.Code, http.StatusForbidden)
			assertNotContains(t, rec.Body.String(), "Secret")
		})
	}

	form := url.Values{"content": {"pwned"}}
	rec := ta.serve(t, http.MethodPost, "/save/..%2fescaped", strings.NewReader(form.Encode()))
	assertStatusCode(t, rec.Code, http.StatusForbidden)
	if _, err := os.Stat(filepath.Join(filepath.Dir(ta.pages.root), "escaped.md")); !os.IsNotExist(err) {
		t.Error("save escaped the content root")
	}
}

func TestServeAttachment_Security(t *testing.T) {
	ta := newTestApp(t)
	createTestFile(t, ta.pages.root, "private.md", "# Private")
	createTestFile(t, ta.attachments, ".env", "SECRET=1")
	createTestFile(t, ta.attachments, ".git/config", "[core]")
	outside := t.TempDir()
	createTestFile(t, outside, "passwd", "root:x:0:0")

	symlinkOrSkip(t, filepath.Join(outside, "passwd"), filepath.Join(ta.attachments, "passwd"))

	for _, target := range []string{
		"/attachments/.env",
		"/attachments/.git/config",
		"/attachments/..%2fpages%2fprivate.md",
		"/attachments/img/..%2f..%2f..%2fpages%2fprivate.md",
		"/attachments/passwd",
	} {
		t.Run(target, func(t *testing.T) {
			rec := ta.serve(t, http.MethodGet, target, nil)
			assertStatusCode(t, rec.Code, http.StatusNotFound)
			assertNotContains(t, rec.Body.String(), "SECRET", "[core]", "Private", "root:x")
		})
	}
}

func TestCSRFCheck(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.session(t)

	tests := []struct {
		name   string
		origin string
		want   int
	}{
		{name: "foreign origin", origin: testOriginForeign, want: http.StatusForbidden},
		{name: "similar host", origin: "http://localhost:6420.evil.example", want: http.StatusForbidden},
		{name: "listen address", origin: "http://" + testListenAddr, want: http.StatusSeeOther},
		{name: "localhost on the same port", origin: testOriginLocal, want: http.StatusSeeOther},
		{name: "no origin", origin: "", want: http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"content": {"# " + tt.name}}
			req := newFormRequest(t, "/save/csrf", form)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			req.AddCookie(cookie)
			rec := serveRequest(ta, req)
			assertStatusCode(t, rec.Code, tt.want)
		})
	}

	// A rejected save leaves the last accepted content in place.
	data, err := os.ReadFile(filepath.Join(ta.pages.root, "csrf.md"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if string(data) != "# no origin" {
		t.Errorf("unexpected page content %q", data)
	}

	req := newFormRequest(t, "/widgets/nav/populate", nil)
	req.Header.Set("Origin", testOriginForeign)
	rec := serveRequest(ta, req)
	assertStatusCode(t, rec.Code, http.StatusForbidden)

	// Safe methods are never blocked.
	req = httptest.NewRequest(http.MethodGet, "/widgets/nav", nil)
	req.Header.Set("Origin", testOriginForeign)
	rec = serveRequest(ta, req)
	assertStatusCode(t, rec.Code, http.StatusOK)
}

func TestWidgetEscapesLabels(t *testing.T) {
	ta := newTestApp(t)
	createTestFile(t, ta.pages.root, "xss.md", "---\ntitle: \""+testScriptLabel+"\"\n---\nbody")
	cookie := ta.session(t)

	rec := ta.serve(t, http.MethodPost, "/widgets/nav/populate", nil, cookie)

	assertStatusCode(t, rec.Code, http.StatusOK)
	assertNotContains(t, rec.Body.String(), testScriptLabel)
	assertContains(t, rec.Body.String(), "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestEditEscapesContent(t *testing.T) {
	ta := newTestApp(t)
	createTestFile(t, ta.pages.root, "breakout.md", testTextareaBreakout)

	rec := ta.serve(t, http.MethodGet, "/edit/breakout", nil)

	assertStatusCode(t, rec.Code, http.StatusOK)
	assertNotContains(t, rec.Body.String(), testTextareaBreakout)
	assertContains(t, rec.Body.String(), "&lt;/textarea&gt;")
}

func TestCollectFiles_SymlinkSecurity(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	createTestFile(t, root, "inside.md", "# Inside")
	createTestFile(t, outside, "outside.md", "# Outside")
	createTestFile(t, outside, "sub/deep.md", "# Deep")

	symlinkOrSkip(t, filepath.Join(outside, "outside.md"), filepath.Join(root, "escape.md"))
	symlinkOrSkip(t, filepath.Join(root, "inside.md"), filepath.Join(root, "alias.md"))
	symlinkOrSkip(t, filepath.Join(outside, "sub"), filepath.Join(root, "dirlink"))
	symlinkOrSkip(t, filepath.Join(root, "missing.md"), filepath.Join(root, "dangling.md"))

	files, err := collectFiles(context.Background(), root, nil, isMarkdown)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}

	want := []string{"alias.md", "inside.md"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("expected %v, got %v", want, files)
	}
}

func TestCollectFiles_HardcodedExclusions(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "keep.md", "# Keep")
	createTestFile(t, root, "docs/keep.md", "# Keep")
	for dir := range hardcodedExclusionsMap {
		createTestFile(t, root, dir+"/excluded.md", "# Excluded")
	}
	createTestFile(t, root, ".git/excluded.md", "# Excluded")
	createTestFile(t, root, ".hidden.md", "# Hidden")

	files, err := collectFiles(context.Background(), root, nil, isMarkdown)
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}

	want := []string{"docs/keep.md", "keep.md"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("expected %v, got %v", want, files)
	}
}

func newFormRequest(t *testing.T, target string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serveRequest(ta *testApp, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}
