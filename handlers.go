package main

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/razvandimescu/peekwiki/internal/logger"
)

// routes builds the router.
func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(withRecovery(a.log))
	r.Use(withRequestLog(a.log.Named("http")))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS()))))
	r.Get("/highlight.css", a.serveHighlightCSS)
	r.Get("/healthz", a.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(withSession)
		r.Use(withCSRFCheck(a.cfg.Listen, a.log))

		r.Get("/", a.handleHome)
		r.Get("/wiki/*", a.handleWiki)
		r.Get("/edit/*", a.handleEdit)
		r.Post("/save/*", a.handleSave)
		r.Get("/attachments/*", a.serveAttachment)

		r.Route("/widgets/{id}", func(r chi.Router) {
			r.Use(noCache)
			r.Get("/", a.handleWidget)
			r.Post("/populate", a.handleWidgetPopulate)
			r.Get("/snapshot", a.handleWidgetSnapshot)
		})
	})
	return r
}

// withRecovery wraps an HTTP handler with panic recovery
func withRecovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Errorw("panic serving request", "path", r.URL.Path, "panic", err, "stack", string(debug.Stack()))
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// withCSRFCheck rejects cross-origin state-changing requests by validating
// the Origin header against the listen address.
func withCSRFCheck(listen string, log *logger.Logger) func(http.Handler) http.Handler {
	allowed := map[string]bool{"http://" + listen: true}
	if _, port, err := net.SplitHostPort(listen); err == nil {
		allowed["http://localhost:"+port] = true
		allowed["http://127.0.0.1:"+port] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if origin := r.Header.Get("Origin"); origin != "" && !allowed[origin] {
					log.Warnw("rejected cross-origin request", "origin", origin, "path", r.URL.Path)
					http.Error(w, "Forbidden: cross-origin request", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withRequestLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

// wikiPathFrom returns the decoded path after prefix, e.g. "/wiki/".
func wikiPathFrom(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, pageURL(a.cfg.HomePage), http.StatusFound)
}

func (a *app) handleWiki(w http.ResponseWriter, r *http.Request) {
	wikiPath, _, err := a.pages.resolve(wikiPathFrom(r, "/wiki/"))
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	data := viewData{
		Title: wikiPath,
		Path:  wikiPath,
		Nav:   a.widgetHTML(r.Context(), navWidgetID, sessionID(r)),
	}

	content, err := a.pages.Read(wikiPath)
	if errors.Is(err, errPageNotFound) {
		a.renderView(w, a.tmpl.missing, http.StatusNotFound, data)
		return
	}
	if err != nil {
		a.log.Errorw("cannot read page", "path", wikiPath, "error", err)
		http.Error(w, "Failed to read page", http.StatusInternalServerError)
		return
	}

	page, err := renderPage(a.md, wikiPath, content)
	if err != nil {
		a.log.Errorw("cannot render page", "path", wikiPath, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	if page.HeaderError != nil {
		a.log.Warnw("invalid front matter", "path", wikiPath, "error", page.HeaderError)
	}
	data.Title = page.Title
	data.Page = page
	data.Exists = true
	a.renderView(w, a.tmpl.page, http.StatusOK, data)
}

func (a *app) handleEdit(w http.ResponseWriter, r *http.Request) {
	wikiPath, _, err := a.pages.resolve(wikiPathFrom(r, "/edit/"))
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	var content []byte
	exists := a.pages.Exists(wikiPath)
	if exists {
		if content, err = a.pages.Read(wikiPath); err != nil {
			a.log.Errorw("cannot read page", "path", wikiPath, "error", err)
			http.Error(w, "Failed to read page", http.StatusInternalServerError)
			return
		}
	}

	scope := sessionID(r)
	a.renderView(w, a.tmpl.edit, http.StatusOK, viewData{
		Title:   "Edit " + wikiPath,
		Path:    wikiPath,
		Nav:     a.widgetHTML(r.Context(), navWidgetID, scope),
		Files:   a.widgetHTML(r.Context(), filesWidgetID, scope),
		Content: string(content),
		Exists:  exists,
	})
}

func (a *app) handleSave(w http.ResponseWriter, r *http.Request) {
	wikiPath, _, err := a.pages.resolve(wikiPathFrom(r, "/save/"))
	if err != nil {
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	content := strings.ReplaceAll(r.FormValue("content"), "\r\n", "\n")
	if err := a.pages.Write(wikiPath, content); err != nil {
		a.log.Errorw("cannot save page", "path", wikiPath, "error", err)
		http.Error(w, "Failed to save page", http.StatusInternalServerError)
		return
	}
	a.watcher.touch(a.pages.root)
	a.log.Infow("page saved", "path", wikiPath, "bytes", len(content))

	http.Redirect(w, r, pageURL(wikiPath), http.StatusSeeOther)
}

func (a *app) serveAttachment(w http.ResponseWriter, r *http.Request) {
	rel := wikiPathFrom(r, "/attachments/")
	clean := strings.TrimPrefix(path.Clean("/"+rel), "/")
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			http.NotFound(w, r)
			return
		}
	}

	abs := filepath.Join(a.attachments, filepath.FromSlash(clean))
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil || !withinRoot(a.attachmentsRoot(), resolved) {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, resolved)
}

func (a *app) attachmentsRoot() string {
	if resolved, err := filepath.EvalSymlinks(a.attachments); err == nil {
		return resolved
	}
	return a.attachments
}

// handleWidget re-renders the session's stored snapshot without consulting
// the data source.
func (a *app) handleWidget(w http.ResponseWriter, r *http.Request) {
	b, ok := a.widgets[chi.URLParam(r, "id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	html, _ := b.widget.Render(r.Context(), sessionID(r))
	writeFragment(w, html)
}

func (a *app) handleWidgetPopulate(w http.ResponseWriter, r *http.Request) {
	b, ok := a.widgets[chi.URLParam(r, "id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	snap, _ := b.widget.Populate(r.Context(), sessionID(r))
	writeFragment(w, b.widget.RenderSnapshot(snap))
}

func (a *app) handleWidgetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, ok := a.widgets[id]
	if !ok {
		http.NotFound(w, r)
		return
	}
	snap, found, err := b.widget.Load(r.Context(), sessionID(r))
	if err != nil {
		a.log.Errorw("cannot load view state", "widget", id, "error", err)
		http.Error(w, "View state unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "No snapshot for this session", http.StatusNotFound)
		return
	}
	data, err := snap.Encode()
	if err != nil {
		a.log.Errorw("cannot encode snapshot", "widget", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		a.log.Warnw("health check failed", "error", err)
		http.Error(w, "view state unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (a *app) serveHighlightCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write(a.highlightCSS)
}

func writeFragment(w http.ResponseWriter, html template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// renderView buffers tmpl before writing the status and body.
func (a *app) renderView(w http.ResponseWriter, tmpl *template.Template, status int, data viewData) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		a.log.Errorw("template execution error", "template", tmpl.Name(), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
