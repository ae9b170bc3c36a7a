package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"

	"github.com/razvandimescu/peekwiki/internal/logger"
	"github.com/razvandimescu/peekwiki/internal/tree"
	"github.com/razvandimescu/peekwiki/internal/viewstate"
)

const (
	navWidgetID   = "nav"
	filesWidgetID = "files"
)

// widgetBinding pairs a widget with the directory its source lists.
type widgetBinding struct {
	widget *tree.Widget
	root   string
}

// app holds everything the handlers share.
type app struct {
	cfg          Config
	log          *logger.Logger
	store        viewstate.Backend
	pages        *pageStore
	attachments  string
	md           goldmark.Markdown
	watcher      *contentWatcher
	widgets      map[string]*widgetBinding
	tmpl         *templates
	highlightCSS []byte
}

func newApp(cfg Config, log *logger.Logger, store viewstate.Backend) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pages, err := newPageStore(cfg.ContentDir)
	if err != nil {
		return nil, err
	}
	attachments, err := filepath.Abs(cfg.AttachmentsDir)
	if err != nil {
		return nil, fmt.Errorf("invalid attachments dir: %w", err)
	}
	if err := os.MkdirAll(attachments, 0755); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	css, err := highlightStylesheet("github")
	if err != nil {
		return nil, err
	}

	watcher, err := newContentWatcher(log.Named("watcher"))
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range []string{pages.root, attachments} {
		if err := watcher.watchDirectory(dir); err != nil {
			log.Warnw("cannot watch directory for changes", "dir", dir, "error", err)
		}
	}

	a := &app{
		cfg:          cfg,
		log:          log,
		store:        store,
		pages:        pages,
		attachments:  attachments,
		md:           newMarkdownRenderer(),
		watcher:      watcher,
		tmpl:         tmpl,
		highlightCSS: css,
	}
	if err := a.buildWidgets(); err != nil {
		watcher.close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildWidgets() error {
	navMode, err := a.cfg.navigationMode()
	if err != nil {
		return err
	}
	widgetLog := a.log.Named("widget")

	var navSource tree.DataSource = &pageTreeSource{root: a.pages.root, log: widgetLog}
	if a.cfg.Navigation.GroupBy == "category" {
		navSource = &categorySource{root: a.pages.root, log: widgetLog}
	}

	navConfig := tree.DefaultConfig()
	filesConfig := tree.DefaultConfig()
	filesConfig.NodePrefix = `<span class="folder-icon"></span>`
	filesConfig.UpLevelContent = `<span class="up-icon"></span>..`

	a.widgets = map[string]*widgetBinding{
		navWidgetID: {
			widget: tree.NewWidget(navWidgetID, navMode,
				tree.WithSource(navSource),
				tree.WithConfig(navConfig),
				tree.WithStore(a.store),
				tree.WithLogger(widgetLog)),
			root: a.pages.root,
		},
		filesWidgetID: {
			widget: tree.NewWidget(filesWidgetID, tree.ModeFlat,
				tree.WithSource(&attachmentSource{root: a.attachments, log: widgetLog}),
				tree.WithConfig(filesConfig),
				tree.WithStore(a.store),
				tree.WithLogger(widgetLog)),
			root: a.attachments,
		},
	}
	return nil
}

// widgetHTML renders the session's stored snapshot, repopulating first when
// there is none or the listed directory changed after it was captured.
func (a *app) widgetHTML(ctx context.Context, id, scope string) template.HTML {
	b := a.widgets[id]
	snap, found, err := b.widget.Load(ctx, scope)
	if err != nil {
		a.log.Warnw("cannot load view state", "widget", id, "error", err)
	}
	if found && !a.watcher.staleSince(b.root, snap.CapturedAt) {
		return b.widget.RenderSnapshot(snap)
	}
	snap, _ = b.widget.Populate(ctx, scope)
	return b.widget.RenderSnapshot(snap)
}

func (a *app) close() error {
	return a.watcher.close()
}

// highlightStylesheet renders the chroma style used for code blocks.
func highlightStylesheet(name string) ([]byte, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(name)); err != nil {
		return nil, fmt.Errorf("highlight stylesheet: %w", err)
	}
	return buf.Bytes(), nil
}
