package main

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

var (
	errInvalidPath  = errors.New("invalid page path")
	errPageNotFound = errors.New("page not found")
)

// frontMatter is the optional YAML header of a page.
type frontMatter struct {
	Title      string   `yaml:"title"`
	Categories []string `yaml:"categories"`
}

// parseFrontMatter splits a leading "---" block from the body. Content
// without a header returns the zero frontMatter and the content unchanged.
func parseFrontMatter(content []byte) (frontMatter, []byte, error) {
	var fm frontMatter

	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return fm, content, nil
	}
	rest := normalized[len("---\n"):]

	var header, body []byte
	switch {
	case bytes.HasPrefix(rest, []byte("---\n")):
		body = rest[len("---\n"):]
	case bytes.Equal(rest, []byte("---")):
	default:
		end := bytes.Index(rest, []byte("\n---\n"))
		if end >= 0 {
			header, body = rest[:end], rest[end+len("\n---\n"):]
		} else if bytes.HasSuffix(rest, []byte("\n---")) {
			header = rest[:len(rest)-len("\n---")]
		} else {
			return fm, content, nil
		}
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return frontMatter{}, body, fmt.Errorf("front matter: %w", err)
	}
	return fm, body, nil
}

// pageTitle returns the front-matter title or the file name without .md.
func pageTitle(fm frontMatter, rel string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	return strings.TrimSuffix(path.Base(filepath.ToSlash(rel)), ".md")
}

// pageStore maps wiki paths to markdown files under root.
type pageStore struct {
	root string
}

func newPageStore(root string) (*pageStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid content dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve content dir: %w", err)
	}
	return &pageStore{root: resolved}, nil
}

// resolve validates a wiki path such as "guides/install" and returns the
// cleaned wiki path together with the absolute file path.
func (s *pageStore) resolve(wikiPath string) (string, string, error) {
	if strings.ContainsRune(wikiPath, 0) || strings.Contains(wikiPath, `\`) {
		return "", "", errInvalidPath
	}
	for _, seg := range strings.Split(wikiPath, "/") {
		if seg == ".." {
			return "", "", errInvalidPath
		}
	}

	clean := strings.TrimPrefix(path.Clean("/"+wikiPath), "/")
	clean = strings.TrimSuffix(clean, ".md")
	if clean == "" || clean == "." {
		return "", "", errInvalidPath
	}
	for _, seg := range strings.Split(clean, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", "", errInvalidPath
		}
	}

	abs := filepath.Join(s.root, filepath.FromSlash(clean)+".md")
	if !withinRoot(s.root, abs) {
		return "", "", errInvalidPath
	}

	// Existing files must not escape root through a symlink.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && !withinRoot(s.root, resolved) {
		return "", "", errInvalidPath
	}
	return clean, abs, nil
}

// Read returns the raw markdown of the page.
func (s *pageStore) Read(wikiPath string) ([]byte, error) {
	_, abs, err := s.resolve(wikiPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read page %s: %w", wikiPath, err)
	}
	return data, nil
}

// Exists reports whether the page file exists.
func (s *pageStore) Exists(wikiPath string) bool {
	_, abs, err := s.resolve(wikiPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Write creates or replaces the page, creating parent directories.
func (s *pageStore) Write(wikiPath, content string) error {
	_, abs, err := s.resolve(wikiPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create page dir: %w", err)
	}
	return atomicWriteFile(abs, content)
}

func atomicWriteFile(path, content string) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".peekwiki-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// withinRoot reports whether p is root or lies below it.
func withinRoot(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// newMarkdownRenderer creates a configured goldmark renderer
func newMarkdownRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// renderedPage is a page ready for the page template.
type renderedPage struct {
	Path        string
	Title       string
	Categories  []string
	Body        template.HTML
	HeaderError error
}

// renderPage strips front matter and converts the body to HTML. A broken
// header is kept in HeaderError and the whole file is rendered instead.
func renderPage(md goldmark.Markdown, wikiPath string, content []byte) (renderedPage, error) {
	fm, body, fmErr := parseFrontMatter(content)
	if fmErr != nil {
		body = content
	}

	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return renderedPage{}, fmt.Errorf("render %s: %w", wikiPath, err)
	}
	return renderedPage{
		Path:        wikiPath,
		Title:       pageTitle(fm, wikiPath),
		Categories:  fm.Categories,
		Body:        template.HTML(buf.String()),
		HeaderError: fmErr,
	}, nil
}
