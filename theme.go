package main

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed theme/*
var themeFS embed.FS

// templates holds one parsed set per page kind, each sharing the layout.
type templates struct {
	page    *template.Template
	missing *template.Template
	edit    *template.Template
}

// viewData is passed to every page template.
type viewData struct {
	Title   string
	Path    string
	Page    renderedPage
	Nav     template.HTML
	Files   template.HTML
	Content string
	Exists  bool
}

func loadTemplates() (*templates, error) {
	funcs := template.FuncMap{
		"pageURL": pageURL,
		"editURL": func(wikiPath string) string { return "/edit" + pageURL(wikiPath)[len("/wiki"):] },
		"saveURL": func(wikiPath string) string { return "/save" + pageURL(wikiPath)[len("/wiki"):] },
	}
	parse := func(name string) (*template.Template, error) {
		t, err := template.New(name).Funcs(funcs).ParseFS(themeFS, "theme/layout.html", "theme/"+name)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", name, err)
		}
		return t, nil
	}

	var t templates
	var err error
	if t.page, err = parse("page.html"); err != nil {
		return nil, err
	}
	if t.missing, err = parse("missing.html"); err != nil {
		return nil, err
	}
	if t.edit, err = parse("edit.html"); err != nil {
		return nil, err
	}
	return &t, nil
}

// staticFS serves the theme directory under /static/.
func staticFS() fs.FS {
	sub, err := fs.Sub(themeFS, "theme")
	if err != nil {
		panic(err)
	}
	return sub
}
