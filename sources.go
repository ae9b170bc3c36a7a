package main

import (
	"bufio"
	"context"
	"html/template"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/razvandimescu/peekwiki/internal/logger"
	"github.com/razvandimescu/peekwiki/internal/tree"
)

const (
	ignoreFileName        = ".wikiignore"
	uncategorizedCategory = "Uncategorized"
)

// Hardcoded directory exclusions (common build artifacts and dependencies)
var hardcodedExclusionsMap = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"venv":         true,
	"env":          true,
	"virtualenv":   true,
}

// parseIgnoreFile reads directory-name patterns from root/.wikiignore.
// A missing file yields no patterns.
func parseIgnoreFile(root string, log *logger.Logger) []string {
	file, err := os.Open(filepath.Join(root, ignoreFileName))
	if err != nil {
		return nil
	}
	defer file.Close()

	const maxPatternLength = 256

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) > maxPatternLength {
			log.Warnw("ignore pattern too long, skipped", "file", ignoreFileName, "max", maxPatternLength)
			continue
		}
		if strings.ContainsAny(line, `/\`) {
			log.Warnw("ignore pattern contains a path separator, skipped", "pattern", line)
			continue
		}
		if _, err := filepath.Match(line, "test"); err != nil {
			log.Warnw("invalid ignore pattern, skipped", "pattern", line, "error", err)
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		log.Warnw("error reading ignore file", "error", err)
		return nil
	}
	return patterns
}

// isExcludedDir returns true if the directory name should be skipped
func isExcludedDir(name string, patterns []string) bool {
	if strings.HasPrefix(name, ".") || hardcodedExclusionsMap[name] {
		return true
	}
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// collectFiles walks root and returns slash-separated paths relative to root
// of every regular file accepted by keep, sorted. Symlinks are followed only
// when their target stays under root.
func collectFiles(ctx context.Context, root string, patterns []string, keep func(name string) bool) ([]string, error) {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(resolvedRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == resolvedRoot {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if p != resolvedRoot && isExcludedDir(d.Name(), patterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !keep(d.Name()) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(p)
			if err != nil || !withinRoot(resolvedRoot, target) {
				return nil
			}
			if info, err := os.Stat(target); err != nil || info.IsDir() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(resolvedRoot, p)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// isMarkdown matches the suffix pageStore resolves to.
func isMarkdown(name string) bool {
	return strings.HasSuffix(name, ".md")
}

func anyFile(string) bool { return true }

type fileNode struct {
	name     string
	path     string
	isDir    bool
	label    string
	action   string
	children []*fileNode
}

// buildFileTree arranges slash-separated relative paths into directories
// and files. leaf fills in the label and action of each file.
func buildFileTree(files []string, leaf func(rel string) (label, action string)) *fileNode {
	root := &fileNode{name: ".", isDir: true}
	dirNodes := map[string]*fileNode{".": root}

	for _, rel := range files {
		dir := path.Dir(rel)
		currentPath := "."
		if dir != "." {
			for _, part := range strings.Split(dir, "/") {
				parentPath := currentPath
				if currentPath == "." {
					currentPath = part
				} else {
					currentPath = currentPath + "/" + part
				}
				if _, exists := dirNodes[currentPath]; !exists {
					node := &fileNode{name: part, path: currentPath, isDir: true}
					dirNodes[currentPath] = node
					dirNodes[parentPath].children = append(dirNodes[parentPath].children, node)
				}
			}
		}

		label, action := leaf(rel)
		dirNodes[dir].children = append(dirNodes[dir].children, &fileNode{
			name:   path.Base(rel),
			path:   rel,
			label:  label,
			action: action,
		})
	}

	cleanEmptyDirs(root)
	sortTree(root)
	return root
}

func cleanEmptyDirs(node *fileNode) bool {
	if !node.isDir {
		return true // Keep files
	}

	kept := make([]*fileNode, 0, len(node.children))
	for _, child := range node.children {
		if cleanEmptyDirs(child) {
			kept = append(kept, child)
		}
	}
	node.children = kept

	// Keep directory if it has children or is root
	return len(node.children) > 0 || node.name == "."
}

func sortTree(node *fileNode) {
	if !node.isDir {
		return
	}

	// Sort children: directories first, then files, alphabetically within each group
	sort.Slice(node.children, func(i, j int) bool {
		if node.children[i].isDir != node.children[j].isDir {
			return node.children[i].isDir
		}
		return node.children[i].name < node.children[j].name
	})

	for _, child := range node.children {
		sortTree(child)
	}
}

// toForest converts the children of a file tree into widget nodes.
func toForest(node *fileNode) []*tree.Node {
	forest := make([]*tree.Node, 0, len(node.children))
	for _, child := range node.children {
		if child.isDir {
			forest = append(forest, tree.Branch(child.path, child.name, toForest(child)...))
			continue
		}
		forest = append(forest, tree.Leaf(child.path, child.label, child.action))
	}
	return forest
}

// wikiPathOf converts "guides/install.md" to "guides/install".
func wikiPathOf(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// pageURL returns the escaped /wiki/ URL of a page.
func pageURL(wikiPath string) string {
	parts := strings.Split(wikiPath, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "/wiki/" + strings.Join(parts, "/")
}

// navigateAction is the client call that opens a page.
func navigateAction(wikiPath string) string {
	return "window.location.href='" + template.JSEscapeString(pageURL(wikiPath)) + "';"
}

// selectAttachmentAction is the client call that inserts a link to an
// attachment into the editor.
func selectAttachmentAction(rel string) string {
	return "SelectAttachment('" + template.JSEscapeString(rel) + "');"
}

// pageInfo is what the navigation sources need to know about a page.
type pageInfo struct {
	wikiPath   string
	title      string
	categories []string
}

// scanPages reads the front matter of every page under root. A page whose
// header cannot be parsed is listed under its file name.
func scanPages(ctx context.Context, root string, log *logger.Logger) ([]string, map[string]pageInfo, error) {
	files, err := collectFiles(ctx, root, parseIgnoreFile(root, log), isMarkdown)
	if err != nil {
		return nil, nil, err
	}

	infos := make(map[string]pageInfo, len(files))
	for _, rel := range files {
		info := pageInfo{wikiPath: wikiPathOf(rel)}
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			log.Warnw("cannot read page", "path", rel, "error", err)
		}
		fm, _, err := parseFrontMatter(content)
		if err != nil {
			log.Warnw("ignoring unreadable front matter", "path", rel, "error", err)
		}
		info.title = pageTitle(fm, rel)
		info.categories = fm.Categories
		infos[rel] = info
	}
	return files, infos, nil
}

// pageTreeSource lists pages by directory.
type pageTreeSource struct {
	root string
	log  *logger.Logger
}

func (s *pageTreeSource) Populate(ctx context.Context) ([]*tree.Node, error) {
	files, infos, err := scanPages(ctx, s.root, s.log)
	if err != nil {
		return nil, err
	}
	root := buildFileTree(files, func(rel string) (string, string) {
		info := infos[rel]
		return info.title, navigateAction(info.wikiPath)
	})
	return toForest(root), nil
}

// categorySource lists pages under their front-matter categories. A page
// may appear under several categories; pages without any are grouped under
// "Uncategorized", which sorts last.
type categorySource struct {
	root string
	log  *logger.Logger
}

func (s *categorySource) Populate(ctx context.Context) ([]*tree.Node, error) {
	files, infos, err := scanPages(ctx, s.root, s.log)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]pageInfo)
	for _, rel := range files {
		info := infos[rel]
		seen := make(map[string]bool)
		for _, c := range info.categories {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			byCategory[c] = append(byCategory[c], info)
		}
		if len(seen) == 0 {
			byCategory[uncategorizedCategory] = append(byCategory[uncategorizedCategory], info)
		}
	}

	names := make([]string, 0, len(byCategory))
	for c := range byCategory {
		if c != uncategorizedCategory {
			names = append(names, c)
		}
	}
	sort.Strings(names)
	if _, ok := byCategory[uncategorizedCategory]; ok {
		names = append(names, uncategorizedCategory)
	}

	forest := make([]*tree.Node, 0, len(names))
	for _, c := range names {
		pages := byCategory[c]
		sort.SliceStable(pages, func(i, j int) bool {
			if pages[i].title != pages[j].title {
				return pages[i].title < pages[j].title
			}
			return pages[i].wikiPath < pages[j].wikiPath
		})
		children := make([]*tree.Node, 0, len(pages))
		for _, p := range pages {
			children = append(children, tree.Leaf(c+"/"+p.wikiPath, p.title, navigateAction(p.wikiPath)))
		}
		forest = append(forest, tree.Branch("category:"+c, c, children...))
	}
	return forest, nil
}

// attachmentSource lists every file under the attachments directory.
type attachmentSource struct {
	root string
	log  *logger.Logger
}

func (s *attachmentSource) Populate(ctx context.Context) ([]*tree.Node, error) {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return nil, nil
	}
	files, err := collectFiles(ctx, s.root, parseIgnoreFile(s.root, s.log), anyFile)
	if err != nil {
		return nil, err
	}
	root := buildFileTree(files, func(rel string) (string, string) {
		return path.Base(rel), selectAttachmentAction(rel)
	})
	return toForest(root), nil
}
