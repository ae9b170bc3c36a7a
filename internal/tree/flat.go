package tree

import (
	"bytes"
	"fmt"
	"html/template"
)

// renderFlat writes one container per level, all of them children of the
// browsercontainer. The root level takes the first id of the pass and is
// the only visible container; the client swaps containers with DisplayDiv.
// An empty forest still consumes that id but writes no level.
func renderFlat(buf *bytes.Buffer, widgetID string, cfg Config, forest []*Node) {
	a := newAllocator(widgetID)
	rootID := a.allocate()
	level := assign(forest, a)

	fmt.Fprintf(buf, `<div id="%s" class="browsercontainer">`, template.HTMLEscapeString(widgetID))
	if len(level) > 0 {
		writeFlatLevel(buf, cfg, rootID, "", level)
	}
	buf.WriteString(`</div>`)
}

// writeFlatLevel writes level into containerID, then appends the containers
// of its branches after the closing tag. parentID is empty for the root.
func writeFlatLevel(buf *bytes.Buffer, cfg Config, containerID, parentID string, level []*placed) {
	if parentID == "" {
		fmt.Fprintf(buf, `<div id="%s" class="browserlevel">`, template.HTMLEscapeString(containerID))
	} else {
		fmt.Fprintf(buf, `<div id="%s" class="browserlevel" style="display: none;">`, template.HTMLEscapeString(containerID))
		fmt.Fprintf(buf, `<div class="%s"><a href="%s" onclick="%s">%s</a></div>`,
			template.HTMLEscapeString(cfg.UpClass),
			voidHref,
			attrEscaper.Replace(clientCall("DisplayDiv", parentID)),
			cfg.UpLevelContent)
	}

	for _, p := range level {
		if p.isLeaf() {
			writeLeaf(buf, cfg, p)
		} else {
			writeBranch(buf, cfg, p, "DisplayDiv")
		}
	}
	buf.WriteString(`</div>`)

	for _, p := range level {
		if !p.isLeaf() {
			writeFlatLevel(buf, cfg, p.id, containerID, p.children)
		}
	}
}
