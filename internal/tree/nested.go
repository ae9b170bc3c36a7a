package tree

import (
	"bytes"
	"fmt"
	"html/template"
)

// renderNested writes the whole forest into one treecontainer. Each branch
// is followed by its hidden child container, so expanding any level is a
// client-side ToggleDiv on the branch id.
func renderNested(buf *bytes.Buffer, widgetID string, cfg Config, forest []*Node) {
	level := assign(forest, newAllocator(widgetID))

	fmt.Fprintf(buf, `<div id="%s" class="treecontainer">`, template.HTMLEscapeString(widgetID))
	writeNestedLevel(buf, cfg, level)
	buf.WriteString(`</div>`)
}

func writeNestedLevel(buf *bytes.Buffer, cfg Config, level []*placed) {
	for _, p := range level {
		if p.isLeaf() {
			writeLeaf(buf, cfg, p)
			continue
		}
		writeBranch(buf, cfg, p, "ToggleDiv")
		fmt.Fprintf(buf, `<div id="%s" class="%s" style="display: none;">`,
			template.HTMLEscapeString(p.id),
			template.HTMLEscapeString(cfg.ContainerClass))
		writeNestedLevel(buf, cfg, p.children)
		buf.WriteString(`</div>`)
	}
}
