package tree

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// attrEscaper escapes only what a double-quoted attribute needs to stay
// well-formed. Actions pass through it so the browser sees them verbatim.
var attrEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`"`, "&quot;",
	`<`, "&lt;",
	`>`, "&gt;",
)

const voidHref = `javascript:void(0);`

// renderHTML writes forest in the given mode.
func renderHTML(widgetID string, mode Mode, cfg Config, forest []*Node) template.HTML {
	var buf bytes.Buffer
	switch mode {
	case ModeFlat:
		renderFlat(&buf, widgetID, cfg, forest)
	default:
		renderNested(&buf, widgetID, cfg, forest)
	}
	return template.HTML(buf.String())
}

// clientCall builds the onclick value invoking a page script function with
// a container id. The result still needs attribute escaping.
func clientCall(fn, id string) string {
	return fmt.Sprintf("javascript:return %s('%s');", fn, template.JSEscapeString(id))
}

func writeLeaf(buf *bytes.Buffer, cfg Config, p *placed) {
	fmt.Fprintf(buf, `<div id="%s" class="%s" data-name="%s"><a href="%s" onclick="%s">%s%s</a></div>`,
		template.HTMLEscapeString(p.id),
		template.HTMLEscapeString(cfg.LeafClass),
		template.HTMLEscapeString(p.node.Name),
		voidHref,
		attrEscaper.Replace(p.node.Action),
		cfg.NodePrefix,
		template.HTMLEscapeString(p.node.Label))
}

func writeBranch(buf *bytes.Buffer, cfg Config, p *placed, fn string) {
	fmt.Fprintf(buf, `<div class="%s" data-name="%s"><a href="%s" onclick="%s">%s%s</a></div>`,
		template.HTMLEscapeString(cfg.NodeClass),
		template.HTMLEscapeString(p.node.Name),
		voidHref,
		attrEscaper.Replace(clientCall(fn, p.id)),
		cfg.NodePrefix,
		template.HTMLEscapeString(p.node.Label))
}
