package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// defaultCodeBackground is used when the active theme defines no block
// background color.
const defaultCodeBackground = "#2b303b"

// HTML renders the tree as an HTML fragment with inline styles. Rich text
// paste targets (mail clients, editors) ignore <style> blocks and external
// sheets, so every visual decision is carried on the element itself.
func HTML(ctx context.Context, doc ast.Node, env *Env) (string, error) {
	r := &htmlRenderer{ctx: ctx, env: env}
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := r.node(c); err != nil {
			return "", err
		}
	}
	return r.buf.String(), nil
}

type htmlRenderer struct {
	buf bytes.Buffer
	ctx context.Context
	env *Env

	tableAligns []east.Alignment
	inHeaderRow bool
}

func (r *htmlRenderer) children(n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := r.node(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *htmlRenderer) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Heading:
		fmt.Fprintf(&r.buf, "<h%d>", n.Level)
		if err := r.children(n); err != nil {
			return err
		}
		fmt.Fprintf(&r.buf, "</h%d>\n", n.Level)

	case *ast.Paragraph:
		r.buf.WriteString("<p>")
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("</p>\n")

	case *ast.TextBlock:
		// Tight list items carry a TextBlock instead of a Paragraph;
		// rendering it bare is what keeps tight lists tight.
		return r.children(n)

	case *ast.Text:
		r.buf.WriteString(htmlEscape(string(n.Segment.Value(r.env.Source))))
		if n.HardLineBreak() {
			r.buf.WriteString("<br />\n")
		} else if n.SoftLineBreak() {
			r.buf.WriteByte('\n')
		}

	case *ast.String:
		r.buf.WriteString(htmlEscape(string(n.Value)))

	case *ast.Emphasis:
		tag := "em"
		if n.Level == 2 {
			tag = "strong"
		}
		fmt.Fprintf(&r.buf, "<%s>", tag)
		if err := r.children(n); err != nil {
			return err
		}
		fmt.Fprintf(&r.buf, "</%s>", tag)

	case *east.Strikethrough:
		r.buf.WriteString("<del>")
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("</del>")

	case *ast.CodeSpan:
		r.buf.WriteString("<code>")
		r.buf.WriteString(htmlEscape(codeSpanText(n, r.env.Source)))
		r.buf.WriteString("</code>")

	case *ast.FencedCodeBlock:
		r.codeBlock(string(n.Language(r.env.Source)), linesText(n, r.env.Source))

	case *ast.CodeBlock:
		r.codeBlock("", linesText(n, r.env.Source))

	case *ast.Link:
		fmt.Fprintf(&r.buf, "<a href=\"%s\">", htmlEscape(string(n.Destination)))
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("</a>")

	case *ast.AutoLink:
		url := string(n.URL(r.env.Source))
		label := string(n.Label(r.env.Source))
		fmt.Fprintf(&r.buf, "<a href=\"%s\">%s</a>", htmlEscape(url), htmlEscape(label))

	case *ast.Image:
		return r.image(n)

	case *ast.List:
		tag := "ul"
		if n.IsOrdered() {
			tag = "ol"
		}
		fmt.Fprintf(&r.buf, "<%s>\n", tag)
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			r.buf.WriteString("<li>")
			if err := r.children(item); err != nil {
				return err
			}
			r.buf.WriteString("</li>\n")
		}
		fmt.Fprintf(&r.buf, "</%s>\n", tag)

	case *east.TaskCheckBox:
		if n.IsChecked {
			r.buf.WriteString(`<input checked="" disabled="" type="checkbox" /> `)
		} else {
			r.buf.WriteString(`<input disabled="" type="checkbox" /> `)
		}

	case *ast.Blockquote:
		r.buf.WriteString("<blockquote>\n")
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("</blockquote>\n")

	case *ast.ThematicBreak:
		r.buf.WriteString("<hr />\n")

	case *east.Table:
		return r.table(n)

	case *ast.HTMLBlock:
		r.buf.WriteString(linesText(n, r.env.Source))
		if n.HasClosure() {
			r.buf.Write(n.ClosureLine.Value(r.env.Source))
		}

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.buf.Write(seg.Value(r.env.Source))
		}

	case *east.FootnoteLink:
		fmt.Fprintf(&r.buf, "<sup><a href=\"#fn:%d\">[%d]</a></sup>", n.Index, n.Index)

	case *east.FootnoteList:
		r.buf.WriteString("<hr />\n<ol>\n")
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("</ol>\n")

	case *east.Footnote:
		fmt.Fprintf(&r.buf, "<li id=\"fn:%d\">", n.Index)
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("</li>\n")

	case *east.FootnoteBacklink:
		// The backlink arrow is web navigation chrome, useless in a paste.

	default:
		return r.children(n)
	}
	return nil
}

// codeBlock emits a code block as a styled <div> rather than <pre>: rich
// text targets commonly strip <pre> formatting on paste, while inline
// white-space:pre survives.
func (r *htmlRenderer) codeBlock(lang, code string) {
	if r.env.Highlight == nil {
		r.buf.WriteString("<pre><code")
		if lang != "" {
			fmt.Fprintf(&r.buf, " class=\"language-%s\"", htmlEscape(lang))
		}
		r.buf.WriteByte('>')
		r.buf.WriteString(htmlEscape(code))
		r.buf.WriteString("</code></pre>\n")
		return
	}

	bg := defaultCodeBackground
	if c, ok := r.env.Highlight.Background(); ok {
		bg = c.Hex()
	}
	fmt.Fprintf(&r.buf,
		"<div style=\"background-color:%s; padding:16px; font-family:monospace,monospace; font-size:14px; white-space:pre; border-radius:8px;\">",
		bg)

	lines := r.env.Highlight.Highlight(lang, code)
	for i, line := range lines {
		for _, span := range line {
			if !span.HasColor && !span.Bold && !span.Italic && !span.Underline {
				r.buf.WriteString(htmlEscape(span.Text))
				continue
			}
			var style strings.Builder
			if span.HasColor {
				style.WriteString("color:")
				style.WriteString(span.Color.Hex())
				style.WriteByte(';')
			}
			if span.Bold {
				style.WriteString("font-weight:bold;")
			}
			if span.Italic {
				style.WriteString("font-style:italic;")
			}
			if span.Underline {
				style.WriteString("text-decoration:underline;")
			}
			fmt.Fprintf(&r.buf, "<span style=\"%s\">%s</span>",
				strings.TrimSuffix(style.String(), ";"), htmlEscape(span.Text))
		}
		if i < len(lines)-1 {
			r.buf.WriteString("<br>")
		}
	}
	r.buf.WriteString("</div>\n")
}

func (r *htmlRenderer) image(n *ast.Image) error {
	img, err := r.env.resolveImage(r.ctx, string(n.Destination))
	if err != nil {
		return err
	}
	src := string(n.Destination)
	if img != nil {
		src = img.DataURL()
	}
	fmt.Fprintf(&r.buf, "<img src=\"%s\" alt=\"%s\" />",
		htmlEscape(src), htmlEscape(imageAlt(n, r.env.Source)))
	return nil
}

// table uses old-school presentational attributes: CSS on tables is the
// first thing paste targets throw away.
func (r *htmlRenderer) table(n *east.Table) error {
	r.tableAligns = n.Alignments
	defer func() { r.tableAligns = nil }()

	r.buf.WriteString("<table border=\"0\" cellpadding=\"8\" cellspacing=\"0\">\n<thead>\n")
	row := n.FirstChild()
	if row != nil {
		r.inHeaderRow = true
		if err := r.tableRow(row); err != nil {
			return err
		}
		r.inHeaderRow = false
		row = row.NextSibling()
	}
	r.buf.WriteString("</thead>\n<tbody>\n")
	for ; row != nil; row = row.NextSibling() {
		if err := r.tableRow(row); err != nil {
			return err
		}
	}
	r.buf.WriteString("</tbody>\n</table>\n")
	return nil
}

func (r *htmlRenderer) tableRow(row ast.Node) error {
	tag := "td"
	if r.inHeaderRow {
		tag = "th"
	}
	r.buf.WriteString("<tr>\n")
	i := 0
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		attr := ""
		if i < len(r.tableAligns) {
			switch r.tableAligns[i] {
			case east.AlignLeft:
				attr = " align=\"left\""
			case east.AlignCenter:
				attr = " align=\"center\""
			case east.AlignRight:
				attr = " align=\"right\""
			}
		}
		fmt.Fprintf(&r.buf, "<%s%s nowrap>", tag, attr)
		if err := r.children(cell); err != nil {
			return err
		}
		fmt.Fprintf(&r.buf, "</%s>\n", tag)
		i++
	}
	r.buf.WriteString("</tr>\n")
	return nil
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
