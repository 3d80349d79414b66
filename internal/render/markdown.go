package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// Markdown re-emits the tree as GFM markdown. The output is not a verbatim
// copy of the input: it is normalized (fences, table padding) and image
// references are replaced with data URLs according to the embed policy, so
// the result is a self-contained document.
func Markdown(ctx context.Context, doc ast.Node, env *Env) (string, error) {
	var buf bytes.Buffer
	r := &markdownRenderer{buf: &buf, ctx: ctx, env: env}
	first := true
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !first {
			// Blank line between top-level blocks.
			for !bytes.HasSuffix(buf.Bytes(), []byte("\n\n")) {
				buf.WriteByte('\n')
			}
		}
		if err := r.node(c); err != nil {
			return "", err
		}
		first = false
	}

	out := strings.TrimRight(buf.String(), " \t\n")
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

type markdownRenderer struct {
	buf *bytes.Buffer
	ctx context.Context
	env *Env

	listDepth int
	ordered   []bool // one entry per open list
	indices   []int  // next item number per open ordered list
	tight     bool
}

// capture renders a node into a detached buffer, for constructs that need
// to post-process their content (blockquote prefixes, table cell widths).
func (r *markdownRenderer) capture(n ast.Node) (string, error) {
	saved := r.buf
	var tmp bytes.Buffer
	r.buf = &tmp
	err := r.node(n)
	r.buf = saved
	return tmp.String(), err
}

func (r *markdownRenderer) children(n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := r.node(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *markdownRenderer) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Heading:
		r.buf.WriteString(strings.Repeat("#", n.Level))
		r.buf.WriteByte(' ')
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteByte('\n')

	case *ast.Paragraph, *ast.TextBlock:
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteByte('\n')

	case *ast.Text:
		r.buf.Write(n.Segment.Value(r.env.Source))
		if n.HardLineBreak() {
			r.buf.WriteString("  \n")
		} else if n.SoftLineBreak() {
			r.buf.WriteByte('\n')
		}

	case *ast.String:
		r.buf.Write(n.Value)

	case *ast.Emphasis:
		marker := "*"
		if n.Level == 2 {
			marker = "**"
		}
		r.buf.WriteString(marker)
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString(marker)

	case *east.Strikethrough:
		r.buf.WriteString("~~")
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("~~")

	case *ast.CodeSpan:
		r.codeSpan(codeSpanText(n, r.env.Source))

	case *ast.FencedCodeBlock:
		r.codeBlock(string(n.Language(r.env.Source)), linesText(n, r.env.Source))

	case *ast.CodeBlock:
		r.codeBlock("", linesText(n, r.env.Source))

	case *ast.Link:
		r.buf.WriteByte('[')
		if err := r.children(n); err != nil {
			return err
		}
		r.buf.WriteString("](")
		r.buf.Write(n.Destination)
		if len(n.Title) > 0 {
			r.buf.WriteString(` "` + escapeTitle(string(n.Title)) + `"`)
		}
		r.buf.WriteByte(')')

	case *ast.AutoLink:
		// GFM re-autolinks the bare text on the next parse.
		r.buf.Write(n.Label(r.env.Source))

	case *ast.Image:
		return r.image(n)

	case *ast.List:
		return r.list(n)

	case *ast.ListItem:
		return r.listItem(n)

	case *east.TaskCheckBox:
		if n.IsChecked {
			r.buf.WriteString("[x] ")
		} else {
			r.buf.WriteString("[ ] ")
		}

	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			content, err := r.capture(c)
			if err != nil {
				return err
			}
			for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
				r.buf.WriteString("> ")
				r.buf.WriteString(line)
				r.buf.WriteByte('\n')
			}
		}

	case *ast.ThematicBreak:
		r.buf.WriteString("---\n")

	case *east.Table:
		return r.table(n)

	case *ast.HTMLBlock:
		raw := linesText(n, r.env.Source)
		if n.HasClosure() {
			raw += string(n.ClosureLine.Value(r.env.Source))
		}
		r.buf.WriteString(raw)
		if !strings.HasSuffix(raw, "\n") {
			r.buf.WriteByte('\n')
		}

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			r.buf.Write(seg.Value(r.env.Source))
		}

	case *east.FootnoteLink:
		fmt.Fprintf(r.buf, "[^%d]", n.Index)

	case *east.FootnoteList:
		return r.children(n)

	case *east.Footnote:
		fmt.Fprintf(r.buf, "[^%d]: ", n.Index)
		first := true
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if !first {
				r.buf.WriteString("    ")
			}
			if err := r.node(c); err != nil {
				return err
			}
			first = false
		}

	case *east.FootnoteBacklink:

	default:
		return r.children(n)
	}
	return nil
}

// codeSpan negotiates the backtick run so the delimiter never collides
// with the content.
func (r *markdownRenderer) codeSpan(code string) {
	ticks := "`"
	if strings.Contains(code, "``") {
		ticks = "```"
	} else if strings.Contains(code, "`") {
		ticks = "``"
	}
	pad := ""
	if code == "" || strings.HasPrefix(code, "`") || strings.HasSuffix(code, "`") {
		pad = " "
	}
	r.buf.WriteString(ticks)
	r.buf.WriteString(pad)
	r.buf.WriteString(code)
	r.buf.WriteString(pad)
	r.buf.WriteString(ticks)
}

// codeBlock picks a fence the content cannot terminate early: tildes when
// the code itself contains a backtick fence, and always one mark longer
// than the longest run inside.
func (r *markdownRenderer) codeBlock(lang, code string) {
	fenceChar := "`"
	if strings.Contains(code, "```") {
		fenceChar = "~"
	}
	fenceLen := 3
	if run := maxRun(code, fenceChar[0]); run >= fenceLen {
		fenceLen = run + 1
	}
	fence := strings.Repeat(fenceChar, fenceLen)

	r.buf.WriteString(fence)
	r.buf.WriteString(lang)
	r.buf.WriteByte('\n')
	r.buf.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		r.buf.WriteByte('\n')
	}
	r.buf.WriteString(fence)
	r.buf.WriteByte('\n')
}

func (r *markdownRenderer) image(n *ast.Image) error {
	src := string(n.Destination)
	img, err := r.env.resolveImage(r.ctx, src)
	if err != nil {
		return err
	}
	if img != nil {
		src = img.DataURL()
	}
	r.buf.WriteString("![")
	r.buf.WriteString(nodeText(n, r.env.Source))
	r.buf.WriteString("](")
	r.buf.WriteString(src)
	if len(n.Title) > 0 {
		r.buf.WriteString(` "` + escapeTitle(string(n.Title)) + `"`)
	}
	r.buf.WriteByte(')')
	return nil
}

func (r *markdownRenderer) list(n *ast.List) error {
	r.listDepth++
	r.ordered = append(r.ordered, n.IsOrdered())
	start := n.Start
	if start == 0 {
		start = 1
	}
	r.indices = append(r.indices, start)
	savedTight := r.tight
	r.tight = n.IsTight

	err := r.children(n)

	r.listDepth--
	r.ordered = r.ordered[:len(r.ordered)-1]
	r.indices = r.indices[:len(r.indices)-1]
	r.tight = savedTight
	return err
}

func (r *markdownRenderer) listItem(n *ast.ListItem) error {
	base := ""
	if r.listDepth > 1 {
		base = strings.Repeat("    ", r.listDepth-1)
	}
	r.buf.WriteString(base)
	marker := "- "
	if len(r.ordered) > 0 && r.ordered[len(r.ordered)-1] {
		last := len(r.indices) - 1
		marker = fmt.Sprintf("%d. ", r.indices[last])
		r.indices[last]++
	}
	r.buf.WriteString(marker)

	// Blocks after the first stay inside the item only if every line
	// carries the item's continuation indent.
	indent := base + strings.Repeat(" ", len(marker))

	first := true
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if first {
			if err := r.node(c); err != nil {
				return err
			}
			first = false
			continue
		}
		if !r.tight {
			r.buf.WriteByte('\n')
		}
		if _, ok := c.(*ast.List); ok {
			// Nested lists indent themselves through listDepth.
			if err := r.node(c); err != nil {
				return err
			}
			continue
		}
		content, err := r.capture(c)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
			if line != "" {
				r.buf.WriteString(indent)
				r.buf.WriteString(line)
			}
			r.buf.WriteByte('\n')
		}
	}
	return nil
}

func (r *markdownRenderer) table(n *east.Table) error {
	// Pre-render every cell once: widths depend on content, and a second
	// rendering pass would resolve each image twice.
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			saved := r.buf
			var tmp bytes.Buffer
			r.buf = &tmp
			err := r.children(cell)
			r.buf = saved
			if err != nil {
				return err
			}
			cells = append(cells, tmp.String())
		}
		rows = append(rows, cells)
	}

	widths := make([]int, len(n.Alignments))
	for i := range widths {
		widths[i] = 3
	}
	for _, cells := range rows {
		for i, cell := range cells {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		r.buf.WriteByte('|')
		for i, cell := range cells {
			width := 3
			if i < len(widths) {
				width = widths[i]
			}
			fmt.Fprintf(r.buf, " %-*s |", width, cell)
		}
		r.buf.WriteByte('\n')
	}

	if len(rows) == 0 {
		return nil
	}
	writeRow(rows[0])

	r.buf.WriteByte('|')
	for i, align := range n.Alignments {
		width := widths[i]
		r.buf.WriteByte(' ')
		switch align {
		case east.AlignLeft:
			r.buf.WriteByte(':')
			r.buf.WriteString(strings.Repeat("-", width-1))
		case east.AlignRight:
			r.buf.WriteString(strings.Repeat("-", width-1))
			r.buf.WriteByte(':')
		case east.AlignCenter:
			r.buf.WriteByte(':')
			r.buf.WriteString(strings.Repeat("-", width-2))
			r.buf.WriteByte(':')
		default:
			r.buf.WriteString(strings.Repeat("-", width))
		}
		r.buf.WriteString(" |")
	}
	r.buf.WriteByte('\n')

	for _, cells := range rows[1:] {
		writeRow(cells)
	}
	return nil
}

// maxRun returns the longest run of c in s.
func maxRun(s string, c byte) int {
	max, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			if cur > max {
				max = cur
			}
		} else {
			cur = 0
		}
	}
	return max
}

var titleEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeTitle(s string) string {
	return titleEscaper.Replace(s)
}
