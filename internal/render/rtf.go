package render

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf16"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/alnah/go-md2clip/internal/highlight"
)

// rtfHeader declares the fonts once: \f0 for prose, \f1 for code.
const rtfHeader = `{\rtf1\ansi\deff0{\fonttbl{\f0 Helvetica;}{\f1 Courier;}}`

// RTF renders the tree as an RTF 1.x document. Emission is two-phase: the
// body is rendered into its own buffer first, registering every color it
// needs, and only then is the header written, because the color table must
// precede the body but is only known after it.
func RTF(ctx context.Context, doc ast.Node, env *Env) (string, error) {
	r := &rtfRenderer{ctx: ctx, env: env, colors: map[highlight.Color]int{}}
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := r.node(c); err != nil {
			return "", err
		}
	}

	var out bytes.Buffer
	out.WriteString(rtfHeader)
	if len(r.colorOrder) > 0 {
		// The leading semicolon is color 0, the implicit default; \cf
		// indices handed out by colorIndex start at 1.
		out.WriteString(`{\colortbl;`)
		for _, c := range r.colorOrder {
			fmt.Fprintf(&out, `\red%d\green%d\blue%d;`, c.R, c.G, c.B)
		}
		out.WriteByte('}')
	}
	out.WriteString(`\f0\fs24 `)
	out.Write(r.body.Bytes())
	out.WriteByte('}')
	return out.String(), nil
}

type rtfRenderer struct {
	body bytes.Buffer
	ctx  context.Context
	env  *Env

	colors     map[highlight.Color]int
	colorOrder []highlight.Color

	tableAligns []east.Alignment
	inHeaderRow bool
}

func (r *rtfRenderer) colorIndex(c highlight.Color) int {
	if idx, ok := r.colors[c]; ok {
		return idx
	}
	idx := len(r.colorOrder) + 1
	r.colors[c] = idx
	r.colorOrder = append(r.colorOrder, c)
	return idx
}

func (r *rtfRenderer) children(n ast.Node) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := r.node(c); err != nil {
			return err
		}
	}
	return nil
}

// headingSize maps heading levels to half-point font sizes.
func headingSize(level int) int {
	switch level {
	case 1:
		return 48
	case 2:
		return 36
	case 3:
		return 28
	case 4:
		return 24
	case 5:
		return 22
	default:
		return 20
	}
}

func (r *rtfRenderer) node(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Heading:
		fmt.Fprintf(&r.body, `{\b\fs%d `, headingSize(n.Level))
		if err := r.children(n); err != nil {
			return err
		}
		r.body.WriteString(`}\par\par `)

	case *ast.Paragraph, *ast.TextBlock:
		if err := r.children(n); err != nil {
			return err
		}
		r.body.WriteString(`\par `)

	case *ast.Text:
		r.escape(string(n.Segment.Value(r.env.Source)))
		if n.SoftLineBreak() || n.HardLineBreak() {
			r.body.WriteString(`\line `)
		}

	case *ast.String:
		r.escape(string(n.Value))

	case *ast.Emphasis:
		word := `\i`
		if n.Level == 2 {
			word = `\b`
		}
		fmt.Fprintf(&r.body, "{%s ", word)
		if err := r.children(n); err != nil {
			return err
		}
		r.body.WriteByte('}')

	case *east.Strikethrough:
		r.body.WriteString(`{\strike `)
		if err := r.children(n); err != nil {
			return err
		}
		r.body.WriteByte('}')

	case *ast.CodeSpan:
		r.body.WriteString(`{\f1 `)
		r.escape(codeSpanText(n, r.env.Source))
		r.body.WriteByte('}')

	case *ast.FencedCodeBlock:
		r.codeBlock(string(n.Language(r.env.Source)), linesText(n, r.env.Source))

	case *ast.CodeBlock:
		r.codeBlock("", linesText(n, r.env.Source))

	case *ast.Link:
		// Plain RTF has no portable hyperlink, the label stands alone.
		return r.children(n)

	case *ast.AutoLink:
		r.escape(string(n.Label(r.env.Source)))

	case *ast.Image:
		return r.image(n)

	case *ast.List:
		return r.children(n)

	case *ast.ListItem:
		r.body.WriteString(`\bullet  `)
		return r.children(n)

	case *east.TaskCheckBox:
		if n.IsChecked {
			r.body.WriteString("[x] ")
		} else {
			r.body.WriteString("[ ] ")
		}

	case *ast.Blockquote:
		r.body.WriteString(`{\li400 `)
		if err := r.children(n); err != nil {
			return err
		}
		r.body.WriteByte('}')

	case *ast.ThematicBreak:
		r.body.WriteString(`\par\brdrb\brdrs\brdrw10\brsp20 \par `)

	case *east.Table:
		return r.table(n)

	case *east.FootnoteLink:
		fmt.Fprintf(&r.body, "[^%d]", n.Index)

	case *east.FootnoteList, *east.Footnote, *east.FootnoteBacklink:
		// Footnote bodies have no sensible place in a flat RTF paste.

	case *ast.HTMLBlock, *ast.RawHTML:
		// Raw HTML cannot be translated, dropping it beats corrupting
		// the document.

	default:
		return r.children(n)
	}
	return nil
}

func (r *rtfRenderer) codeBlock(lang, code string) {
	r.body.WriteString(`{\f1\fs20 `)
	if r.env.Highlight == nil {
		r.escape(code)
		r.body.WriteString(`}\par `)
		return
	}
	for _, line := range r.env.Highlight.Highlight(lang, code) {
		for _, span := range line {
			if span.HasColor {
				fmt.Fprintf(&r.body, `\cf%d `, r.colorIndex(span.Color))
			}
			r.escape(span.Text)
		}
		r.body.WriteString(`\line `)
	}
	r.body.WriteString(`}\par `)
}

func (r *rtfRenderer) image(n *ast.Image) error {
	url := string(n.Destination)
	img, err := r.env.resolveImage(r.ctx, url)
	if err != nil {
		return err
	}
	if img != nil {
		if blip, ok := img.RTFBlip(); ok {
			fmt.Fprintf(&r.body, `{\pict%s `, blip)
			r.body.WriteString(img.RTFHex())
			r.body.WriteByte('}')
			return nil
		}
		// Embedded but in a format RTF cannot carry: fall through to
		// the hyperlink so the reader still gets a trail.
	}
	r.body.WriteString(`{\field{\*\fldinst{HYPERLINK "`)
	r.escape(url)
	r.body.WriteString(`"}}{\fldrslt `)
	r.escape(imageAlt(n, r.env.Source))
	r.body.WriteString(`}}`)
	return nil
}

func (r *rtfRenderer) table(n *east.Table) error {
	r.tableAligns = n.Alignments
	defer func() { r.tableAligns = nil }()

	row := n.FirstChild()
	r.inHeaderRow = true
	for ; row != nil; row = row.NextSibling() {
		if err := r.tableRow(row); err != nil {
			return err
		}
		r.inHeaderRow = false
	}
	r.body.WriteString(`\par `)
	return nil
}

func (r *rtfRenderer) tableRow(row ast.Node) error {
	cols := len(r.tableAligns)
	if cols < 1 {
		cols = 1
	}
	colWidth := 9000 / cols

	r.body.WriteString(`\trowd `)
	for i := 0; i < cols; i++ {
		word := `\ql`
		if i < len(r.tableAligns) {
			switch r.tableAligns[i] {
			case east.AlignCenter:
				word = `\qc`
			case east.AlignRight:
				word = `\qr`
			}
		}
		r.body.WriteString(word)
		fmt.Fprintf(&r.body, `\cellx%d `, (i+1)*colWidth)
	}

	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if r.inHeaderRow {
			r.body.WriteString(`{\b `)
		}
		r.body.WriteString(`\intbl `)
		if err := r.children(cell); err != nil {
			return err
		}
		if r.inHeaderRow {
			r.body.WriteByte('}')
		}
		r.body.WriteString(`\cell `)
	}
	r.body.WriteString(`\row `)
	return nil
}

// escape writes text with RTF control characters escaped. Non-ASCII runes
// become \uN? escapes, one per UTF-16 unit, so astral-plane characters
// emit a surrogate pair.
func (r *rtfRenderer) escape(text string) {
	for _, c := range text {
		switch {
		case c == '\\':
			r.body.WriteString(`\\`)
		case c == '{':
			r.body.WriteString(`\{`)
		case c == '}':
			r.body.WriteString(`\}`)
		case c == '\n':
			r.body.WriteString(`\line `)
		case c < 0x80:
			r.body.WriteRune(c)
		default:
			for _, u := range utf16.Encode([]rune{c}) {
				fmt.Fprintf(&r.body, `\u%d?`, int16(u))
			}
		}
	}
}
