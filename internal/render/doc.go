// Package render converts a parsed markdown tree into clipboard payloads:
// an HTML fragment with inline styles, an RTF document, and a markdown
// re-emission with embedded images. All three renderers of one run share
// the same image source and highlight context, so every output makes the
// same embed decision and colors the same token the same way.
package render

import (
	"context"

	"github.com/yuin/goldmark/ast"

	"github.com/alnah/go-md2clip/internal/highlight"
	"github.com/alnah/go-md2clip/internal/imgembed"
)

// ImageSource resolves an image reference into an embeddable payload, or
// nil when the reference should stay as-is.
type ImageSource interface {
	Resolve(ctx context.Context, ref string) (*imgembed.Image, error)
}

// CodeHighlighter tokenizes a code block into styled lines.
type CodeHighlighter interface {
	Highlight(lang, source string) []highlight.Line
	Background() (highlight.Color, bool)
}

// Env is the shared state of one conversion run. Source is the markdown
// input the tree was parsed from; node segments index into it. A nil
// Highlight disables syntax highlighting, a nil Images leaves every
// reference unembedded.
type Env struct {
	Source    []byte
	Images    ImageSource
	Highlight CodeHighlighter
}

func (e *Env) resolveImage(ctx context.Context, ref string) (*imgembed.Image, error) {
	if e.Images == nil {
		return nil, nil
	}
	return e.Images.Resolve(ctx, ref)
}

// nodeText flattens the plain text of a node's inline children. Used for
// image alt text and table cell sizing.
func nodeText(n ast.Node, source []byte) string {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			out = append(out, c.Segment.Value(source)...)
		case *ast.String:
			out = append(out, c.Value...)
		default:
			out = append(out, nodeText(c, source)...)
		}
	}
	return string(out)
}

// linesText concatenates the raw source lines of a block node, e.g. the
// body of a fenced code block.
func linesText(n ast.Node, source []byte) string {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(source)...)
	}
	return string(out)
}

// codeSpanText joins the segments of an inline code span.
func codeSpanText(n *ast.CodeSpan, source []byte) string {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			out = append(out, t.Segment.Value(source)...)
		}
	}
	return string(out)
}

// imageAlt returns the alt text for an image, falling back to its URL when
// the author wrote none. An empty alt pastes as an invisible hole in rich
// text targets, so the URL is the lesser evil.
func imageAlt(n *ast.Image, source []byte) string {
	if alt := nodeText(n, source); alt != "" {
		return alt
	}
	return string(n.Destination)
}
