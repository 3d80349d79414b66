package md2clip

import (
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-md2clip/internal/highlight"
	"github.com/alnah/go-md2clip/internal/imgembed"
	"github.com/alnah/go-md2clip/internal/render"
)

// Compile-time interface implementation checks.
// These ensure implementations satisfy their interfaces at compile time,
// catching signature mismatches before runtime.
var (
	_ render.ImageSource     = (*imgembed.Resolver)(nil)
	_ render.CodeHighlighter = (*highlight.Context)(nil)
)

// Converter turns markdown into clipboard payloads. Create with
// NewConverter, then call Convert once per document; a Converter is safe
// to reuse across conversions.
type Converter struct {
	cfg       converterConfig
	policy    imgembed.Policy
	md        goldmark.Markdown
	highlight *highlight.Context
}

// NewConverter creates a Converter with default configuration: embed local
// images, no optimization, highlighting on with the default theme.
// Use options to customize behavior (e.g., WithEmbedPolicy, WithStrict,
// WithOptimization, WithTheme).
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg: converterConfig{
			embedPolicy: "local",
			highlight:   true,
		},
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,      // Tables, strikethrough, autolinks, task lists
				extension.Footnote, // [^1] footnotes
			),
		),
	}

	for _, opt := range opts {
		opt(c)
	}

	policy, err := imgembed.ParsePolicy(c.cfg.embedPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	c.policy = policy

	if c.cfg.quality < 0 || c.cfg.quality > 100 {
		return nil, fmt.Errorf("%w: quality must be 0-100, got %d", ErrInvalidOption, c.cfg.quality)
	}
	if c.cfg.maxDimension < 0 {
		return nil, fmt.Errorf("%w: max dimension must be >= 0, got %d", ErrInvalidOption, c.cfg.maxDimension)
	}

	if c.cfg.highlight {
		c.highlight = highlight.New(highlight.Settings{
			Theme:     c.cfg.theme,
			Aliases:   c.cfg.aliases,
			StylesDir: c.cfg.stylesDir,
			LexersDir: c.cfg.lexersDir,
		})
		// Highlight settings load once, here. In strict mode a load problem
		// aborts instead of degrading to a per-run warning.
		if c.cfg.strict {
			if ws := c.highlight.Warnings(); len(ws) > 0 {
				return nil, fmt.Errorf("%w: %s", ErrHighlightLoad, ws[0])
			}
		}
	}

	return c, nil
}

// Convert renders the input markdown into every requested format. All
// formats of one call share a single image resolver, so they make
// identical embed decisions and each image is fetched at most once.
// Recovers from internal panics to prevent crashes from propagating to
// callers.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if input.Markdown == "" {
		return nil, ErrEmptyMarkdown
	}
	if len(input.Formats) == 0 {
		return nil, ErrNoFormats
	}
	for _, f := range input.Formats {
		switch f {
		case FormatHTML, FormatRTF, FormatMarkdown:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}

	resolver := imgembed.NewResolver(imgembed.Options{
		Policy:  c.policy,
		BaseDir: input.BaseDir,
		Strict:  c.cfg.strict,
		Optimize: imgembed.Optimization{
			Enabled:      c.cfg.optimize,
			MaxDimension: c.cfg.maxDimension,
			Quality:      c.cfg.quality,
		},
		FetchTimeout: c.cfg.fetchTimeout,
		FetchLimit:   c.cfg.fetchLimit,
		Client:       c.cfg.httpClient,
	})

	source := []byte(input.Markdown)
	doc := c.md.Parser().Parse(text.NewReader(source))

	// Fetch remote images up front, bounded and concurrent. Renderers then
	// read from the warm cache in document order, so output and warnings
	// never depend on network completion order.
	if err := resolver.Prefetch(ctx, imageRefs(doc)); err != nil {
		return nil, fmt.Errorf("prefetching images: %w", err)
	}

	env := &render.Env{Source: source, Images: resolver}
	if c.highlight != nil {
		env.Highlight = c.highlight
	}

	res := &Result{}
	for _, f := range input.Formats {
		var out string
		var rerr error
		switch f {
		case FormatHTML:
			out, rerr = render.HTML(ctx, doc, env)
			res.HTML = out
		case FormatRTF:
			out, rerr = render.RTF(ctx, doc, env)
			res.RTF = out
		case FormatMarkdown:
			out, rerr = render.Markdown(ctx, doc, env)
			res.Markdown = out
		}
		if rerr != nil {
			return nil, fmt.Errorf("rendering %s: %w", f, rerr)
		}
	}

	res.Warnings = c.warnings(resolver)
	return res, nil
}

// warnings merges converter-level and run-level degradations.
func (c *Converter) warnings(resolver *imgembed.Resolver) []string {
	var out []string
	if c.cfg.optimize && c.policy == imgembed.PolicyNone {
		out = append(out, "optimization requested but embedding is off, nothing to optimize")
	}
	if c.highlight != nil {
		out = append(out, c.highlight.Warnings()...)
	}
	out = append(out, resolver.Warnings()...)
	return out
}

// imageRefs collects image destinations in document order.
func imageRefs(doc ast.Node) []string {
	var refs []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			refs = append(refs, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}
