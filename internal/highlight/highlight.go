// Package highlight tokenizes code blocks into styled spans using chroma.
//
// A Context is built once per conversion run and shared by every renderer,
// so HTML and RTF outputs color the same token the same way. Code blocks are
// tokenized as one continuous operation over the whole block text; the
// resulting spans are then split per line for renderers that emit explicit
// line breaks. Tokenizing line-by-line would lose lexer state inside
// multi-line constructs (block comments, raw strings), which is exactly the
// bug class this package exists to prevent.
package highlight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultTheme is used when no theme is configured or the configured theme
// cannot be found.
const DefaultTheme = "monokai"

// Color is an RGB color extracted from a chroma style entry.
type Color struct {
	R, G, B uint8
}

// Hex returns the CSS hex form, e.g. "#2b303b".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Span is a contiguous run of code assigned a single style.
type Span struct {
	Text      string
	Color     Color
	HasColor  bool
	Bold      bool
	Italic    bool
	Underline bool
}

// Line is the styled spans of one source line, without its trailing newline.
type Line []Span

// Settings configures a Context.
type Settings struct {
	Theme     string            // style name, "" = DefaultTheme
	Aliases   map[string]string // language tag aliases, merged over DefaultAliases
	StylesDir string            // optional directory of chroma XML styles
	LexersDir string            // optional directory of chroma XML lexers
}

// DefaultAliases returns the built-in language tag alias table.
func DefaultAliases() map[string]string {
	return map[string]string{
		"js":         "javascript",
		"ts":         "typescript",
		"py":         "python",
		"rb":         "ruby",
		"rs":         "rust",
		"sh":         "bash",
		"zsh":        "bash",
		"yml":        "yaml",
		"md":         "markdown",
		"dockerfile": "docker",
	}
}

// Context owns the resolved style and lexer lookup state for one run.
type Context struct {
	style    *chroma.Style
	aliases  map[string]string
	custom   []chroma.Lexer
	warnings []string
}

// New builds a Context from settings. Loading problems (missing theme,
// unreadable custom style or lexer files) are never fatal: the context
// falls back to defaults and records a warning for each problem.
func New(s Settings) *Context {
	ctx := &Context{aliases: DefaultAliases()}
	for k, v := range s.Aliases {
		ctx.aliases[strings.ToLower(k)] = v
	}

	custom := ctx.loadCustomStyles(s.StylesDir)
	ctx.loadCustomLexers(s.LexersDir)

	name := s.Theme
	if name == "" {
		name = DefaultTheme
	}
	if st, ok := custom[name]; ok {
		ctx.style = st
		return ctx
	}
	if st := styles.Get(name); st != styles.Fallback || name == styles.Fallback.Name {
		ctx.style = st
		return ctx
	}
	ctx.warnf("theme %q not found, falling back to %q", name, DefaultTheme)
	ctx.style = styles.Get(DefaultTheme)
	return ctx
}

// loadCustomStyles reads chroma XML styles from dir, keyed by style name.
// A missing directory is not a problem; a broken file is a warning.
func (c *Context) loadCustomStyles(dir string) map[string]*chroma.Style {
	custom := map[string]*chroma.Style{}
	if dir == "" {
		return custom
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.warnf("reading styles dir %q: %v", dir, err)
		}
		return custom
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".xml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f, err := os.Open(path) // #nosec G304 -- user-provided styles dir
		if err != nil {
			c.warnf("opening style %q: %v", path, err)
			continue
		}
		st, err := chroma.NewXMLStyle(f)
		_ = f.Close()
		if err != nil {
			c.warnf("parsing style %q: %v", path, err)
			continue
		}
		custom[st.Name] = st
	}
	return custom
}

// loadCustomLexers reads chroma XML lexer definitions from dir.
func (c *Context) loadCustomLexers(dir string) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.warnf("reading lexers dir %q: %v", dir, err)
		}
		return
	}
	fsys := os.DirFS(dir)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".xml" {
			continue
		}
		lx, err := chroma.NewXMLLexer(fsys, e.Name())
		if err != nil {
			c.warnf("parsing lexer %q: %v", filepath.Join(dir, e.Name()), err)
			continue
		}
		c.custom = append(c.custom, lx)
	}
}

func (c *Context) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns non-fatal problems encountered while loading settings.
func (c *Context) Warnings() []string {
	return c.warnings
}

// Theme returns the name of the active style.
func (c *Context) Theme() string {
	return c.style.Name
}

// Background returns the theme's block background color, if it defines one.
func (c *Context) Background() (Color, bool) {
	bg := c.style.Get(chroma.Background).Background
	if !bg.IsSet() {
		return Color{}, false
	}
	return Color{R: bg.Red(), G: bg.Green(), B: bg.Blue()}, true
}

// lexerFor resolves a language tag through the alias table, custom lexers,
// then chroma's registry. Unknown tags return nil (plain text).
func (c *Context) lexerFor(lang string) chroma.Lexer {
	if lang == "" {
		return nil
	}
	name := strings.ToLower(lang)
	if mapped, ok := c.aliases[name]; ok {
		name = strings.ToLower(mapped)
	}
	for _, lx := range c.custom {
		cfg := lx.Config()
		if cfg == nil {
			continue
		}
		if strings.ToLower(cfg.Name) == name {
			return lx
		}
		for _, alias := range cfg.Aliases {
			if strings.ToLower(alias) == name {
				return lx
			}
		}
	}
	return lexers.Get(name)
}

// Highlight tokenizes source as one continuous block and returns its styled
// lines. Unknown languages and tokenizer failures degrade to unstyled text,
// never to an error.
func (c *Context) Highlight(lang, source string) []Line {
	lexer := c.lexerFor(lang)
	if lexer == nil {
		return plainLines(source)
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return plainLines(source)
	}

	lines := []Line{{}}
	for tok := it(); tok != chroma.EOF; tok = it() {
		entry := c.style.Get(tok.Type)
		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				lines = append(lines, Line{})
			}
			if part == "" {
				continue
			}
			span := Span{
				Text:      part,
				Bold:      entry.Bold == chroma.Yes,
				Italic:    entry.Italic == chroma.Yes,
				Underline: entry.Underline == chroma.Yes,
			}
			if entry.Colour.IsSet() {
				span.HasColor = true
				span.Color = Color{
					R: entry.Colour.Red(),
					G: entry.Colour.Green(),
					B: entry.Colour.Blue(),
				}
			}
			last := len(lines) - 1
			lines[last] = append(lines[last], span)
		}
	}
	return trimTrailingEmpty(lines)
}

// plainLines splits source into unstyled lines.
func plainLines(source string) []Line {
	parts := strings.Split(source, "\n")
	lines := make([]Line, len(parts))
	for i, p := range parts {
		if p != "" {
			lines[i] = Line{{Text: p}}
		}
	}
	return trimTrailingEmpty(lines)
}

// trimTrailingEmpty drops empty lines produced by a trailing newline.
func trimTrailingEmpty(lines []Line) []Line {
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ListThemes returns the names of all available themes: chroma's built-in
// styles plus any custom styles found in stylesDir.
func ListThemes(stylesDir string) []string {
	seen := map[string]bool{}
	for _, name := range styles.Names() {
		seen[name] = true
	}
	probe := &Context{}
	for name := range probe.loadCustomStyles(stylesDir) {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
