package md2clip

import (
	"net/http"
	"time"
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	embedPolicy  string
	strict       bool
	optimize     bool
	maxDimension int
	quality      int
	fetchTimeout time.Duration
	fetchLimit   int
	httpClient   *http.Client

	highlight bool
	theme     string
	aliases   map[string]string
	stylesDir string
	lexersDir string
}

// WithEmbedPolicy selects which image references are embedded:
// "all", "local", "remote", or "none". The default is "local".
func WithEmbedPolicy(policy string) Option {
	return func(c *Converter) {
		c.cfg.embedPolicy = policy
	}
}

// WithStrict makes any image failure abort the conversion instead of
// degrading to a warning.
func WithStrict() Option {
	return func(c *Converter) {
		c.cfg.strict = true
	}
}

// WithOptimization downscales embedded images to maxDimension pixels on
// the longest edge and re-encodes JPEGs at the given quality. Zero values
// use the defaults. Optimization only applies to images that are embedded.
func WithOptimization(maxDimension, quality int) Option {
	return func(c *Converter) {
		c.cfg.optimize = true
		c.cfg.maxDimension = maxDimension
		c.cfg.quality = quality
	}
}

// WithFetchTimeout bounds each remote image download.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithFetchTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("md2clip: WithFetchTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.fetchTimeout = d
	}
}

// WithFetchLimit caps how many remote images download concurrently.
func WithFetchLimit(n int) Option {
	return func(c *Converter) {
		c.cfg.fetchLimit = n
	}
}

// WithHTTPClient replaces the client used for remote image fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Converter) {
		c.cfg.httpClient = client
	}
}

// WithTheme selects the syntax highlighting theme. Unknown themes fall
// back to the default with a warning.
func WithTheme(name string) Option {
	return func(c *Converter) {
		c.cfg.theme = name
	}
}

// WithLanguageAliases adds language tag aliases on top of the built-in
// table (js -> javascript, py -> python, ...).
func WithLanguageAliases(aliases map[string]string) Option {
	return func(c *Converter) {
		c.cfg.aliases = aliases
	}
}

// WithStylesDir adds a directory of chroma XML styles to the theme lookup.
func WithStylesDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.stylesDir = dir
	}
}

// WithLexersDir adds a directory of chroma XML lexer definitions.
func WithLexersDir(dir string) Option {
	return func(c *Converter) {
		c.cfg.lexersDir = dir
	}
}

// WithoutHighlighting disables syntax highlighting: HTML code blocks fall
// back to <pre><code>, RTF code blocks stay monochrome.
func WithoutHighlighting() Option {
	return func(c *Converter) {
		c.cfg.highlight = false
	}
}
