package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all command-line flags.
type cliFlags struct {
	fs *flag.FlagSet

	config  string
	quiet   bool
	verbose bool
	version bool

	output  string // file path, "-" for stdout, "" for clipboard
	formats string
	root    string

	embed        string
	strict       bool
	optimize     bool
	maxDimension int
	quality      int
	timeout      string

	noHighlight bool
	theme       string
	stylesDir   string
	lexersDir   string
	listThemes  bool
}

// changed reports whether a flag was explicitly set, which is what lets
// flags override config file values without clobbering them with defaults.
func (f *cliFlags) changed(name string) bool {
	return f.fs.Changed(name)
}

// parseFlags parses command-line flags and returns positional args.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("md2clip", flag.ContinueOnError)
	f := &cliFlags{fs: fs}

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show progress details")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.StringVarP(&f.output, "output", "o", "", "output file, or - for stdout (default: clipboard)")
	fs.StringVarP(&f.formats, "format", "f", "html,rtf", "output formats: html, rtf, markdown")
	fs.StringVar(&f.root, "root", "", "base directory for relative image paths (default: input dir)")

	fs.StringVar(&f.embed, "embed", "", "image embed policy: all, local, remote, none")
	fs.BoolVar(&f.strict, "strict", false, "abort on the first failed image")
	fs.BoolVar(&f.optimize, "optimize", false, "downscale embedded images")
	fs.IntVar(&f.maxDimension, "max-dimension", 0, "longest image edge in pixels (0 = default)")
	fs.IntVar(&f.quality, "quality", 0, "JPEG quality 1-100 (0 = default)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "remote image fetch timeout (e.g., 10s)")

	fs.BoolVar(&f.noHighlight, "no-highlight", false, "disable syntax highlighting")
	fs.StringVar(&f.theme, "theme", "", "syntax highlighting theme")
	fs.StringVar(&f.stylesDir, "styles-dir", "", "directory of custom chroma XML styles")
	fs.StringVar(&f.lexersDir, "lexers-dir", "", "directory of custom chroma XML lexers")
	fs.BoolVar(&f.listThemes, "list-themes", false, "list available themes and exit")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `usage: md2clip [flags] <input.md>

Renders markdown to the clipboard as rich text. Use - as input to read
from stdin. By default the first requested format is written to the
clipboard; use --output to write to a file or stdout instead.

Examples:
  md2clip README.md
  md2clip --format markdown --embed all notes.md
  cat notes.md | md2clip -f html -o - -

Flags:`)
		fmt.Fprint(os.Stderr, fs.FlagUsages())
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
