package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	md2clip "github.com/alnah/go-md2clip"
	"github.com/alnah/go-md2clip/internal/config"
	"github.com/alnah/go-md2clip/internal/highlight"
)

var errUsage = errors.New("usage: md2clip [flags] <input.md>")

func run(flags *cliFlags, args []string) error {
	if flags.listThemes {
		for _, name := range highlight.ListThemes(flags.stylesDir) {
			fmt.Println(name)
		}
		return nil
	}

	if len(args) != 1 {
		flags.fs.Usage()
		return errUsage
	}
	inputPath := args[0]

	cfg := config.DefaultConfig()
	if flags.config != "" {
		loaded, err := config.LoadConfig(flags.config)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	markdown, err := readInput(inputPath)
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg, flags)
	if err != nil {
		return err
	}
	formats, err := resolveFormats(cfg, flags)
	if err != nil {
		return err
	}

	conv, err := md2clip.NewConverter(opts...)
	if err != nil {
		return err
	}

	if flags.verbose {
		fmt.Fprintf(os.Stderr, "Converting %s to %s\n", inputPath, joinFormats(formats))
	}

	result, err := conv.Convert(context.Background(), md2clip.Input{
		Markdown: markdown,
		BaseDir:  resolveBaseDir(inputPath, flags.root, cfg.Root),
		Formats:  formats,
	})
	if err != nil {
		return err
	}

	if !flags.quiet {
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
	}

	return writeOutput(flags, formats, result)
}

// readInput reads the markdown source from a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- input path is user-provided
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

// resolveBaseDir picks the directory relative image paths resolve against:
// the --root flag, then the config value, then the input file's directory.
// Stdin input falls back to the current directory.
func resolveBaseDir(inputPath, rootFlag, cfgRoot string) string {
	if rootFlag != "" {
		return rootFlag
	}
	if cfgRoot != "" {
		return cfgRoot
	}
	if inputPath == "-" {
		return "."
	}
	return filepath.Dir(inputPath)
}

// buildOptions merges the config file and flags into converter options.
// An explicitly set flag wins over the config value.
func buildOptions(cfg *config.Config, flags *cliFlags) ([]md2clip.Option, error) {
	var opts []md2clip.Option

	policy := cfg.Embed.Policy
	if flags.changed("embed") {
		policy = flags.embed
	}
	if policy != "" {
		opts = append(opts, md2clip.WithEmbedPolicy(policy))
	}

	if flags.strict || cfg.Embed.Strict {
		opts = append(opts, md2clip.WithStrict())
	}

	if flags.optimize || cfg.Optimize.Enabled {
		maxDim := cfg.Optimize.MaxDimension
		if flags.changed("max-dimension") {
			maxDim = flags.maxDimension
		}
		quality := cfg.Optimize.Quality
		if flags.changed("quality") {
			quality = flags.quality
		}
		opts = append(opts, md2clip.WithOptimization(maxDim, quality))
	}

	switch {
	case flags.timeout != "":
		d, err := time.ParseDuration(flags.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		opts = append(opts, md2clip.WithFetchTimeout(d))
	case cfg.Fetch.TimeoutSeconds > 0:
		opts = append(opts, md2clip.WithFetchTimeout(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second))
	}
	if cfg.Fetch.Limit > 0 {
		opts = append(opts, md2clip.WithFetchLimit(cfg.Fetch.Limit))
	}

	if flags.noHighlight || !cfg.Highlight.On() {
		opts = append(opts, md2clip.WithoutHighlighting())
	} else {
		theme := cfg.Highlight.Theme
		if flags.changed("theme") {
			theme = flags.theme
		}
		if theme != "" {
			opts = append(opts, md2clip.WithTheme(theme))
		}
		if len(cfg.Highlight.Languages) > 0 {
			opts = append(opts, md2clip.WithLanguageAliases(cfg.Highlight.Languages))
		}
		stylesDir := cfg.Highlight.StylesDir
		if flags.changed("styles-dir") {
			stylesDir = flags.stylesDir
		}
		if stylesDir != "" {
			opts = append(opts, md2clip.WithStylesDir(stylesDir))
		}
		lexersDir := cfg.Highlight.LexersDir
		if flags.changed("lexers-dir") {
			lexersDir = flags.lexersDir
		}
		if lexersDir != "" {
			opts = append(opts, md2clip.WithLexersDir(lexersDir))
		}
	}

	return opts, nil
}

// resolveFormats picks the output formats: the --format flag when set,
// otherwise the config file list.
func resolveFormats(cfg *config.Config, flags *cliFlags) ([]md2clip.Format, error) {
	if !flags.changed("format") && len(cfg.Output.Formats) > 0 {
		return md2clip.ParseFormats(strings.Join(cfg.Output.Formats, ","))
	}
	return md2clip.ParseFormats(flags.formats)
}

// writeOutput delivers the result: a file or stdout when --output is set,
// the system clipboard otherwise. File and stdout output carry a single
// format; the clipboard takes the first requested format as text.
func writeOutput(flags *cliFlags, formats []md2clip.Format, result *md2clip.Result) error {
	primary := formats[0]
	payload := result.Get(primary)

	switch flags.output {
	case "":
		if err := clipboard.WriteAll(payload); err != nil {
			return fmt.Errorf("writing clipboard: %w", err)
		}
		if !flags.quiet {
			fmt.Fprintf(os.Stderr, "Copied %s to clipboard\n", primary)
		}
		return nil
	case "-":
		if len(formats) > 1 {
			return fmt.Errorf("stdout output takes a single format, got %s", joinFormats(formats))
		}
		_, err := os.Stdout.WriteString(payload)
		return err
	default:
		if len(formats) > 1 {
			return fmt.Errorf("file output takes a single format, got %s", joinFormats(formats))
		}
		if err := os.WriteFile(flags.output, []byte(payload), 0600); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		if !flags.quiet {
			fmt.Fprintf(os.Stderr, "Created %s\n", flags.output)
		}
		return nil
	}
}

func joinFormats(formats []md2clip.Format) string {
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
