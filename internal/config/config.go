// Package config loads the optional YAML configuration file for the CLI.
// Flags always win over file values; the merge happens in the CLI layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-md2clip/internal/fileutil"
	"github.com/alnah/go-md2clip/internal/imgembed"
	"github.com/alnah/go-md2clip/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigInvalid   = errors.New("invalid config value")
)

// Config holds all file-configurable conversion options.
type Config struct {
	Root      string          `yaml:"root"` // base dir for relative image paths (empty = input dir)
	Embed     EmbedConfig     `yaml:"embed"`
	Optimize  OptimizeConfig  `yaml:"optimize"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Highlight HighlightConfig `yaml:"highlight"`
	Output    OutputConfig    `yaml:"output"`
}

// EmbedConfig controls which image references are inlined.
type EmbedConfig struct {
	Policy string `yaml:"policy"` // "all", "local", "remote", "none"
	Strict bool   `yaml:"strict"` // abort on the first failed image
}

// OptimizeConfig bounds the size of embedded images.
type OptimizeConfig struct {
	Enabled      bool `yaml:"enabled"`
	MaxDimension int  `yaml:"maxDimension"` // longest edge in pixels (0 = default)
	Quality      int  `yaml:"quality"`      // JPEG quality 1-100 (0 = default)
}

// FetchConfig bounds remote image downloads.
type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"` // per-request (0 = default)
	Limit          int `yaml:"limit"`          // concurrent fetches (0 = default)
}

// HighlightConfig controls syntax highlighting of fenced code blocks.
type HighlightConfig struct {
	Enabled   *bool             `yaml:"enabled"` // nil = on
	Theme     string            `yaml:"theme"`
	Languages map[string]string `yaml:"languages"` // extra language tag aliases
	StylesDir string            `yaml:"stylesDir"` // custom chroma XML styles
	LexersDir string            `yaml:"lexersDir"` // custom chroma XML lexers
}

// On reports whether highlighting is enabled, defaulting to true.
func (h HighlightConfig) On() bool {
	return h.Enabled == nil || *h.Enabled
}

// OutputConfig selects the formats produced by default.
type OutputConfig struct {
	Formats []string `yaml:"formats"` // "html", "rtf", "markdown"
}

// DefaultConfig returns the configuration used when no file is given:
// embed local images, no optimization, highlighting on, html+rtf out.
func DefaultConfig() *Config {
	return &Config{
		Embed:  EmbedConfig{Policy: "local"},
		Output: OutputConfig{Formats: []string{"html", "rtf"}},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Embed.Policy != "" {
		if _, err := imgembed.ParsePolicy(c.Embed.Policy); err != nil {
			return fmt.Errorf("%w: embed.policy: %v", ErrConfigInvalid, err)
		}
	}
	if c.Optimize.Quality < 0 || c.Optimize.Quality > 100 {
		return fmt.Errorf("%w: optimize.quality must be 0-100, got %d",
			ErrConfigInvalid, c.Optimize.Quality)
	}
	if c.Optimize.MaxDimension < 0 {
		return fmt.Errorf("%w: optimize.maxDimension must be >= 0, got %d",
			ErrConfigInvalid, c.Optimize.MaxDimension)
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: fetch.timeoutSeconds must be >= 0, got %d",
			ErrConfigInvalid, c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.Limit < 0 {
		return fmt.Errorf("%w: fetch.limit must be >= 0, got %d",
			ErrConfigInvalid, c.Fetch.Limit)
	}
	for _, f := range c.Output.Formats {
		switch strings.ToLower(f) {
		case "html", "rtf", "markdown", "md":
		default:
			return fmt.Errorf("%w: output.formats: unknown format %q", ErrConfigInvalid, f)
		}
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		resolved, err := resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
		configPath = resolved
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-md2clip/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-md2clip", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
