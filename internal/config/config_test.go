package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Embed.Policy != "local" {
		t.Errorf("Embed.Policy = %q, want local", cfg.Embed.Policy)
	}
	if cfg.Embed.Strict {
		t.Error("Embed.Strict = true, want false")
	}
	if !cfg.Highlight.On() {
		t.Error("Highlight.On() = false, want true")
	}
	if len(cfg.Output.Formats) != 2 {
		t.Errorf("Output.Formats = %v, want [html rtf]", cfg.Output.Formats)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
root: /tmp/docs
embed:
  policy: all
  strict: true
optimize:
  enabled: true
  maxDimension: 800
  quality: 70
fetch:
  timeoutSeconds: 5
  limit: 2
highlight:
  theme: github
  languages:
    kt: kotlin
output:
  formats: [html, markdown]
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Embed.Policy != "all" || !cfg.Embed.Strict {
			t.Errorf("Embed = %+v", cfg.Embed)
		}
		if cfg.Optimize.MaxDimension != 800 || cfg.Optimize.Quality != 70 {
			t.Errorf("Optimize = %+v", cfg.Optimize)
		}
		if cfg.Fetch.TimeoutSeconds != 5 || cfg.Fetch.Limit != 2 {
			t.Errorf("Fetch = %+v", cfg.Fetch)
		}
		if cfg.Highlight.Theme != "github" || cfg.Highlight.Languages["kt"] != "kotlin" {
			t.Errorf("Highlight = %+v", cfg.Highlight)
		}
		if !cfg.Highlight.On() {
			t.Error("Highlight.On() = false, want true when unset")
		}
	})

	t.Run("highlight can be disabled", func(t *testing.T) {
		path := writeConfig(t, "highlight:\n  enabled: false\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Highlight.On() {
			t.Error("Highlight.On() = true, want false")
		}
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		path := writeConfig(t, "embde:\n  policy: all\n")
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("name resolves in current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "myconf.yaml"),
			[]byte("embed:\n  policy: remote\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		t.Chdir(dir)
		cfg, err := LoadConfig("myconf")
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Embed.Policy != "remote" {
			t.Errorf("Embed.Policy = %q, want remote", cfg.Embed.Policy)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown policy", func(c *Config) { c.Embed.Policy = "everything" }},
		{"quality too high", func(c *Config) { c.Optimize.Quality = 101 }},
		{"negative quality", func(c *Config) { c.Optimize.Quality = -1 }},
		{"negative dimension", func(c *Config) { c.Optimize.MaxDimension = -1 }},
		{"negative timeout", func(c *Config) { c.Fetch.TimeoutSeconds = -1 }},
		{"negative limit", func(c *Config) { c.Fetch.Limit = -1 }},
		{"unknown format", func(c *Config) { c.Output.Formats = []string{"pdf"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}

	t.Run("md is a valid format alias", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Output.Formats = []string{"md"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}
