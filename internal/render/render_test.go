package render

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-md2clip/internal/imgembed"
)

// tinyPNG is a valid 1x1 transparent PNG.
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

// tinyGIF is a valid 1x1 GIF.
var tinyGIF, _ = base64.StdEncoding.DecodeString(
	"R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAICRAEAOw==")

func parse(t *testing.T, src string) (ast.Node, []byte) {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote))
	source := []byte(src)
	return md.Parser().Parse(text.NewReader(source)), source
}

// plainEnv renders without highlighting and without embedding.
func plainEnv(source []byte) *Env {
	return &Env{Source: source}
}

// embedEnv resolves local images from a temp dir seeded with name -> data.
func embedEnv(t *testing.T, source []byte, name string, data []byte) *Env {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return &Env{
		Source: source,
		Images: imgembed.NewResolver(imgembed.Options{
			Policy:  imgembed.PolicyLocal,
			BaseDir: dir,
		}),
	}
}
