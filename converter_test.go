package md2clip

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alnah/go-md2clip/internal/imgembed"
)

// tinyPNG is a valid 1x1 transparent PNG.
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

var allFormats = []Format{FormatHTML, FormatRTF, FormatMarkdown}

func mustConverter(t *testing.T, opts ...Option) *Converter {
	t.Helper()
	conv, err := NewConverter(opts...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	return conv
}

func TestNewConverter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		conv := mustConverter(t)
		res, err := conv.Convert(context.Background(), Input{
			Markdown: "hello",
			Formats:  []Format{FormatHTML},
		})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if len(res.Warnings) != 0 {
			t.Errorf("Warnings = %v, want none", res.Warnings)
		}
	})

	t.Run("unknown embed policy", func(t *testing.T) {
		_, err := NewConverter(WithEmbedPolicy("everything"))
		if !errors.Is(err, ErrInvalidOption) {
			t.Errorf("error = %v, want ErrInvalidOption", err)
		}
	})

	t.Run("quality out of range", func(t *testing.T) {
		_, err := NewConverter(WithOptimization(0, 101))
		if !errors.Is(err, ErrInvalidOption) {
			t.Errorf("error = %v, want ErrInvalidOption", err)
		}
	})

	t.Run("strict aborts on unknown theme", func(t *testing.T) {
		_, err := NewConverter(WithStrict(), WithTheme("no-such-theme"))
		if !errors.Is(err, ErrHighlightLoad) {
			t.Errorf("error = %v, want ErrHighlightLoad", err)
		}
	})

	t.Run("strict aborts on corrupt style file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("not a style"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		_, err := NewConverter(WithStrict(), WithStylesDir(dir))
		if !errors.Is(err, ErrHighlightLoad) {
			t.Errorf("error = %v, want ErrHighlightLoad", err)
		}
	})

	t.Run("graceful keeps load problems as warnings", func(t *testing.T) {
		conv := mustConverter(t, WithTheme("no-such-theme"))
		res, err := conv.Convert(context.Background(), Input{
			Markdown: "hello",
			Formats:  []Format{FormatHTML},
		})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if len(res.Warnings) != 1 {
			t.Errorf("Warnings = %v, want one", res.Warnings)
		}
	})
}

func TestConvertValidation(t *testing.T) {
	conv := mustConverter(t)

	t.Run("empty markdown", func(t *testing.T) {
		_, err := conv.Convert(context.Background(), Input{Formats: allFormats})
		if !errors.Is(err, ErrEmptyMarkdown) {
			t.Errorf("error = %v, want ErrEmptyMarkdown", err)
		}
	})

	t.Run("no formats", func(t *testing.T) {
		_, err := conv.Convert(context.Background(), Input{Markdown: "x"})
		if !errors.Is(err, ErrNoFormats) {
			t.Errorf("error = %v, want ErrNoFormats", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := conv.Convert(context.Background(), Input{
			Markdown: "x",
			Formats:  []Format{Format("docx")},
		})
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("error = %v, want ErrUnknownFormat", err)
		}
	})
}

func TestConvertDocument(t *testing.T) {
	conv := mustConverter(t)
	res, err := conv.Convert(context.Background(), Input{
		Markdown: "# Title\n\nSome **bold** text.\n\n```go\npackage main\n```\n",
		Formats:  allFormats,
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	t.Run("html", func(t *testing.T) {
		if !strings.Contains(res.HTML, "<h1>Title</h1>") {
			t.Errorf("HTML = %q", res.HTML)
		}
		if !strings.Contains(res.HTML, "<strong>bold</strong>") {
			t.Errorf("HTML = %q", res.HTML)
		}
		if !strings.Contains(res.HTML, `<div style="background-color:#`) {
			t.Errorf("HTML missing highlighted code container: %q", res.HTML)
		}
		if !strings.Contains(res.HTML, `<span style="color:#`) {
			t.Errorf("HTML missing colored span: %q", res.HTML)
		}
	})

	t.Run("rtf", func(t *testing.T) {
		if !strings.HasPrefix(res.RTF, `{\rtf1\ansi\deff0`) {
			t.Errorf("RTF = %q", res.RTF)
		}
		if !strings.Contains(res.RTF, `{\b\fs48 Title}`) {
			t.Errorf("RTF missing heading: %q", res.RTF)
		}
		if !strings.Contains(res.RTF, `{\colortbl;\red`) || !strings.Contains(res.RTF, `\cf1 `) {
			t.Errorf("RTF missing highlight colors: %q", res.RTF)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		if !strings.Contains(res.Markdown, "# Title") {
			t.Errorf("Markdown = %q", res.Markdown)
		}
		if !strings.Contains(res.Markdown, "```go\npackage main\n```") {
			t.Errorf("Markdown = %q", res.Markdown)
		}
	})
}

func TestConvertWithoutHighlighting(t *testing.T) {
	conv := mustConverter(t, WithoutHighlighting())
	res, err := conv.Convert(context.Background(), Input{
		Markdown: "```go\npackage main\n```\n",
		Formats:  []Format{FormatHTML, FormatRTF},
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(res.HTML, `<pre><code class="language-go">`) {
		t.Errorf("HTML = %q", res.HTML)
	}
	if strings.Contains(res.RTF, `\colortbl`) {
		t.Errorf("RTF has color table without highlighting: %q", res.RTF)
	}
}

func TestConvertEmbedsAcrossFormats(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pic.png"), tinyPNG, 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	conv := mustConverter(t)
	res, err := conv.Convert(context.Background(), Input{
		Markdown: "![pic](pic.png)",
		BaseDir:  dir,
		Formats:  allFormats,
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !strings.Contains(res.HTML, `src="data:image/png;base64,`) {
		t.Errorf("HTML not embedded: %q", res.HTML)
	}
	if !strings.Contains(res.RTF, `{\pict\pngblip `) {
		t.Errorf("RTF not embedded: %q", res.RTF)
	}
	if !strings.Contains(res.Markdown, "![pic](data:image/png;base64,") {
		t.Errorf("Markdown not embedded: %q", res.Markdown)
	}
}

func TestConvertRemoteImages(t *testing.T) {
	t.Run("fetched once across formats", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write(tinyPNG)
		}))
		defer srv.Close()

		conv := mustConverter(t, WithEmbedPolicy("all"))
		res, err := conv.Convert(context.Background(), Input{
			Markdown: "![a](" + srv.URL + "/a.png)\n\n![a again](" + srv.URL + "/a.png)\n",
			Formats:  allFormats,
		})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("server hits = %d, want 1", hits.Load())
		}
		if !strings.Contains(res.HTML, "data:image/png;base64,") {
			t.Errorf("HTML not embedded: %q", res.HTML)
		}
	})

	t.Run("strict failure aborts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		conv := mustConverter(t, WithEmbedPolicy("all"), WithStrict())
		_, err := conv.Convert(context.Background(), Input{
			Markdown: "![a](" + srv.URL + "/a.png)",
			Formats:  []Format{FormatHTML},
		})
		if !errors.Is(err, imgembed.ErrImageFetch) {
			t.Errorf("error = %v, want ErrImageFetch", err)
		}
	})

	t.Run("graceful failure degrades to warning", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		url := srv.URL + "/a.png"
		conv := mustConverter(t, WithEmbedPolicy("all"))
		res, err := conv.Convert(context.Background(), Input{
			Markdown: "![a](" + url + ")",
			Formats:  []Format{FormatHTML},
		})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if !strings.Contains(res.HTML, `src="`+url+`"`) {
			t.Errorf("HTML should keep original url: %q", res.HTML)
		}
		if len(res.Warnings) != 1 {
			t.Errorf("Warnings = %v, want exactly one", res.Warnings)
		}
	})
}

func TestConvertWarnings(t *testing.T) {
	t.Run("unknown theme", func(t *testing.T) {
		conv := mustConverter(t, WithTheme("no-such-theme"))
		res, err := conv.Convert(context.Background(), Input{
			Markdown: "hello",
			Formats:  []Format{FormatHTML},
		})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "no-such-theme") {
			t.Errorf("Warnings = %v", res.Warnings)
		}
	})

	t.Run("optimize without embedding", func(t *testing.T) {
		conv := mustConverter(t, WithEmbedPolicy("none"), WithOptimization(800, 80))
		res, err := conv.Convert(context.Background(), Input{
			Markdown: "hello",
			Formats:  []Format{FormatHTML},
		})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "optimiz") {
			t.Errorf("Warnings = %v", res.Warnings)
		}
	})
}

func TestConvertTightList(t *testing.T) {
	conv := mustConverter(t)
	res, err := conv.Convert(context.Background(), Input{
		Markdown: "- one\n- two\n",
		Formats:  []Format{FormatHTML},
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if strings.Contains(res.HTML, "<p>") {
		t.Errorf("tight list grew paragraphs: %q", res.HTML)
	}
}

func TestConverterReuse(t *testing.T) {
	// The resolver is per run: warnings must not leak between conversions.
	conv := mustConverter(t)
	_, err := conv.Convert(context.Background(), Input{
		Markdown: "![a](missing.png)",
		BaseDir:  t.TempDir(),
		Formats:  []Format{FormatHTML},
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	res, err := conv.Convert(context.Background(), Input{
		Markdown: "plain text",
		Formats:  []Format{FormatHTML},
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings leaked across runs: %v", res.Warnings)
	}
}
