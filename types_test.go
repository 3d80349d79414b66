package md2clip

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"html", FormatHTML},
		{"HTML", FormatHTML},
		{"rtf", FormatRTF},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{" md ", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if err != nil {
			t.Errorf("ParseFormat(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
}

func TestParseFormats(t *testing.T) {
	t.Run("ordered list", func(t *testing.T) {
		got, err := ParseFormats("rtf,html")
		if err != nil {
			t.Fatalf("ParseFormats() error = %v", err)
		}
		want := []Format{FormatRTF, FormatHTML}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("duplicates dropped", func(t *testing.T) {
		got, err := ParseFormats("html,md,html,markdown")
		if err != nil {
			t.Fatalf("ParseFormats() error = %v", err)
		}
		want := []Format{FormatHTML, FormatMarkdown}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		if _, err := ParseFormats(" , "); !errors.Is(err, ErrNoFormats) {
			t.Errorf("error = %v, want ErrNoFormats", err)
		}
	})

	t.Run("unknown entry", func(t *testing.T) {
		if _, err := ParseFormats("html,docx"); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("error = %v, want ErrUnknownFormat", err)
		}
	})
}

func TestResultGet(t *testing.T) {
	r := &Result{HTML: "h", RTF: "r", Markdown: "m"}
	if r.Get(FormatHTML) != "h" || r.Get(FormatRTF) != "r" || r.Get(FormatMarkdown) != "m" {
		t.Errorf("Get() mismatch: %+v", r)
	}
	if r.Get(Format("bogus")) != "" {
		t.Error("Get(bogus) should be empty")
	}
}
