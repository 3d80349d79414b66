package md2clip

import (
	"fmt"
	"strings"
)

// Format identifies one clipboard payload kind.
type Format string

// Supported output formats.
const (
	FormatHTML     Format = "html"
	FormatRTF      Format = "rtf"
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format name. "md" is accepted as an alias for
// "markdown".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return FormatHTML, nil
	case "rtf":
		return FormatRTF, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ParseFormats parses a comma-separated format list, preserving order and
// dropping duplicates.
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := map[Format]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, ErrNoFormats
	}
	return formats, nil
}

// Input contains conversion parameters.
type Input struct {
	Markdown string   // Markdown content (required)
	BaseDir  string   // Base directory for relative image paths (optional)
	Formats  []Format // Output formats to produce (required)
}

// Result holds the rendered payloads. Only the fields for the requested
// formats are populated. Warnings lists every degradation of the run
// (missing theme, unembeddable image, failed optimization); in strict mode
// those become errors instead.
type Result struct {
	HTML     string
	RTF      string
	Markdown string
	Warnings []string
}

// Get returns the payload for a format.
func (r *Result) Get(f Format) string {
	switch f {
	case FormatHTML:
		return r.HTML
	case FormatRTF:
		return r.RTF
	case FormatMarkdown:
		return r.Markdown
	}
	return ""
}
