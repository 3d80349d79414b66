package md2clip

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown = errors.New("markdown content cannot be empty")
	ErrNoFormats     = errors.New("at least one output format is required")
	ErrUnknownFormat = errors.New("unknown output format")
	ErrInvalidOption = errors.New("invalid converter option")

	// ErrHighlightLoad reports a highlight setting that failed to load
	// (unknown theme, broken custom style or lexer file). Only returned in
	// strict mode; otherwise the problem degrades to a Result warning.
	ErrHighlightLoad = errors.New("highlight load failed")
)
