package condition

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax marks malformed condition strings.
	ErrSyntax = errors.New("condition: syntax error")
	// ErrUnknownField marks a syntactically valid condition that references a
	// field id absent from the active schema.
	ErrUnknownField = errors.New("condition: unknown field")
)

// ParseError describes where parsing failed. Source is the untouched input.
type ParseError struct {
	Source string
	Offset int
	Msg    string
}

func newParseError(src string, offset int, msg string) *ParseError {
	return &ParseError{Source: src, Offset: offset, Msg: msg}
}

func newParseErrorf(src string, offset int, format string, args ...any) *ParseError {
	return newParseError(src, offset, fmt.Sprintf(format, args...))
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("condition: %s at offset %d in %q", e.Msg, e.Offset, e.Source)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// UnknownFieldError names the missing field id.
type UnknownFieldError struct {
	FieldID string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("condition: unknown field %q", e.FieldID)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }
