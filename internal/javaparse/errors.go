package javaparse

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrUnsupportedLanguage is returned for paths that are not Java sources.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed means no tree could be produced at all. Source with
	// syntax errors still parses; the faulty regions become Error nodes.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent is returned for content that is not UTF-8 text.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge is returned when content exceeds the parser's limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")
)

// ParseError locates a failure in a source file.
type ParseError struct {
	FilePath string
	Line     int // 1-based, 0 when unknown
	Column   int // 0-based
	Message  string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }
