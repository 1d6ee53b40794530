package store

import "time"

// Extraction domain types

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Span is a source range. Lines and columns are zero-based; columns count
// bytes.
type Span struct {
	StartByte int
	EndByte   int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether (line, col) falls inside s, end exclusive.
func (s Span) Contains(line, col int) bool {
	if line < s.StartLine || line > s.EndLine {
		return false
	}
	if line == s.StartLine && col < s.StartCol {
		return false
	}
	if line == s.EndLine && col >= s.EndCol {
		return false
	}
	return true
}

// Declaration is a named element found in a file. Span covers the name token.
type Declaration struct {
	ID        int64
	FileID    int64
	Name      string
	Kind      string
	OwnerKind string
	Span
}

// Reference is an identifier in use position.
type Reference struct {
	ID      int64
	FileID  int64
	Name    string
	Context string // "name" or "method"
	Span
}

// TreeSnapshot is the stored, encoded syntax tree of a file.
type TreeSnapshot struct {
	FileID    int64
	NodeCount int
	Data      []byte
}

// Resolution domain types

type ResolvedReference struct {
	ID            int64
	ReferenceID   int64
	DeclarationID int64
	Levels        int // scopes climbed from the reference to the declaring scope
}
