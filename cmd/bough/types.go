package main

import (
	"github.com/jward/bough"
	"github.com/jward/bough/internal/store"
)

// CLIResult is the top-level envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIDeclaration is a serializable declaration.
type CLIDeclaration struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Kind      string `json:"kind" yaml:"kind"`
	OwnerKind string `json:"owner_kind,omitempty" yaml:"owner_kind,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	EndCol    int    `json:"end_col" yaml:"end_col"`
	RefCount  int    `json:"ref_count" yaml:"ref_count"`
}

// CLILocation extends Location with the declaration ID for chaining.
type CLILocation struct {
	File          string `json:"file" yaml:"file"`
	StartLine     int    `json:"start_line" yaml:"start_line"`
	StartCol      int    `json:"start_col" yaml:"start_col"`
	EndLine       int    `json:"end_line" yaml:"end_line"`
	EndCol        int    `json:"end_col" yaml:"end_col"`
	DeclarationID *int64 `json:"declaration_id,omitempty" yaml:"declaration_id,omitempty"`
}

// CLIFile is a serializable file record.
type CLIFile struct {
	ID        int64  `json:"id" yaml:"id"`
	Path      string `json:"path" yaml:"path"`
	Language  string `json:"language" yaml:"language"`
	LineCount int    `json:"line_count" yaml:"line_count"`
}

// CLIReference is an identifier use, usually one that did not resolve.
type CLIReference struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Context   string `json:"context" yaml:"context"`
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
}

// CLIDetail is a declaration together with every use that binds to it.
type CLIDetail struct {
	Declaration CLIDeclaration `json:"declaration" yaml:"declaration"`
	References  []CLILocation  `json:"references" yaml:"references"`
}

// CLIVisible is a name in scope at a position.
type CLIVisible struct {
	Name      string      `json:"name" yaml:"name"`
	Kind      string      `json:"kind" yaml:"kind"`
	OwnerKind string      `json:"owner_kind,omitempty" yaml:"owner_kind,omitempty"`
	Location  CLILocation `json:"location" yaml:"location"`
}

// CLIScope is one enclosing scope at a position.
type CLIScope struct {
	Kind     string      `json:"kind" yaml:"kind"`
	Location CLILocation `json:"location" yaml:"location"`
}

// CLIHotspot is a declaration ranked by how often it is used.
type CLIHotspot struct {
	Declaration    CLIDeclaration `json:"declaration" yaml:"declaration"`
	ReferenceFiles int            `json:"reference_files" yaml:"reference_files"`
	MaxLevels      int            `json:"max_levels" yaml:"max_levels"`
}

// CLISummary is a serializable index summary.
type CLISummary struct {
	FileCount        int            `json:"file_count" yaml:"file_count"`
	LineCount        int            `json:"line_count" yaml:"line_count"`
	DeclarationCount int            `json:"declaration_count" yaml:"declaration_count"`
	KindCounts       map[string]int `json:"kind_counts" yaml:"kind_counts"`
	ReferenceCount   int            `json:"reference_count" yaml:"reference_count"`
	ResolvedCount    int            `json:"resolved_count" yaml:"resolved_count"`
}

// CLIFinding is a lint finding with 0-based positions.
type CLIFinding struct {
	Rule     string `json:"rule" yaml:"rule"`
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// CLINode is a syntax tree node as printed by the parse command.
type CLINode struct {
	Kind     string    `json:"kind" yaml:"kind"`
	Range    string    `json:"range" yaml:"range"`
	Scope    bool      `json:"scope,omitempty" yaml:"scope,omitempty"`
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
	Children []CLINode `json:"children,omitempty" yaml:"children,omitempty"`
}

// --- Conversions ---

func declarationToCLI(d bough.DeclarationResult) CLIDeclaration {
	return CLIDeclaration{
		ID:        d.ID,
		Name:      d.Name,
		Kind:      d.Kind,
		OwnerKind: d.OwnerKind,
		File:      d.FilePath,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
		RefCount:  d.RefCount,
	}
}

func declarationsToCLI(ds []bough.DeclarationResult) []CLIDeclaration {
	out := make([]CLIDeclaration, len(ds))
	for i, d := range ds {
		out[i] = declarationToCLI(d)
	}
	return out
}

func locationToCLI(loc bough.Location, declID *int64) CLILocation {
	return CLILocation{
		File:          loc.File,
		StartLine:     loc.StartLine,
		StartCol:      loc.StartCol,
		EndLine:       loc.EndLine,
		EndCol:        loc.EndCol,
		DeclarationID: declID,
	}
}

func locationsToCLI(locs []bough.Location) []CLILocation {
	out := make([]CLILocation, len(locs))
	for i, loc := range locs {
		out[i] = locationToCLI(loc, nil)
	}
	return out
}

func fileToCLI(f store.File) CLIFile {
	return CLIFile{ID: f.ID, Path: f.Path, Language: f.Language, LineCount: f.LineCount}
}

func referenceToCLI(path string, r *store.Reference) CLIReference {
	return CLIReference{
		ID:        r.ID,
		Name:      r.Name,
		Context:   r.Context,
		File:      path,
		StartLine: r.StartLine,
		StartCol:  r.StartCol,
	}
}

func detailToCLI(d *bough.DeclarationDetail) CLIDetail {
	return CLIDetail{
		Declaration: declarationToCLI(d.Declaration),
		References:  locationsToCLI(d.References),
	}
}

func findingToCLI(f bough.Finding) CLIFinding {
	return CLIFinding{
		Rule:     f.Rule,
		File:     f.File,
		Line:     f.Line,
		Column:   f.Column,
		Severity: f.Severity,
		Message:  f.Message,
	}
}
