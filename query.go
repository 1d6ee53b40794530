package bough

import (
	"context"
	"fmt"

	"fortio.org/safecast"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/store"
	"github.com/jward/bough/internal/syntax"
)

// QueryBuilder provides the query API over the Store and indexed trees.
// Lines and columns are 0-based throughout.
type QueryBuilder struct {
	store *store.Store
	trees func(path string) (*syntax.Tree, error)
}

// Location represents a source code position range.
type Location struct {
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	EndCol    int    `json:"end_col" yaml:"end_col"`
}

func locationOf(path string, s store.Span) Location {
	return Location{
		File:      path,
		StartLine: s.StartLine,
		StartCol:  s.StartCol,
		EndLine:   s.EndLine,
		EndCol:    s.EndCol,
	}
}

// declarationAt returns the declaration named at a position: either the
// declaration whose name covers it, or the one the reference there resolved
// to. Returns nil when there is none.
func (q *QueryBuilder) declarationAt(f *store.File, line, col int) (*store.Declaration, error) {
	d, err := q.store.DeclarationAt(f.ID, line, col)
	if err != nil || d != nil {
		return d, err
	}
	ref, err := q.store.ReferenceAt(f.ID, line, col)
	if err != nil || ref == nil {
		return nil, err
	}
	rr, err := q.store.ResolvedReferenceByRef(ref.ID)
	if err != nil || rr == nil {
		return nil, err
	}
	return q.store.DeclarationByID(rr.DeclarationID)
}

// DefinitionAt finds where the name at the given position is declared. A
// declaring name is its own definition. Returns nil when the position holds
// no name or the name is unresolved.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) ([]Location, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("definition at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	d, err := q.declarationAt(f, line, col)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	path, err := q.filePath(d.FileID)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	return []Location{locationOf(path, d.Span)}, nil
}

// ReferencesTo finds every resolved use of the declaration named at the
// given position, in source order.
func (q *QueryBuilder) ReferencesTo(file string, line, col int) ([]Location, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("references to: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	d, err := q.declarationAt(f, line, col)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	return q.ReferencesToDeclaration(d.ID)
}

// ReferencesToDeclaration finds every resolved use of a declaration.
func (q *QueryBuilder) ReferencesToDeclaration(declID int64) ([]Location, error) {
	resolved, err := q.store.ResolvedReferencesByDeclaration(declID)
	if err != nil {
		return nil, fmt.Errorf("references to: %w", err)
	}
	var locations []Location
	for _, rr := range resolved {
		ref, err := q.store.ReferenceByID(rr.ReferenceID)
		if err != nil {
			return nil, fmt.Errorf("references to: ref location: %w", err)
		}
		if ref == nil {
			continue
		}
		path, err := q.filePath(ref.FileID)
		if err != nil {
			return nil, fmt.Errorf("references to: %w", err)
		}
		locations = append(locations, locationOf(path, ref.Span))
	}
	return locations, nil
}

// VisibleDeclaration is a declaration in scope at some position.
type VisibleDeclaration struct {
	Name      string   `json:"name" yaml:"name"`
	Kind      string   `json:"kind" yaml:"kind"`
	OwnerKind string   `json:"owner_kind" yaml:"owner_kind"`
	Location  Location `json:"location" yaml:"location"`
}

// VisibleAt lists the declarations in scope at the given position, nearest
// first, with shadowed names removed. It works on the file's tree, so it
// reflects workspace edits that were not re-indexed.
func (q *QueryBuilder) VisibleAt(ctx context.Context, file string, line, col int) ([]VisibleDeclaration, error) {
	tree, err := q.trees(file)
	if err != nil {
		return nil, fmt.Errorf("visible at: %w", err)
	}
	row, err := safecast.Conv[uint32](line)
	if err != nil {
		return nil, fmt.Errorf("visible at: line %d: %w", line, err)
	}
	column, err := safecast.Conv[uint32](col)
	if err != nil {
		return nil, fmt.Errorf("visible at: column %d: %w", col, err)
	}
	n := tree.NodeAtPoint(syntax.Point{Row: row, Column: column})
	if !n.Valid() {
		return nil, nil
	}
	decls, err := resolve.Visible(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("visible at: %w", err)
	}
	out := make([]VisibleDeclaration, len(decls))
	for i, d := range decls {
		out[i] = VisibleDeclaration{
			Name:      d.Name,
			Kind:      d.Kind.String(),
			OwnerKind: d.Owner.Kind().String(),
			Location:  locationOf(file, spanOf(d.Node)),
		}
	}
	return out, nil
}

func (q *QueryBuilder) filePath(fileID int64) (string, error) {
	f, err := q.store.FileByID(fileID)
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", fmt.Errorf("file %d not found", fileID)
	}
	return f.Path, nil
}
