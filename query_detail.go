package bough

import (
	"context"
	"database/sql"
	"fmt"

	"fortio.org/safecast"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
)

// DeclarationDetail bundles a declaration with where it is used. One call
// replaces a declaration lookup plus a references query.
type DeclarationDetail struct {
	Declaration DeclarationResult `json:"declaration" yaml:"declaration"`
	Location    Location          `json:"location" yaml:"location"`
	References  []Location        `json:"references" yaml:"references"` // resolved uses, in source order
}

// DeclarationDetail returns the declaration with the given ID and its
// resolved uses. Returns nil with no error if the ID does not exist.
func (q *QueryBuilder) DeclarationDetail(declID int64) (*DeclarationDetail, error) {
	dr, err := q.declarationResultByID(declID)
	if err != nil {
		return nil, fmt.Errorf("declaration detail: %w", err)
	}
	if dr == nil {
		return nil, nil
	}
	refs, err := q.ReferencesToDeclaration(declID)
	if err != nil {
		return nil, fmt.Errorf("declaration detail: %w", err)
	}
	if refs == nil {
		refs = []Location{}
	}
	return &DeclarationDetail{
		Declaration: *dr,
		Location:    locationOf(dr.FilePath, dr.Span),
		References:  refs,
	}, nil
}

// DeclarationDetailAt is a position-based convenience: it finds the
// declaration named at (file, line, col), directly or through a resolved
// reference, and returns its DeclarationDetail.
// Returns nil with no error if the position names nothing.
func (q *QueryBuilder) DeclarationDetailAt(file string, line, col int) (*DeclarationDetail, error) {
	f, err := q.store.FileByPath(file)
	if err != nil {
		return nil, fmt.Errorf("declaration detail at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	d, err := q.declarationAt(f, line, col)
	if err != nil {
		return nil, fmt.Errorf("declaration detail at: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	return q.DeclarationDetail(d.ID)
}

// ScopeEntry is one scope-introducing node enclosing a position.
type ScopeEntry struct {
	Kind     string   `json:"kind" yaml:"kind"`
	Location Location `json:"location" yaml:"location"`
}

// ScopeAt returns the scope chain at a position, ordered from innermost to
// outermost (the compilation unit). Returns nil slice, nil error if the
// position is outside the file's tree.
func (q *QueryBuilder) ScopeAt(ctx context.Context, file string, line, col int) ([]ScopeEntry, error) {
	tree, err := q.trees(file)
	if err != nil {
		return nil, fmt.Errorf("scope at: %w", err)
	}
	row, err := safecast.Conv[uint32](line)
	if err != nil {
		return nil, fmt.Errorf("scope at: line %d: %w", line, err)
	}
	column, err := safecast.Conv[uint32](col)
	if err != nil {
		return nil, fmt.Errorf("scope at: column %d: %w", col, err)
	}

	var chain []ScopeEntry
	for n := tree.NodeAtPoint(syntax.Point{Row: row, Column: column}); n.Valid(); n = n.Parent() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !resolve.IsScope(n.Kind()) {
			continue
		}
		chain = append(chain, ScopeEntry{
			Kind:     n.Kind().String(),
			Location: locationOf(file, spanOf(n)),
		})
	}
	return chain, nil
}

// declarationResultByID loads a single declaration as a DeclarationResult
// (with ref count). Returns nil with no error if not found.
func (q *QueryBuilder) declarationResultByID(declID int64) (*DeclarationResult, error) {
	row := q.store.DB().QueryRow(
		fmt.Sprintf(
			`SELECT %s, f.path,
				(SELECT COUNT(*) FROM resolved_references rr WHERE rr.declaration_id = d.id) AS ref_count
			 FROM declarations d
			 JOIN files f ON d.file_id = f.id
			 WHERE d.id = ?`,
			prefixDeclarationCols("d"),
		),
		declID,
	)
	dr, err := scanDeclarationResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dr, nil
}
