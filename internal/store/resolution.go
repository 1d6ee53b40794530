package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- ResolvedReference operations ---

func (s *Store) InsertResolvedReference(rr *ResolvedReference) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO resolved_references (reference_id, declaration_id, levels) VALUES (?, ?, ?)`,
		rr.ReferenceID, rr.DeclarationID, rr.Levels,
	)
	if err != nil {
		return 0, fmt.Errorf("insert resolved reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	rr.ID = id
	return id, nil
}

const resolvedRefCols = `id, reference_id, declaration_id, levels`

func (s *Store) queryResolvedRefs(query string, args ...any) ([]*ResolvedReference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*ResolvedReference
	for rows.Next() {
		rr := &ResolvedReference{}
		if err := rows.Scan(&rr.ID, &rr.ReferenceID, &rr.DeclarationID, &rr.Levels); err != nil {
			return nil, fmt.Errorf("scan resolved reference: %w", err)
		}
		refs = append(refs, rr)
	}
	return refs, rows.Err()
}

// ResolvedReferenceByRef returns the binding of a reference, or nil when the
// reference did not resolve.
func (s *Store) ResolvedReferenceByRef(referenceID int64) (*ResolvedReference, error) {
	rr := &ResolvedReference{}
	err := s.db.QueryRow(
		"SELECT "+resolvedRefCols+" FROM resolved_references WHERE reference_id = ?", referenceID,
	).Scan(&rr.ID, &rr.ReferenceID, &rr.DeclarationID, &rr.Levels)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolved reference by ref: %w", err)
	}
	return rr, nil
}

func (s *Store) ResolvedReferencesByDeclaration(declID int64) ([]*ResolvedReference, error) {
	return s.queryResolvedRefs(
		"SELECT "+resolvedRefCols+" FROM resolved_references WHERE declaration_id = ? ORDER BY reference_id", declID,
	)
}

// UnresolvedReferences returns the references of a file that have no
// binding.
func (s *Store) UnresolvedReferences(fileID int64) ([]*Reference, error) {
	return s.queryReferences(
		`SELECT r.id, r.file_id, r.name, r.context,
			r.start_byte, r.end_byte, r.start_line, r.start_col, r.end_line, r.end_col
		 FROM references_ r
		 LEFT JOIN resolved_references rr ON rr.reference_id = r.id
		 WHERE r.file_id = ? AND rr.id IS NULL
		 ORDER BY r.start_byte`, fileID,
	)
}

// DeleteResolutionDataForFiles removes the bindings of every reference in
// the given files, leaving extraction data intact.
func (s *Store) DeleteResolutionDataForFiles(fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	placeholders := placeholderList(len(fileIDs))
	_, err := s.db.Exec(
		"DELETE FROM resolved_references WHERE reference_id IN (SELECT id FROM references_ WHERE file_id IN ("+placeholders+"))",
		int64sToArgs(fileIDs)...,
	)
	if err != nil {
		return fmt.Errorf("delete resolution data for files: %w", err)
	}
	return nil
}
