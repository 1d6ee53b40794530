package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and all FK references within the batch are rewritten using the
// fakeToReal mapping.
//
// Insert order respects FK dependencies:
//  1. Declarations (depend on file_id only, which is already real)
//  2. References (depend on file_id)
//  3. ResolvedReferences (depend on reference_id, declaration_id)
//  4. Trees (depend on file_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	// 1. Declarations
	for _, d := range batch.Declarations {
		realID, err := insertDeclarationTx(tx, &d)
		if err != nil {
			return fmt.Errorf("commit batch: declaration %q: %w", d.Name, err)
		}
		fakeToReal[d.ID] = realID
	}

	// 2. References
	for _, ref := range batch.References {
		realID, err := insertReferenceTx(tx, &ref)
		if err != nil {
			return fmt.Errorf("commit batch: reference %q: %w", ref.Name, err)
		}
		fakeToReal[ref.ID] = realID
	}

	// 3. ResolvedReferences
	for _, rr := range batch.ResolvedReferences {
		if rr.ReferenceID < 0 {
			realID, ok := fakeToReal[rr.ReferenceID]
			if !ok {
				return fmt.Errorf("commit batch: resolved reference has reference_id=%d not in fakeToReal map", rr.ReferenceID)
			}
			rr.ReferenceID = realID
		}
		if rr.DeclarationID < 0 {
			realID, ok := fakeToReal[rr.DeclarationID]
			if !ok {
				return fmt.Errorf("commit batch: resolved reference has declaration_id=%d not in fakeToReal map (have %d declarations)", rr.DeclarationID, len(batch.Declarations))
			}
			rr.DeclarationID = realID
		}
		realID, err := insertResolvedReferenceTx(tx, &rr)
		if err != nil {
			return fmt.Errorf("commit batch: resolved reference: %w", err)
		}
		fakeToReal[rr.ID] = realID
	}

	// 4. Trees
	for _, ts := range batch.Trees {
		if err := putTreeTx(tx, &ts); err != nil {
			return fmt.Errorf("commit batch: tree for file %d: %w", ts.FileID, err)
		}
	}

	return tx.Commit()
}

// --- Transaction-scoped insert helpers ---
// These mirror the Store insert methods but accept *sql.Tx instead of using s.db.

func insertDeclarationTx(tx *sql.Tx, d *Declaration) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO declarations (file_id, name, kind, owner_kind,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Name, d.Kind, d.OwnerKind,
		d.StartByte, d.EndByte, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertReferenceTx(tx *sql.Tx, ref *Reference) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO references_ (file_id, name, context,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.Name, ref.Context,
		ref.StartByte, ref.EndByte, ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertResolvedReferenceTx(tx *sql.Tx, rr *ResolvedReference) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO resolved_references (reference_id, declaration_id, levels) VALUES (?, ?, ?)`,
		rr.ReferenceID, rr.DeclarationID, rr.Levels,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func putTreeTx(tx *sql.Tx, ts *TreeSnapshot) error {
	_, err := tx.Exec(
		`INSERT INTO trees (file_id, node_count, snapshot) VALUES (?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET node_count = excluded.node_count, snapshot = excluded.snapshot`,
		ts.FileID, ts.NodeCount, ts.Data,
	)
	return err
}
