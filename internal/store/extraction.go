package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// FileCols is the column list for file queries.
const FileCols = `id, path, language, hash, line_count, last_indexed`

// ScanFileRow scans a single row selected with FileCols.
func ScanFileRow(scanner rowScanner) (*File, error) {
	f := &File{}
	var hash sql.NullString
	var indexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Language, &hash, &f.LineCount, &indexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LastIndexed = indexed.Time
	return f, nil
}

func (s *Store) queryFile(query string, args ...any) (*File, error) {
	f, err := ScanFileRow(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := ScanFileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// FileByPath returns the file stored under path, or nil when none is.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := s.queryFile("SELECT "+FileCols+" FROM files WHERE path = ?", path)
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FileByID(id int64) (*File, error) {
	f, err := s.queryFile("SELECT "+FileCols+" FROM files WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+FileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// AllFiles returns every indexed file ordered by path.
func (s *Store) AllFiles() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + FileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	return files, nil
}

// --- Declaration operations ---

func (s *Store) InsertDeclaration(d *Declaration) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO declarations (file_id, name, kind, owner_kind,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Name, d.Kind, d.OwnerKind,
		d.StartByte, d.EndByte, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert declaration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

// DeclarationCols is the column list for declaration queries, exported for
// use by the query layer.
const DeclarationCols = `id, file_id, name, kind, owner_kind,
	start_byte, end_byte, start_line, start_col, end_line, end_col`

// ScanDeclarationRow scans a single row selected with DeclarationCols.
func ScanDeclarationRow(scanner rowScanner) (*Declaration, error) {
	d := &Declaration{}
	var owner sql.NullString
	err := scanner.Scan(
		&d.ID, &d.FileID, &d.Name, &d.Kind, &owner,
		&d.StartByte, &d.EndByte, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol,
	)
	if err != nil {
		return nil, err
	}
	d.OwnerKind = owner.String
	return d, nil
}

func (s *Store) queryDeclarations(query string, args ...any) ([]*Declaration, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var decls []*Declaration
	for rows.Next() {
		d, err := ScanDeclarationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		decls = append(decls, d)
	}
	return decls, rows.Err()
}

func (s *Store) DeclarationByID(id int64) (*Declaration, error) {
	d, err := ScanDeclarationRow(s.db.QueryRow("SELECT "+DeclarationCols+" FROM declarations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("declaration by id: %w", err)
	}
	return d, nil
}

func (s *Store) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+DeclarationCols+" FROM declarations WHERE file_id = ? ORDER BY start_byte", fileID)
}

func (s *Store) DeclarationsByName(name string) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+DeclarationCols+" FROM declarations WHERE name = ? ORDER BY file_id, start_byte", name)
}

func (s *Store) DeclarationsByKind(kind string) ([]*Declaration, error) {
	return s.queryDeclarations("SELECT "+DeclarationCols+" FROM declarations WHERE kind = ? ORDER BY file_id, start_byte", kind)
}

// DeclarationAt returns the declaration whose name token covers (line, col)
// in the given file, or nil.
func (s *Store) DeclarationAt(fileID int64, line, col int) (*Declaration, error) {
	decls, err := s.queryDeclarations(
		"SELECT "+DeclarationCols+" FROM declarations WHERE file_id = ? AND start_line <= ? AND end_line >= ?",
		fileID, line, line,
	)
	if err != nil {
		return nil, fmt.Errorf("declaration at: %w", err)
	}
	for _, d := range decls {
		if d.Contains(line, col) {
			return d, nil
		}
	}
	return nil, nil
}

// --- Reference operations ---

func (s *Store) InsertReference(ref *Reference) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO references_ (file_id, name, context,
			start_byte, end_byte, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.FileID, ref.Name, ref.Context,
		ref.StartByte, ref.EndByte, ref.StartLine, ref.StartCol, ref.EndLine, ref.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	ref.ID = id
	return id, nil
}

// ReferenceCols is the column list for reference queries.
const ReferenceCols = `id, file_id, name, context,
	start_byte, end_byte, start_line, start_col, end_line, end_col`

// ScanReferenceRow scans a single row selected with ReferenceCols.
func ScanReferenceRow(scanner rowScanner) (*Reference, error) {
	r := &Reference{}
	var context sql.NullString
	err := scanner.Scan(
		&r.ID, &r.FileID, &r.Name, &context,
		&r.StartByte, &r.EndByte, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol,
	)
	if err != nil {
		return nil, err
	}
	r.Context = context.String
	return r, nil
}

func (s *Store) queryReferences(query string, args ...any) ([]*Reference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		r, err := ScanReferenceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *Store) ReferenceByID(id int64) (*Reference, error) {
	r, err := ScanReferenceRow(s.db.QueryRow("SELECT "+ReferenceCols+" FROM references_ WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reference by id: %w", err)
	}
	return r, nil
}

func (s *Store) ReferencesByFile(fileID int64) ([]*Reference, error) {
	return s.queryReferences("SELECT "+ReferenceCols+" FROM references_ WHERE file_id = ? ORDER BY start_byte", fileID)
}

func (s *Store) ReferencesByName(name string) ([]*Reference, error) {
	return s.queryReferences("SELECT "+ReferenceCols+" FROM references_ WHERE name = ? ORDER BY file_id, start_byte", name)
}

// ReferenceAt returns the reference covering (line, col) in the given file,
// or nil.
func (s *Store) ReferenceAt(fileID int64, line, col int) (*Reference, error) {
	refs, err := s.queryReferences(
		"SELECT "+ReferenceCols+" FROM references_ WHERE file_id = ? AND start_line <= ? AND end_line >= ?",
		fileID, line, line,
	)
	if err != nil {
		return nil, fmt.Errorf("reference at: %w", err)
	}
	for _, r := range refs {
		if r.Contains(line, col) {
			return r, nil
		}
	}
	return nil, nil
}

// --- Tree snapshot operations ---

// PutTree stores (or replaces) the encoded tree of a file.
func (s *Store) PutTree(ts *TreeSnapshot) error {
	_, err := s.db.Exec(
		`INSERT INTO trees (file_id, node_count, snapshot) VALUES (?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET node_count = excluded.node_count, snapshot = excluded.snapshot`,
		ts.FileID, ts.NodeCount, ts.Data,
	)
	if err != nil {
		return fmt.Errorf("put tree: %w", err)
	}
	return nil
}

// TreeByFile returns the stored snapshot of a file, or nil when none exists.
func (s *Store) TreeByFile(fileID int64) (*TreeSnapshot, error) {
	ts := &TreeSnapshot{FileID: fileID}
	err := s.db.QueryRow(
		"SELECT node_count, snapshot FROM trees WHERE file_id = ?", fileID,
	).Scan(&ts.NodeCount, &ts.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tree by file: %w", err)
	}
	return ts, nil
}
