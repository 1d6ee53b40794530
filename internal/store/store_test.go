package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Language: "java", Hash: "abc123", LineCount: 10, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func span(line, col, width int) Span {
	return Span{
		StartByte: line*100 + col, EndByte: line*100 + col + width,
		StartLine: line, StartCol: col, EndLine: line, EndCol: col + width,
	}
}

// insertTestDecl inserts a declaration whose name token starts at (line, col).
func insertTestDecl(t *testing.T, s *Store, fileID int64, name, kind string, line, col int) *Declaration {
	t.Helper()
	d := &Declaration{FileID: fileID, Name: name, Kind: kind, OwnerKind: "LocalVariableDeclaration", Span: span(line, col, len(name))}
	id, err := s.InsertDeclaration(d)
	require.NoError(t, err)
	require.Positive(t, id)
	return d
}

func insertTestRef(t *testing.T, s *Store, fileID int64, name string, line, col int) *Reference {
	t.Helper()
	r := &Reference{FileID: fileID, Name: name, Context: "name", Span: span(line, col, len(name))}
	id, err := s.InsertReference(r)
	require.NoError(t, err)
	require.Positive(t, id)
	return r
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	expectedTables := []string{
		"files", "declarations", "references_", "trees",
		"resolved_references", "metadata",
	}

	for _, table := range expectedTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

// =============================================================================
// File operations
// =============================================================================

func TestFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	f := &File{Path: "/src/Main.java", Language: "java", Hash: "sha256abc", LineCount: 42, LastIndexed: now}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.FileByPath("/src/Main.java")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "/src/Main.java", got.Path)
	assert.Equal(t, "java", got.Language)
	assert.Equal(t, "sha256abc", got.Hash)
	assert.Equal(t, 42, got.LineCount)
	assert.True(t, now.Equal(got.LastIndexed.Truncate(time.Second)))

	byID, err := s.FileByID(id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, got.Path, byID.Path)
}

func TestFile_ByPathNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FileByPath("/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFile_AllFilesSortedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/b/B.java")
	insertTestFile(t, s, "/a/A.java")

	files, err := s.AllFiles()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/a/A.java", files[0].Path)
	assert.Equal(t, "/b/B.java", files[1].Path)

	java, err := s.FilesByLanguage("java")
	require.NoError(t, err)
	assert.Len(t, java, 2)

	none, err := s.FilesByLanguage("go")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFile_DuplicatePathRejected(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/A.java")
	_, err := s.InsertFile(&File{Path: "/A.java", Language: "java"})
	assert.Error(t, err)
}

// =============================================================================
// Declarations & references
// =============================================================================

func TestDeclaration_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/A.java")

	x := insertTestDecl(t, s, f.ID, "x", "local", 3, 8)
	insertTestDecl(t, s, f.ID, "run", "method", 1, 10)

	decls, err := s.DeclarationsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "run", decls[0].Name, "ordered by start byte")
	assert.Equal(t, "x", decls[1].Name)

	got, err := s.DeclarationByID(x.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *x, *got)

	byName, err := s.DeclarationsByName("x")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byKind, err := s.DeclarationsByKind("method")
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "run", byKind[0].Name)

	missing, err := s.DeclarationByID(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeclarationAt(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/A.java")
	insertTestDecl(t, s, f.ID, "count", "field", 2, 4)

	tests := []struct {
		name      string
		line, col int
		want      bool
	}{
		{"first byte", 2, 4, true},
		{"last byte", 2, 8, true},
		{"one past end", 2, 9, false},
		{"before", 2, 3, false},
		{"other line", 3, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := s.DeclarationAt(f.ID, tt.line, tt.col)
			require.NoError(t, err)
			if tt.want {
				require.NotNil(t, d)
				assert.Equal(t, "count", d.Name)
			} else {
				assert.Nil(t, d)
			}
		})
	}
}

func TestReference_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/A.java")

	r := insertTestRef(t, s, f.ID, "x", 5, 12)
	insertTestRef(t, s, f.ID, "y", 4, 0)

	refs, err := s.ReferencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "y", refs[0].Name)

	got, err := s.ReferenceByID(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *r, *got)

	byName, err := s.ReferencesByName("x")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	at, err := s.ReferenceAt(f.ID, 5, 12)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, r.ID, at.ID)

	at, err = s.ReferenceAt(f.ID, 5, 13)
	require.NoError(t, err)
	assert.Nil(t, at)
}

// =============================================================================
// Resolution
// =============================================================================

func TestResolvedReference_InsertAndQuery(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/A.java")
	d := insertTestDecl(t, s, f.ID, "x", "local", 1, 4)
	r1 := insertTestRef(t, s, f.ID, "x", 2, 4)
	r2 := insertTestRef(t, s, f.ID, "x", 3, 4)
	unbound := insertTestRef(t, s, f.ID, "y", 4, 4)

	for _, r := range []*Reference{r1, r2} {
		_, err := s.InsertResolvedReference(&ResolvedReference{ReferenceID: r.ID, DeclarationID: d.ID, Levels: 2})
		require.NoError(t, err)
	}

	rr, err := s.ResolvedReferenceByRef(r1.ID)
	require.NoError(t, err)
	require.NotNil(t, rr)
	assert.Equal(t, d.ID, rr.DeclarationID)
	assert.Equal(t, 2, rr.Levels)

	none, err := s.ResolvedReferenceByRef(unbound.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	byDecl, err := s.ResolvedReferencesByDeclaration(d.ID)
	require.NoError(t, err)
	require.Len(t, byDecl, 2)
	assert.Equal(t, r1.ID, byDecl[0].ReferenceID)
	assert.Equal(t, r2.ID, byDecl[1].ReferenceID)

	unresolved, err := s.UnresolvedReferences(f.ID)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "y", unresolved[0].Name)
}

func TestDeleteResolutionDataForFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/A.java")
	d := insertTestDecl(t, s, f.ID, "x", "local", 1, 4)
	r := insertTestRef(t, s, f.ID, "x", 2, 4)
	_, err := s.InsertResolvedReference(&ResolvedReference{ReferenceID: r.ID, DeclarationID: d.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteResolutionDataForFiles([]int64{f.ID}))
	require.NoError(t, s.DeleteResolutionDataForFiles(nil))

	rr, err := s.ResolvedReferenceByRef(r.ID)
	require.NoError(t, err)
	assert.Nil(t, rr)

	refs, err := s.ReferencesByFile(f.ID)
	require.NoError(t, err)
	assert.Len(t, refs, 1, "extraction data is kept")
}

// =============================================================================
// Trees & metadata
// =============================================================================

func TestTree_PutAndReplace(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/A.java")

	missing, err := s.TreeByFile(f.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.PutTree(&TreeSnapshot{FileID: f.ID, NodeCount: 3, Data: []byte{1, 2, 3}}))
	require.NoError(t, s.PutTree(&TreeSnapshot{FileID: f.ID, NodeCount: 4, Data: []byte{4, 5}}))

	got, err := s.TreeByFile(f.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4, got.NodeCount)
	assert.Equal(t, []byte{4, 5}, got.Data)
}

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("resolver_version")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("resolver_version", "1"))
	require.NoError(t, s.SetMetadata("resolver_version", "2"))

	v, err = s.GetMetadata("resolver_version")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

// =============================================================================
// Deletion
// =============================================================================

func populateFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := insertTestFile(t, s, path)
	d := insertTestDecl(t, s, f.ID, "x", "local", 1, 4)
	r := insertTestRef(t, s, f.ID, "x", 2, 4)
	_, err := s.InsertResolvedReference(&ResolvedReference{ReferenceID: r.ID, DeclarationID: d.ID})
	require.NoError(t, err)
	require.NoError(t, s.PutTree(&TreeSnapshot{FileID: f.ID, NodeCount: 1, Data: []byte{0}}))
	return f
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := populateFile(t, s, "/A.java")
	populateFile(t, s, "/B.java")

	require.NoError(t, s.DeleteFileData(a.ID))

	assert.Equal(t, 1, countRows(t, s, "declarations"))
	assert.Equal(t, 1, countRows(t, s, "references_"))
	assert.Equal(t, 1, countRows(t, s, "resolved_references"))
	assert.Equal(t, 1, countRows(t, s, "trees"))
	assert.Equal(t, 2, countRows(t, s, "files"), "file row is kept")
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := populateFile(t, s, "/A.java")

	require.NoError(t, s.DeleteFile(a.ID))

	got, err := s.FileByPath("/A.java")
	require.NoError(t, err)
	assert.Nil(t, got)
	for _, table := range []string{"declarations", "references_", "resolved_references", "trees"} {
		assert.Zero(t, countRows(t, s, table), table)
	}

	// The path can be indexed again.
	populateFile(t, s, "/A.java")
}

// =============================================================================
// Hashing
// =============================================================================

func TestContentHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ContentHash([]byte("class A {}")), ContentHash([]byte("class A {}")))
	assert.NotEqual(t, ContentHash([]byte("class A {}")), ContentHash([]byte("class B {}")))
	assert.Len(t, ContentHash(nil), 64)
}

func TestDeclarationsHash_IgnoresPositionAndOrder(t *testing.T) {
	t.Parallel()
	a := []*Declaration{
		{Name: "x", Kind: "local", Span: span(1, 2, 1)},
		{Name: "run", Kind: "method", Span: span(0, 5, 3)},
	}
	b := []*Declaration{
		{Name: "run", Kind: "method", Span: span(7, 1, 3)},
		{Name: "x", Kind: "local", Span: span(9, 9, 1)},
	}
	assert.Equal(t, ComputeDeclarationsHash(a), ComputeDeclarationsHash(b))

	b[1].Kind = "field"
	assert.NotEqual(t, ComputeDeclarationsHash(a), ComputeDeclarationsHash(b))
}
