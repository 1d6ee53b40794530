package bough

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bough/internal/store"
	"github.com/jward/bough/internal/syntax"
	st "github.com/jward/bough/internal/syntax/syntaxtest"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return &QueryBuilder{store: s, trees: func(string) (*syntax.Tree, error) { return nil, ErrNotIndexed }}, s
}

func insertFile(t *testing.T, s *store.Store, path string) int64 {
	t.Helper()
	id, err := s.InsertFile(&store.File{Path: path, Language: "java", Hash: path, LineCount: 10, LastIndexed: time.Now()})
	require.NoError(t, err)
	return id
}

func nameSpan(line, col int, name string) store.Span {
	return store.Span{
		StartByte: line*100 + col, EndByte: line*100 + col + len(name),
		StartLine: line, StartCol: col, EndLine: line, EndCol: col + len(name),
	}
}

func insertDecl(t *testing.T, s *store.Store, fileID int64, name, kind, owner string, line, col int) int64 {
	t.Helper()
	id, err := s.InsertDeclaration(&store.Declaration{
		FileID: fileID, Name: name, Kind: kind, OwnerKind: owner, Span: nameSpan(line, col, name),
	})
	require.NoError(t, err)
	return id
}

func insertRef(t *testing.T, s *store.Store, fileID int64, name string, line, col int) int64 {
	t.Helper()
	id, err := s.InsertReference(&store.Reference{FileID: fileID, Name: name, Context: "name", Span: nameSpan(line, col, name)})
	require.NoError(t, err)
	return id
}

func bind(t *testing.T, s *store.Store, refID, declID int64, levels int) {
	t.Helper()
	_, err := s.InsertResolvedReference(&store.ResolvedReference{ReferenceID: refID, DeclarationID: declID, Levels: levels})
	require.NoError(t, err)
}

func TestDefinitionAt_NoFile(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	locs, err := q.DefinitionAt("missing.java", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestDefinitionAt_WithResolvedReference(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	fid := insertFile(t, s, "A.java")
	declID := insertDecl(t, s, fid, "count", "local", "VariableDeclarator", 2, 8)
	refID := insertRef(t, s, fid, "count", 5, 12)
	bind(t, s, refID, declID, 1)

	locs, err := q.DefinitionAt("A.java", 5, 14)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, Location{File: "A.java", StartLine: 2, StartCol: 8, EndLine: 2, EndCol: 13}, locs[0])
}

func TestDefinitionAt_DeclaringNameIsItsOwnDefinition(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	fid := insertFile(t, s, "A.java")
	insertDecl(t, s, fid, "x", "local", "VariableDeclarator", 3, 4)

	locs, err := q.DefinitionAt("A.java", 3, 4)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 3, locs[0].StartLine)
	assert.Equal(t, 4, locs[0].StartCol)
}

func TestDefinitionAt_UnresolvedReference(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	fid := insertFile(t, s, "A.java")
	insertRef(t, s, fid, "ghost", 1, 0)

	locs, err := q.DefinitionAt("A.java", 1, 2)
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestDefinitionAt_PositionOutsideReference(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	fid := insertFile(t, s, "A.java")
	declID := insertDecl(t, s, fid, "x", "local", "VariableDeclarator", 0, 0)
	bind(t, s, insertRef(t, s, fid, "x", 1, 4), declID, 0)

	// End column is exclusive.
	locs, err := q.DefinitionAt("A.java", 1, 5)
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestReferencesTo(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	a := insertFile(t, s, "A.java")
	b := insertFile(t, s, "B.java")
	declID := insertDecl(t, s, a, "total", "field", "VariableDeclarator", 1, 8)
	bind(t, s, insertRef(t, s, a, "total", 4, 2), declID, 2)
	bind(t, s, insertRef(t, s, b, "total", 7, 3), declID, 3)
	insertRef(t, s, a, "other", 6, 0)

	// From the declaration itself.
	locs, err := q.ReferencesTo("A.java", 1, 9)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "A.java", locs[0].File)
	assert.Equal(t, 4, locs[0].StartLine)
	assert.Equal(t, "B.java", locs[1].File)

	// From one of its uses.
	fromUse, err := q.ReferencesTo("B.java", 7, 3)
	require.NoError(t, err)
	assert.Equal(t, locs, fromUse)
}

func TestReferencesTo_NothingAtPosition(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	insertFile(t, s, "A.java")
	locs, err := q.ReferencesTo("A.java", 9, 9)
	require.NoError(t, err)
	assert.Nil(t, locs)
}

func TestVisibleAt_PatternBindingInRuleBody(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	tree := st.SwitchTree(t)
	q.trees = func(string) (*syntax.Tree, error) { return tree, nil }

	// The c in area(c).
	visible, err := q.VisibleAt(context.Background(), "S.java", 1, 39)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "c", visible[0].Name)
	assert.Equal(t, "pattern", visible[0].Kind)
	assert.Equal(t, Location{File: "S.java", StartLine: 1, StartCol: 14, EndLine: 1, EndCol: 15}, visible[0].Location)
}

func TestVisibleAt_BindingStaysInsideItsRule(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	tree := st.SwitchTree(t)
	q.trees = func(string) (*syntax.Tree, error) { return tree, nil }

	// The s in log(s), inside the default rule.
	visible, err := q.VisibleAt(context.Background(), "S.java", 3, 17)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestVisibleAt_NotIndexed(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	_, err := q.VisibleAt(context.Background(), "missing.java", 0, 0)
	require.ErrorIs(t, err, ErrNotIndexed)
}

func TestVisibleAt_NegativePosition(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	tree := st.SwitchTree(t)
	q.trees = func(string) (*syntax.Tree, error) { return tree, nil }
	_, err := q.VisibleAt(context.Background(), "S.java", -1, 0)
	require.Error(t, err)
}
