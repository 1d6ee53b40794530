package bough

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnusedDeclarations(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	fid := insertFile(t, s, "A.java")
	used := insertDecl(t, s, fid, "used", "local", "VariableDeclarator", 0, 0)
	insertDecl(t, s, fid, "idle", "local", "VariableDeclarator", 1, 0)
	insertDecl(t, s, fid, "q", "pattern", "TypePattern", 2, 0)
	insertDecl(t, s, fid, "run", "method", "MethodDeclaration", 3, 0)
	insertDecl(t, s, fid, "A", "type", "ClassDeclaration", 4, 0)
	bind(t, s, insertRef(t, s, fid, "used", 5, 0), used, 0)

	res, err := q.UnusedDeclarations(DeclarationFilter{}, Sort{Field: SortByName}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, []string{"idle", "q"}, names(res.Items))

	res, err = q.UnusedDeclarations(DeclarationFilter{Kinds: []string{"pattern"}}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, names(res.Items))

	// Asking for methods or types explicitly still yields nothing.
	res, err = q.UnusedDeclarations(DeclarationFilter{Kinds: []string{"method", "type"}}, Sort{}, Pagination{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
	assert.Empty(t, res.Items)
}

func TestHotspots(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	a := insertFile(t, s, "A.java")
	b := insertFile(t, s, "B.java")
	hot := insertDecl(t, s, a, "hot", "field", "VariableDeclarator", 0, 0)
	warm := insertDecl(t, s, a, "warm", "local", "VariableDeclarator", 1, 0)
	insertDecl(t, s, a, "cold", "local", "VariableDeclarator", 2, 0)
	bind(t, s, insertRef(t, s, a, "hot", 3, 0), hot, 1)
	bind(t, s, insertRef(t, s, b, "hot", 3, 0), hot, 4)
	bind(t, s, insertRef(t, s, a, "hot", 4, 0), hot, 2)
	bind(t, s, insertRef(t, s, a, "warm", 5, 0), warm, 0)

	got, err := q.Hotspots(5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hot", got[0].Declaration.Name)
	assert.Equal(t, 3, got[0].Declaration.RefCount)
	assert.Equal(t, 2, got[0].ReferenceFrom)
	assert.Equal(t, 4, got[0].MaxLevels)
	assert.Equal(t, "A.java", got[0].Declaration.FilePath)
	assert.Equal(t, "warm", got[1].Declaration.Name)

	got, err = q.Hotspots(1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestHotspots_Bounds(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	got, err := q.Hotspots(0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = q.Hotspots(-1)
	require.Error(t, err)
}
