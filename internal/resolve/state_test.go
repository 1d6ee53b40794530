package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/bough/internal/resolve"
)

func TestState_PutLookup(t *testing.T) {
	t.Parallel()
	depthKey := resolve.NewKey[int]("depth")
	var s resolve.State
	_, ok := resolve.Lookup(s, depthKey)
	assert.False(t, ok)

	s1 := resolve.Put(s, depthKey, 1)
	s2 := resolve.Put(s1, depthKey, 2)

	v, ok := resolve.Lookup(s1, depthKey)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	v, _ = resolve.Lookup(s2, depthKey)
	assert.Equal(t, 2, v, "inner binding shadows outer")
	assert.Equal(t, 1, s2.Len())
	assert.Zero(t, s.Len(), "the original state is unchanged")
}

func TestState_KeysWithSameNameAreDistinct(t *testing.T) {
	t.Parallel()
	a := resolve.NewKey[string]("name")
	b := resolve.NewKey[string]("name")
	s := resolve.Put(resolve.State{}, a, "a")
	_, ok := resolve.Lookup(s, b)
	assert.False(t, ok)
	assert.Equal(t, "name", b.String())
}

func TestState_UntypedWith(t *testing.T) {
	t.Parallel()
	s := resolve.State{}.With("k", 3)
	assert.Equal(t, 3, s.Value("k"))
	assert.Nil(t, s.Value("missing"))

	file, ok := resolve.Lookup(resolve.Put(s, resolve.FileKey, "A.java"), resolve.FileKey)
	assert.True(t, ok)
	assert.Equal(t, "A.java", file)
}
