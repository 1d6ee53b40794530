package bough

import (
	"github.com/jward/bough/internal/runtime"
	"github.com/jward/bough/internal/store"
	"github.com/jward/bough/internal/syntax"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs. These are Go type aliases (=), identical to the internal types at
// compile time.

type Store = store.Store
type File = store.File
type Declaration = store.Declaration
type Reference = store.Reference
type Span = store.Span
type Finding = runtime.Finding
type Tree = syntax.Tree
type Node = syntax.Node
