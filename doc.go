// Package bough indexes Java sources into syntax trees and answers lexical
// scope questions about them.
//
// # Pipeline
//
// bough operates in two phases:
//
//  1. Index: For each Java file, parse with tree-sitter, lower the concrete
//     tree into a compact syntax tree, and write the file's declarations,
//     references and an encoded tree snapshot to SQLite.
//
//  2. Resolve: For each file whose index changed, walk every reference up
//     through its enclosing scopes to the declaration it names, and store
//     the binding with the number of scopes climbed.
//
// Resolution is lexical and per file: a name that is not declared in an
// enclosing scope of the same file stays unresolved.
//
// # Usage
//
// Create an Engine, index source files, resolve, and query:
//
//	e, err := bough.New("bough.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//	err = e.Resolve(ctx)
//
//	q := e.Query()
//	locs, err := q.DefinitionAt("src/Main.java", 10, 5)
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.DefinitionAt]: where the name at a position is declared.
//   - [QueryBuilder.ReferencesTo]: every resolved use of a declaration.
//   - [QueryBuilder.VisibleAt]: the declarations in scope at a position,
//     nearest first.
//   - [QueryBuilder.Declarations] and [QueryBuilder.SearchDeclarations]:
//     filtered, sorted and paged declaration listings.
//   - [QueryBuilder.DeclarationDetail] and [QueryBuilder.ScopeAt]: one
//     declaration with its uses, and the scopes enclosing a position.
//   - [QueryBuilder.UnusedDeclarations] and [QueryBuilder.Hotspots]:
//     declarations nothing uses, and the most used ones.
//   - [QueryBuilder.Files], [QueryBuilder.Unresolved] and
//     [QueryBuilder.Summary].
//
// [Engine.Workspace] holds the current tree of each indexed file. Position
// queries read trees from there, so edits applied with [Workspace.Replace]
// are visible before the file is re-indexed.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] detects unchanged files via content hashing and skips
// them. Only files that were re-indexed are re-resolved, unless the stored
// resolver version differs from [ResolverVersion], which forces a full
// resolve.
//
// # Scripts
//
// Lint rules are Risor scripts under lint/ in the scripts filesystem (the
// embedded [scripts.FS] by default). Scripts receive the file's tree and
// host functions to inspect nodes, walk them with a visitor, and resolve
// names. See the internal/runtime package for the full set of globals.
package bough
