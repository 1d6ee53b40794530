package store

// DataStore is the interface for indexing-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// indexing) implement this interface.
type DataStore interface {
	// Inserts return the assigned ID.
	InsertDeclaration(d *Declaration) (int64, error)
	InsertReference(ref *Reference) (int64, error)
	InsertResolvedReference(rr *ResolvedReference) (int64, error)
	PutTree(ts *TreeSnapshot) error

	// Queries needed by scripts while a file is being indexed.
	DeclarationsByFile(fileID int64) ([]*Declaration, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
