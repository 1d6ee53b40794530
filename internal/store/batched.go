package store

import "sync"

// BatchedStore buffers indexing inserts in memory using fake (negative)
// IDs. It implements DataStore so the indexer can write to it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// DeclarationsByFile reads through to the underlying Store, which is safe
// for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	// Buffered data.
	Declarations       []Declaration
	References         []Reference
	ResolvedReferences []ResolvedReference
	Trees              []TreeSnapshot

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertDeclaration(d *Declaration) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Declarations = append(b.Declarations, *d)
	return fakeID, nil
}

func (b *BatchedStore) InsertReference(ref *Reference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	ref.ID = fakeID
	b.References = append(b.References, *ref)
	return fakeID, nil
}

func (b *BatchedStore) InsertResolvedReference(rr *ResolvedReference) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	rr.ID = fakeID
	b.ResolvedReferences = append(b.ResolvedReferences, *rr)
	return fakeID, nil
}

// PutTree buffers a snapshot. A later snapshot for the same file replaces
// an earlier one.
func (b *BatchedStore) PutTree(ts *TreeSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Trees {
		if b.Trees[i].FileID == ts.FileID {
			b.Trees[i] = *ts
			return nil
		}
	}
	b.Trees = append(b.Trees, *ts)
	return nil
}

// DeclarationsByFile returns declarations for a file, merging any buffered
// (not yet committed) declarations with those already in the database.
func (b *BatchedStore) DeclarationsByFile(fileID int64) ([]*Declaration, error) {
	dbDecls, err := b.store.DeclarationsByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Declarations {
		if b.Declarations[i].FileID == fileID {
			dbDecls = append(dbDecls, &b.Declarations[i])
		}
	}
	return dbDecls, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Declarations) + len(b.References) + len(b.ResolvedReferences) + len(b.Trees)
}
