package bough

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jward/bough/internal/syntax"
)

// Workspace holds the current tree of each file. Trees are immutable, so a
// reader keeps using the snapshot it got even while a writer replaces it.
type Workspace struct {
	mu    sync.RWMutex
	trees map[string]*syntax.Tree
}

// NewWorkspace returns an empty Workspace.
func NewWorkspace() *Workspace {
	return &Workspace{trees: make(map[string]*syntax.Tree)}
}

// Get returns the current tree of path.
func (w *Workspace) Get(path string) (*syntax.Tree, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.trees[path]
	return t, ok
}

// Put publishes t as the current tree of path.
func (w *Workspace) Put(path string, t *syntax.Tree) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trees[path] = t
}

// Remove drops path.
func (w *Workspace) Remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.trees, path)
}

// Paths lists the files in the workspace, sorted.
func (w *Workspace) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, 0, len(w.trees))
	for p := range w.trees {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Replace swaps the subtree at anchor in path's current tree for sub and
// publishes the result as a new snapshot. The previous tree is unchanged.
func (w *Workspace) Replace(path string, anchor syntax.NodeID, sub *syntax.Tree) (*syntax.Tree, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	old, ok := w.trees[path]
	if !ok {
		return nil, fmt.Errorf("bough: %s: %w", path, ErrNotIndexed)
	}
	n := old.Node(anchor)
	if !n.Valid() {
		return nil, fmt.Errorf("bough: %s: no node %d", path, anchor)
	}
	t, err := syntax.Replace(n, sub)
	if err != nil {
		return nil, fmt.Errorf("bough: replace in %s: %w", path, err)
	}
	w.trees[path] = t
	return t, nil
}
