package bough

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/store"
	"github.com/jward/bough/internal/syntax"
)

// workItem holds everything an indexing worker needs.
type workItem struct {
	path    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore

	// existed and oldHash describe the file's previous index, for
	// IndexStats.SurfaceChanged.
	existed bool
	oldHash string
}

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and extract into per-file BatchedStores.
//	Phase C (serial):   Commit batches to SQLite, publish trees.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial file preparation ----
	var errs []error
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			e.fail(path, err)
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	// ---- Phase B: Parallel extraction ----
	type result struct {
		tree *syntax.Tree
		err  error
	}
	results := make([]result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.NumCPU()))
	for i, item := range items {
		g.Go(func() error {
			// Per-file failures are collected, not returned, so one bad
			// file does not cancel the others.
			tree, err := e.extractFile(gctx, item)
			results[i] = result{tree: tree, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		for _, item := range items {
			e.discard(item)
		}
		return err
	}

	// ---- Phase C: Serial commit ----
	for i, item := range items {
		err := results[i].err
		if err == nil {
			err = e.commitFile(item, results[i].tree)
		}
		if err != nil {
			e.discard(item)
			e.fail(item.path, err)
			errs = append(errs, fmt.Errorf("index %s: %w", item.path, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// extractFile parses one file and buffers its declarations, references and
// tree snapshot in the item's BatchedStore. Safe to run concurrently for
// distinct items.
func (e *Engine) extractFile(ctx context.Context, item workItem) (*syntax.Tree, error) {
	tree, err := e.parser.Parse(ctx, item.content, item.path)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := recordTree(item.batch, item.fileID, tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// recordTree writes the declarations, references and snapshot of tree.
func recordTree(ds store.DataStore, fileID int64, tree *syntax.Tree) error {
	root := tree.Root()
	for _, d := range resolve.Declarations(root) {
		_, err := ds.InsertDeclaration(&store.Declaration{
			FileID:    fileID,
			Name:      d.Name,
			Kind:      d.Kind.String(),
			OwnerKind: d.Owner.Kind().String(),
			Span:      spanOf(d.Node),
		})
		if err != nil {
			return fmt.Errorf("insert declaration %s: %w", d.Name, err)
		}
	}
	for _, ref := range resolve.References(root) {
		refContext := "name"
		if resolve.IsMethodName(ref) {
			refContext = "method"
		}
		_, err := ds.InsertReference(&store.Reference{
			FileID:  fileID,
			Name:    ref.Text(),
			Context: refContext,
			Span:    spanOf(ref),
		})
		if err != nil {
			return fmt.Errorf("insert reference %s: %w", ref.Text(), err)
		}
	}
	data, err := syntax.EncodeSnapshot(tree)
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return ds.PutTree(&store.TreeSnapshot{FileID: fileID, NodeCount: tree.Len(), Data: data})
}

func spanOf(n syntax.Node) store.Span {
	r := n.Range()
	return store.Span{
		StartByte: int(r.StartByte),
		EndByte:   int(r.EndByte),
		StartLine: int(r.Start.Row),
		StartCol:  int(r.Start.Column),
		EndLine:   int(r.End.Row),
		EndCol:    int(r.End.Column),
	}
}
