package bough

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/store"
)

// Resolve binds the references of every file indexed since the last
// Resolve to their declarations. A first run, or a database resolved with a
// different ResolverVersion, resolves every file.
//
// Resolution is per file: each file's bindings are computed in parallel from
// its tree and committed serially.
func (e *Engine) Resolve(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "bough.Engine.Resolve")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	// A failed run leaves bindings half replaced, so the next one is full.
	defer func() {
		if err != nil {
			e.pending = nil
		} else {
			e.pending = make(map[int64]bool)
		}
	}()

	stored, err := e.store.GetMetadata(resolverVersionKey)
	if err != nil {
		return fmt.Errorf("bough: resolver version: %w", err)
	}
	full := e.pending == nil || stored != ResolverVersion
	if !full && len(e.pending) == 0 {
		span.SetAttributes(attribute.Int("resolve.files", 0))
		return nil
	}

	files, err := e.filesToResolve(full)
	if err != nil {
		return fmt.Errorf("bough: list files: %w", err)
	}
	span.SetAttributes(
		attribute.Bool("resolve.full", full),
		attribute.Int("resolve.files", len(files)),
	)

	ids := make([]int64, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	if len(ids) > 0 {
		if err := e.store.DeleteResolutionDataForFiles(ids); err != nil {
			return fmt.Errorf("bough: delete resolution data: %w", err)
		}
	}

	batches := make([]*store.BatchedStore, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.NumCPU()))
	for i, f := range files {
		g.Go(func() error {
			b, err := e.resolveFile(gctx, f)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", f.Path, err)
			}
			batches[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bough: %w", err)
	}

	var bindings int
	for i, b := range batches {
		if err := e.store.CommitBatch(b); err != nil {
			return fmt.Errorf("bough: commit resolution of %s: %w", files[i].Path, err)
		}
		bindings += len(b.ResolvedReferences)
	}
	span.SetAttributes(attribute.Int("resolve.bindings", bindings))

	if err := e.store.SetMetadata(resolverVersionKey, ResolverVersion); err != nil {
		return fmt.Errorf("bough: store resolver version: %w", err)
	}
	e.logger.Debug("resolved",
		slog.Int("files", len(files)),
		slog.Int("bindings", bindings),
		slog.Bool("full", full))
	return nil
}

func (e *Engine) filesToResolve(full bool) ([]*store.File, error) {
	if full {
		return e.store.AllFiles()
	}
	ids := make([]int64, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var files []*store.File
	for _, id := range ids {
		f, err := e.store.FileByID(id)
		if err != nil {
			return nil, err
		}
		if f != nil {
			files = append(files, f)
		}
	}
	return files, nil
}

// resolveFile computes the bindings of one file against its stored
// declaration and reference rows, matched by start byte. It walks the stored
// snapshot rather than the workspace tree: an edited workspace tree has
// offsets the rows do not know about.
func (e *Engine) resolveFile(ctx context.Context, f *store.File) (*store.BatchedStore, error) {
	tree, err := e.storedTree(f)
	if err != nil {
		return nil, err
	}
	decls, err := e.store.DeclarationsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	refs, err := e.store.ReferencesByFile(f.ID)
	if err != nil {
		return nil, err
	}
	declAt := make(map[int]int64, len(decls))
	for _, d := range decls {
		declAt[d.StartByte] = d.ID
	}
	refAt := make(map[int]int64, len(refs))
	for _, r := range refs {
		refAt[r.StartByte] = r.ID
	}

	bound, _, err := resolve.ResolveAll(ctx, tree.Root())
	if err != nil {
		return nil, err
	}
	batch := store.NewBatchedStore(e.store)
	for _, b := range bound {
		refID, ok := refAt[int(b.Ref.Range().StartByte)]
		if !ok {
			continue
		}
		declID, ok := declAt[int(b.Decl.Node.Range().StartByte)]
		if !ok {
			continue
		}
		if _, err := batch.InsertResolvedReference(&store.ResolvedReference{
			ReferenceID:   refID,
			DeclarationID: declID,
			Levels:        b.Levels,
		}); err != nil {
			return nil, err
		}
	}
	return batch, nil
}
