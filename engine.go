package bough

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/jward/bough/internal/config"
	"github.com/jward/bough/internal/javaparse"
	"github.com/jward/bough/internal/runtime"
	"github.com/jward/bough/internal/store"
	"github.com/jward/bough/internal/syntax"
	"github.com/jward/bough/scripts"
)

// ResolverVersion identifies the resolution rules. A database resolved with
// a different version is fully re-resolved on the next Resolve.
const ResolverVersion = "1"

const resolverVersionKey = "resolver_version"

var tracer = otel.Tracer("bough")

// ErrNotIndexed is returned for paths that have no indexed tree.
var ErrNotIndexed = errors.New("file not indexed")

// Engine orchestrates the bough pipeline: file discovery, change detection,
// parsing and extraction, resolution, linting and query access.
type Engine struct {
	store       *store.Store
	runtime     *runtime.Runtime
	parser      *javaparse.Parser
	logger      *slog.Logger
	workspace   *Workspace
	scriptsDir  string
	scriptsFS   fs.FS
	cfg         config.Config
	maxFileSize int64

	// pending accumulates file IDs whose resolution data is stale.
	// nil means "resolve everything" (first run or full reindex).
	pending map[int64]bool

	// useParallel enables the parallel indexing pipeline.
	useParallel bool

	stats IndexStats
}

// IndexStats counts what the last IndexFiles call did.
type IndexStats struct {
	Indexed int `json:"indexed" yaml:"indexed"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
	// SurfaceChanged counts re-indexed files whose set of declarations
	// changed, ignoring positions.
	SurfaceChanged int `json:"surface_changed" yaml:"surface_changed"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel indexing. When true (default), IndexFiles
// parses and extracts files concurrently and commits each file's batch
// serially. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsFS configures the Engine to load lint scripts from the given
// filesystem instead of the embedded ones.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads lint scripts from a directory on disk. It takes
// precedence over the embedded scripts but not over WithScriptsFS.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithLogger sets the logger for the Engine, its parser and its scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxFileSize caps the size of parsed files. Larger files fail to index.
func WithMaxFileSize(bytes int64) Option {
	return func(e *Engine) {
		e.maxFileSize = bytes
	}
}

// WithConfig applies repository settings: parallelism, file size limit,
// scripts directory and exclude patterns.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.useParallel = cfg.Parallel
		e.cfg = cfg
		if cfg.MaxFileSize > 0 {
			e.maxFileSize = cfg.MaxFileSize
		}
		if cfg.ScriptsDir != "" {
			e.scriptsDir = cfg.ScriptsDir
		}
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Lint script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. If WithScriptsDir is set, use that directory on disk
//  3. Otherwise, use the embedded scripts
func New(dbPath string, opts ...Option) (*Engine, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bough: create db dir: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("bough: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("bough: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      slog.Default(),
		workspace:   NewWorkspace(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	parserOpts := []javaparse.Option{javaparse.WithLogger(e.logger)}
	if e.maxFileSize > 0 {
		parserOpts = append(parserOpts, javaparse.WithMaxFileSize(e.maxFileSize))
	}
	e.parser = javaparse.NewParser(parserOpts...)

	rtOpts := []runtime.Option{
		runtime.WithParser(e.parser),
		runtime.WithLogger(e.logger),
	}
	switch {
	case e.scriptsFS != nil:
		rtOpts = append(rtOpts, runtime.WithScripts(e.scriptsFS))
	case e.scriptsDir != "":
		rtOpts = append(rtOpts, runtime.WithScriptsDir(e.scriptsDir))
	default:
		rtOpts = append(rtOpts, runtime.WithScripts(scripts.FS))
	}
	e.runtime = runtime.New(s, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Workspace returns the in-memory trees of indexed files.
func (e *Engine) Workspace() *Workspace {
	return e.workspace
}

// Stats reports what the last IndexFiles call did.
func (e *Engine) Stats() IndexStats {
	return e.stats
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store, trees: e.Tree}
}

// Tree returns the syntax tree of an indexed file: the workspace copy when
// there is one, otherwise the snapshot decoded from the Store. Decoded
// snapshots are cached in the workspace.
func (e *Engine) Tree(path string) (*syntax.Tree, error) {
	if t, ok := e.workspace.Get(path); ok {
		return t, nil
	}
	f, err := e.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("bough: lookup file: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("bough: %s: %w", path, ErrNotIndexed)
	}
	t, err := e.storedTree(f)
	if err != nil {
		return nil, err
	}
	e.workspace.Put(path, t)
	return t, nil
}

// storedTree decodes the snapshot recorded for f. Its offsets are the ones
// the file's declaration and reference rows were extracted from, whatever
// the workspace holds now.
func (e *Engine) storedTree(f *store.File) (*syntax.Tree, error) {
	ts, err := e.store.TreeByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("bough: load tree: %w", err)
	}
	if ts == nil {
		return nil, fmt.Errorf("bough: %s has no tree: %w", f.Path, ErrNotIndexed)
	}
	t, err := syntax.DecodeSnapshot(ts.Data)
	if err != nil {
		return nil, fmt.Errorf("bough: decode tree of %s: %w", f.Path, err)
	}
	return t, nil
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// files are parsed concurrently with batched SQLite writes. Otherwise they
// are indexed one at a time.
//
// For each file:
// 1. Skip non-Java files
// 2. Skip unchanged files (same content hash)
// 3. Capture the old declarations hash
// 4. Delete stale data, insert the file record
// 5. Parse and record declarations, references and the tree snapshot
// 6. Mark the file for resolution
//
// Errors on individual files are logged and skipped; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	// Non-nil so Resolve can tell "nothing changed" from "first run".
	if e.pending == nil {
		e.pending = make(map[int64]bool)
	}
	e.stats = IndexStats{}
	if e.useParallel {
		return e.indexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			e.fail(path, err)
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		tree, err := e.extractFile(ctx, item)
		if err == nil {
			err = e.commitFile(item, tree)
		}
		if err != nil {
			e.discard(item)
			e.fail(path, err)
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) fail(path string, err error) {
	e.stats.Failed++
	e.logger.Warn("index failed", slog.String("file", path), slog.Any("error", err))
}

// discard removes the file record of a failed item so the next run retries
// the file instead of skipping it as unchanged.
func (e *Engine) discard(item workItem) {
	if err := e.store.DeleteFile(item.fileID); err != nil {
		e.logger.Warn("discard failed file", slog.String("file", item.path), slog.Any("error", err))
	}
	delete(e.pending, item.fileID)
}

// prepareFile does the serial work for a single file: hash check, cleanup
// and the file record. skip=true means the file is unchanged or not Java.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	lang, ok := javaparse.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		e.stats.Skipped++
		return workItem{}, true, nil
	}

	var oldHash string
	if existing != nil {
		oldDecls, err := e.store.DeclarationsByFile(existing.ID)
		if err != nil {
			return workItem{}, false, fmt.Errorf("capture old declarations: %w", err)
		}
		oldHash = store.ComputeDeclarationsHash(oldDecls)
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
		delete(e.pending, existing.ID)
		e.workspace.Remove(path)
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}

	return workItem{
		path:    path,
		fileID:  fileID,
		content: content,
		batch:   store.NewBatchedStore(e.store),
		existed: existing != nil,
		oldHash: oldHash,
	}, false, nil
}

// commitFile writes a file's batch and publishes its tree.
func (e *Engine) commitFile(item workItem, tree *syntax.Tree) error {
	if err := e.store.CommitBatch(item.batch); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.workspace.Put(item.path, tree)
	e.pending[item.fileID] = true
	e.stats.Indexed++

	if item.existed {
		newDecls, err := e.store.DeclarationsByFile(item.fileID)
		if err != nil {
			return fmt.Errorf("capture new declarations: %w", err)
		}
		if store.ComputeDeclarationsHash(newDecls) != item.oldHash {
			e.stats.SurfaceChanged++
		}
	}
	return nil
}

// skipDirs are directories excluded from the fallback walk.
var skipDirs = map[string]bool{
	"build":  true,
	"target": true,
	"out":    true,
}

// IndexDirectory walks root and indexes all Java files.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to filesystem walk (skipping hidden and build output dirs) if
// git is unavailable. Paths matching the configured exclude patterns are
// skipped.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking", slog.String("root", root), slog.Any("error", err))
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, e.filterExcluded(root, paths))
}

func (e *Engine) filterExcluded(root string, paths []string) []string {
	if len(e.cfg.Exclude) == 0 {
		return paths
	}
	kept := paths[:0]
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err == nil && e.cfg.Excluded(filepath.ToSlash(rel)) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Java files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if javaparse.IsJavaFile(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if javaparse.IsJavaFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
