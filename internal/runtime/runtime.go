package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/bough/internal/javaparse"
	"github.com/jward/bough/internal/store"
)

// Runtime evaluates Risor lint scripts against syntax trees. Scripts see the
// tree host functions and, when a Store is attached, the index.
type Runtime struct {
	store  *store.Store
	parser *javaparse.Parser
	logger *slog.Logger

	// scripts is where script files and imports are read from. dir is set
	// when scripts come from disk, so absolute paths can bypass the FS.
	scripts fs.FS
	dir     string
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithScripts reads scripts and Risor imports from fsys.
func WithScripts(fsys fs.FS) Option {
	return func(r *Runtime) {
		r.scripts = fsys
		r.dir = ""
	}
}

// WithScriptsDir reads scripts and Risor imports from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(r *Runtime) {
		if dir == "" {
			return
		}
		r.scripts = os.DirFS(dir)
		r.dir = dir
	}
}

// WithParser sets the parser used by parse_java.
func WithParser(p *javaparse.Parser) Option {
	return func(r *Runtime) {
		if p != nil {
			r.parser = p
		}
	}
}

// WithLogger sets the logger behind the log global.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Runtime over s. s may be nil; the store globals are then
// left out.
func New(s *store.Store, opts ...Option) *Runtime {
	r := &Runtime{store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.parser == nil {
		r.parser = javaparse.NewParser(javaparse.WithLogger(r.logger))
	}
	return r
}

// RunScript evaluates the script at path. extra globals override the
// built-in ones.
func (r *Runtime) RunScript(ctx context.Context, path string, extra map[string]any) error {
	src, err := r.LoadScript(path)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, path, extra)
}

// RunSource evaluates inline source.
func (r *Runtime) RunSource(ctx context.Context, source string, extra map[string]any) error {
	return r.eval(ctx, source, "<inline>", extra)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extra map[string]any) error {
	globals := r.buildGlobals(extra)
	opts := make([]risor.Option, 0, len(globals)+1)
	names := make([]string, 0, len(globals))
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
		names = append(names, name)
	}
	if r.scripts != nil {
		opts = append(opts, risor.WithImporter(importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    r.scripts,
			Extensions:  []string{scriptExt},
		})))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

const scriptExt = ".risor"

// LoadScript returns the source of the script at path. Paths are relative to
// the script root; a leading slash is ignored. Absolute paths are read from
// disk when the scripts come from a directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.dir != "" && filepath.IsAbs(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s: %w", path, err)
		}
		return string(data), nil
	}
	if r.scripts == nil {
		return "", fmt.Errorf("runtime: loading script %s: no script source configured", path)
	}
	name := strings.TrimPrefix(filepath.ToSlash(path), "/")
	data, err := fs.ReadFile(r.scripts, name)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", name, err)
	}
	return string(data), nil
}

// LintScriptPath returns the path to a named lint script.
func LintScriptPath(name string) string {
	return "lint/" + name + scriptExt
}

// LintScripts lists the names of the lint scripts available to the Runtime,
// sorted.
func (r *Runtime) LintScripts() ([]string, error) {
	if r.scripts == nil {
		return nil, nil
	}
	matches, err := fs.Glob(r.scripts, "lint/*"+scriptExt)
	if err != nil {
		return nil, fmt.Errorf("runtime: list lint scripts: %w", err)
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = strings.TrimSuffix(path.Base(m), scriptExt)
	}
	return names, nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse_java":    makeParseJavaFn(r.parser),
		"node_kind":     makeNodeKindFn(),
		"node_text":     makeNodeTextFn(),
		"node_range":    makeNodeRangeFn(),
		"node_children": makeNodeChildrenFn(),
		"node_parent":   makeNodeParentFn(),
		"find_child":    makeFindChildFn(),
		"rule_body":     makeRuleBodyFn(),
		"rule_label":    makeRuleLabelFn(),
		"visible":       makeVisibleFn(),
		"resolve":       makeResolveFn(),
		"walk":          makeWalkFn(),
		"log":           mustProxy(&logObject{logger: r.logger.With(slog.String("component", "script"))}),
	}

	if r.store != nil {
		globals["files"] = makeFilesFn(r.store)
		globals["declarations_by_file"] = makeDeclarationsByFileFn(r.store)
		globals["declarations_by_name"] = makeDeclarationsByNameFn(r.store)
		globals["declarations_by_kind"] = makeDeclarationsByKindFn(r.store)
		globals["unresolved"] = makeUnresolvedFn(r.store)
		globals["references_by_name"] = makeReferencesByNameFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string)  { l.logger.Info(msg) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg) }
func (l *logObject) Error(msg string) { l.logger.Error(msg) }
