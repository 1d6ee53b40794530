// Package javaparse turns Java source into syntax trees using the
// tree-sitter Java grammar. The concrete tree is lowered: comments are
// dropped, types, modifiers and import paths collapse into single leaves,
// and every other node keeps its position.
package javaparse

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/bough/internal/syntax"
)

const (
	// DefaultMaxFileSize is the largest source accepted by default (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the size above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Option configures a Parser.
type Option func(*Parser)

// WithMaxFileSize overrides DefaultMaxFileSize. Non-positive values are
// ignored.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// Parser parses Java files. It holds no per-parse state and is safe for
// concurrent use.
type Parser struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse parses content and returns its lowered tree. filePath is used for
// errors and telemetry only. Syntax errors do not fail the parse; they show
// up as Error nodes (see Errors).
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*syntax.Tree, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()
	fail := func(err error) (*syntax.Tree, error) {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		span.RecordError(err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled before start: %w", err))
	}
	if int64(len(content)) > p.maxFileSize {
		return fail(fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize))
	}
	if len(content) > WarnFileSize {
		p.logger.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.Valid(content) {
		return fail(&ParseError{FilePath: filePath, Message: "content is not valid UTF-8", Cause: ErrInvalidContent})
	}

	parser := sitter.NewParser()
	parser.SetLanguage(Language())
	cst, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fail(&ParseError{FilePath: filePath, Message: "tree-sitter parse failed", Cause: fmt.Errorf("%w: %w", ErrParseFailed, err)})
	}
	defer cst.Close()

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled after tree-sitter: %w", err))
	}
	root := cst.RootNode()
	if root == nil {
		return fail(&ParseError{FilePath: filePath, Message: "tree-sitter returned no root", Cause: ErrParseFailed})
	}

	tree, err := Lower(root, content)
	if err != nil {
		return fail(&ParseError{FilePath: filePath, Message: "lowering failed", Cause: fmt.Errorf("%w: %w", ErrParseFailed, err)})
	}

	errs := Errors(tree)
	if len(errs) > 0 {
		p.logger.Debug("source has syntax errors",
			slog.String("file", filePath),
			slog.Int("error_nodes", len(errs)))
	}
	setParseSpanResult(span, tree.Len(), len(errs))
	recordParseMetrics(ctx, time.Since(start), tree.Len(), true)
	return tree, nil
}

// Errors returns the Error nodes of t in document order.
func Errors(t *syntax.Tree) []syntax.Node {
	var out []syntax.Node
	syntax.Inspect(t.Root(), func(n syntax.Node) bool {
		if n.Kind() == syntax.KindError {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ErrorAt converts an Error node into a *ParseError for reporting.
func ErrorAt(filePath string, n syntax.Node) *ParseError {
	r := n.Range()
	return &ParseError{
		FilePath: filePath,
		Line:     int(r.Start.Row) + 1,
		Column:   int(r.Start.Column),
		Message:  "syntax error",
		Cause:    ErrParseFailed,
	}
}
