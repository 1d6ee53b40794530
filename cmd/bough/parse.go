package main

import (
	"fmt"
	"os"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"github.com/jward/bough/internal/javaparse"
	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Print the syntax tree of a Java file",
	Long:  "Parses a single file without touching the index and prints its syntax tree. Scope-introducing nodes and Error nodes are highlighted in text output.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError(w, "parse", err)
	}
	if !javaparse.IsJavaFile(path) {
		return outputError(w, "parse", fmt.Errorf("%w: %s", javaparse.ErrUnsupportedLanguage, path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return outputError(w, "parse", fmt.Errorf("reading %s: %w", path, err))
	}

	p := javaparse.NewParser(
		javaparse.WithMaxFileSize(cfg.MaxFileSize),
		javaparse.WithLogger(logger),
	)
	tree, err := p.Parse(cmd.Context(), content, path)
	if err != nil {
		return outputError(w, "parse", err)
	}

	for _, n := range javaparse.Errors(tree) {
		fmt.Fprintln(cmd.ErrOrStderr(), errorColor.Sprint(javaparse.ErrorAt(path, n).Error()))
	}
	return outputResult(w, CLIResult{Command: "parse", Results: nodeToCLI(tree.Root())})
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <file> <line> <col>",
	Short: "Resolve the identifier at a position without using the index",
	Long:  "Parses a single file and walks the scopes enclosing the identifier at (line, col) to the declaration it names. Lines and columns are 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	path, line, col, err := parsePosition(args)
	if err != nil {
		return outputError(w, "resolve", err)
	}
	if !javaparse.IsJavaFile(path) {
		return outputError(w, "resolve", fmt.Errorf("%w: %s", javaparse.ErrUnsupportedLanguage, path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return outputError(w, "resolve", fmt.Errorf("reading %s: %w", path, err))
	}
	p := javaparse.NewParser(
		javaparse.WithMaxFileSize(cfg.MaxFileSize),
		javaparse.WithLogger(logger),
	)
	tree, err := p.Parse(cmd.Context(), content, path)
	if err != nil {
		return outputError(w, "resolve", err)
	}

	row, err := safecast.Conv[uint32](line)
	if err != nil {
		return outputError(w, "resolve", fmt.Errorf("line %d: %w", line, err))
	}
	column, err := safecast.Conv[uint32](col)
	if err != nil {
		return outputError(w, "resolve", fmt.Errorf("column %d: %w", col, err))
	}
	n := tree.NodeAtPoint(syntax.Point{Row: row, Column: column})
	if n.Kind() != syntax.KindIdentifier {
		return outputError(w, "resolve", fmt.Errorf("no identifier at %s:%d:%d", path, line, col))
	}

	d, ok, err := resolve.Resolve(cmd.Context(), n)
	if err != nil {
		return outputError(w, "resolve", err)
	}
	out := []CLIVisible{}
	if ok {
		out = append(out, declarationNodeToCLI(path, d))
	}
	return outputResult(w, CLIResult{Command: "resolve", Results: out})
}

func declarationNodeToCLI(path string, d resolve.Declaration) CLIVisible {
	r := d.Node.Range()
	return CLIVisible{
		Name:      d.Name,
		Kind:      d.Kind.String(),
		OwnerKind: d.Owner.Kind().String(),
		Location: CLILocation{
			File:      path,
			StartLine: int(r.Start.Row),
			StartCol:  int(r.Start.Column),
			EndLine:   int(r.End.Row),
			EndCol:    int(r.End.Column),
		},
	}
}
