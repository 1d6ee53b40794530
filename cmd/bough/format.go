package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatDeclarationsText formats CLIDeclaration results as aligned columns.
func formatDeclarationsText(w io.Writer, decls []CLIDeclaration) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tOWNER\tFILE\tLINE\tREFS")
	for _, d := range decls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			d.ID, d.Name, d.Kind, d.OwnerKind, d.File, d.StartLine, d.RefCount)
	}
	tw.Flush()
}

func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", f.ID, f.Path, f.LineCount)
	}
	tw.Flush()
}

func formatReferencesText(w io.Writer, refs []CLIReference) {
	for _, r := range refs {
		fmt.Fprintf(w, "%s:%d:%d\t%s\n", r.File, r.StartLine, r.StartCol, r.Name)
	}
}

func formatVisibleText(w io.Writer, vis []CLIVisible) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tOWNER\tDECLARED")
	for _, v := range vis {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d:%d\n",
			v.Name, v.Kind, v.OwnerKind, v.Location.StartLine, v.Location.StartCol)
	}
	tw.Flush()
}

func formatScopesText(w io.Writer, scopes []CLIScope) {
	for i, s := range scopes {
		fmt.Fprintf(w, "%s%s %d:%d-%d:%d\n", strings.Repeat("  ", i), s.Kind,
			s.Location.StartLine, s.Location.StartCol, s.Location.EndLine, s.Location.EndCol)
	}
}

func formatDetailText(w io.Writer, d CLIDetail) {
	decl := d.Declaration
	fmt.Fprintf(w, "%s (%s) #%d\n", decl.Name, decl.Kind, decl.ID)
	if decl.OwnerKind != "" {
		fmt.Fprintf(w, "Owner: %s\n", decl.OwnerKind)
	}
	fmt.Fprintf(w, "Declared: %s:%d:%d\n", decl.File, decl.StartLine, decl.StartCol)
	fmt.Fprintf(w, "References: %d\n", len(d.References))
	for _, loc := range d.References {
		fmt.Fprintf(w, "  %s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

func formatHotspotsText(w io.Writer, hs []CLIHotspot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE\tREFS\tFILES\tMAX LEVELS")
	for _, h := range hs {
		d := h.Declaration
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			d.Name, d.Kind, d.File, d.StartLine, d.RefCount, h.ReferenceFiles, h.MaxLevels)
	}
	tw.Flush()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Index Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Files: %d (%d lines)\n", s.FileCount, s.LineCount)
	fmt.Fprintf(w, "References: %d (%d resolved)\n", s.ReferenceCount, s.ResolvedCount)
	fmt.Fprintf(w, "Declarations: %d\n", s.DeclarationCount)

	kinds := make([]string, 0, len(s.KindCounts))
	for kind := range s.KindCounts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.KindCounts[kind])
	}
}

// formatFindingsText prints findings with 1-based positions, the way
// compilers do.
func formatFindingsText(w io.Writer, fs []CLIFinding) {
	for _, f := range fs {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s (%s)\n",
			f.File, f.Line+1, f.Column+1, severityColor(f.Severity).Sprint(f.Severity), f.Message, f.Rule)
	}
}

func formatStringsText(w io.Writer, ss []string) {
	for _, s := range ss {
		fmt.Fprintln(w, s)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLIDeclaration:
		formatDeclarationsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIReference:
		formatReferencesText(w, v)
	case []CLIVisible:
		formatVisibleText(w, v)
	case []CLIScope:
		formatScopesText(w, v)
	case CLIDetail:
		formatDetailText(w, v)
	case []CLIHotspot:
		formatHotspotsText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case []CLIFinding:
		formatFindingsText(w, v)
	case []string:
		formatStringsText(w, v)
	case CLINode:
		printTree(w, v, 0)
	case nil:
		// No output for nil results (e.g., detail with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLIDeclaration:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIReference:
		return len(r)
	case []CLIHotspot:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult writes a CLIResult to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	switch flagFormat {
	case "text":
		return outputResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputError reports a command failure. Structured formats get an envelope
// on w; text goes to stderr via main.
func outputError(w io.Writer, command string, err error) error {
	if flagFormat == "text" {
		return err
	}
	errorHandled = true
	if oerr := outputResult(w, CLIResult{Command: command, Results: nil, Error: err.Error()}); oerr != nil {
		return oerr
	}
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}

var (
	kindColor  = color.New(color.FgCyan, color.Bold)
	scopeColor = color.New(color.FgGreen, color.Bold)
	rangeColor = color.New(color.Faint)
	textColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	noteColor  = color.New(color.FgBlue)
)

func severityColor(severity string) *color.Color {
	switch severity {
	case "error":
		return errorColor
	case "warning":
		return warnColor
	default:
		return noteColor
	}
}

// nodeToCLI converts a syntax node and its subtree. Leaves carry their text.
func nodeToCLI(n syntax.Node) CLINode {
	out := CLINode{
		Kind:  n.Kind().String(),
		Range: n.Range().String(),
		Scope: resolve.IsScope(n.Kind()),
	}
	if n.IsLeaf() {
		out.Text = n.Text()
		return out
	}
	for _, c := range n.Children() {
		out.Children = append(out.Children, nodeToCLI(c))
	}
	return out
}

// printTree writes an indented tree dump. Scope-introducing kinds and
// Error nodes are highlighted.
func printTree(w io.Writer, n CLINode, depth int) {
	kc := kindColor
	switch {
	case n.Kind == syntax.KindError.String():
		kc = errorColor
	case n.Scope:
		kc = scopeColor
	}
	fmt.Fprintf(w, "%s%s %s", strings.Repeat("  ", depth), kc.Sprint(n.Kind), rangeColor.Sprint(n.Range))
	if n.Text != "" {
		fmt.Fprintf(w, " %s", textColor.Sprintf("%q", n.Text))
	}
	fmt.Fprintln(w)
	for _, c := range n.Children {
		printTree(w, c, depth+1)
	}
}
