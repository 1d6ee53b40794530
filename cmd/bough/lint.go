package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagRules    []string
	flagListOnly bool
)

var lintCmd = &cobra.Command{
	Use:   "lint [file...]",
	Short: "Run lint scripts over indexed files",
	Long:  "Runs Risor lint rules over the syntax trees of indexed files. With no files every indexed file is linted. Exits non-zero when any finding has error severity.",
	RunE:  runLint,
}

func init() {
	lintCmd.Flags().StringSliceVar(&flagRules, "rule", nil, "run only these rules (default: all)")
	lintCmd.Flags().BoolVar(&flagListOnly, "list", false, "list available rules and exit")
	lintCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load lint scripts from disk path instead of embedded")
}

func runLint(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	engine, err := openEngine()
	if err != nil {
		return outputError(w, "lint", err)
	}
	defer engine.Close()

	if flagListOnly {
		rules, err := engine.LintRules()
		if err != nil {
			return outputError(w, "lint", err)
		}
		return outputResult(w, CLIResult{Command: "lint", Results: rules})
	}

	paths := make([]string, 0, len(args))
	for _, a := range args {
		p, err := resolveFilePath(a)
		if err != nil {
			return outputError(w, "lint", err)
		}
		paths = append(paths, p)
	}

	findings, err := engine.Lint(cmd.Context(), paths, flagRules)
	if err != nil {
		return outputError(w, "lint", err)
	}
	out := make([]CLIFinding, len(findings))
	errs := 0
	for i, f := range findings {
		out[i] = findingToCLI(f)
		if f.Severity == "error" {
			errs++
		}
	}
	total := len(out)
	if err := outputResult(w, CLIResult{Command: "lint", Results: out, TotalCount: &total}); err != nil {
		return err
	}
	if errs > 0 {
		return fmt.Errorf("%d finding(s) with error severity", errs)
	}
	return nil
}
