package bough

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jward/bough/internal/javaparse"
)

// LintRules lists the available lint rules, sorted.
func (e *Engine) LintRules() ([]string, error) {
	rules, err := e.runtime.LintScripts()
	if err != nil {
		return nil, fmt.Errorf("bough: %w", err)
	}
	return rules, nil
}

// Lint runs lint rules over indexed files. An empty paths lints every
// indexed Java file; empty rules runs every available rule. Findings are sorted
// by file and position.
func (e *Engine) Lint(ctx context.Context, paths, rules []string) ([]Finding, error) {
	if len(rules) == 0 {
		var err error
		if rules, err = e.LintRules(); err != nil {
			return nil, err
		}
	}
	if len(paths) == 0 {
		files, err := e.store.FilesByLanguage(javaparse.LanguageName)
		if err != nil {
			return nil, fmt.Errorf("bough: list files: %w", err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	perFile := make([][]Finding, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.NumCPU()))
	for i, path := range paths {
		g.Go(func() error {
			tree, err := e.Tree(path)
			if err != nil {
				return err
			}
			for _, rule := range rules {
				found, err := e.runtime.RunLint(gctx, rule, tree, path)
				if err != nil {
					return fmt.Errorf("bough: lint %s with %s: %w", path, rule, err)
				}
				perFile[i] = append(perFile[i], found...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := []Finding{}
	for _, f := range perFile {
		findings = append(findings, f...)
	}
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return findings, nil
}
