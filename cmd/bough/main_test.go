package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bough"
	"github.com/jward/bough/internal/syntax"
	st "github.com/jward/bough/internal/syntax/syntaxtest"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()

	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	file := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0o644))
	_, err = resolveTargetDir([]string{file})
	assert.ErrorContains(t, err, "not a directory")

	_, err = resolveTargetDir([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "not found")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	for _, f := range []string{"json", "text", "yaml"} {
		assert.NoError(t, validateFormat(f), f)
	}
	err := validateFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("abc", "line")
	assert.ErrorContains(t, err, "invalid line")
	_, err = parseIntArg("-1", "col")
	assert.ErrorContains(t, err, "must be non-negative")
}

func TestBuildSort(t *testing.T) {
	defer func() { flagSort, flagOrder = "", "asc" }()

	flagSort, flagOrder = "", "asc"
	s, err := buildSort()
	require.NoError(t, err)
	assert.Equal(t, bough.Sort{Field: bough.SortByName, Order: bough.Asc}, s)

	flagSort, flagOrder = "ref_count", "desc"
	s, err = buildSort()
	require.NoError(t, err)
	assert.Equal(t, bough.Sort{Field: bough.SortByRefCount, Order: bough.Desc}, s)

	flagSort = "size"
	_, err = buildSort()
	assert.ErrorContains(t, err, "invalid sort field")

	flagSort, flagOrder = "kind", "sideways"
	_, err = buildSort()
	assert.ErrorContains(t, err, "invalid order")
}

func TestResolveDBPath(t *testing.T) {
	defer func() { flagDB = "" }()
	cfg.DB = filepath.Join(".bough", "index.db")

	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", ".bough", "index.db"), resolveDBPath("/repo"))
	flagDB = "alt.db"
	assert.Equal(t, filepath.Join("/repo", "alt.db"), resolveDBPath("/repo"))
	flagDB = "/abs/x.db"
	assert.Equal(t, "/abs/x.db", resolveDBPath("/repo"))
}

func TestStartTelemetry_FailureKeepsShutdownCallable(t *testing.T) {
	oldNew, oldShutdown, oldTrace := newTelemetry, shutdown, flagTrace
	t.Cleanup(func() { newTelemetry, shutdown, flagTrace = oldNew, oldShutdown, oldTrace })

	flagTrace = true
	newTelemetry = func(context.Context, telemetryConfig) (func(context.Context) error, error) {
		return nil, errors.New("exporter unavailable")
	}
	err := startTelemetry(context.Background(), io.Discard)
	assert.ErrorContains(t, err, "telemetry: exporter unavailable")

	require.NotNil(t, shutdown)
	assert.NotPanics(t, func() { assert.NoError(t, shutdown(context.Background())) })
}

func TestStartTelemetry_InstallsShutdown(t *testing.T) {
	oldNew, oldShutdown, oldMetrics := newTelemetry, shutdown, flagMetrics
	t.Cleanup(func() { newTelemetry, shutdown, flagMetrics = oldNew, oldShutdown, oldMetrics })

	var stopped bool
	flagMetrics = true
	newTelemetry = func(_ context.Context, cfg telemetryConfig) (func(context.Context) error, error) {
		assert.True(t, cfg.Metrics)
		return func(context.Context) error { stopped = true; return nil }, nil
	}
	require.NoError(t, startTelemetry(context.Background(), io.Discard))
	require.NoError(t, shutdown(context.Background()))
	assert.True(t, stopped)
}

func withFormat(t *testing.T, format string) {
	t.Helper()
	old := flagFormat
	flagFormat = format
	t.Cleanup(func() { flagFormat = old })
}

func sampleDeclarations() []CLIDeclaration {
	return []CLIDeclaration{
		{ID: 1, Name: "c", Kind: "pattern", OwnerKind: "TypePattern", File: "S.java", StartLine: 3, StartCol: 24, RefCount: 1},
		{ID: 2, Name: "k", Kind: "parameter", OwnerKind: "FormalParameter", File: "S.java", StartLine: 1, StartCol: 14},
	}
}

func TestOutputResult_Text(t *testing.T) {
	withFormat(t, "text")
	var buf bytes.Buffer
	total := 5
	require.NoError(t, outputResult(&buf, CLIResult{Command: "declarations", Results: sampleDeclarations(), TotalCount: &total}))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[0], "OWNER")
	assert.Contains(t, out, "TypePattern")
	assert.Contains(t, out, "Showing 2 of 5 results")
}

func TestOutputResult_TextNoFooterWhenComplete(t *testing.T) {
	withFormat(t, "text")
	var buf bytes.Buffer
	total := 2
	require.NoError(t, outputResult(&buf, CLIResult{Results: sampleDeclarations(), TotalCount: &total}))
	assert.NotContains(t, buf.String(), "Showing")
}

func TestOutputResult_JSON(t *testing.T) {
	withFormat(t, "json")
	var buf bytes.Buffer
	require.NoError(t, outputResult(&buf, CLIResult{Command: "declarations", Results: sampleDeclarations()}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"command": "declarations"`)
	assert.Contains(t, out, `"owner_kind": "TypePattern"`)
	assert.NotContains(t, out, "total_count")
}

func TestOutputResult_YAML(t *testing.T) {
	withFormat(t, "yaml")
	var buf bytes.Buffer
	require.NoError(t, outputResult(&buf, CLIResult{Command: "declarations", Results: sampleDeclarations()}))

	out := buf.String()
	assert.Contains(t, out, "command: declarations")
	assert.Contains(t, out, "owner_kind: TypePattern")
	assert.Contains(t, out, "start_col: 24")
}

func TestOutputResult_TextUnsupportedType(t *testing.T) {
	withFormat(t, "text")
	err := outputResult(&bytes.Buffer{}, CLIResult{Results: 42})
	assert.ErrorContains(t, err, "unsupported result type")
}

func TestOutputError(t *testing.T) {
	defer func() { errorHandled = false }()

	withFormat(t, "json")
	var buf bytes.Buffer
	cause := errors.New("boom")
	err := outputError(&buf, "summary", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errorHandled)
	assert.Contains(t, buf.String(), `"error": "boom"`)

	errorHandled = false
	flagFormat = "text"
	buf.Reset()
	err = outputError(&buf, "summary", cause)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errorHandled, "text errors are printed by main")
	assert.Empty(t, buf.String())
}

func TestFormatFindingsText_OneBased(t *testing.T) {
	var buf bytes.Buffer
	formatFindingsText(&buf, []CLIFinding{{
		Rule: "unused_pattern", File: "S.java", Line: 3, Column: 24,
		Severity: "info", Message: "pattern variable c is never used",
	}})
	assert.Equal(t, "S.java:4:25: info: pattern variable c is never used (unused_pattern)\n", buf.String())
}

func TestPrintTree(t *testing.T) {
	tree := st.SwitchTree(t)
	root := nodeToCLI(tree.Root())

	var buf bytes.Buffer
	printTree(&buf, root, 0)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.True(t, strings.HasPrefix(lines[0], "SwitchExpression 0:0-"))
	var rules int
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "SwitchLabeledRule ") {
			rules++
		}
	}
	assert.Equal(t, 3, rules)
	assert.Contains(t, buf.String(), `Identifier 1:14-1:15 "c"`)
}

func TestNodeToCLI_MarksScopes(t *testing.T) {
	tree := st.SwitchTree(t)
	rule := st.Find(t, tree, syntax.KindSwitchLabeledRule, "")
	n := nodeToCLI(rule)
	assert.True(t, n.Scope)
	assert.Equal(t, "SwitchLabeledRule", n.Kind)

	leaf := nodeToCLI(st.Find(t, tree, syntax.KindIdentifier, "c"))
	assert.False(t, leaf.Scope)
	assert.Equal(t, "c", leaf.Text)
	assert.Empty(t, leaf.Children)
}
