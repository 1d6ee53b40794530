package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/risor-io/risor/object"

	"github.com/jward/bough/internal/syntax"
)

// Severity levels a lint script may report.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Finding is one problem reported by a lint script.
type Finding struct {
	Rule     string `json:"rule" yaml:"rule"`
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"` // zero-based
	Column   int    `json:"column" yaml:"column"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s (%s)", f.File, f.Line+1, f.Column+1, f.Severity, f.Message, f.Rule)
}

type findingSink struct {
	mu       sync.Mutex
	rule     string
	file     string
	findings []Finding
}

// makeReportFn creates the "report" host function for a lint run.
//
// report({"node": node, "message": string, "severity": "warning"})
func makeReportFn(sink *findingSink) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		nodeObj, ok := m["node"]
		if !ok {
			return object.Errorf("report: missing node")
		}
		n, errObj := nodeArg("report", nodeObj)
		if errObj != nil {
			return errObj
		}
		msg := getString(m, "message")
		if msg == "" {
			return object.Errorf("report: missing message")
		}
		severity := getStringDefault(m, "severity", SeverityWarning)
		switch severity {
		case SeverityInfo, SeverityWarning, SeverityError:
		default:
			return object.Errorf("report: unknown severity %q", severity)
		}
		start := n.Range().Start
		sink.mu.Lock()
		sink.findings = append(sink.findings, Finding{
			Rule:     sink.rule,
			File:     sink.file,
			Line:     int(start.Row),
			Column:   int(start.Column),
			Severity: severity,
			Message:  msg,
		})
		sink.mu.Unlock()
		return object.Nil
	})
}

// RunLint runs one lint script against a parsed file. The script sees the
// tree root as "tree", the path as "file_path", and reports problems with
// "report". Findings are returned in source order.
func (r *Runtime) RunLint(ctx context.Context, rule string, tree *syntax.Tree, filePath string) ([]Finding, error) {
	sink := &findingSink{rule: rule, file: filePath}
	extras := map[string]any{
		"tree":      nodeObject(tree.Root()),
		"file_path": filePath,
		"report":    makeReportFn(sink),
	}
	if err := r.RunScript(ctx, LintScriptPath(rule), extras); err != nil {
		return nil, err
	}
	sort.SliceStable(sink.findings, func(i, j int) bool {
		a, b := sink.findings[i], sink.findings[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return sink.findings, nil
}
