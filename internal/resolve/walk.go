// Package resolve answers "which declaration does this name refer to" by
// walking outward from a node through its enclosing scopes. Each scope kind
// contributes the names it declares, nearest first, to a Processor that
// decides when it has seen enough.
//
// Resolution is lexical and confined to one tree. All functions are pure
// reads over an immutable tree and may run concurrently.
package resolve

import (
	"context"
	"fmt"

	"github.com/jward/bough/internal/syntax"
)

// Status is the state of a walk.
type Status uint8

const (
	Searching Status = iota
	Found
	Exhausted
)

func (s Status) String() string {
	switch s {
	case Searching:
		return "searching"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Outcome reports how a walk ended. Scope is the last node asked: where the
// processor stopped, or the root when the walk ran out of ancestors. Levels
// counts the nodes asked, the origin included.
type Outcome struct {
	Status Status
	Scope  syntax.Node
	Levels int
}

// Walk asks origin and then each ancestor in turn to process declarations,
// until proc returns Stop (Found) or the root has been asked (Exhausted).
// Each node is asked at most once. Cancellation of ctx is checked between
// ancestor steps and returned as is; the outcome is then still Searching.
func Walk(ctx context.Context, origin syntax.Node, proc Processor, state State) (Outcome, error) {
	out := Outcome{Status: Searching}
	if !origin.Valid() {
		out.Status = Exhausted
		return out, nil
	}
	var last syntax.Node
	for node := origin; out.Status == Searching; {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Scope = node
		out.Levels++
		if ProcessDeclarations(node, proc, state, last, origin) == Stop {
			out.Status = Found
			break
		}
		parent := node.Parent()
		if !parent.Valid() {
			out.Status = Exhausted
			break
		}
		last, node = node, parent
	}
	return out, nil
}

// IsMemberName reports whether ident is the name part of a qualified access
// (`a.b`, `a.m()`), which cannot be resolved lexically.
func IsMemberName(ident syntax.Node) bool {
	i := ident.Index()
	if i <= 0 {
		return false
	}
	switch ident.Parent().Kind() {
	case syntax.KindFieldAccess, syntax.KindMethodInvocation:
	default:
		return false
	}
	prev := ident.Parent().Child(i - 1)
	return prev.Kind() == syntax.KindToken && prev.Text() == "."
}

// IsMethodName reports whether ident names the method of an invocation.
func IsMethodName(ident syntax.Node) bool {
	p := ident.Parent()
	if p.Kind() != syntax.KindMethodInvocation {
		return false
	}
	last, ok := lastIdent(p)
	return ok && last.ID() == ident.ID()
}

// declarationAt returns the declaration whose name token is ident, if ident
// is a name being declared rather than used.
func declarationAt(ident syntax.Node) (Declaration, bool) {
	owner := ident.Parent()
	for _, d := range declaredBy(owner) {
		if d.Node.ID() == ident.ID() {
			return d, true
		}
	}
	return Declaration{}, false
}

// Resolve finds the declaration ident refers to. A declaring name resolves
// to itself. Member names of qualified accesses and names with no visible
// declaration report false.
func Resolve(ctx context.Context, ident syntax.Node) (Declaration, bool, error) {
	return ResolveWithState(ctx, ident, State{})
}

// ResolveWithState is Resolve with a caller-supplied State.
func ResolveWithState(ctx context.Context, ident syntax.Node, state State) (Declaration, bool, error) {
	d, _, ok, err := resolveOutcome(ctx, ident, state)
	return d, ok, err
}

// resolveOutcome is ResolveWithState that also reports how the walk ended.
// A declaring name yields a zero Outcome.
func resolveOutcome(ctx context.Context, ident syntax.Node, state State) (Declaration, Outcome, bool, error) {
	if ident.Kind() != syntax.KindIdentifier {
		return Declaration{}, Outcome{}, false, nil
	}
	if d, ok := declarationAt(ident); ok {
		return d, Outcome{Status: Found, Scope: d.Owner}, true, nil
	}
	if IsMemberName(ident) {
		return Declaration{}, Outcome{}, false, nil
	}
	proc := &NameProcessor{Name: ident.Text()}
	if IsMethodName(ident) {
		proc.Accept = func(k DeclKind) bool { return k == DeclMethod }
	} else {
		proc.Accept = func(k DeclKind) bool { return k != DeclMethod }
	}
	out, err := Walk(ctx, ident, proc, state)
	if err != nil {
		return Declaration{}, out, false, err
	}
	d, ok := proc.Result()
	return d, out, ok, nil
}

// Visible lists every declaration visible at node, nearest first, with
// shadowed names removed.
func Visible(ctx context.Context, at syntax.Node) ([]Declaration, error) {
	proc := &CollectProcessor{}
	if _, err := Walk(ctx, at, proc, State{}); err != nil {
		return nil, err
	}
	return proc.Declarations(), nil
}
