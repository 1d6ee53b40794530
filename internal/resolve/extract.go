package resolve

import (
	"context"

	"github.com/jward/bough/internal/syntax"
)

// Declarations returns every declaration in the subtree rooted at root, in
// document order.
func Declarations(root syntax.Node) []Declaration {
	var out []Declaration
	syntax.Inspect(root, func(n syntax.Node) bool {
		out = append(out, declaredBy(n)...)
		return true
	})
	return out
}

// References returns the identifiers under root that use a name: those that
// are neither the name of a declaration nor the member part of a qualified
// access.
func References(root syntax.Node) []syntax.Node {
	declared := make(map[syntax.NodeID]struct{})
	for _, d := range Declarations(root) {
		declared[d.Node.ID()] = struct{}{}
	}
	var out []syntax.Node
	syntax.Inspect(root, func(n syntax.Node) bool {
		if n.Kind() != syntax.KindIdentifier {
			return true
		}
		if _, ok := declared[n.ID()]; ok || IsMemberName(n) {
			return true
		}
		out = append(out, n)
		return true
	})
	return out
}

// Binding pairs a reference with the declaration it resolved to.
type Binding struct {
	Ref  syntax.Node
	Decl Declaration
	// Levels is the number of nodes asked before the declaration was found.
	Levels int
}

// ResolveAll resolves every reference under root. Unresolved references are
// returned separately.
func ResolveAll(ctx context.Context, root syntax.Node) (bound []Binding, unresolved []syntax.Node, err error) {
	for _, ref := range References(root) {
		d, out, ok, err := resolveOutcome(ctx, ref, State{})
		if err != nil {
			return nil, nil, err
		}
		if ok {
			bound = append(bound, Binding{Ref: ref, Decl: d, Levels: out.Levels})
		} else {
			unresolved = append(unresolved, ref)
		}
	}
	return bound, unresolved, nil
}
