// Package syntaxtest builds syntax trees by hand for tests that should not
// depend on the parser.
package syntaxtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/bough/internal/syntax"
)

// Spec describes one node. Leaves carry the text they cover; the builder
// locates it in the source after the previous leaf. Interior nodes span
// their children.
type Spec struct {
	Kind     syntax.Kind
	Text     string
	Children []Spec
}

// L is a leaf covering the next occurrence of text.
func L(kind syntax.Kind, text string) Spec { return Spec{Kind: kind, Text: text} }

// Ident is an identifier leaf.
func Ident(name string) Spec { return L(syntax.KindIdentifier, name) }

// N is an interior node.
func N(kind syntax.Kind, children ...Spec) Spec { return Spec{Kind: kind, Children: children} }

// Build lays root out over src and returns the finished tree.
func Build(tb testing.TB, src string, root Spec) *syntax.Tree {
	tb.Helper()
	b := syntax.NewBuilder([]byte(src), 0)
	cursor := 0
	var build func(s Spec) syntax.NodeID
	build = func(s Spec) syntax.NodeID {
		if len(s.Children) == 0 {
			idx := strings.Index(src[cursor:], s.Text)
			require.GreaterOrEqual(tb, idx, 0, "leaf %s %q not found after offset %d", s.Kind, s.Text, cursor)
			start := cursor + idx
			cursor = start + len(s.Text)
			return b.Leaf(s.Kind, b.Span(start, cursor))
		}
		ids := make([]syntax.NodeID, len(s.Children))
		for i, c := range s.Children {
			ids[i] = build(c)
		}
		return b.Node(s.Kind, syntax.Range{}, ids...)
	}
	tree, err := b.Finish(build(root))
	require.NoError(tb, err)
	return tree
}

// Find returns the first node in preorder with the given kind whose text is
// text. An empty text matches any node of the kind.
func Find(tb testing.TB, t *syntax.Tree, kind syntax.Kind, text string) syntax.Node {
	tb.Helper()
	var found syntax.Node
	syntax.Inspect(t.Root(), func(n syntax.Node) bool {
		if found.Valid() {
			return false
		}
		if n.Kind() == kind && (text == "" || n.Text() == text) {
			found = n
			return false
		}
		return true
	})
	require.True(tb, found.Valid(), "no %s node with text %q", kind, text)
	return found
}

// Nth returns the n-th (0-based) node in preorder with the given kind and text.
func Nth(tb testing.TB, t *syntax.Tree, kind syntax.Kind, text string, n int) syntax.Node {
	tb.Helper()
	var seen int
	var found syntax.Node
	syntax.Inspect(t.Root(), func(c syntax.Node) bool {
		if found.Valid() {
			return false
		}
		if c.Kind() == kind && (text == "" || c.Text() == text) {
			if seen == n {
				found = c
				return false
			}
			seen++
		}
		return true
	})
	require.True(tb, found.Valid(), "no %s node #%d with text %q", kind, n, text)
	return found
}

// In the trees below a method invocation holds its name identifier followed
// by an Expression standing in for the argument list, matching the shape the
// parser produces.

// SwitchSource is a switch with one rule per body kind. The first rule has a
// guard and a block body, the second a throw and the third an expression.
const SwitchSource = `switch (s) {
  case Circle c when c.r > 0 -> { area(c); }
  case Square q -> throw bad(q);
  default -> log(s);
}`

// SwitchTree builds the tree for SwitchSource.
func SwitchTree(tb testing.TB) *syntax.Tree {
	tb.Helper()
	return Build(tb, SwitchSource, N(syntax.KindSwitchExpression,
		L(syntax.KindToken, "switch"),
		Ident("s"),
		N(syntax.KindSwitchBlock,
			N(syntax.KindSwitchLabeledRule,
				N(syntax.KindSwitchLabel,
					L(syntax.KindToken, "case"),
					N(syntax.KindTypePattern, L(syntax.KindType, "Circle"), Ident("c")),
					N(syntax.KindGuard, N(syntax.KindFieldAccess, Ident("c"), Ident("r")))),
				L(syntax.KindToken, "->"),
				N(syntax.KindBlockStatement,
					N(syntax.KindExpressionStatement,
						N(syntax.KindMethodInvocation, Ident("area"), N(syntax.KindExpression, Ident("c")))))),
			N(syntax.KindSwitchLabeledRule,
				N(syntax.KindSwitchLabel,
					L(syntax.KindToken, "case"),
					N(syntax.KindTypePattern, L(syntax.KindType, "Square"), Ident("q"))),
				L(syntax.KindToken, "->"),
				N(syntax.KindThrowStatement,
					L(syntax.KindToken, "throw"),
					N(syntax.KindMethodInvocation, Ident("bad"), N(syntax.KindExpression, Ident("q"), L(syntax.KindToken, ")"))),
					L(syntax.KindToken, ";"))),
			N(syntax.KindSwitchLabeledRule,
				N(syntax.KindSwitchLabel, L(syntax.KindToken, "default")),
				L(syntax.KindToken, "->"),
				N(syntax.KindExpressionStatement,
					N(syntax.KindMethodInvocation, Ident("log"), N(syntax.KindExpression, Ident("s"))))))))
}
