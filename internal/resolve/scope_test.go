package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
	st "github.com/jward/bough/internal/syntax/syntaxtest"
)

func TestResolve_ClassScopes(t *testing.T) {
	t.Parallel()
	tree := classTree(t)

	tests := []struct {
		name      string
		text      string
		nth       int
		wantKind  resolve.DeclKind
		wantOwner syntax.Kind
	}{
		{"initializer sees parameter", "p", 1, resolve.DeclParameter, syntax.KindFormalParameter},
		{"loop variable", "s", 1, resolve.DeclLocal, syntax.KindEnhancedForStatement},
		{"earlier local", "x", 1, resolve.DeclLocal, syntax.KindVariableDeclarator},
		{"field", "f", 1, resolve.DeclField, syntax.KindVariableDeclarator},
		{"method call", "m", 1, resolve.DeclMethod, syntax.KindMethodDeclaration},
		{"resource", "r", 1, resolve.DeclResource, syntax.KindResource},
		{"catch parameter", "e", 1, resolve.DeclCatchParameter, syntax.KindCatchFormalParameter},
		{"lambda parameter", "v", 1, resolve.DeclParameter, syntax.KindLambdaExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			use := st.Nth(t, tree, syntax.KindIdentifier, tt.text, tt.nth)
			d, ok, err := resolve.Resolve(context.Background(), use)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.text, d.Name)
			assert.Equal(t, tt.wantKind, d.Kind)
			assert.Equal(t, tt.wantOwner, d.Owner.Kind())
			assert.NotEqual(t, use.ID(), d.Node.ID())
		})
	}
}

func TestResolve_DeclaringNameResolvesToItself(t *testing.T) {
	t.Parallel()
	tree := classTree(t)
	x := st.Nth(t, tree, syntax.KindIdentifier, "x", 0)
	d, ok, err := resolve.Resolve(context.Background(), x)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, x.ID(), d.Node.ID())
}

func TestResolve_Unresolvable(t *testing.T) {
	t.Parallel()
	tree := classTree(t)
	for _, name := range []string{"list", "close", "open", "h", "run"} {
		use := st.Find(t, tree, syntax.KindIdentifier, name)
		_, ok, err := resolve.Resolve(context.Background(), use)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}

	_, ok, err := resolve.Resolve(context.Background(), tree.Root())
	require.NoError(t, err)
	assert.False(t, ok, "only identifiers resolve")
}

func TestVisible_NearestFirst(t *testing.T) {
	t.Parallel()
	tree := classTree(t)
	use := st.Nth(t, tree, syntax.KindIdentifier, "x", 1)

	visible, err := resolve.Visible(context.Background(), use)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "x", "p", "f", "m", "T", "K"}, names(visible))
}

func TestVisible_ResourceOnlyInTryBody(t *testing.T) {
	t.Parallel()
	tree := classTree(t)
	inCatch := st.Nth(t, tree, syntax.KindIdentifier, "e", 1)
	visible, err := resolve.Visible(context.Background(), inCatch)
	require.NoError(t, err)
	assert.Contains(t, names(visible), "e")
	assert.NotContains(t, names(visible), "r")
	assert.NotContains(t, names(visible), "s", "loop variable is out of scope after the loop")
}

func TestVisible_LocalNotVisibleBeforeDeclaration(t *testing.T) {
	t.Parallel()
	tree := classTree(t)
	// The initializer `p` of `int x = p;` may see x itself but nothing
	// declared by later statements.
	p := st.Nth(t, tree, syntax.KindIdentifier, "p", 1)
	visible, err := resolve.Visible(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "p", "f", "m", "T", "K"}, names(visible))
}

func TestCollectProcessor_Shadowing(t *testing.T) {
	t.Parallel()
	src := "{ int v; run(v -> v); }"
	tree := st.Build(t, src, st.N(syntax.KindBlockStatement,
		st.N(syntax.KindLocalVariableDeclaration, st.L(syntax.KindType, "int"), st.N(syntax.KindVariableDeclarator, st.Ident("v"))),
		st.N(syntax.KindExpressionStatement,
			invoke("run", st.N(syntax.KindLambdaExpression, st.Ident("v"), st.L(syntax.KindToken, "->"), st.Ident("v"))))))

	body := st.Nth(t, tree, syntax.KindIdentifier, "v", 2)
	visible, err := resolve.Visible(context.Background(), body)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, resolve.DeclParameter, visible[0].Kind)

	d, ok, err := resolve.Resolve(context.Background(), body)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, syntax.KindLambdaExpression, d.Owner.Kind())
}

func TestIfStatement_InstanceofBindingInThenBranch(t *testing.T) {
	t.Parallel()
	src := "if (o instanceof S s) use(s); else use(s);"
	tree := st.Build(t, src, st.N(syntax.KindIfStatement,
		st.L(syntax.KindToken, "if"),
		paren(isS()),
		st.N(syntax.KindExpressionStatement, invoke("use", st.Ident("s"))),
		st.L(syntax.KindToken, "else"),
		st.N(syntax.KindExpressionStatement, invoke("use", st.Ident("s")))))

	_, ok, err := resolve.Resolve(context.Background(), st.Nth(t, tree, syntax.KindIdentifier, "s", 1))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = resolve.Resolve(context.Background(), st.Nth(t, tree, syntax.KindIdentifier, "s", 2))
	require.NoError(t, err)
	assert.False(t, ok)
}

// isS is `o instanceof S s`.
func isS() st.Spec {
	return st.N(syntax.KindInstanceofExpression,
		st.Ident("o"),
		st.L(syntax.KindToken, "instanceof"),
		st.N(syntax.KindTypePattern, st.L(syntax.KindType, "S"), st.Ident("s")))
}

func paren(e st.Spec) st.Spec {
	return st.N(syntax.KindParenthesizedExpression, st.L(syntax.KindToken, "("), e, st.L(syntax.KindToken, ")"))
}

func not(e st.Spec) st.Spec {
	return st.N(syntax.KindUnaryExpression, st.L(syntax.KindToken, "!"), e)
}

func binary(l st.Spec, op string, r st.Spec) st.Spec {
	return st.N(syntax.KindBinaryExpression, l, st.L(syntax.KindToken, op), r)
}

func useS() st.Spec { return invoke("use", st.Ident("s")) }

// resolvesS reports whether the i-th s in tree resolves to the pattern
// variable.
func resolvesS(t *testing.T, tree *syntax.Tree, i int) bool {
	t.Helper()
	d, ok, err := resolve.Resolve(context.Background(), st.Nth(t, tree, syntax.KindIdentifier, "s", i))
	require.NoError(t, err)
	if ok {
		assert.Equal(t, resolve.DeclPattern, d.Kind)
		assert.Equal(t, "S s", d.Owner.Text())
	}
	return ok
}

func TestIfStatement_NegatedConditionBindsElseBranch(t *testing.T) {
	t.Parallel()
	src := "if (!(o instanceof S s)) use(s); else use(s);"
	tree := st.Build(t, src, st.N(syntax.KindIfStatement,
		st.L(syntax.KindToken, "if"),
		paren(not(paren(isS()))),
		st.N(syntax.KindExpressionStatement, useS()),
		st.L(syntax.KindToken, "else"),
		st.N(syntax.KindExpressionStatement, useS())))

	assert.False(t, resolvesS(t, tree, 1), "then-branch")
	assert.True(t, resolvesS(t, tree, 2), "else-branch")
}

func TestConditionalOperands_SeePatternBindings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		expr st.Spec
		want bool
	}{
		{"and", "o instanceof S s && use(s);", binary(isS(), "&&", useS()), true},
		{"or", "o instanceof S s || use(s);", binary(isS(), "||", useS()), false},
		{"negated or", "!(o instanceof S s) || use(s);", binary(not(paren(isS())), "||", useS()), true},
		{"negated and", "!(o instanceof S s) && use(s);", binary(not(paren(isS())), "&&", useS()), false},
		{"nested and", "(o instanceof S s && ok) && use(s);",
			binary(paren(binary(isS(), "&&", st.Ident("ok"))), "&&", useS()), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := st.Build(t, tt.src, st.N(syntax.KindExpressionStatement, tt.expr, st.L(syntax.KindToken, ";")))
			assert.Equal(t, tt.want, resolvesS(t, tree, 1))
		})
	}
}

func TestTernary_BranchesSeeConditionBindings(t *testing.T) {
	t.Parallel()
	src := "x = o instanceof S s ? use(s) : use(s);"
	tree := st.Build(t, src, st.N(syntax.KindExpressionStatement,
		st.N(syntax.KindExpression,
			st.Ident("x"),
			st.L(syntax.KindToken, "="),
			st.N(syntax.KindTernaryExpression,
				isS(),
				st.L(syntax.KindToken, "?"),
				useS(),
				st.L(syntax.KindToken, ":"),
				useS())),
		st.L(syntax.KindToken, ";")))

	assert.True(t, resolvesS(t, tree, 1))
	assert.False(t, resolvesS(t, tree, 2))
}

func TestWhileStatement_BodySeesConditionBindings(t *testing.T) {
	t.Parallel()
	src := "while (o instanceof S s) use(s);"
	tree := st.Build(t, src, st.N(syntax.KindWhileStatement,
		st.L(syntax.KindToken, "while"),
		paren(isS()),
		st.N(syntax.KindExpressionStatement, useS())))
	assert.True(t, resolvesS(t, tree, 1))

	src = "do use(s); while (o instanceof S s);"
	tree = st.Build(t, src, st.N(syntax.KindWhileStatement,
		st.L(syntax.KindToken, "do"),
		st.N(syntax.KindExpressionStatement, useS()),
		st.L(syntax.KindToken, "while"),
		paren(isS()),
		st.L(syntax.KindToken, ";")))
	_, ok, err := resolve.Resolve(context.Background(), st.Nth(t, tree, syntax.KindIdentifier, "s", 0))
	require.NoError(t, err)
	assert.False(t, ok, "do body precedes its condition")
}

func TestSwitchRule_BodySeesGuardBindings(t *testing.T) {
	t.Parallel()
	src := "switch (o) { case Object x when x instanceof S s -> use(s); }"
	tree := st.Build(t, src, st.N(syntax.KindSwitchExpression,
		st.L(syntax.KindToken, "switch"),
		paren(st.Ident("o")),
		st.N(syntax.KindSwitchBlock,
			st.L(syntax.KindToken, "{"),
			st.N(syntax.KindSwitchLabeledRule,
				st.N(syntax.KindSwitchLabel,
					st.L(syntax.KindToken, "case"),
					st.N(syntax.KindTypePattern, st.L(syntax.KindType, "Object"), st.Ident("x")),
					st.N(syntax.KindGuard,
						st.L(syntax.KindToken, "when"),
						st.N(syntax.KindInstanceofExpression,
							st.Ident("x"),
							st.L(syntax.KindToken, "instanceof"),
							st.N(syntax.KindTypePattern, st.L(syntax.KindType, "S"), st.Ident("s"))))),
				st.L(syntax.KindToken, "->"),
				st.N(syntax.KindExpressionStatement, useS(), st.L(syntax.KindToken, ";"))),
			st.L(syntax.KindToken, "}"))))

	assert.True(t, resolvesS(t, tree, 1))

	// The label alone still exposes only its own pattern.
	rule := st.Find(t, tree, syntax.KindSwitchLabeledRule, "")
	label := rule.Child(0)
	collect := &resolve.CollectProcessor{}
	resolve.ProcessDeclarations(rule, collect, resolve.State{}, label, label)
	assert.Equal(t, []string{"x"}, names(collect.Declarations()))
}

func TestIsScope(t *testing.T) {
	t.Parallel()
	assert.True(t, resolve.IsScope(syntax.KindSwitchLabeledRule))
	assert.True(t, resolve.IsScope(syntax.KindBlockStatement))
	assert.True(t, resolve.IsScope(syntax.KindBinaryExpression))
	assert.True(t, resolve.IsScope(syntax.KindTernaryExpression))
	assert.False(t, resolve.IsScope(syntax.KindSwitchBlock))
	assert.False(t, resolve.IsScope(syntax.KindIdentifier))
}
