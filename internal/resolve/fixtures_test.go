package resolve_test

import (
	"testing"

	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
	st "github.com/jward/bough/internal/syntax/syntaxtest"
)

const switchScopesSource = `{
  switch (s) {
    case A a -> use(a);
    case B b -> use(a);
  }
  use(a);
}`

func invoke(name string, args ...st.Spec) st.Spec {
	return st.N(syntax.KindMethodInvocation, st.Ident(name), st.N(syntax.KindExpression, args...))
}

// switchScopesTree has two rules binding a and b, with a use of a in each
// rule body and one after the switch.
func switchScopesTree(t *testing.T) *syntax.Tree {
	t.Helper()
	rule := func(typ, name, arg string) st.Spec {
		return st.N(syntax.KindSwitchLabeledRule,
			st.N(syntax.KindSwitchLabel,
				st.L(syntax.KindToken, "case"),
				st.N(syntax.KindTypePattern, st.L(syntax.KindType, typ), st.Ident(name))),
			st.L(syntax.KindToken, "->"),
			st.N(syntax.KindExpressionStatement, invoke("use", st.Ident(arg))))
	}
	return st.Build(t, switchScopesSource, st.N(syntax.KindBlockStatement,
		st.L(syntax.KindToken, "{"),
		st.N(syntax.KindExpressionStatement,
			st.N(syntax.KindSwitchExpression,
				st.L(syntax.KindToken, "switch"),
				st.Ident("s"),
				st.N(syntax.KindSwitchBlock,
					rule("A", "a", "a"),
					rule("B", "b", "a")))),
		st.N(syntax.KindExpressionStatement, invoke("use", st.Ident("a"))),
		st.L(syntax.KindToken, "}")))
}

const classSource = `class K<T> {
  int f;
  void m(int p) {
    int x = p;
    for (String s : list) { m(s, x, f); }
    try (R r = open()) { r.close(); } catch (E e) { h(e); }
    run(v -> v);
  }
}`

func classTree(t *testing.T) *syntax.Tree {
	t.Helper()
	return st.Build(t, classSource, st.N(syntax.KindCompilationUnit,
		st.N(syntax.KindClassDeclaration,
			st.L(syntax.KindToken, "class"),
			st.Ident("K"),
			st.N(syntax.KindTypeParameters, st.N(syntax.KindTypeParameter, st.L(syntax.KindType, "T"))),
			st.N(syntax.KindClassBody,
				st.N(syntax.KindFieldDeclaration,
					st.L(syntax.KindType, "int"),
					st.N(syntax.KindVariableDeclarator, st.Ident("f")),
					st.L(syntax.KindToken, ";")),
				st.N(syntax.KindMethodDeclaration,
					st.L(syntax.KindType, "void"),
					st.Ident("m"),
					st.N(syntax.KindFormalParameters,
						st.N(syntax.KindFormalParameter, st.L(syntax.KindType, "int"), st.Ident("p"))),
					st.N(syntax.KindBlockStatement,
						st.N(syntax.KindLocalVariableDeclaration,
							st.L(syntax.KindType, "int"),
							st.N(syntax.KindVariableDeclarator, st.Ident("x"), st.Ident("p"))),
						st.N(syntax.KindEnhancedForStatement,
							st.L(syntax.KindToken, "for"),
							st.L(syntax.KindType, "String"),
							st.Ident("s"),
							st.Ident("list"),
							st.N(syntax.KindBlockStatement,
								st.N(syntax.KindExpressionStatement, invoke("m", st.Ident("s"), st.Ident("x"), st.Ident("f"))))),
						st.N(syntax.KindTryStatement,
							st.L(syntax.KindToken, "try"),
							st.N(syntax.KindResourceSpecification,
								st.N(syntax.KindResource,
									st.L(syntax.KindType, "R"),
									st.Ident("r"),
									st.N(syntax.KindMethodInvocation, st.Ident("open")))),
							st.N(syntax.KindBlockStatement,
								st.N(syntax.KindExpressionStatement,
									st.N(syntax.KindMethodInvocation, st.Ident("r"), st.L(syntax.KindToken, "."), st.Ident("close")))),
							st.N(syntax.KindCatchClause,
								st.L(syntax.KindToken, "catch"),
								st.N(syntax.KindCatchFormalParameter, st.L(syntax.KindType, "E"), st.Ident("e")),
								st.N(syntax.KindBlockStatement,
									st.N(syntax.KindExpressionStatement, invoke("h", st.Ident("e")))))),
						st.N(syntax.KindExpressionStatement,
							invoke("run", st.N(syntax.KindLambdaExpression, st.Ident("v"), st.L(syntax.KindToken, "->"), st.Ident("v"))))))))))
}

func names(decls []resolve.Declaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Name
	}
	return out
}
