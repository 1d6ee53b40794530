package javaparse_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/bough/internal/javaparse"
	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := javaparse.NewParser().Parse(context.Background(), []byte(src), "Test.java")
	require.NoError(t, err)
	require.NoError(t, syntax.Verify(tree))
	return tree
}

func findAll(tree *syntax.Tree, kind syntax.Kind) []syntax.Node {
	var out []syntax.Node
	syntax.Inspect(tree.Root(), func(n syntax.Node) bool {
		if n.Kind() == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

func ident(t *testing.T, tree *syntax.Tree, name string, nth int) syntax.Node {
	t.Helper()
	var seen int
	for _, n := range findAll(tree, syntax.KindIdentifier) {
		if n.Text() != name {
			continue
		}
		if seen == nth {
			return n
		}
		seen++
	}
	t.Fatalf("identifier %q #%d not found", name, nth)
	return syntax.Node{}
}

const shapesSource = `package demo;

import java.util.List;

// Shapes computes areas.
public class Shapes {
    private int count;

    public int area(int w, int h) {
        int a = w * h;
        return a;
    }
}
`

func TestParse_ClassStructure(t *testing.T) {
	t.Parallel()
	tree := parse(t, shapesSource)
	root := tree.Root()
	assert.Equal(t, syntax.KindCompilationUnit, root.Kind())
	assert.Empty(t, javaparse.Errors(tree))

	_, ok := root.FindChildOfKind(syntax.NewKindSet(syntax.KindPackageDeclaration))
	assert.True(t, ok)
	imp, ok := root.FindChildOfKind(syntax.NewKindSet(syntax.KindImportDeclaration))
	require.True(t, ok)
	assert.True(t, imp.IsLeaf(), "import paths collapse to one leaf")

	cls, ok := root.FindChildOfKind(syntax.NewKindSet(syntax.KindClassDeclaration))
	require.True(t, ok)
	name, ok := cls.FindChildOfKind(syntax.NewKindSet(syntax.KindIdentifier))
	require.True(t, ok)
	assert.Equal(t, "Shapes", name.Text())

	methods := findAll(tree, syntax.KindMethodDeclaration)
	require.Len(t, methods, 1)
	assert.Len(t, findAll(tree, syntax.KindFormalParameter), 2)

	for _, n := range findAll(tree, syntax.KindToken) {
		assert.NotContains(t, n.Text(), "Shapes computes", "comments are dropped")
	}
}

func TestParse_ResolvesLocalsAndParameters(t *testing.T) {
	t.Parallel()
	tree := parse(t, shapesSource)

	d, ok, err := resolve.Resolve(context.Background(), ident(t, tree, "a", 1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resolve.DeclLocal, d.Kind)
	assert.Equal(t, uint32(9), d.Node.Range().Start.Row)

	d, ok, err = resolve.Resolve(context.Background(), ident(t, tree, "w", 1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resolve.DeclParameter, d.Kind)
}

const switchSource = `class S {
    int f(int k) {
        switch (k) {
            case 1 -> { return 10; }
            case 2 -> throw new IllegalStateException();
            default -> System.out.println(k);
        }
        return 0;
    }
}
`

func TestParse_SwitchRules(t *testing.T) {
	t.Parallel()
	tree := parse(t, switchSource)
	rules := findAll(tree, syntax.KindSwitchLabeledRule)
	require.Len(t, rules, 3)

	want := []syntax.Kind{syntax.KindBlockStatement, syntax.KindThrowStatement, syntax.KindExpressionStatement}
	for i, n := range rules {
		r, ok := syntax.AsSwitchLabeledRule(n)
		require.True(t, ok)
		body, ok := r.Body()
		require.True(t, ok, "rule %d", i)
		assert.Equal(t, want[i], body.Kind(), "rule %d", i)
		_, ok = r.Label()
		assert.True(t, ok)
		assert.Equal(t, "SwitchLabeledRule", r.String())
	}

	// k in the default rule resolves to the method parameter.
	d, ok, err := resolve.Resolve(context.Background(), ident(t, tree, "k", 2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, resolve.DeclParameter, d.Kind)
}

const scopesSource = `class T {
    void run(java.util.List<String> items) {
        for (String s : items) {
            use(s);
        }
        try (Reader r = open()) {
            r.read();
        } catch (Exception e) {
            log(e);
        }
        items.forEach(x -> use(x));
    }
}
`

func TestParse_StatementScopes(t *testing.T) {
	t.Parallel()
	tree := parse(t, scopesSource)
	tests := []struct {
		name string
		nth  int
		want resolve.DeclKind
	}{
		{"s", 1, resolve.DeclLocal},
		{"r", 1, resolve.DeclResource},
		{"e", 1, resolve.DeclCatchParameter},
		{"x", 1, resolve.DeclParameter},
		{"items", 1, resolve.DeclParameter},
	}
	for _, tt := range tests {
		d, ok, err := resolve.Resolve(context.Background(), ident(t, tree, tt.name, tt.nth))
		require.NoError(t, err)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.want, d.Kind, tt.name)
	}

	// read is a member access and forEach a qualified call.
	for _, name := range []string{"read", "forEach"} {
		_, ok, err := resolve.Resolve(context.Background(), ident(t, tree, name, 0))
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
}

const conditionsSource = `class P {
    void m(Object o) {
        if (!(o instanceof String s)) {
            log(s);
        } else {
            log(s);
        }
        boolean b = o instanceof Integer i && i > 0;
    }
}
`

func TestParse_ConditionPatternScopes(t *testing.T) {
	t.Parallel()
	tree := parse(t, conditionsSource)

	and := findAll(tree, syntax.KindBinaryExpression)
	require.NotEmpty(t, and)
	assert.Equal(t, "&&", and[0].Child(1).Text())
	assert.NotEmpty(t, findAll(tree, syntax.KindUnaryExpression))
	assert.NotEmpty(t, findAll(tree, syntax.KindParenthesizedExpression))

	_, ok, err := resolve.Resolve(context.Background(), ident(t, tree, "s", 1))
	require.NoError(t, err)
	assert.False(t, ok, "negated test does not bind in the then-branch")

	for _, use := range []syntax.Node{ident(t, tree, "s", 2), ident(t, tree, "i", 1)} {
		d, ok, err := resolve.Resolve(context.Background(), use)
		require.NoError(t, err)
		require.True(t, ok, use.Text())
		assert.Equal(t, resolve.DeclPattern, d.Kind)
	}
}

func TestParse_SyntaxErrorsBecomeErrorNodes(t *testing.T) {
	t.Parallel()
	tree := parse(t, "class A { void f( { ))) }")
	errs := javaparse.Errors(tree)
	require.NotEmpty(t, errs)

	pe := javaparse.ErrorAt("A.java", errs[0])
	assert.True(t, errors.Is(pe, javaparse.ErrParseFailed))
	assert.True(t, strings.HasPrefix(pe.Error(), "A.java:1:"))
}

func TestParse_RejectsInvalidInput(t *testing.T) {
	t.Parallel()
	p := javaparse.NewParser(javaparse.WithMaxFileSize(16))

	_, err := p.Parse(context.Background(), []byte("class VeryLongName {}"), "Big.java")
	assert.ErrorIs(t, err, javaparse.ErrFileTooLarge)

	_, err = p.Parse(context.Background(), []byte{0xff, 0xfe}, "Bad.java")
	assert.ErrorIs(t, err, javaparse.ErrInvalidContent)
	var pe *javaparse.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Bad.java", pe.FilePath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, []byte("class A {}"), "A.java")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_ConcurrentUse(t *testing.T) {
	t.Parallel()
	p := javaparse.NewParser()
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := p.Parse(context.Background(), []byte(switchSource), "S.java")
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestKindForType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, syntax.KindSwitchLabeledRule, javaparse.KindForType("switch_rule", true))
	assert.Equal(t, syntax.KindBlockStatement, javaparse.KindForType("block", true))
	assert.Equal(t, syntax.KindType, javaparse.KindForType("generic_type", true))
	assert.Equal(t, syntax.KindBinaryExpression, javaparse.KindForType("binary_expression", true))
	assert.Equal(t, syntax.KindParenthesizedExpression, javaparse.KindForType("parenthesized_expression", true))
	assert.Equal(t, syntax.KindExpression, javaparse.KindForType("array_access", true))
	assert.Equal(t, syntax.KindToken, javaparse.KindForType("->", false))
	assert.Equal(t, syntax.KindError, javaparse.KindForType("ERROR", true))
}

func TestIsJavaFile(t *testing.T) {
	t.Parallel()
	assert.True(t, javaparse.IsJavaFile("src/A.java"))
	assert.True(t, javaparse.IsJavaFile("B.JAVA"))
	assert.False(t, javaparse.IsJavaFile("c.go"))
	assert.False(t, javaparse.IsJavaFile("java"))
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"App.java", "java", true},
		{"path/to/App.JAVA", "java", true},
		{"main.go", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := javaparse.LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
