package resolve

import (
	"fmt"

	"github.com/jward/bough/internal/syntax"
)

// DeclKind classifies what a declaration introduces.
type DeclKind uint8

const (
	DeclLocal DeclKind = iota + 1
	DeclParameter
	DeclField
	DeclMethod
	DeclType
	DeclTypeParameter
	DeclPattern
	DeclResource
	DeclCatchParameter
)

var declKindNames = map[DeclKind]string{
	DeclLocal:          "local",
	DeclParameter:      "parameter",
	DeclField:          "field",
	DeclMethod:         "method",
	DeclType:           "type",
	DeclTypeParameter:  "type_parameter",
	DeclPattern:        "pattern",
	DeclResource:       "resource",
	DeclCatchParameter: "catch_parameter",
}

func (k DeclKind) String() string {
	if s, ok := declKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DeclKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k DeclKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseDeclKind is the inverse of DeclKind.String.
func ParseDeclKind(s string) (DeclKind, bool) {
	for k, name := range declKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Declaration is one named element found during resolution.
type Declaration struct {
	Name  string
	Kind  DeclKind
	Node  syntax.Node // the name token
	Owner syntax.Node // the construct that introduces the name
}

// Valid reports whether d was produced by a resolution.
func (d Declaration) Valid() bool { return d.Node.Valid() }

func (d Declaration) String() string {
	return fmt.Sprintf("%s %s @%s", d.Kind, d.Name, d.Node.Range())
}

// namespace separates method names from everything else; Java allows a
// method and a variable to share a name.
func (d Declaration) namespace() int {
	if d.Kind == DeclMethod {
		return 1
	}
	return 0
}

var (
	identKinds     = syntax.NewKindSet(syntax.KindIdentifier)
	typeNameKinds  = syntax.NewKindSet(syntax.KindIdentifier, syntax.KindType)
	typeDeclKinds  = syntax.NewKindSet(syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration, syntax.KindEnumDeclaration, syntax.KindRecordDeclaration)
	patternKinds   = syntax.NewKindSet(syntax.KindTypePattern, syntax.KindRecordPatternComponent, syntax.KindInstanceofExpression)
	patternBarrier = syntax.NewKindSet(syntax.KindGuard, syntax.KindLambdaExpression, syntax.KindSwitchExpression, syntax.KindClassBody)
)

func lastIdent(n syntax.Node) (syntax.Node, bool) {
	for i := n.NumChildren() - 1; i >= 0; i-- {
		if c := n.Child(i); c.Kind() == syntax.KindIdentifier {
			return c, true
		}
	}
	return syntax.Node{}, false
}

func decl(kind DeclKind, name, owner syntax.Node) Declaration {
	return Declaration{Name: name.Text(), Kind: kind, Node: name, Owner: owner}
}

// declaredBy returns the names n itself introduces, independent of where
// they are visible.
func declaredBy(n syntax.Node) []Declaration {
	one := func(kind DeclKind, name syntax.Node, ok bool) []Declaration {
		if !ok {
			return nil
		}
		return []Declaration{decl(kind, name, n)}
	}
	switch n.Kind() {
	case syntax.KindClassDeclaration, syntax.KindInterfaceDeclaration,
		syntax.KindEnumDeclaration, syntax.KindRecordDeclaration:
		name, ok := n.FindChildOfKind(identKinds)
		return one(DeclType, name, ok)

	case syntax.KindMethodDeclaration:
		name, ok := n.FindChildOfKind(identKinds)
		return one(DeclMethod, name, ok)

	case syntax.KindVariableDeclarator:
		name, ok := n.FindChildOfKind(identKinds)
		switch n.Parent().Kind() {
		case syntax.KindFormalParameter:
			return nil // reported by the parameter
		case syntax.KindFieldDeclaration:
			return one(DeclField, name, ok)
		default:
			return one(DeclLocal, name, ok)
		}

	case syntax.KindFieldDeclaration:
		// Enum constants are lowered to field declarations without
		// declarators; ordinary fields are reported per declarator.
		if _, has := n.FindChildOfKind(syntax.NewKindSet(syntax.KindVariableDeclarator)); has {
			return nil
		}
		name, ok := n.FindChildOfKind(identKinds)
		return one(DeclField, name, ok)

	case syntax.KindFormalParameter:
		kind := DeclParameter
		if n.Parent().Parent().Kind() == syntax.KindRecordDeclaration {
			kind = DeclField
		}
		if vd, ok := n.FindChildOfKind(syntax.NewKindSet(syntax.KindVariableDeclarator)); ok {
			name, ok := vd.FindChildOfKind(identKinds)
			return one(kind, name, ok)
		}
		name, ok := lastIdent(n)
		return one(kind, name, ok)

	case syntax.KindCatchFormalParameter:
		name, ok := lastIdent(n)
		return one(DeclCatchParameter, name, ok)

	case syntax.KindResource:
		if _, typed := n.FindChildOfKind(syntax.NewKindSet(syntax.KindType)); !typed {
			return nil // `try (existing)` refers to a variable declared elsewhere
		}
		name, ok := n.FindChildOfKind(identKinds)
		return one(DeclResource, name, ok)

	case syntax.KindTypeParameter:
		name, ok := n.FindChildOfKind(typeNameKinds)
		return one(DeclTypeParameter, name, ok)

	case syntax.KindTypePattern:
		name, ok := lastIdent(n)
		return one(DeclPattern, name, ok)

	case syntax.KindRecordPatternComponent:
		if _, typed := n.FindChildOfKind(syntax.NewKindSet(syntax.KindType)); !typed {
			return nil
		}
		name, ok := lastIdent(n)
		return one(DeclPattern, name, ok)

	case syntax.KindInstanceofExpression:
		// Older grammars put the binding straight after the type:
		// `o instanceof Foo f`.
		last := n.Child(n.NumChildren() - 1)
		if last.Kind() != syntax.KindIdentifier || n.Child(last.Index()-1).Kind() != syntax.KindType {
			return nil
		}
		return one(DeclPattern, last, true)

	case syntax.KindEnhancedForStatement:
		name, ok := n.FindChildOfKind(identKinds)
		return one(DeclLocal, name, ok)

	case syntax.KindLambdaExpression:
		if first := n.Child(0); first.Kind() == syntax.KindIdentifier {
			return one(DeclParameter, first, true)
		}
		return nil

	case syntax.KindInferredParameters:
		var out []Declaration
		for _, c := range n.FindChildrenOfKind(identKinds) {
			out = append(out, decl(DeclParameter, c, n))
		}
		return out
	}
	return nil
}

// patternBindings returns the pattern variables introduced under n, not
// crossing into guards, lambdas, nested switches or class bodies.
func patternBindings(n syntax.Node) []Declaration {
	var out []Declaration
	syntax.Inspect(n, func(c syntax.Node) bool {
		if c.ID() != n.ID() && patternBarrier.Contains(c.Kind()) {
			return false
		}
		if patternKinds.Contains(c.Kind()) {
			out = append(out, declaredBy(c)...)
		}
		return true
	})
	return out
}

// operands returns the children of n that are not punctuation or operators.
func operands(n syntax.Node) []syntax.Node {
	var out []syntax.Node
	for _, c := range n.Children() {
		if c.Kind() != syntax.KindToken {
			out = append(out, c)
		}
	}
	return out
}

func operator(n syntax.Node) string {
	if tok, ok := n.FindChildOfKind(syntax.NewKindSet(syntax.KindToken)); ok {
		return tok.Text()
	}
	return ""
}

// conditionBindings returns the pattern variables a boolean expression
// definitely binds when it evaluates to want. `a && b` binds both sides
// when true, `a || b` both sides when false and `!x` flips the outcome.
// A bare instanceof binds only when true.
func conditionBindings(e syntax.Node, want bool) []Declaration {
	switch e.Kind() {
	case syntax.KindParenthesizedExpression:
		if ops := operands(e); len(ops) == 1 {
			return conditionBindings(ops[0], want)
		}
	case syntax.KindUnaryExpression:
		if ops := operands(e); len(ops) == 1 && operator(e) == "!" {
			return conditionBindings(ops[0], !want)
		}
	case syntax.KindBinaryExpression:
		ops := operands(e)
		if len(ops) != 2 {
			return nil
		}
		if op := operator(e); (op == "&&" && want) || (op == "||" && !want) {
			return append(conditionBindings(ops[0], want), conditionBindings(ops[1], want)...)
		}
	case syntax.KindInstanceofExpression:
		if want {
			return patternBindings(e)
		}
	}
	return nil
}

// guardBindings returns what a label's `when` clause binds for the rule
// body.
func guardBindings(label syntax.Node) []Declaration {
	g, ok := label.FindChildOfKind(syntax.NewKindSet(syntax.KindGuard))
	if !ok {
		return nil
	}
	if ops := operands(g); len(ops) > 0 {
		return conditionBindings(ops[0], true)
	}
	return nil
}

// declaratorsOf returns the names declared by a local variable or field
// declaration, up to and including the child at index limit.
func declaratorsOf(n syntax.Node, limit int) []Declaration {
	var out []Declaration
	for i := 0; i < n.NumChildren() && i <= limit; i++ {
		if c := n.Child(i); c.Kind() == syntax.KindVariableDeclarator {
			out = append(out, declaredBy(c)...)
		}
	}
	return out
}
