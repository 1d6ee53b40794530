package syntax

import "strings"

// Kind identifies the grammar construct a node instantiates. Kinds are small
// integers, so they are totally ordered and usable as bitset indices.
type Kind uint16

const (
	KindInvalid Kind = iota
	KindError
	KindToken
	KindIdentifier
	KindCompilationUnit
	KindPackageDeclaration
	KindImportDeclaration
	KindClassDeclaration
	KindInterfaceDeclaration
	KindEnumDeclaration
	KindRecordDeclaration
	KindClassBody
	KindFieldDeclaration
	KindMethodDeclaration
	KindConstructorDeclaration
	KindFormalParameters
	KindFormalParameter
	KindTypeParameters
	KindTypeParameter
	KindBlockStatement
	KindLocalVariableDeclaration
	KindVariableDeclarator
	KindExpressionStatement
	KindThrowStatement
	KindReturnStatement
	KindIfStatement
	KindWhileStatement
	KindForStatement
	KindEnhancedForStatement
	KindTryStatement
	KindCatchClause
	KindCatchFormalParameter
	KindResourceSpecification
	KindResource
	KindLambdaExpression
	KindInferredParameters
	KindSwitchExpression
	KindSwitchBlock
	KindSwitchBlockStatementGroup
	KindSwitchLabeledRule
	KindSwitchLabel
	KindGuard
	KindTypePattern
	KindRecordPattern
	KindRecordPatternComponent
	KindInstanceofExpression
	KindBinaryExpression
	KindUnaryExpression
	KindParenthesizedExpression
	KindTernaryExpression
	KindMethodInvocation
	KindFieldAccess
	KindType
	KindExpression

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:                   "Invalid",
	KindError:                     "Error",
	KindToken:                     "Token",
	KindIdentifier:                "Identifier",
	KindCompilationUnit:           "CompilationUnit",
	KindPackageDeclaration:        "PackageDeclaration",
	KindImportDeclaration:         "ImportDeclaration",
	KindClassDeclaration:          "ClassDeclaration",
	KindInterfaceDeclaration:      "InterfaceDeclaration",
	KindEnumDeclaration:           "EnumDeclaration",
	KindRecordDeclaration:         "RecordDeclaration",
	KindClassBody:                 "ClassBody",
	KindFieldDeclaration:          "FieldDeclaration",
	KindMethodDeclaration:         "MethodDeclaration",
	KindConstructorDeclaration:    "ConstructorDeclaration",
	KindFormalParameters:          "FormalParameters",
	KindFormalParameter:           "FormalParameter",
	KindTypeParameters:            "TypeParameters",
	KindTypeParameter:             "TypeParameter",
	KindBlockStatement:            "BlockStatement",
	KindLocalVariableDeclaration:  "LocalVariableDeclaration",
	KindVariableDeclarator:        "VariableDeclarator",
	KindExpressionStatement:       "ExpressionStatement",
	KindThrowStatement:            "ThrowStatement",
	KindReturnStatement:           "ReturnStatement",
	KindIfStatement:               "IfStatement",
	KindWhileStatement:            "WhileStatement",
	KindForStatement:              "ForStatement",
	KindEnhancedForStatement:      "EnhancedForStatement",
	KindTryStatement:              "TryStatement",
	KindCatchClause:               "CatchClause",
	KindCatchFormalParameter:      "CatchFormalParameter",
	KindResourceSpecification:     "ResourceSpecification",
	KindResource:                  "Resource",
	KindLambdaExpression:          "LambdaExpression",
	KindInferredParameters:        "InferredParameters",
	KindSwitchExpression:          "SwitchExpression",
	KindSwitchBlock:               "SwitchBlock",
	KindSwitchBlockStatementGroup: "SwitchBlockStatementGroup",
	KindSwitchLabeledRule:         "SwitchLabeledRule",
	KindSwitchLabel:               "SwitchLabel",
	KindGuard:                     "Guard",
	KindTypePattern:               "TypePattern",
	KindRecordPattern:             "RecordPattern",
	KindRecordPatternComponent:    "RecordPatternComponent",
	KindInstanceofExpression:      "InstanceofExpression",
	KindBinaryExpression:          "BinaryExpression",
	KindUnaryExpression:           "UnaryExpression",
	KindParenthesizedExpression:   "ParenthesizedExpression",
	KindTernaryExpression:         "TernaryExpression",
	KindMethodInvocation:          "MethodInvocation",
	KindFieldAccess:               "FieldAccess",
	KindType:                      "Type",
	KindExpression:                "Expression",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

// String returns the registered name of the kind.
func (k Kind) String() string {
	if k >= kindCount {
		return "Invalid"
	}
	return kindNames[k]
}

// Valid reports whether k is a registered kind other than KindInvalid.
func (k Kind) Valid() bool { return k > KindInvalid && k < kindCount }

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KindOf looks a kind up by its registered name. The match is exact first,
// then case-insensitive.
func KindOf(name string) (Kind, bool) {
	if k, ok := kindsByName[name]; ok {
		return k, true
	}
	for k := Kind(0); k < kindCount; k++ {
		if strings.EqualFold(kindNames[k], name) {
			return k, true
		}
	}
	return KindInvalid, false
}

// AllKinds returns every registered kind in ascending order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// KindSet is an immutable set of kinds used as a filter for child queries.
type KindSet struct {
	bits [(kindCount + 63) / 64]uint64
}

// NewKindSet returns a set holding the given kinds. Unregistered kinds are
// ignored.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		if k >= kindCount {
			continue
		}
		s.bits[k/64] |= 1 << (k % 64)
	}
	return s
}

// Contains reports whether k is a member of the set.
func (s KindSet) Contains(k Kind) bool {
	if k >= kindCount {
		return false
	}
	return s.bits[k/64]&(1<<(k%64)) != 0
}

// Union returns a new set with the members of both sets.
func (s KindSet) Union(o KindSet) KindSet {
	for i := range s.bits {
		s.bits[i] |= o.bits[i]
	}
	return s
}

// Len returns the number of kinds in the set.
func (s KindSet) Len() int {
	n := 0
	for k := Kind(0); k < kindCount; k++ {
		if s.Contains(k) {
			n++
		}
	}
	return n
}

// Kinds returns the members in ascending order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for k := Kind(0); k < kindCount; k++ {
		if s.Contains(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s KindSet) String() string {
	kinds := s.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}
