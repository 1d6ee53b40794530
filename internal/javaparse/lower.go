package javaparse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/bough/internal/syntax"
)

// kindsByType maps tree-sitter node types to syntax kinds. Named types not
// listed lower to KindExpression; anonymous nodes lower to KindToken leaves.
var kindsByType = map[string]syntax.Kind{
	"program":             syntax.KindCompilationUnit,
	"package_declaration": syntax.KindPackageDeclaration,
	"import_declaration":  syntax.KindImportDeclaration,
	"ERROR":               syntax.KindError,
	"identifier":          syntax.KindIdentifier,

	"class_declaration":           syntax.KindClassDeclaration,
	"interface_declaration":       syntax.KindInterfaceDeclaration,
	"annotation_type_declaration": syntax.KindInterfaceDeclaration,
	"enum_declaration":            syntax.KindEnumDeclaration,
	"record_declaration":          syntax.KindRecordDeclaration,

	"class_body":             syntax.KindClassBody,
	"interface_body":         syntax.KindClassBody,
	"enum_body":              syntax.KindClassBody,
	"enum_body_declarations": syntax.KindClassBody,
	"annotation_type_body":   syntax.KindClassBody,

	"field_declaration":    syntax.KindFieldDeclaration,
	"constant_declaration": syntax.KindFieldDeclaration,
	"enum_constant":        syntax.KindFieldDeclaration,

	"method_declaration":                  syntax.KindMethodDeclaration,
	"annotation_type_element_declaration": syntax.KindMethodDeclaration,
	"constructor_declaration":             syntax.KindConstructorDeclaration,
	"compact_constructor_declaration":     syntax.KindConstructorDeclaration,
	"formal_parameters":                   syntax.KindFormalParameters,
	"formal_parameter":                    syntax.KindFormalParameter,
	"spread_parameter":                    syntax.KindFormalParameter,
	"type_parameters":                     syntax.KindTypeParameters,
	"type_parameter":                      syntax.KindTypeParameter,

	"block":                      syntax.KindBlockStatement,
	"constructor_body":           syntax.KindBlockStatement,
	"local_variable_declaration": syntax.KindLocalVariableDeclaration,
	"variable_declarator":        syntax.KindVariableDeclarator,
	"expression_statement":       syntax.KindExpressionStatement,
	"throw_statement":            syntax.KindThrowStatement,
	"return_statement":           syntax.KindReturnStatement,
	"if_statement":               syntax.KindIfStatement,
	"while_statement":            syntax.KindWhileStatement,
	"do_statement":               syntax.KindWhileStatement,
	"for_statement":              syntax.KindForStatement,
	"enhanced_for_statement":     syntax.KindEnhancedForStatement,

	"try_statement":                syntax.KindTryStatement,
	"try_with_resources_statement": syntax.KindTryStatement,
	"catch_clause":                 syntax.KindCatchClause,
	"catch_formal_parameter":       syntax.KindCatchFormalParameter,
	"resource_specification":       syntax.KindResourceSpecification,
	"resource":                     syntax.KindResource,

	"lambda_expression":   syntax.KindLambdaExpression,
	"inferred_parameters": syntax.KindInferredParameters,

	"switch_expression":            syntax.KindSwitchExpression,
	"switch_statement":             syntax.KindSwitchExpression,
	"switch_block":                 syntax.KindSwitchBlock,
	"switch_block_statement_group": syntax.KindSwitchBlockStatementGroup,
	"switch_rule":                  syntax.KindSwitchLabeledRule,
	"switch_label":                 syntax.KindSwitchLabel,
	"guard":                        syntax.KindGuard,
	"type_pattern":                 syntax.KindTypePattern,
	"record_pattern":               syntax.KindRecordPattern,
	"record_pattern_component":     syntax.KindRecordPatternComponent,

	"instanceof_expression":    syntax.KindInstanceofExpression,
	"binary_expression":        syntax.KindBinaryExpression,
	"unary_expression":         syntax.KindUnaryExpression,
	"parenthesized_expression": syntax.KindParenthesizedExpression,
	"ternary_expression":       syntax.KindTernaryExpression,
	"method_invocation":        syntax.KindMethodInvocation,
	"field_access":             syntax.KindFieldAccess,
}

// collapsed types become a single leaf of the given kind; nothing inside
// them takes part in resolution.
var collapsed = map[string]syntax.Kind{
	"type_identifier":        syntax.KindType,
	"scoped_type_identifier": syntax.KindType,
	"generic_type":           syntax.KindType,
	"array_type":             syntax.KindType,
	"integral_type":          syntax.KindType,
	"floating_point_type":    syntax.KindType,
	"boolean_type":           syntax.KindType,
	"void_type":              syntax.KindType,
	"catch_type":             syntax.KindType,
	"annotated_type":         syntax.KindType,

	"package_declaration": syntax.KindPackageDeclaration,
	"import_declaration":  syntax.KindImportDeclaration,

	"modifiers":          syntax.KindToken,
	"marker_annotation":  syntax.KindToken,
	"annotation":         syntax.KindToken,
	"dimensions":         syntax.KindToken,
	"type_arguments":     syntax.KindToken,
	"superclass":         syntax.KindToken,
	"super_interfaces":   syntax.KindToken,
	"extends_interfaces": syntax.KindToken,
	"permits":            syntax.KindToken,
	"throws":             syntax.KindToken,
	"type_bound":         syntax.KindToken,
	"string_literal":     syntax.KindExpression,
	"text_block":         syntax.KindExpression,
}

// KindForType returns the kind a tree-sitter node type lowers to.
func KindForType(typ string, named bool) syntax.Kind {
	if k, ok := collapsed[typ]; ok {
		return k
	}
	if k, ok := kindsByType[typ]; ok {
		return k
	}
	if named {
		return syntax.KindExpression
	}
	return syntax.KindToken
}

func rangeOf(n *sitter.Node) syntax.Range {
	sp, ep := n.StartPoint(), n.EndPoint()
	return syntax.Range{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		Start:     syntax.Point{Row: sp.Row, Column: sp.Column},
		End:       syntax.Point{Row: ep.Row, Column: ep.Column},
	}
}

// skip reports whether n has no place in the lowered tree: comments and
// zero-width nodes the parser inserted to recover from an error.
func skip(n *sitter.Node) bool {
	return n.IsExtra() || n.IsMissing()
}

// Lower converts a tree-sitter tree over src into a verified syntax tree.
func Lower(root *sitter.Node, src []byte) (*syntax.Tree, error) {
	b := syntax.NewBuilder(src, int(root.EndByte()/4))
	var lower func(n *sitter.Node) syntax.NodeID
	lower = func(n *sitter.Node) syntax.NodeID {
		kind := KindForType(n.Type(), n.IsNamed())
		if _, ok := collapsed[n.Type()]; ok {
			return b.Leaf(kind, rangeOf(n))
		}
		count := int(n.ChildCount())
		children := make([]syntax.NodeID, 0, count)
		for i := 0; i < count; i++ {
			c := n.Child(i)
			if c == nil || skip(c) {
				continue
			}
			children = append(children, lower(c))
		}
		if len(children) == 0 {
			return b.Leaf(kind, rangeOf(n))
		}
		return b.Node(kind, rangeOf(n), children...)
	}
	tree, err := b.Finish(lower(root))
	if err != nil {
		return nil, err
	}
	if err := syntax.Verify(tree); err != nil {
		return nil, err
	}
	return tree, nil
}
