package syntax

// Visitor is the generic capability every visitor has: handle any node.
// Accept falls back to VisitNode whenever the visitor lacks the specialized
// capability for a node's kind.
type Visitor interface {
	VisitNode(n Node)
}

// Specialized capabilities. A visitor opts into one by implementing the
// method; nodes never need to know which visitor type they are given.
type (
	SwitchLabeledRuleVisitor interface {
		VisitSwitchLabeledRule(r SwitchLabeledRule)
	}
	BlockStatementVisitor interface {
		VisitBlockStatement(n Node)
	}
	ThrowStatementVisitor interface {
		VisitThrowStatement(n Node)
	}
	ExpressionStatementVisitor interface {
		VisitExpressionStatement(n Node)
	}
	MethodDeclarationVisitor interface {
		VisitMethodDeclaration(n Node)
	}
	ClassDeclarationVisitor interface {
		VisitClassDeclaration(n Node)
	}
	IdentifierVisitor interface {
		VisitIdentifier(n Node)
	}
)

// dispatchFunc hands n to the capability it matches and reports whether v
// had that capability.
type dispatchFunc func(n Node, v Visitor) bool

var dispatch = [kindCount]dispatchFunc{
	KindSwitchLabeledRule: func(n Node, v Visitor) bool {
		rv, ok := v.(SwitchLabeledRuleVisitor)
		if ok {
			rv.VisitSwitchLabeledRule(SwitchLabeledRule{Node: n})
		}
		return ok
	},
	KindBlockStatement: func(n Node, v Visitor) bool {
		bv, ok := v.(BlockStatementVisitor)
		if ok {
			bv.VisitBlockStatement(n)
		}
		return ok
	},
	KindThrowStatement: func(n Node, v Visitor) bool {
		tv, ok := v.(ThrowStatementVisitor)
		if ok {
			tv.VisitThrowStatement(n)
		}
		return ok
	},
	KindExpressionStatement: func(n Node, v Visitor) bool {
		ev, ok := v.(ExpressionStatementVisitor)
		if ok {
			ev.VisitExpressionStatement(n)
		}
		return ok
	},
	KindMethodDeclaration: func(n Node, v Visitor) bool {
		mv, ok := v.(MethodDeclarationVisitor)
		if ok {
			mv.VisitMethodDeclaration(n)
		}
		return ok
	},
	KindClassDeclaration: func(n Node, v Visitor) bool {
		cv, ok := v.(ClassDeclarationVisitor)
		if ok {
			cv.VisitClassDeclaration(n)
		}
		return ok
	},
	KindIdentifier: func(n Node, v Visitor) bool {
		iv, ok := v.(IdentifierVisitor)
		if ok {
			iv.VisitIdentifier(n)
		}
		return ok
	},
}

// Accept hands n to v: through the capability matching n's exact kind when
// v has it, otherwise through v.VisitNode. Accept does not descend into
// children; use Inspect or Walk for traversal.
func (n Node) Accept(v Visitor) {
	if !n.Valid() || v == nil {
		return
	}
	if k := n.Kind(); k < kindCount {
		if d := dispatch[k]; d != nil && d(n, v) {
			return
		}
	}
	v.VisitNode(n)
}

// HasCapability reports whether v would receive nodes of kind k through a
// specialized method rather than VisitNode.
func HasCapability(v Visitor, k Kind) bool {
	switch k {
	case KindSwitchLabeledRule:
		_, ok := v.(SwitchLabeledRuleVisitor)
		return ok
	case KindBlockStatement:
		_, ok := v.(BlockStatementVisitor)
		return ok
	case KindThrowStatement:
		_, ok := v.(ThrowStatementVisitor)
		return ok
	case KindExpressionStatement:
		_, ok := v.(ExpressionStatementVisitor)
		return ok
	case KindMethodDeclaration:
		_, ok := v.(MethodDeclarationVisitor)
		return ok
	case KindClassDeclaration:
		_, ok := v.(ClassDeclarationVisitor)
		return ok
	case KindIdentifier:
		_, ok := v.(IdentifierVisitor)
		return ok
	}
	return false
}

// Walk calls Accept on every node of the subtree rooted at n, in preorder.
func Walk(n Node, v Visitor) {
	Inspect(n, func(c Node) bool {
		c.Accept(v)
		return true
	})
}
