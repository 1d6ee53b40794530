package syntax

// ruleBodyKinds are the statement kinds a switch rule may use as its body.
var ruleBodyKinds = NewKindSet(KindBlockStatement, KindThrowStatement, KindExpressionStatement)

var labelKinds = NewKindSet(KindSwitchLabel)

// ruleLabel is the fixed debug identity of every switch rule.
const ruleLabel = "SwitchLabeledRule"

// SwitchLabeledRule is a `case ... -> body` rule inside a switch block.
type SwitchLabeledRule struct {
	Node
}

// AsSwitchLabeledRule returns the typed view of n when n is a switch rule.
func AsSwitchLabeledRule(n Node) (SwitchLabeledRule, bool) {
	if n.Kind() != KindSwitchLabeledRule {
		return SwitchLabeledRule{}, false
	}
	return SwitchLabeledRule{Node: n}, true
}

// Body returns the rule's single block, throw or expression statement. An
// incomplete rule has no body, which is reported as (Node{}, false). More
// than one body statement can only come from a broken parser and panics with
// an *InvariantError.
func (r SwitchLabeledRule) Body() (Node, bool) {
	body, ok := r.FindChildOfKind(ruleBodyKinds)
	if !ok {
		return Node{}, false
	}
	for i := body.Index() + 1; i < r.NumChildren(); i++ {
		if c := r.Child(i); ruleBodyKinds.Contains(c.Kind()) {
			panic(&InvariantError{
				Node:   r.ID(),
				Kind:   KindSwitchLabeledRule,
				Reason: "more than one body statement",
			})
		}
	}
	return body, true
}

// Label returns the `case ...`/`default` label of the rule.
func (r SwitchLabeledRule) Label() (Node, bool) {
	return r.FindChildOfKind(labelKinds)
}

// String returns a constant label; it does not depend on the rule's text.
func (r SwitchLabeledRule) String() string { return ruleLabel }

// RuleBodyKinds returns the set of statement kinds accepted as a rule body.
func RuleBodyKinds() KindSet { return ruleBodyKinds }
