package resolve

import (
	"github.com/jward/bough/internal/syntax"
)

// scope is one ProcessDeclarations call: the node being asked, the child the
// walk came up from (invalid when the node is the origin itself) and the
// origin of the walk.
type scope struct {
	node, last, origin syntax.Node
	proc               Processor
	state              State
	stopped            bool
}

func (s *scope) offer(decls []Declaration) {
	for _, d := range decls {
		if s.stopped {
			return
		}
		if s.proc.Execute(d, s.state) == Stop {
			s.stopped = true
		}
	}
}

func (s *scope) ascending() bool { return s.last.Valid() }

// before reports whether child c precedes the child the walk came from.
func (s *scope) before(c syntax.Node) bool {
	return s.ascending() && c.Index() < s.last.Index()
}

type scopeHandler func(s *scope)

// handlers maps each scope-introducing kind to the declarations it exposes.
// Kinds without an entry contribute nothing.
var handlers = map[syntax.Kind]scopeHandler{
	syntax.KindCompilationUnit:           compilationUnitScope,
	syntax.KindClassBody:                 classBodyScope,
	syntax.KindClassDeclaration:          typeDeclarationScope,
	syntax.KindInterfaceDeclaration:      typeDeclarationScope,
	syntax.KindEnumDeclaration:           typeDeclarationScope,
	syntax.KindRecordDeclaration:         typeDeclarationScope,
	syntax.KindMethodDeclaration:         methodScope,
	syntax.KindConstructorDeclaration:    methodScope,
	syntax.KindBlockStatement:            blockScope,
	syntax.KindSwitchBlockStatementGroup: blockScope,
	syntax.KindLocalVariableDeclaration:  localDeclarationScope,
	syntax.KindForStatement:              forScope,
	syntax.KindEnhancedForStatement:      enhancedForScope,
	syntax.KindCatchClause:               catchScope,
	syntax.KindTryStatement:              tryScope,
	syntax.KindResourceSpecification:     resourceScope,
	syntax.KindLambdaExpression:          lambdaScope,
	syntax.KindIfStatement:               ifScope,
	syntax.KindWhileStatement:            whileScope,
	syntax.KindBinaryExpression:          conditionalScope,
	syntax.KindTernaryExpression:         ternaryScope,
	syntax.KindSwitchLabeledRule:         switchRuleScope,
}

// IsScope reports whether nodes of kind k can make declarations visible.
func IsScope(k syntax.Kind) bool {
	_, ok := handlers[k]
	return ok
}

// ProcessDeclarations offers proc the declarations node makes visible to a
// walk coming up from lastVisited (the zero Node when node is the origin).
// It returns Stop as soon as proc does.
func ProcessDeclarations(node syntax.Node, proc Processor, state State, lastVisited, origin syntax.Node) Step {
	h, ok := handlers[node.Kind()]
	if !ok {
		return Continue
	}
	s := &scope{node: node, last: lastVisited, origin: origin, proc: proc, state: state}
	h(s)
	if s.stopped {
		return Stop
	}
	return Continue
}

func compilationUnitScope(s *scope) {
	for _, c := range s.node.FindChildrenOfKind(typeDeclKinds) {
		s.offer(declaredBy(c))
	}
}

// classBodyScope exposes every member regardless of position: fields and
// methods are visible throughout the body that declares them.
func classBodyScope(s *scope) {
	for _, c := range s.node.Children() {
		switch k := c.Kind(); {
		case typeDeclKinds.Contains(k), k == syntax.KindMethodDeclaration:
			s.offer(declaredBy(c))
		case k == syntax.KindFieldDeclaration:
			s.offer(declaredBy(c))
			s.offer(declaratorsOf(c, c.NumChildren()))
		}
	}
}

func typeParameters(n syntax.Node) []Declaration {
	var out []Declaration
	for _, tps := range n.FindChildrenOfKind(syntax.NewKindSet(syntax.KindTypeParameters)) {
		for _, tp := range tps.FindChildrenOfKind(syntax.NewKindSet(syntax.KindTypeParameter)) {
			out = append(out, declaredBy(tp)...)
		}
	}
	return out
}

func formalParameters(n syntax.Node) []Declaration {
	var out []Declaration
	for _, fps := range n.FindChildrenOfKind(syntax.NewKindSet(syntax.KindFormalParameters)) {
		for _, fp := range fps.FindChildrenOfKind(syntax.NewKindSet(syntax.KindFormalParameter)) {
			out = append(out, declaredBy(fp)...)
		}
	}
	return out
}

func typeDeclarationScope(s *scope) {
	if !s.ascending() {
		return
	}
	s.offer(typeParameters(s.node))
	if s.node.Kind() == syntax.KindRecordDeclaration {
		s.offer(formalParameters(s.node))
	}
}

func methodScope(s *scope) {
	if !s.ascending() {
		return
	}
	s.offer(formalParameters(s.node))
	s.offer(typeParameters(s.node))
}

// blockScope exposes locals and local classes declared by statements that
// precede the one the walk came from. In an old-style switch group the
// group's own case labels also bind pattern variables.
func blockScope(s *scope) {
	if !s.ascending() {
		return
	}
	for i := s.last.Index() - 1; i >= 0; i-- {
		c := s.node.Child(i)
		switch k := c.Kind(); {
		case k == syntax.KindLocalVariableDeclaration:
			s.offer(declaratorsOf(c, c.NumChildren()))
		case typeDeclKinds.Contains(k):
			s.offer(declaredBy(c))
		case k == syntax.KindSwitchLabel:
			s.offer(patternBindings(c))
			s.offer(guardBindings(c))
		}
	}
}

// localDeclarationScope lets a declarator's initializer see the declarators
// up to and including itself: `int a = 1, b = a;`.
func localDeclarationScope(s *scope) {
	if s.last.Kind() != syntax.KindVariableDeclarator {
		return
	}
	s.offer(declaratorsOf(s.node, s.last.Index()))
}

func forScope(s *scope) {
	if !s.ascending() {
		return
	}
	for _, c := range s.node.FindChildrenOfKind(syntax.NewKindSet(syntax.KindLocalVariableDeclaration)) {
		if c.ID() == s.last.ID() {
			continue
		}
		s.offer(declaratorsOf(c, c.NumChildren()))
	}
}

// fromLastChild reports whether the walk came up from the node's final
// child, which for loops and lambdas is the body.
func (s *scope) fromLastChild() bool {
	return s.ascending() && s.last.Index() == s.node.NumChildren()-1
}

func enhancedForScope(s *scope) {
	if s.fromLastChild() {
		s.offer(declaredBy(s.node))
	}
}

func catchScope(s *scope) {
	if !s.ascending() || s.last.Kind() == syntax.KindCatchFormalParameter {
		return
	}
	if p, ok := s.node.FindChildOfKind(syntax.NewKindSet(syntax.KindCatchFormalParameter)); ok {
		s.offer(declaredBy(p))
	}
}

func tryScope(s *scope) {
	if !s.ascending() {
		return
	}
	// Resources are in scope for the try body only, not for catch or
	// finally clauses.
	body, ok := s.node.FindChildOfKind(syntax.NewKindSet(syntax.KindBlockStatement))
	if !ok || body.ID() != s.last.ID() {
		return
	}
	if spec, ok := s.node.FindChildOfKind(syntax.NewKindSet(syntax.KindResourceSpecification)); ok {
		for _, r := range spec.FindChildrenOfKind(syntax.NewKindSet(syntax.KindResource)) {
			s.offer(declaredBy(r))
		}
	}
}

func resourceScope(s *scope) {
	for _, r := range s.node.FindChildrenOfKind(syntax.NewKindSet(syntax.KindResource)) {
		if s.before(r) {
			s.offer(declaredBy(r))
		}
	}
}

func lambdaScope(s *scope) {
	if !s.fromLastChild() {
		return
	}
	s.offer(declaredBy(s.node))
	if inf, ok := s.node.FindChildOfKind(syntax.NewKindSet(syntax.KindInferredParameters)); ok {
		s.offer(declaredBy(inf))
	}
	s.offer(formalParameters(s.node))
}

// ifScope exposes the condition's pattern variables to the branch in which
// they are definitely bound: `if (o instanceof T t)` binds t in the
// then-branch, `if (!(o instanceof T t))` binds it in the else-branch.
func ifScope(s *scope) {
	if !s.ascending() {
		return
	}
	ops := operands(s.node)
	if len(ops) < 2 {
		return
	}
	switch s.last.ID() {
	case ops[1].ID():
		s.offer(conditionBindings(ops[0], true))
	case ops[len(ops)-1].ID():
		if len(ops) > 2 {
			s.offer(conditionBindings(ops[0], false))
		}
	}
}

// whileScope binds the condition's pattern variables in the body of a while
// loop. A do loop's body precedes its condition and sees nothing.
func whileScope(s *scope) {
	if !s.ascending() {
		return
	}
	ops := operands(s.node)
	if len(ops) == 2 && s.last.ID() == ops[1].ID() && ops[0].Index() < ops[1].Index() {
		s.offer(conditionBindings(ops[0], true))
	}
}

// conditionalScope lets the right operand of && see what the left binds
// when true, and the right operand of || see what it binds when false.
func conditionalScope(s *scope) {
	ops := operands(s.node)
	if !s.ascending() || len(ops) != 2 || s.last.ID() != ops[1].ID() {
		return
	}
	switch operator(s.node) {
	case "&&":
		s.offer(conditionBindings(ops[0], true))
	case "||":
		s.offer(conditionBindings(ops[0], false))
	}
}

func ternaryScope(s *scope) {
	ops := operands(s.node)
	if !s.ascending() || len(ops) != 3 {
		return
	}
	switch s.last.ID() {
	case ops[1].ID():
		s.offer(conditionBindings(ops[0], true))
	case ops[2].ID():
		s.offer(conditionBindings(ops[0], false))
	}
}

// switchRuleScope is the scope boundary of a `case ... ->` rule. Asked about
// itself (no child visited) it contributes nothing; asked on the way up
// from its label or body it exposes the label's pattern bindings, and the
// body also sees what the label's guard binds. The enclosing switch block
// has no handler, so the bindings never reach sibling rules or code after
// the switch.
func switchRuleScope(s *scope) {
	if !s.ascending() {
		return
	}
	rule, _ := syntax.AsSwitchLabeledRule(s.node)
	if label, ok := rule.Label(); ok {
		s.offer(patternBindings(label))
		if s.last.ID() != label.ID() {
			s.offer(guardBindings(label))
		}
	}
}
