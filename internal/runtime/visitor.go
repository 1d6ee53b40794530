package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/bough/internal/syntax"
)

// scriptVisitor adapts a map of Risor callbacks to syntax.Visitor. The
// "node" callback is the generic fallback. Callbacks keyed by any other
// kind name (snake_case, e.g. "block_statement") are dispatched from the
// fallback by kind.
type scriptVisitor struct {
	ctx    context.Context
	node   object.Object
	byKind map[syntax.Kind]object.Object
	err    error
}

func (v *scriptVisitor) call(fn object.Object, n syntax.Node) {
	if v.err != nil || fn == nil {
		return
	}
	if err := v.ctx.Err(); err != nil {
		v.err = err
		return
	}
	if _, err := callValue(v.ctx, fn, nodeObject(n)); err != nil {
		v.err = fmt.Errorf("visiting %s at %s: %w", n.Kind(), n.Range(), err)
	}
}

func (v *scriptVisitor) VisitNode(n syntax.Node) {
	if fn, ok := v.byKind[n.Kind()]; ok {
		v.call(fn, n)
		return
	}
	v.call(v.node, n)
}

// ruleVisitor adds the SwitchLabeledRule capability.
type ruleVisitor struct {
	*scriptVisitor
	rule object.Object
}

func (v ruleVisitor) VisitSwitchLabeledRule(r syntax.SwitchLabeledRule) {
	v.call(v.rule, r.Node)
}

// kindForKey maps a snake_case callback key to its kind.
func kindForKey(key string) (syntax.Kind, bool) {
	return syntax.KindOf(strings.ReplaceAll(key, "_", ""))
}

// newScriptVisitor builds the visitor for a callback map. Only a
// "switch_labeled_rule" key gives the visitor the rule capability; without
// it rules reach the "node" callback.
func newScriptVisitor(ctx context.Context, callbacks map[string]object.Object) (syntax.Visitor, *scriptVisitor, error) {
	sv := &scriptVisitor{ctx: ctx, byKind: make(map[syntax.Kind]object.Object)}
	var rule object.Object
	for key, fn := range callbacks {
		if _, ok := fn.(*object.Function); !ok {
			if _, ok := fn.(object.Callable); !ok {
				return nil, nil, fmt.Errorf("callback %q must be a function, got %s", key, fn.Type())
			}
		}
		if key == "node" {
			sv.node = fn
			continue
		}
		k, ok := kindForKey(key)
		if !ok {
			return nil, nil, fmt.Errorf("unknown callback key %q", key)
		}
		if k == syntax.KindSwitchLabeledRule {
			rule = fn
			continue
		}
		sv.byKind[k] = fn
	}
	if rule != nil {
		return ruleVisitor{scriptVisitor: sv, rule: rule}, sv, nil
	}
	return sv, sv, nil
}

// makeWalkFn creates the "walk" host function. It visits every node under
// root in preorder through syntax.Walk.
//
// walk(root, {"node": fn, "switch_labeled_rule": fn, ...})
func makeWalkFn() *object.Builtin {
	return object.NewBuiltin("walk", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("walk", 2, len(args))
		}
		root, errObj := nodeArg("walk", args[0])
		if errObj != nil {
			return errObj
		}
		callbacks, err := extractMap(args[1])
		if err != nil {
			return object.Errorf("walk: %v", err)
		}
		v, state, err := newScriptVisitor(ctx, callbacks)
		if err != nil {
			return object.Errorf("walk: %v", err)
		}
		syntax.Walk(root, v)
		if state.err != nil {
			return object.Errorf("walk: %v", state.err)
		}
		return object.Nil
	})
}
