package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/bough/internal/javaparse"
	"github.com/jward/bough/internal/resolve"
	"github.com/jward/bough/internal/syntax"
)

// NodeHandle is the value scripts hold for a syntax node. It is opaque to
// scripts apart from a few read-only accessors; everything else goes
// through host functions.
type NodeHandle struct {
	node syntax.Node
}

// NewNodeHandle wraps n for use as a script global.
func NewNodeHandle(n syntax.Node) *NodeHandle { return &NodeHandle{node: n} }

func (h *NodeHandle) Kind() string { return h.node.Kind().String() }

func (h *NodeHandle) Text() string { return h.node.Text() }

// Line is the zero-based start row.
func (h *NodeHandle) Line() int { return int(h.node.Range().Start.Row) }

// Column is the zero-based start column in bytes.
func (h *NodeHandle) Column() int { return int(h.node.Range().Start.Column) }

func (h *NodeHandle) NumChildren() int { return h.node.NumChildren() }

// nodeObject wraps n as a Risor value, or Risor nil for an invalid node.
func nodeObject(n syntax.Node) object.Object {
	if !n.Valid() {
		return object.Nil
	}
	p, err := object.NewProxy(NewNodeHandle(n))
	if err != nil {
		return object.Errorf("proxy error: %v", err)
	}
	return p
}

// nodeArg unwraps a node argument.
func nodeArg(fn string, obj object.Object) (syntax.Node, *object.Error) {
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return syntax.Node{}, object.Errorf("%s: expected node, got %s", fn, obj.Type())
	}
	h, ok := proxy.Interface().(*NodeHandle)
	if !ok || !h.node.Valid() {
		return syntax.Node{}, object.Errorf("%s: expected node, got %T", fn, proxy.Interface())
	}
	return h.node, nil
}

// unaryNodeFn builds a host function taking exactly one node.
func unaryNodeFn(name string, fn func(ctx context.Context, n syntax.Node) object.Object) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		n, errObj := nodeArg(name, args[0])
		if errObj != nil {
			return errObj
		}
		return fn(ctx, n)
	})
}

// makeParseJavaFn creates the "parse_java" host function.
//
// parse_java(source[, path]) → root node
func makeParseJavaFn(p *javaparse.Parser) *object.Builtin {
	return object.NewBuiltin("parse_java", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("parse_java: expected 1 or 2 arguments, got %d", len(args))
		}
		src, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("parse_java: source must be a string, got %s", args[0].Type())
		}
		path := "<script>"
		if len(args) == 2 {
			ps, ok := args[1].(*object.String)
			if !ok {
				return object.Errorf("parse_java: path must be a string, got %s", args[1].Type())
			}
			path = ps.Value()
		}
		tree, err := p.Parse(ctx, []byte(src.Value()), path)
		if err != nil {
			return object.Errorf("parse_java: %v", err)
		}
		return nodeObject(tree.Root())
	})
}

// node_kind(node) → string
func makeNodeKindFn() *object.Builtin {
	return unaryNodeFn("node_kind", func(_ context.Context, n syntax.Node) object.Object {
		return object.NewString(n.Kind().String())
	})
}

// node_text(node) → string
func makeNodeTextFn() *object.Builtin {
	return unaryNodeFn("node_text", func(_ context.Context, n syntax.Node) object.Object {
		return object.NewString(n.Text())
	})
}

// node_range(node) → {start_line, start_col, end_line, end_col, start_byte, end_byte}
func makeNodeRangeFn() *object.Builtin {
	return unaryNodeFn("node_range", func(_ context.Context, n syntax.Node) object.Object {
		return rangeObject(n.Range())
	})
}

func rangeObject(r syntax.Range) object.Object {
	return object.NewMap(map[string]object.Object{
		"start_line": object.NewInt(int64(r.Start.Row)),
		"start_col":  object.NewInt(int64(r.Start.Column)),
		"end_line":   object.NewInt(int64(r.End.Row)),
		"end_col":    object.NewInt(int64(r.End.Column)),
		"start_byte": object.NewInt(int64(r.StartByte)),
		"end_byte":   object.NewInt(int64(r.EndByte)),
	})
}

// node_children(node) → [node]
func makeNodeChildrenFn() *object.Builtin {
	return unaryNodeFn("node_children", func(_ context.Context, n syntax.Node) object.Object {
		children := n.Children()
		out := make([]object.Object, len(children))
		for i, c := range children {
			out[i] = nodeObject(c)
		}
		return object.NewList(out)
	})
}

// node_parent(node) → node or nil
func makeNodeParentFn() *object.Builtin {
	return unaryNodeFn("node_parent", func(_ context.Context, n syntax.Node) object.Object {
		return nodeObject(n.Parent())
	})
}

// kindSetArg accepts a kind name or a list of kind names.
func kindSetArg(fn string, obj object.Object) (syntax.KindSet, *object.Error) {
	var names []string
	switch v := obj.(type) {
	case *object.String:
		names = []string{v.Value()}
	case *object.List:
		for _, item := range v.Value() {
			s, ok := item.(*object.String)
			if !ok {
				return syntax.KindSet{}, object.Errorf("%s: kind names must be strings, got %s", fn, item.Type())
			}
			names = append(names, s.Value())
		}
	default:
		return syntax.KindSet{}, object.Errorf("%s: kinds must be a string or list, got %s", fn, obj.Type())
	}
	kinds := make([]syntax.Kind, 0, len(names))
	for _, name := range names {
		k, ok := syntax.KindOf(name)
		if !ok {
			return syntax.KindSet{}, object.Errorf("%s: unknown kind %q", fn, name)
		}
		kinds = append(kinds, k)
	}
	return syntax.NewKindSet(kinds...), nil
}

// makeFindChildFn creates "find_child": the first direct child whose kind
// is in the given set.
//
// find_child(node, kind | [kind]) → node or nil
func makeFindChildFn() *object.Builtin {
	return object.NewBuiltin("find_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("find_child", 2, len(args))
		}
		n, errObj := nodeArg("find_child", args[0])
		if errObj != nil {
			return errObj
		}
		set, errObj := kindSetArg("find_child", args[1])
		if errObj != nil {
			return errObj
		}
		c, ok := n.FindChildOfKind(set)
		if !ok {
			return object.Nil
		}
		return nodeObject(c)
	})
}

func ruleArg(fn string, n syntax.Node) (syntax.SwitchLabeledRule, *object.Error) {
	r, ok := syntax.AsSwitchLabeledRule(n)
	if !ok {
		return r, object.Errorf("%s: expected %s, got %s", fn, syntax.KindSwitchLabeledRule, n.Kind())
	}
	return r, nil
}

// rule_body(rule) → node or nil
func makeRuleBodyFn() *object.Builtin {
	return unaryNodeFn("rule_body", func(_ context.Context, n syntax.Node) (result object.Object) {
		r, errObj := ruleArg("rule_body", n)
		if errObj != nil {
			return errObj
		}
		defer func() {
			if p := recover(); p != nil {
				result = object.Errorf("rule_body: %v", p)
			}
		}()
		body, ok := r.Body()
		if !ok {
			return object.Nil
		}
		return nodeObject(body)
	})
}

// rule_label(rule) → node or nil
func makeRuleLabelFn() *object.Builtin {
	return unaryNodeFn("rule_label", func(_ context.Context, n syntax.Node) object.Object {
		r, errObj := ruleArg("rule_label", n)
		if errObj != nil {
			return errObj
		}
		label, ok := r.Label()
		if !ok {
			return object.Nil
		}
		return nodeObject(label)
	})
}

func declarationObject(d resolve.Declaration) object.Object {
	r := d.Node.Range()
	return object.NewMap(map[string]object.Object{
		"name":  object.NewString(d.Name),
		"kind":  object.NewString(d.Kind.String()),
		"node":  nodeObject(d.Node),
		"owner": nodeObject(d.Owner),
		"line":  object.NewInt(int64(r.Start.Row)),
		"col":   object.NewInt(int64(r.Start.Column)),
	})
}

// makeVisibleFn creates "visible": every declaration in scope at a node,
// innermost first.
//
// visible(node) → [{name, kind, node, owner, line, col}]
func makeVisibleFn() *object.Builtin {
	return unaryNodeFn("visible", func(ctx context.Context, n syntax.Node) object.Object {
		decls, err := resolve.Visible(ctx, n)
		if err != nil {
			return object.Errorf("visible: %v", err)
		}
		out := make([]object.Object, len(decls))
		for i, d := range decls {
			out[i] = declarationObject(d)
		}
		return object.NewList(out)
	})
}

// resolve(identifier) → declaration map or nil
func makeResolveFn() *object.Builtin {
	return unaryNodeFn("resolve", func(ctx context.Context, n syntax.Node) object.Object {
		if n.Kind() != syntax.KindIdentifier {
			return object.Errorf("resolve: expected %s, got %s", syntax.KindIdentifier, n.Kind())
		}
		d, ok, err := resolve.Resolve(ctx, n)
		if err != nil {
			return object.Errorf("resolve: %v", err)
		}
		if !ok {
			return object.Nil
		}
		return declarationObject(d)
	})
}

// callValue invokes a Risor function or builtin from Go.
func callValue(ctx context.Context, fn object.Object, args ...object.Object) (object.Object, error) {
	switch f := fn.(type) {
	case *object.Function:
		call, ok := object.GetCallFunc(ctx)
		if !ok {
			return nil, fmt.Errorf("no call function in context")
		}
		return call(ctx, f, args)
	case object.Callable:
		res := f.Call(ctx, args...)
		if e, ok := res.(*object.Error); ok {
			return nil, e.Value()
		}
		return res, nil
	}
	return nil, fmt.Errorf("expected function, got %s", fn.Type())
}
