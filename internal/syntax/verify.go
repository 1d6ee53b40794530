package syntax

import (
	"errors"
	"fmt"
)

// ErrInvariant is matched (via errors.Is) by every *InvariantError.
var ErrInvariant = errors.New("syntax tree invariant violated")

// InvariantError reports a structural fault in a tree. It means the producer
// of the tree (normally the parser) is broken, not that the source is wrong.
type InvariantError struct {
	Node   NodeID
	Kind   Kind
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("syntax: node %d (%s): %s", e.Node, e.Kind, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// Verify checks the structural invariants of t: every node but the root has
// a parent listing it at its recorded index, every listed child names the
// listing node as its parent at that index, every node is reachable from the
// root, kinds are registered, and every switch rule has at most one body
// statement.
func Verify(t *Tree) error {
	if t == nil || !t.root.IsValid() || int(t.root) >= len(t.nodes) {
		return &InvariantError{Reason: "tree has no root"}
	}
	if t.nodes[t.root].parent.IsValid() {
		return &InvariantError{Node: t.root, Kind: t.nodes[t.root].kind, Reason: "root has a parent"}
	}
	for i := 1; i < len(t.nodes); i++ {
		id := NodeID(i)
		d := &t.nodes[i]
		if d.kind >= kindCount {
			return &InvariantError{Node: id, Kind: d.kind, Reason: "unregistered kind"}
		}
		if int(d.first)+int(d.count) > len(t.edges) {
			return &InvariantError{Node: id, Kind: d.kind, Reason: "children out of range"}
		}
		if id == t.root {
			continue
		}
		if !d.parent.IsValid() || int(d.parent) >= len(t.nodes) {
			return &InvariantError{Node: id, Kind: d.kind, Reason: "detached node"}
		}
		p := &t.nodes[d.parent]
		if d.index >= p.count || t.edges[p.first+d.index] != id {
			return &InvariantError{Node: id, Kind: d.kind, Reason: "parent does not list node at its index"}
		}
	}
	for i := 1; i < len(t.nodes); i++ {
		id := NodeID(i)
		d := &t.nodes[i]
		for j := uint32(0); j < d.count; j++ {
			c := t.edges[d.first+j]
			if !c.IsValid() || int(c) >= len(t.nodes) || t.nodes[c].parent != id || t.nodes[c].index != j {
				return &InvariantError{Node: id, Kind: d.kind, Reason: "child does not name node as its parent"}
			}
		}
	}
	// Each node now sits in exactly one child slot, so the walk from the root
	// visits a node at most once. Anything it misses hangs off a cycle.
	reached := 0
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		d := &t.nodes[id]
		stack = append(stack, t.edges[d.first:d.first+d.count]...)
	}
	if reached != len(t.nodes)-1 {
		return &InvariantError{Node: t.root, Kind: t.nodes[t.root].kind, Reason: "nodes unreachable from the root"}
	}
	for i := 1; i < len(t.nodes); i++ {
		if t.nodes[i].kind != KindSwitchLabeledRule {
			continue
		}
		if n := len(t.Node(NodeID(i)).FindChildrenOfKind(ruleBodyKinds)); n > 1 {
			return &InvariantError{
				Node:   NodeID(i),
				Kind:   KindSwitchLabeledRule,
				Reason: fmt.Sprintf("%d body statements, want at most 1", n),
			}
		}
	}
	return nil
}
