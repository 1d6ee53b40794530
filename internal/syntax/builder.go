package syntax

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// Builder assembles a Tree bottom-up: leaves first, then each interior node
// with its finished children. A child can be attached to exactly one parent.
type Builder struct {
	nodes  []nodeData
	edges  []NodeID
	source []byte
	lines  []uint32
	done   bool
}

// NewBuilder returns a Builder for a tree over src. capHint sizes the node
// arena; zero is allowed.
func NewBuilder(src []byte, capHint int) *Builder {
	if capHint <= 0 {
		capHint = 64
	}
	nodes := make([]nodeData, 1, capHint+1) // index 0 reserved for NoNodeID
	return &Builder{
		nodes:  nodes,
		edges:  make([]NodeID, 0, capHint),
		source: src,
	}
}

func (b *Builder) alloc(d nodeData) NodeID {
	if b.done {
		panic("syntax: builder used after Finish")
	}
	value, err := safecast.Conv[uint32](len(b.nodes))
	if err != nil {
		panic(fmt.Errorf("syntax: node arena overflow: %w", err))
	}
	b.nodes = append(b.nodes, d)
	return NodeID(value)
}

// Leaf adds a childless node.
func (b *Builder) Leaf(kind Kind, rng Range) NodeID {
	return b.alloc(nodeData{kind: kind, rng: rng})
}

// Node adds an interior node owning children, in order. A zero rng is
// replaced by the span from the first to the last child.
func (b *Builder) Node(kind Kind, rng Range, children ...NodeID) NodeID {
	first, err := safecast.Conv[uint32](len(b.edges))
	if err != nil {
		panic(fmt.Errorf("syntax: edge arena overflow: %w", err))
	}
	for i, c := range children {
		if !c.IsValid() || int(c) >= len(b.nodes) {
			panic(fmt.Sprintf("syntax: child %d of %s is not a node of this builder", i, kind))
		}
		if b.nodes[c].parent.IsValid() {
			panic(fmt.Sprintf("syntax: node %d already has a parent", c))
		}
	}
	if rng == (Range{}) && len(children) > 0 {
		rng = Range{
			StartByte: b.nodes[children[0]].rng.StartByte,
			Start:     b.nodes[children[0]].rng.Start,
			EndByte:   b.nodes[children[len(children)-1]].rng.EndByte,
			End:       b.nodes[children[len(children)-1]].rng.End,
		}
	}
	id := b.alloc(nodeData{kind: kind, rng: rng, first: first, count: uint32(len(children))})
	for i, c := range children {
		b.nodes[c].parent = id
		b.nodes[c].index = uint32(i)
	}
	b.edges = append(b.edges, children...)
	return id
}

// Finish seals the builder and returns the tree rooted at root. Every other
// node must have been attached under root.
func (b *Builder) Finish(root NodeID) (*Tree, error) {
	if b.done {
		return nil, errors.New("syntax: Finish called twice")
	}
	if !root.IsValid() || int(root) >= len(b.nodes) {
		return nil, fmt.Errorf("syntax: invalid root %d", root)
	}
	if b.nodes[root].parent.IsValid() {
		return nil, fmt.Errorf("syntax: root %d has a parent", root)
	}
	for id := 1; id < len(b.nodes); id++ {
		if NodeID(id) != root && !b.nodes[id].parent.IsValid() {
			return nil, fmt.Errorf("syntax: node %d (%s) is not attached to the tree", id, b.nodes[id].kind)
		}
	}
	b.done = true
	return &Tree{nodes: b.nodes, edges: b.edges, root: root, source: b.source, lines: b.lines}, nil
}

// Len reports how many nodes have been added so far.
func (b *Builder) Len() int { return len(b.nodes) - 1 }

// Span returns the Range of source bytes [start, end), computing row and
// column positions from the builder's source.
func (b *Builder) Span(start, end int) Range {
	if b.lines == nil {
		b.lines = lineStarts(b.source)
	}
	s, e := clampOffset(start, len(b.source)), clampOffset(end, len(b.source))
	return Range{
		StartByte: s,
		EndByte:   e,
		Start:     pointAt(b.lines, s),
		End:       pointAt(b.lines, e),
	}
}

func clampOffset(off, limit int) uint32 {
	if off < 0 {
		off = 0
	}
	if off > limit {
		off = limit
	}
	v, err := safecast.Conv[uint32](off)
	if err != nil {
		return 0
	}
	return v
}
