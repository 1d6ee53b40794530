package syntax

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// Replace returns a new tree in which the subtree at anchor is swapped for
// sub. The source text of the result is the old text with anchor's span
// replaced by sub's full source; byte offsets after the span are shifted and
// row/column positions are recomputed. The original tree is untouched, so
// readers holding it keep a consistent view.
func Replace(anchor Node, sub *Tree) (*Tree, error) {
	if !anchor.Valid() {
		return nil, errors.New("syntax: replace: invalid anchor")
	}
	if sub == nil || !sub.root.IsValid() {
		return nil, errors.New("syntax: replace: empty substitute tree")
	}
	old := anchor.tree
	span := anchor.Range()
	if int(span.EndByte) > len(old.source) || span.StartByte > span.EndByte {
		return nil, fmt.Errorf("syntax: replace: anchor range %s outside source", span)
	}

	src := make([]byte, 0, len(old.source)-int(span.EndByte-span.StartByte)+len(sub.source))
	src = append(src, old.source[:span.StartByte]...)
	src = append(src, sub.source...)
	src = append(src, old.source[span.EndByte:]...)
	if _, err := safecast.Conv[uint32](len(src)); err != nil {
		return nil, fmt.Errorf("syntax: replace: source too large: %w", err)
	}

	b := NewBuilder(src, old.Len()+sub.Len())
	b.lines = lineStarts(src)
	r := &rebuilder{
		b:      b,
		lines:  b.lines,
		anchor: anchor,
		sub:    sub,
		base:   span.StartByte,
		delta:  int64(len(sub.source)) - int64(span.EndByte-span.StartByte),
	}
	root := r.copyOld(old.Root())
	t, err := r.b.Finish(root)
	if err != nil {
		return nil, fmt.Errorf("syntax: replace: %w", err)
	}
	if err := Verify(t); err != nil {
		return nil, fmt.Errorf("syntax: replace: %w", err)
	}
	return t, nil
}

// rebuilder copies the old tree in document order. Nodes copied before the
// anchor keep their offsets, ancestors of the anchor stretch by delta at the
// end, and nodes after the anchor move by delta.
type rebuilder struct {
	b      *Builder
	lines  []uint32
	anchor Node
	sub    *Tree
	base   uint32
	delta  int64
	passed bool
}

func (r *rebuilder) shift(off uint32) uint32 { return uint32(int64(off) + r.delta) }

func (r *rebuilder) rangeOf(startByte, endByte uint32) Range {
	return Range{
		StartByte: startByte,
		EndByte:   endByte,
		Start:     pointAt(r.lines, startByte),
		End:       pointAt(r.lines, endByte),
	}
}

func (r *rebuilder) copyOld(n Node) NodeID {
	if n.id == r.anchor.id {
		id := r.copySub(r.sub.Root())
		r.passed = true
		return id
	}
	d := n.data()
	start, end := d.rng.StartByte, d.rng.EndByte
	switch {
	case r.passed:
		start, end = r.shift(start), r.shift(end)
	case n.IsAncestorOf(r.anchor):
		end = r.shift(end)
	}
	children := make([]NodeID, d.count)
	for i := range children {
		children[i] = r.copyOld(n.Child(i))
	}
	if len(children) == 0 {
		return r.b.Leaf(d.kind, r.rangeOf(start, end))
	}
	return r.b.Node(d.kind, r.rangeOf(start, end), children...)
}

func (r *rebuilder) copySub(n Node) NodeID {
	d := n.data()
	children := make([]NodeID, d.count)
	for i := range children {
		children[i] = r.copySub(n.Child(i))
	}
	rng := r.rangeOf(d.rng.StartByte+r.base, d.rng.EndByte+r.base)
	if len(children) == 0 {
		return r.b.Leaf(d.kind, rng)
	}
	return r.b.Node(d.kind, rng, children...)
}
