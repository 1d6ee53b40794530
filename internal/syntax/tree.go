// Package syntax implements the immutable syntax tree shared by the parser,
// visitors and name resolution.
//
// A Tree is an arena: every node lives in one slice and parent/child links
// are indices into it. Trees are built bottom-up by a Builder and never
// change after Finish, so any number of goroutines may read one concurrently.
// Editing means building a new tree (see Replace) and swapping it in.
package syntax

import (
	"fmt"
	"sort"
	"sync"

	"fortio.org/safecast"
)

// NodeID indexes a node inside its Tree. The zero value means "no node".
type NodeID uint32

// NoNodeID marks the absence of a node.
const NoNodeID NodeID = 0

// IsValid reports whether id refers to an allocated node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Point is a 0-based row/column position. Columns count bytes.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// Range locates a node in the tree's source.
type Range struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Start     Point  `json:"start"`
	End       Point  `json:"end"`
}

// Covers reports whether byte offset off falls inside the range. The end is
// inclusive so a cursor placed right after a token still selects it.
func (r Range) Covers(off uint32) bool {
	return r.StartByte <= off && off <= r.EndByte
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Row, r.Start.Column, r.End.Row, r.End.Column)
}

type nodeData struct {
	kind   Kind
	parent NodeID
	index  uint32 // position in parent's children
	first  uint32 // offset of the first child in Tree.edges
	count  uint32
	rng    Range
}

// Tree owns every node of one parsed unit plus its source text.
type Tree struct {
	nodes  []nodeData // index 0 is the NoNodeID sentinel
	edges  []NodeID
	root   NodeID
	source []byte

	linesOnce sync.Once
	lines     []uint32 // line start offsets, filled on first use
}

// Root returns the root node.
func (t *Tree) Root() Node { return Node{tree: t, id: t.root} }

// Len reports the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Source returns the text the tree was built from. Callers must not modify it.
func (t *Tree) Source() []byte { return t.source }

// Node returns the handle for id, or the zero Node if id is out of range.
func (t *Tree) Node(id NodeID) Node {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return Node{}
	}
	return Node{tree: t, id: id}
}

// NodeAt returns the deepest node whose range covers byte offset off.
// Leaves win over their parents; among adjacent leaves the first one in
// document order wins.
func (t *Tree) NodeAt(off uint32) Node {
	n := t.Root()
	if !n.Valid() || !n.Range().Covers(off) {
		return Node{}
	}
	for {
		next := Node{}
		for i := 0; i < n.NumChildren(); i++ {
			c := n.Child(i)
			if c.Range().Covers(off) {
				next = c
				break
			}
		}
		if !next.Valid() {
			return n
		}
		n = next
	}
}

// NodeAtPoint is NodeAt for a row/column position.
func (t *Tree) NodeAtPoint(p Point) Node {
	off, ok := t.offsetOf(p)
	if !ok {
		return Node{}
	}
	return t.NodeAt(off)
}

// lineIndex returns the tree's line start offsets. Trees from a Builder
// that computed spans reuse its table; others build it once on demand.
func (t *Tree) lineIndex() []uint32 {
	t.linesOnce.Do(func() {
		if t.lines == nil {
			t.lines = lineStarts(t.source)
		}
	})
	return t.lines
}

func (t *Tree) offsetOf(p Point) (uint32, bool) {
	lines := t.lineIndex()
	if int(p.Row) >= len(lines) {
		return 0, false
	}
	off := lines[p.Row] + p.Column
	if int(off) > len(t.source) {
		return 0, false
	}
	return off, true
}

// lineStarts returns the byte offset of the first byte of every line. Lines
// that start past the uint32 range are not addressable and are left out.
func lineStarts(src []byte) []uint32 {
	starts := []uint32{0}
	for i, b := range src {
		if b != '\n' {
			continue
		}
		off, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			break
		}
		starts = append(starts, off)
	}
	return starts
}

// pointAt converts a byte offset to a Point using precomputed line starts.
func pointAt(lines []uint32, off uint32) Point {
	row := sort.Search(len(lines), func(i int) bool { return lines[i] > off }) - 1
	if row < 0 {
		row = 0
	}
	return Point{Row: uint32(row), Column: off - lines[row]}
}

// Node is a lightweight handle to a node in a Tree. The zero value is the
// absent node; every accessor on it returns a zero result.
type Node struct {
	tree *Tree
	id   NodeID
}

// Valid reports whether n refers to a node.
func (n Node) Valid() bool { return n.tree != nil && n.id.IsValid() }

// ID returns the node's arena index.
func (n Node) ID() NodeID { return n.id }

// Tree returns the tree that owns n.
func (n Node) Tree() *Tree { return n.tree }

func (n Node) data() *nodeData {
	if !n.Valid() {
		return nil
	}
	return &n.tree.nodes[n.id]
}

// Kind returns the grammar kind, KindInvalid for the zero Node.
func (n Node) Kind() Kind {
	if d := n.data(); d != nil {
		return d.kind
	}
	return KindInvalid
}

// Parent returns the enclosing node, or the zero Node for the root.
func (n Node) Parent() Node {
	d := n.data()
	if d == nil || !d.parent.IsValid() {
		return Node{}
	}
	return Node{tree: n.tree, id: d.parent}
}

// NumChildren returns the number of direct children.
func (n Node) NumChildren() int {
	if d := n.data(); d != nil {
		return int(d.count)
	}
	return 0
}

// Child returns the i-th direct child, or the zero Node if i is out of range.
func (n Node) Child(i int) Node {
	d := n.data()
	if d == nil || i < 0 || i >= int(d.count) {
		return Node{}
	}
	return Node{tree: n.tree, id: n.tree.edges[int(d.first)+i]}
}

// Children returns the direct children in document order.
func (n Node) Children() []Node {
	d := n.data()
	if d == nil || d.count == 0 {
		return nil
	}
	out := make([]Node, d.count)
	for i, id := range n.tree.edges[d.first : d.first+d.count] {
		out[i] = Node{tree: n.tree, id: id}
	}
	return out
}

// Index returns n's position among its parent's children, or -1 for the root.
func (n Node) Index() int {
	d := n.data()
	if d == nil || !d.parent.IsValid() {
		return -1
	}
	return int(d.index)
}

// IsLeaf reports whether n has no children, i.e. is a token.
func (n Node) IsLeaf() bool { return n.Valid() && n.NumChildren() == 0 }

// Range returns the node's location in the source.
func (n Node) Range() Range {
	if d := n.data(); d != nil {
		return d.rng
	}
	return Range{}
}

// Text returns the source text spanned by n.
func (n Node) Text() string {
	d := n.data()
	if d == nil {
		return ""
	}
	src := n.tree.source
	if int(d.rng.EndByte) > len(src) || d.rng.StartByte > d.rng.EndByte {
		return ""
	}
	return string(src[d.rng.StartByte:d.rng.EndByte])
}

func (n Node) String() string { return n.Kind().String() }

// FindChildOfKind returns the first direct child whose kind is in set. It
// looks at direct children only; grandchildren are never examined.
func (n Node) FindChildOfKind(set KindSet) (Node, bool) {
	d := n.data()
	if d == nil {
		return Node{}, false
	}
	for _, id := range n.tree.edges[d.first : d.first+d.count] {
		if set.Contains(n.tree.nodes[id].kind) {
			return Node{tree: n.tree, id: id}, true
		}
	}
	return Node{}, false
}

// FindChildrenOfKind returns every direct child whose kind is in set.
func (n Node) FindChildrenOfKind(set KindSet) []Node {
	var out []Node
	for i := 0; i < n.NumChildren(); i++ {
		if c := n.Child(i); set.Contains(c.Kind()) {
			out = append(out, c)
		}
	}
	return out
}

// IsAncestorOf reports whether n strictly encloses m.
func (n Node) IsAncestorOf(m Node) bool {
	if !n.Valid() || m.tree != n.tree {
		return false
	}
	for p := m.Parent(); p.Valid(); p = p.Parent() {
		if p.id == n.id {
			return true
		}
	}
	return false
}

// Inspect walks the subtree rooted at n in preorder. When fn returns false
// the children of that node are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if !n.Valid() || !fn(n) {
		return
	}
	for i := 0; i < n.NumChildren(); i++ {
		Inspect(n.Child(i), fn)
	}
}
