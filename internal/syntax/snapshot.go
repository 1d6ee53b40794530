package syntax

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped whenever the wire layout changes.
const snapshotVersion = 1

// ErrSnapshotVersion is returned when decoding a snapshot written by an
// incompatible version.
var ErrSnapshotVersion = errors.New("syntax: unsupported snapshot version")

// Kinds are stored by name so that reordering the Kind constants does not
// invalidate snapshots already on disk.
type wireTree struct {
	_msgpack struct{} `msgpack:",as_array"`

	Version uint8
	Kinds   []string
	Root    uint32
	Source  []byte
	Nodes   []wireNode
	Edges   []uint32
}

type wireNode struct {
	_msgpack struct{} `msgpack:",as_array"`

	Kind   uint16 // index into wireTree.Kinds
	Parent uint32
	Index  uint32
	First  uint32
	Count  uint32
	Range  [6]uint32 // start byte, end byte, start row, start col, end row, end col
}

// EncodeSnapshot serializes t into a compact msgpack blob.
func EncodeSnapshot(t *Tree) ([]byte, error) {
	if t == nil {
		return nil, errors.New("syntax: encode snapshot: nil tree")
	}
	w := wireTree{
		Version: snapshotVersion,
		Root:    uint32(t.root),
		Source:  t.source,
		Nodes:   make([]wireNode, 0, len(t.nodes)-1),
		Edges:   make([]uint32, len(t.edges)),
	}
	kindIndex := make(map[Kind]uint16)
	for _, d := range t.nodes[1:] {
		ki, ok := kindIndex[d.kind]
		if !ok {
			ki = uint16(len(w.Kinds))
			kindIndex[d.kind] = ki
			w.Kinds = append(w.Kinds, d.kind.String())
		}
		w.Nodes = append(w.Nodes, wireNode{
			Kind:   ki,
			Parent: uint32(d.parent),
			Index:  d.index,
			First:  d.first,
			Count:  d.count,
			Range: [6]uint32{
				d.rng.StartByte, d.rng.EndByte,
				d.rng.Start.Row, d.rng.Start.Column,
				d.rng.End.Row, d.rng.End.Column,
			},
		})
	}
	for i, e := range t.edges {
		w.Edges[i] = uint32(e)
	}
	b, err := msgpack.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("syntax: encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot restores a tree written by EncodeSnapshot. The result is
// checked with Verify before it is returned.
func DecodeSnapshot(data []byte) (*Tree, error) {
	var w wireTree
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("syntax: decode snapshot: %w", err)
	}
	if w.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, w.Version)
	}
	kinds := make([]Kind, len(w.Kinds))
	for i, name := range w.Kinds {
		k, ok := KindOf(name)
		if !ok {
			return nil, fmt.Errorf("syntax: decode snapshot: unknown kind %q", name)
		}
		kinds[i] = k
	}
	t := &Tree{
		nodes:  make([]nodeData, 1, len(w.Nodes)+1),
		edges:  make([]NodeID, len(w.Edges)),
		root:   NodeID(w.Root),
		source: w.Source,
	}
	for i, n := range w.Nodes {
		if int(n.Kind) >= len(kinds) {
			return nil, fmt.Errorf("syntax: decode snapshot: node %d: kind index %d out of range", i+1, n.Kind)
		}
		t.nodes = append(t.nodes, nodeData{
			kind:   kinds[n.Kind],
			parent: NodeID(n.Parent),
			index:  n.Index,
			first:  n.First,
			count:  n.Count,
			rng: Range{
				StartByte: n.Range[0],
				EndByte:   n.Range[1],
				Start:     Point{Row: n.Range[2], Column: n.Range[3]},
				End:       Point{Row: n.Range[4], Column: n.Range[5]},
			},
		})
	}
	for i, e := range w.Edges {
		if e == 0 || int(e) >= len(t.nodes) {
			return nil, fmt.Errorf("syntax: decode snapshot: edge %d points at node %d", i, e)
		}
		t.edges[i] = NodeID(e)
	}
	if err := Verify(t); err != nil {
		return nil, fmt.Errorf("syntax: decode snapshot: %w", err)
	}
	return t, nil
}
