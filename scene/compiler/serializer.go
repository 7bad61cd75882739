package compiler

import (
	"math"
)

// One serialized node occupies nine float cells: two child ordinals and a
// triangle base index carried as int32 bit patterns, then the box bounds.
const bvhNodeFloats = 9

// The flattened tree plus the leaf-visit triangle order. The triangle,
// normal, uv and material buffers must all follow TriOrder so that the leaf
// base indices stay valid.
type SerializedBVH struct {
	Cells    []float32
	TriOrder []int
	Nodes    int
}

// Flatten the tree into preorder records. The root lands at ordinal zero and
// every subtree occupies a contiguous ordinal range, which lets the consumer
// walk the tree with nothing but the two child ordinals.
func SerializeBVH(root *Node) *SerializedBVH {
	s := &SerializedBVH{}
	s.emit(root)
	return s
}

func (s *SerializedBVH) emit(n *Node) int {
	ordinal := s.Nodes
	s.Nodes++

	base := len(s.Cells)
	s.Cells = append(s.Cells, make([]float32, bvhNodeFloats)...)

	left, right, triBase := -1, -1, -1
	if n.IsLeaf() {
		triBase = len(s.TriOrder)
		s.TriOrder = append(s.TriOrder, n.Triangles...)
	} else {
		left = s.emit(n.Left)
		right = s.emit(n.Right)
	}

	s.Cells[base+0] = intBits(left)
	s.Cells[base+1] = intBits(right)
	s.Cells[base+2] = intBits(triBase)
	copy(s.Cells[base+3:base+6], n.Box.Min[:])
	copy(s.Cells[base+6:base+9], n.Box.Max[:])

	return ordinal
}

// Preserve the int32 bit pattern inside a float cell. A numeric conversion
// would round large ordinals and lose the -1 sentinel encoding the sampler
// relies on.
func intBits(v int) float32 {
	return math.Float32frombits(uint32(int32(v)))
}

// Recover the int32 carried by a bit-preserved float cell.
func bitsInt(v float32) int {
	return int(int32(math.Float32bits(v)))
}
