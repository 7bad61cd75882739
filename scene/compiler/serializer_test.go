package compiler

import (
	"math"
	"testing"

	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

// Walk the serialized cells and verify the preorder layout: a node's left
// child immediately follows it and the right child follows the whole left
// subtree. Returns the subtree size in nodes.
func checkPreorder(t *testing.T, s *SerializedBVH, ordinal int) int {
	t.Helper()

	base := ordinal * bvhNodeFloats
	left := bitsInt(s.Cells[base+0])
	right := bitsInt(s.Cells[base+1])
	triBase := bitsInt(s.Cells[base+2])

	if left == -1 {
		if right != -1 {
			t.Fatalf("node %d: left is -1 but right is %d", ordinal, right)
		}
		if triBase < 0 || triBase > len(s.TriOrder) {
			t.Fatalf("node %d: leaf base %d out of range", ordinal, triBase)
		}
		return 1
	}

	if triBase != -1 {
		t.Fatalf("node %d: internal node carries triangle base %d", ordinal, triBase)
	}
	if left != ordinal+1 {
		t.Fatalf("node %d: expected left child at %d; got %d", ordinal, ordinal+1, left)
	}
	leftSize := checkPreorder(t, s, left)
	if right != left+leftSize {
		t.Fatalf("node %d: expected right child at %d; got %d", ordinal, left+leftSize, right)
	}
	rightSize := checkPreorder(t, s, right)
	return 1 + leftSize + rightSize
}

func TestSerializePreorder(t *testing.T) {
	centroids := []types.Vec3{
		{2, 0, 0}, {-2, 0, 0},
		{0, 2, 0}, {0, -2, 0},
		{0, 0, 2}, {0, 0, -2},
		{4, 0, 0}, {-4, 0, 0},
	}
	triangles := make([]*scene.Triangle, len(centroids))
	for i, c := range centroids {
		triangles[i] = makeTriangleAt(c)
	}

	root, _, err := BuildBVH(triangles, 2)
	if err != nil {
		t.Fatal(err)
	}

	s := SerializeBVH(root)
	if len(s.Cells) != s.Nodes*bvhNodeFloats {
		t.Fatalf("expected %d cells; got %d", s.Nodes*bvhNodeFloats, len(s.Cells))
	}

	if size := checkPreorder(t, s, 0); size != s.Nodes {
		t.Fatalf("preorder walk covered %d nodes; expected %d", size, s.Nodes)
	}

	// Every source triangle appears exactly once in the leaf-visit order.
	seen := make(map[int]int)
	for _, ti := range s.TriOrder {
		seen[ti]++
	}
	if len(s.TriOrder) != len(triangles) {
		t.Fatalf("leaf-visit order holds %d triangles; expected %d", len(s.TriOrder), len(triangles))
	}
	for ti, count := range seen {
		if count != 1 {
			t.Fatalf("triangle %d referenced %d times", ti, count)
		}
	}
}

func TestSerializeSingleLeaf(t *testing.T) {
	tris := []*scene.Triangle{makeTriangleAt(types.Vec3{0, 0, 0})}
	root, _, err := BuildBVH(tris, 4)
	if err != nil {
		t.Fatal(err)
	}

	s := SerializeBVH(root)
	if s.Nodes != 1 || len(s.Cells) != bvhNodeFloats {
		t.Fatalf("expected a single 9-cell record; got %d nodes, %d cells", s.Nodes, len(s.Cells))
	}
	if got := bitsInt(s.Cells[2]); got != 0 {
		t.Fatalf("expected leaf base 0; got %d", got)
	}
	if len(s.TriOrder) != 1 || s.TriOrder[0] != 0 {
		t.Fatalf("expected leaf-visit order [0]; got %v", s.TriOrder)
	}
}

func TestIntBitsRoundTrip(t *testing.T) {
	for _, v := range []int{-1, 0, 1, 2, 1337, 1 << 22} {
		if got := bitsInt(intBits(v)); got != v {
			t.Fatalf("expected %d to survive the round trip; got %d", v, got)
		}
	}

	// The -1 sentinel must keep its full bit pattern; a numeric conversion
	// would map it to the float -1.0 instead.
	if bits := math.Float32bits(intBits(-1)); bits != 0xffffffff {
		t.Fatalf("expected the -1 sentinel pattern 0xffffffff; got 0x%x", bits)
	}
}
