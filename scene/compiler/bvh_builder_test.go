package compiler

import (
	"testing"

	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

func makeTriangle(a, b, c types.Vec3) *scene.Triangle {
	return &scene.Triangle{Verts: [3]types.Vec3{a, b, c}}
}

// A unit-extent triangle whose bounding box centroid lands exactly on c.
func makeTriangleAt(c types.Vec3) *scene.Triangle {
	return makeTriangle(
		c.Add(types.Vec3{-0.5, -0.5, 0}),
		c.Add(types.Vec3{0.5, -0.5, 0}),
		c.Add(types.Vec3{0, 0.5, 0}),
	)
}

func collectLeaves(n *Node, out []*Node) []*Node {
	if n.IsLeaf() {
		return append(out, n)
	}
	out = collectLeaves(n.Left, out)
	return collectLeaves(n.Right, out)
}

// Verify that every node's box is exactly the union of its triangles' boxes
// and return the set of triangle ordinals below the node.
func checkSubtree(t *testing.T, n *Node, tris []*scene.Triangle) map[int]struct{} {
	t.Helper()

	var members map[int]struct{}
	if n.IsLeaf() {
		members = make(map[int]struct{}, len(n.Triangles))
		for _, ti := range n.Triangles {
			members[ti] = struct{}{}
		}
	} else {
		left := checkSubtree(t, n.Left, tris)
		right := checkSubtree(t, n.Right, tris)
		for ti := range right {
			if _, clash := left[ti]; clash {
				t.Fatalf("triangle %d appears in both children", ti)
			}
			left[ti] = struct{}{}
		}
		members = left
	}

	want := scene.NewBoundingBox()
	for ti := range members {
		want.AddBox(tris[ti].BBox())
	}
	if n.Box.Min != want.Min || n.Box.Max != want.Max {
		t.Fatalf("node box [%v %v] is not the tightest box [%v %v]", n.Box.Min, n.Box.Max, want.Min, want.Max)
	}
	return members
}

func TestBuildSingleTriangle(t *testing.T) {
	tris := []*scene.Triangle{
		makeTriangle(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}, types.Vec3{0, 1, 0}),
	}

	root, depth, err := BuildBVH(tris, 4)
	if err != nil {
		t.Fatal(err)
	}

	if !root.IsLeaf() {
		t.Fatal("expected root to be a leaf")
	}
	if depth != 0 {
		t.Fatalf("expected depth 0; got %d", depth)
	}
	if len(root.Triangles) != 1 || root.Triangles[0] != 0 {
		t.Fatalf("expected leaf triangles [0]; got %v", root.Triangles)
	}

	expMin := types.Vec3{0, 0, 0}
	expMax := types.Vec3{1, 1, 0}
	if root.Box.Min != expMin || root.Box.Max != expMax {
		t.Fatalf("expected box [%v %v]; got [%v %v]", expMin, expMax, root.Box.Min, root.Box.Max)
	}

	s := SerializeBVH(root)
	if s.Nodes != 1 {
		t.Fatalf("expected 1 serialized node; got %d", s.Nodes)
	}
}

func TestBuildEmptyTriangleList(t *testing.T) {
	_, _, err := BuildBVH(nil, 4)
	if err == nil {
		t.Fatal("expected an error for an empty triangle list")
	}
}

func TestBuildAxisSeparatedTriangles(t *testing.T) {
	centroids := []types.Vec3{
		{2, 0, 0}, {-2, 0, 0},
		{0, 2, 0}, {0, -2, 0},
		{0, 0, 2}, {0, 0, -2},
		{4, 0, 0}, {-4, 0, 0},
	}
	tris := make([]*scene.Triangle, len(centroids))
	for i, c := range centroids {
		tris[i] = makeTriangleAt(c)
	}

	root, depth, err := BuildBVH(tris, 2)
	if err != nil {
		t.Fatal(err)
	}
	if depth < 2 {
		t.Fatalf("expected depth >= 2; got %d", depth)
	}

	seen := checkSubtree(t, root, tris)
	if len(seen) != len(tris) {
		t.Fatalf("expected %d triangles below the root; got %d", len(tris), len(seen))
	}

	total := 0
	for _, leaf := range collectLeaves(root, nil) {
		if len(leaf.Triangles) > 2 {
			t.Fatalf("leaf holds %d triangles; max is 2", len(leaf.Triangles))
		}
		total += len(leaf.Triangles)
	}
	if total != len(tris) {
		t.Fatalf("leaves reference %d triangles; expected %d", total, len(tris))
	}
}

func TestSplitTieBreak(t *testing.T) {
	// Two triangles with identical centroids make every candidate split cost
	// the same; the first candidate in scan order must win.
	tris := []*scene.Triangle{
		makeTriangleAt(types.Vec3{0, 0, 0}),
		makeTriangleAt(types.Vec3{0, 0, 0}),
	}

	root, _, err := BuildBVH(tris, 1)
	if err != nil {
		t.Fatal(err)
	}

	if root.IsLeaf() {
		t.Fatal("expected root to be an internal node")
	}
	if root.SplitAxis != 0 || root.SplitIndex != 1 {
		t.Fatalf("expected split axis 0 index 1; got axis %d index %d", root.SplitAxis, root.SplitIndex)
	}
	if !root.Left.IsLeaf() || !root.Right.IsLeaf() {
		t.Fatal("expected both children to be leaves")
	}
	if len(root.Left.Triangles) != 1 || len(root.Right.Triangles) != 1 {
		t.Fatalf("expected single-triangle leaves; got %d and %d", len(root.Left.Triangles), len(root.Right.Triangles))
	}
}
