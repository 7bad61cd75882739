package compiler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/scene"
)

// The maximum number of triangles a BVH leaf may reference.
const LeafSize = 4

// A BVH node. Internal nodes carry the selected split plane and two children;
// leaves carry ordinals into the builder's triangle list.
type Node struct {
	Box scene.BoundingBox

	Left  *Node
	Right *Node

	SplitAxis  int
	SplitIndex int

	Triangles []int
}

// True if the node carries triangles instead of children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil
}

type bvhStats struct {
	nodes    int
	leafs    int
	maxDepth int
}

type bvhBuilder struct {
	logger log.Logger

	tris     []*scene.Triangle
	leafSize int

	stats bvhStats
}

// Build a BVH over the triangle list.
//
// Splits are scored with the surface area heuristic swept over three index
// lists pre-sorted by triangle centroid, one per axis. Nodes whose triangle
// count drops to leafSize or below become leaves.
//
// Returns the tree root and the maximum recursion depth reached.
func BuildBVH(tris []*scene.Triangle, leafSize int) (*Node, int, error) {
	if len(tris) == 0 {
		return nil, 0, fmt.Errorf("bvh: cannot build a hierarchy over an empty triangle list")
	}

	b := &bvhBuilder{
		logger:   log.New("bvh"),
		tris:     tris,
		leafSize: leafSize,
	}

	var sorted [3][]int
	for axis := 0; axis < 3; axis++ {
		idx := make([]int, len(tris))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			return tris[idx[i]].Centroid()[axis] < tris[idx[j]].Centroid()[axis]
		})
		sorted[axis] = idx
	}

	start := time.Now()
	root := b.partition(sorted, 0)
	b.logger.Noticef(
		"built BVH over %d triangles in %d ms (%d internal, %d leafs, depth %d)",
		len(tris), time.Since(start).Nanoseconds()/1e6,
		b.stats.nodes, b.stats.leafs, b.stats.maxDepth,
	)

	return root, b.stats.maxDepth, nil
}

// Partition the triangle set described by the three sorted index lists into a
// subtree. All three lists reference the same triangle set; only their order
// differs.
func (b *bvhBuilder) partition(idx [3][]int, depth int) *Node {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	node := &Node{
		Box:        scene.NewBoundingBox(),
		SplitAxis:  -1,
		SplitIndex: -1,
	}
	for _, ti := range idx[0] {
		node.Box.AddBox(b.tris[ti].BBox())
	}

	if len(idx[0]) <= b.leafSize {
		node.Triangles = idx[0]
		b.stats.leafs++
		return node
	}

	axis, split := b.selectSplit(idx, &node.Box)

	// The chosen axis partitions by slicing. The other two axes keep their
	// sort order by filtering against the left membership set, which splits
	// them in a single pass without re-sorting.
	inLeft := make(map[int]struct{}, split)
	for _, ti := range idx[axis][:split] {
		inLeft[ti] = struct{}{}
	}

	var left, right [3][]int
	left[axis] = idx[axis][:split]
	right[axis] = idx[axis][split:]
	for other := 0; other < 3; other++ {
		if other == axis {
			continue
		}
		l := make([]int, 0, split)
		r := make([]int, 0, len(idx[other])-split)
		for _, ti := range idx[other] {
			if _, ok := inLeft[ti]; ok {
				l = append(l, ti)
			} else {
				r = append(r, ti)
			}
		}
		left[other] = l
		right[other] = r
	}

	node.SplitAxis = axis
	node.SplitIndex = split
	node.Left = b.partition(left, depth+1)
	node.Right = b.partition(right, depth+1)
	b.stats.nodes++

	return node
}

// Pick the (axis, count) pair minimizing the SAH cost
//
//	1 + area(front)/area(parent)*count + area(back)/area(parent)*(n-count)
//
// where front and back are the box unions of the first count and the last
// n-count triangles in that axis's centroid order. Ties resolve to the first
// candidate in scan order, axis 0 through 2 with count ascending.
func (b *bvhBuilder) selectSplit(idx [3][]int, parent *scene.BoundingBox) (axis, split int) {
	n := len(idx[0])
	parentArea := parent.SurfaceArea()

	frontArea := make([]float32, n)
	backArea := make([]float32, n)

	bestCost := float32(math.MaxFloat32)
	axis, split = 0, 1

	for a := 0; a < 3; a++ {
		sweep := scene.NewBoundingBox()
		for i, ti := range idx[a] {
			sweep.AddBox(b.tris[ti].BBox())
			frontArea[i] = sweep.SurfaceArea()
		}

		sweep = scene.NewBoundingBox()
		for i := n - 1; i >= 0; i-- {
			sweep.AddBox(b.tris[idx[a][i]].BBox())
			backArea[i] = sweep.SurfaceArea()
		}

		for k := 1; k < n; k++ {
			cost := 1.0 + frontArea[k-1]/parentArea*float32(k) + backArea[k]/parentArea*float32(n-k)
			if cost < bestCost {
				bestCost = cost
				axis = a
				split = k
			}
		}
	}

	return axis, split
}
