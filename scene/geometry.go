package scene

import (
	"math"

	"github.com/wave-glsl/fspt/types"
)

// An axis aligned bounding box. The zero value is not usable; NewBoundingBox
// returns the additive identity (+Inf mins, -Inf maxes) so that any sequence
// of Add calls yields the tightest enclosing box.
type BoundingBox struct {
	Min types.Vec3
	Max types.Vec3

	centroid      types.Vec3
	centroidValid bool
}

// Create an empty bounding box.
func NewBoundingBox() BoundingBox {
	inf := float32(math.Inf(1))
	return BoundingBox{
		Min: types.Vec3{inf, inf, inf},
		Max: types.Vec3{-inf, -inf, -inf},
	}
}

// Grow the box to include a point.
func (b *BoundingBox) AddPoint(p types.Vec3) {
	b.Min = types.MinVec3(b.Min, p)
	b.Max = types.MaxVec3(b.Max, p)
	b.centroidValid = false
}

// Grow the box to include another box.
func (b *BoundingBox) AddBox(other BoundingBox) {
	b.Min = types.MinVec3(b.Min, other.Min)
	b.Max = types.MaxVec3(b.Max, other.Max)
	b.centroidValid = false
}

// Surface area of the box. An empty box has no defined area; callers must
// only score non-empty partitions.
func (b *BoundingBox) SurfaceArea() float32 {
	d := b.Max.Sub(b.Min)
	return 2.0 * (d[0]*d[1] + d[0]*d[2] + d[1]*d[2])
}

// Box centroid, cached until the next mutation.
func (b *BoundingBox) Centroid() types.Vec3 {
	if !b.centroidValid {
		b.centroid = b.Min.Add(b.Max).Mul(0.5)
		b.centroidValid = true
	}
	return b.centroid
}

// A triangle primitive with full shading attributes. Transforms points back
// at the prop this triangle came from so the material resolver can apply
// per-prop overrides.
type Triangle struct {
	Verts      [3]types.Vec3
	UVs        [3]types.Vec2
	Normals    [3]types.Vec3
	Tangents   [3]types.Vec3
	Bitangents [3]types.Vec3

	MaterialIndex int
	Transforms    *Transforms

	bbox      BoundingBox
	bboxValid bool
}

// Bounding box enclosing the three vertices, cached.
func (t *Triangle) BBox() BoundingBox {
	if !t.bboxValid {
		t.bbox = NewBoundingBox()
		t.bbox.AddPoint(t.Verts[0])
		t.bbox.AddPoint(t.Verts[1])
		t.bbox.AddPoint(t.Verts[2])
		t.bboxValid = true
	}
	return t.bbox
}

// Centroid of the triangle bounding box.
func (t *Triangle) Centroid() types.Vec3 {
	bbox := t.BBox()
	return bbox.Centroid()
}

// Invalidate the cached bounding box after a vertex mutation.
func (t *Triangle) MarkBBoxDirty() {
	t.bboxValid = false
}
