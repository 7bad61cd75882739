package tracer

import (
	"math"
	"testing"

	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/scene/compiler"
	"github.com/wave-glsl/fspt/types"
)

func buildScene(t *testing.T, tris []*scene.Triangle) *compiler.Result {
	t.Helper()

	root, _, err := compiler.BuildBVH(tris, 4)
	if err != nil {
		t.Fatal(err)
	}
	return &compiler.Result{Root: root, Tris: tris}
}

func unitTriangle() *scene.Triangle {
	return &scene.Triangle{Verts: [3]types.Vec3{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
	}}
}

func TestProbeHit(t *testing.T) {
	res := buildScene(t, []*scene.Triangle{unitTriangle()})

	// An eye one unit in front of the triangle plane looking straight at it.
	depth := Probe(res, NewRay(types.Vec3{0.25, 0.25, 1}, types.Vec3{0, 0, -1}))
	if depth != 1.0 {
		t.Fatalf("expected hit distance 1.0; got %v", depth)
	}
}

func TestProbeMiss(t *testing.T) {
	res := buildScene(t, []*scene.Triangle{unitTriangle()})

	// Looking away from the scene.
	if depth := Probe(res, NewRay(types.Vec3{0.25, 0.25, 1}, types.Vec3{0, 0, 1})); depth != MaxT {
		t.Fatalf("expected MaxT for a miss; got %v", depth)
	}

	// Aimed past the hypotenuse.
	if depth := Probe(res, NewRay(types.Vec3{0.9, 0.9, 1}, types.Vec3{0, 0, -1})); depth != MaxT {
		t.Fatalf("expected MaxT outside the triangle; got %v", depth)
	}
}

func TestProbeBackface(t *testing.T) {
	// Reversed winding flips the face normal away from the ray.
	tri := &scene.Triangle{Verts: [3]types.Vec3{
		{0, 0, 0}, {0, 1, 0}, {1, 0, 0},
	}}
	res := buildScene(t, []*scene.Triangle{tri})

	if depth := Probe(res, NewRay(types.Vec3{0.25, 0.25, 1}, types.Vec3{0, 0, -1})); depth != MaxT {
		t.Fatalf("expected a back-face reject; got %v", depth)
	}
}

func TestProbeClosestOfMany(t *testing.T) {
	// Two parallel triangles; the probe must report the nearer one.
	near := &scene.Triangle{Verts: [3]types.Vec3{
		{-1, -1, -2}, {1, -1, -2}, {0, 1, -2},
	}}
	far := &scene.Triangle{Verts: [3]types.Vec3{
		{-1, -1, -5}, {1, -1, -5}, {0, 1, -5},
	}}
	res := buildScene(t, []*scene.Triangle{far, near})

	depth := Probe(res, NewRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1}))
	if depth != 2.0 {
		t.Fatalf("expected the nearer hit at 2.0; got %v", depth)
	}
}

func TestIntersectBoxInside(t *testing.T) {
	box := scene.NewBoundingBox()
	box.AddPoint(types.Vec3{-1, -1, -1})
	box.AddPoint(types.Vec3{1, 1, 1})

	// An origin inside the box reports a negative entry distance, never a miss.
	entry := intersectBox(&box, NewRay(types.Vec3{0, 0, 0}, types.Vec3{0, 0, -1}))
	if entry >= 0 {
		t.Fatalf("expected a negative entry for an interior origin; got %v", entry)
	}

	// A box entirely behind the origin is a miss.
	behind := intersectBox(&box, NewRay(types.Vec3{0, 0, 5}, types.Vec3{0, 0, 1}))
	if behind != MaxT {
		t.Fatalf("expected MaxT for a box behind the ray; got %v", behind)
	}
}

func TestAutofocusSetsLens(t *testing.T) {
	res := buildScene(t, []*scene.Triangle{{Verts: [3]types.Vec3{
		{-1, -1, -2}, {1, -1, -2}, {0, 1, -2},
	}}})

	cam := &scene.Camera{
		Position:  types.Vec3{0, 0, 0},
		Direction: types.Vec3{0, 0, -1},
	}
	depth := Autofocus(res, cam, 0.3)
	if depth != 2.0 {
		t.Fatalf("expected focal depth 2.0; got %v", depth)
	}
	if math.Abs(float64(cam.LensFeatures[0]-0.5)) > 1e-6 || cam.LensFeatures[1] != 0.3 {
		t.Fatalf("expected lens features (0.5 0.3); got %v", cam.LensFeatures)
	}
}

func TestAutofocusMissPinhole(t *testing.T) {
	res := buildScene(t, []*scene.Triangle{unitTriangle()})

	cam := &scene.Camera{
		Position:  types.Vec3{0, 0, 5},
		Direction: types.Vec3{0, 0, 1},
	}
	if depth := Autofocus(res, cam, 0.3); depth != MaxT {
		t.Fatalf("expected MaxT on a miss; got %v", depth)
	}
	// A miss reports MaxT, so the lens term is 1 - 1/MaxT, just below 1.
	if cam.LensFeatures[0] != 1.0-1.0/MaxT {
		t.Fatalf("expected the pinhole lens term; got %v", cam.LensFeatures[0])
	}
}
