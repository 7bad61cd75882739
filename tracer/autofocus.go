package tracer

import (
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/scene/compiler"
	"github.com/wave-glsl/fspt/types"
)

// Distance reported when a probe ray escapes the scene.
const MaxT float32 = 1e6

const intersectEpsilon float32 = 1e-12

// A probe ray with its precomputed inverse direction for slab tests.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3

	invDir types.Vec3
}

func NewRay(origin, dir types.Vec3) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		invDir: dir.Inverse(),
	}
}

// Autofocus probe: cast a ray from the camera eye along the view direction
// and record the closest hit distance as the focal depth. Misses report MaxT
// which collapses the lens response to a pinhole.
func Autofocus(res *compiler.Result, cam *scene.Camera, aperture float32) float32 {
	depth := Probe(res, NewRay(cam.Position, cam.Direction))
	cam.SetFocalDepth(depth, aperture)
	return depth
}

// Closest-hit walk of the scene hierarchy. Returns the parametric distance
// along the ray, or MaxT when nothing is hit.
func Probe(res *compiler.Result, ray Ray) float32 {
	if intersectBox(&res.Root.Box, ray) >= MaxT {
		return MaxT
	}
	return closestHit(res.Root, res.Tris, ray, MaxT)
}

// Recursive front-to-back traversal. Children are visited nearest slab entry
// first and a subtree is pruned when its entry lies beyond the closest hit
// found so far.
func closestHit(n *compiler.Node, tris []*scene.Triangle, ray Ray, closest float32) float32 {
	if n.IsLeaf() {
		for _, ti := range n.Triangles {
			if t := intersectTriangle(tris[ti], ray); t < closest {
				closest = t
			}
		}
		return closest
	}

	first, second := n.Left, n.Right
	tFirst := intersectBox(&first.Box, ray)
	tSecond := intersectBox(&second.Box, ray)
	if tSecond < tFirst {
		first, second = second, first
		tFirst, tSecond = tSecond, tFirst
	}

	if tFirst < closest {
		closest = closestHit(first, tris, ray, closest)
	}
	if tSecond < closest {
		closest = closestHit(second, tris, ray, closest)
	}
	return closest
}

// Slab test. Returns the entry distance, which is negative when the origin
// sits inside the box, or MaxT on a miss.
func intersectBox(box *scene.BoundingBox, ray Ray) float32 {
	t1 := box.Min.Sub(ray.Origin).MulVec(ray.invDir)
	t2 := box.Max.Sub(ray.Origin).MulVec(ray.invDir)

	tmin := maxf(maxf(minf(t1[0], t2[0]), minf(t1[1], t2[1])), minf(t1[2], t2[2]))
	tmax := minf(minf(maxf(t1[0], t2[0]), maxf(t1[1], t2[1])), maxf(t1[2], t2[2]))

	if tmax < tmin || tmax < 0 {
		return MaxT
	}
	return tmin
}

// Moller-Trumbore with back-face rejection. Returns the parametric distance
// or MaxT on a miss.
func intersectTriangle(tri *scene.Triangle, ray Ray) float32 {
	edge1 := tri.Verts[1].Sub(tri.Verts[0])
	edge2 := tri.Verts[2].Sub(tri.Verts[0])

	pvec := ray.Dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if det < intersectEpsilon {
		return MaxT
	}
	invDet := 1.0 / det

	tvec := ray.Origin.Sub(tri.Verts[0])
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return MaxT
	}

	qvec := tvec.Cross(edge1)
	v := ray.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return MaxT
	}

	if t := edge2.Dot(qvec) * invDet; t > intersectEpsilon {
		return t
	}
	return MaxT
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
