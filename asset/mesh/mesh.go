package mesh

import (
	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

// A wavefront material as collected from an mtl library. Pointer fields are
// nil when the library never set them, which lets the material resolver fall
// through to the per-prop transforms and then to the global defaults.
type Material struct {
	Name string

	Kd    *types.Vec3
	MapKd string

	Pmr        *types.Vec3
	MapPmr     string
	PmrSwizzle string

	Kem    *types.Vec3
	MapKem string

	MapBump string

	Ior        *float32
	Dielectric *float32

	// The library resource this material was read from. Texture paths in
	// the map fields resolve relative to it.
	Base *asset.Resource
}

// A contiguous run of triangles sharing one material.
type Group struct {
	Material  *Material
	Triangles []*scene.Triangle
}

// A loaded mesh: material groups in first-use order plus the bounds of all
// vertices.
type Mesh struct {
	Groups []*Group
	Bounds scene.BoundingBox
}

// Total triangle count over all groups.
func (m *Mesh) TriangleCount() int {
	count := 0
	for _, g := range m.Groups {
		count += len(g.Triangles)
	}
	return count
}
