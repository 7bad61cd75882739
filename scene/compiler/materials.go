package compiler

import (
	"github.com/wave-glsl/fspt/asset/atlas"
	"github.com/wave-glsl/fspt/asset/mesh"
	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

var matLogger = log.New("compiler")

// A resolved material: four atlas layer indices plus the scalar surface
// parameters the tracer samples per hit.
type Material struct {
	Diffuse   int
	Roughness int
	Normal    int
	Emission  int

	Emittance  types.Vec3
	Ior        float32
	Dielectric float32
}

var (
	fallbackDiffuse   = types.Vec3{0.5, 0.5, 0.5}
	fallbackRoughness = types.Vec3{0.0, 0.3, 0.0}
	fallbackEmission  = types.Vec3{0, 0, 0}
	fallbackNormal    = types.Vec3{0.5, 0.5, 1.0}
)

// Resolve the material for one group. Sources are consulted in a fixed
// order: the mtl library's texture map, then its color, then the per-prop
// transforms override, then the global fallback. IOR and the dielectric
// sentinel fall through the same chain to their defaults of 1.4 and -1.
//
// A texture that fails to bake logs a warning and degrades to the fallback
// color so a missing asset never aborts the compile.
func resolveMaterial(a *atlas.Atlas, mat *mesh.Material, tr *scene.Transforms) *Material {
	out := &Material{
		Emittance:  tr.Emittance,
		Ior:        1.4,
		Dielectric: -1,
	}

	switch {
	case mat.MapKd != "":
		out.Diffuse = bakeOrFallback(a, fallbackDiffuse, func() (int, error) {
			return a.AddTexture(mat.MapKd, mat.Base)
		})
	case mat.Kd != nil:
		out.Diffuse = a.AddColor(*mat.Kd)
	case tr.Diffuse != nil:
		out.Diffuse = bakeRef(a, tr.Diffuse, "", fallbackDiffuse)
	case tr.Reflectance != nil:
		out.Diffuse = a.AddColor(*tr.Reflectance)
	default:
		out.Diffuse = a.AddColor(fallbackDiffuse)
	}

	switch {
	case mat.MapPmr != "":
		out.Roughness = bakeOrFallback(a, fallbackRoughness, func() (int, error) {
			return a.AddTextureSwizzled(mat.MapPmr, mat.Base, mat.PmrSwizzle)
		})
	case mat.Pmr != nil:
		out.Roughness = a.AddColor(*mat.Pmr)
	case tr.MetallicRoughness != nil:
		out.Roughness = bakeRef(a, tr.MetallicRoughness, tr.MrSwizzle, fallbackRoughness)
	default:
		out.Roughness = a.AddColor(fallbackRoughness)
	}

	switch {
	case mat.MapKem != "":
		out.Emission = bakeOrFallback(a, fallbackEmission, func() (int, error) {
			return a.AddTexture(mat.MapKem, mat.Base)
		})
	case mat.Kem != nil:
		out.Emission = a.AddColor(*mat.Kem)
	case tr.Emission != nil:
		out.Emission = bakeRef(a, tr.Emission, "", fallbackEmission)
	default:
		out.Emission = a.AddColor(fallbackEmission)
	}

	switch {
	case mat.MapBump != "":
		out.Normal = bakeOrFallback(a, fallbackNormal, func() (int, error) {
			return a.AddTexture(mat.MapBump, mat.Base)
		})
	case tr.Normal != nil:
		out.Normal = bakeRef(a, tr.Normal, "", fallbackNormal)
	default:
		out.Normal = a.AddColor(fallbackNormal)
	}

	switch {
	case mat.Ior != nil:
		out.Ior = *mat.Ior
	case tr.IOR != nil:
		out.Ior = *tr.IOR
	}

	switch {
	case mat.Dielectric != nil:
		out.Dielectric = *mat.Dielectric
	case tr.Dielectric != nil:
		out.Dielectric = *tr.Dielectric
	}

	return out
}

// Bake a descriptor texture reference: a path becomes a packed image layer,
// an inline color a solid layer.
func bakeRef(a *atlas.Atlas, ref *scene.TexRef, swizzle string, fallback types.Vec3) int {
	if ref.Path != "" {
		return bakeOrFallback(a, fallback, func() (int, error) {
			return a.AddTextureSwizzled(ref.Path, nil, swizzle)
		})
	}
	return a.AddColor(*ref.Color)
}

func bakeOrFallback(a *atlas.Atlas, fallback types.Vec3, bake func() (int, error)) int {
	index, err := bake()
	if err != nil {
		matLogger.Warningf("%v; using a flat fallback color", err)
		return a.AddColor(fallback)
	}
	return index
}
