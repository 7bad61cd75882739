package compiler

import (
	"testing"

	"github.com/wave-glsl/fspt/asset/atlas"
	"github.com/wave-glsl/fspt/asset/mesh"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

func TestResolveMaterialFallbacks(t *testing.T) {
	a := atlas.New(16)
	m := resolveMaterial(a, &mesh.Material{}, &scene.Transforms{})

	// The four fallback colors are baked in resolution order.
	if m.Diffuse != 0 || m.Roughness != 1 || m.Emission != 2 || m.Normal != 3 {
		t.Fatalf("expected layers 0..3; got %d %d %d %d", m.Diffuse, m.Roughness, m.Emission, m.Normal)
	}
	if m.Ior != 1.4 {
		t.Fatalf("expected default ior 1.4; got %v", m.Ior)
	}
	if m.Dielectric != -1 {
		t.Fatalf("expected dielectric sentinel -1; got %v", m.Dielectric)
	}
	if m.Emittance != (types.Vec3{}) {
		t.Fatalf("expected zero emittance; got %v", m.Emittance)
	}
}

func TestResolveMaterialPrecedence(t *testing.T) {
	a := atlas.New(16)

	kd := types.Vec3{1, 0, 0}
	refl := types.Vec3{0, 1, 0}
	ior := float32(1.9)

	m := resolveMaterial(a, &mesh.Material{Kd: &kd}, &scene.Transforms{
		Reflectance: &refl,
		IOR:         &ior,
	})

	// The mtl library color beats the descriptor override.
	if got := a.AddColor(kd); got != m.Diffuse {
		t.Fatalf("expected the library Kd layer %d; got %d", got, m.Diffuse)
	}
	if m.Ior != 1.9 {
		t.Fatalf("expected the descriptor ior 1.9; got %v", m.Ior)
	}
}

func TestResolveMaterialDescriptorOverride(t *testing.T) {
	a := atlas.New(16)

	diff := types.Vec3{0.2, 0.4, 0.6}
	m := resolveMaterial(a, &mesh.Material{}, &scene.Transforms{
		Diffuse: &scene.TexRef{Color: &diff},
	})
	if got := a.AddColor(diff); got != m.Diffuse {
		t.Fatalf("expected the override layer %d; got %d", got, m.Diffuse)
	}
}

func TestResolveMaterialMissingTexture(t *testing.T) {
	a := atlas.New(16)

	// A texture that fails to bake degrades to the flat fallback instead of
	// aborting the compile.
	m := resolveMaterial(a, &mesh.Material{MapKd: "does-not-exist.png"}, &scene.Transforms{})
	if got := a.AddColor(fallbackDiffuse); got != m.Diffuse {
		t.Fatalf("expected the diffuse fallback layer %d; got %d", got, m.Diffuse)
	}
}

func TestResolveMaterialColorDedup(t *testing.T) {
	a := atlas.New(16)

	first := resolveMaterial(a, &mesh.Material{}, &scene.Transforms{})
	second := resolveMaterial(a, &mesh.Material{}, &scene.Transforms{})

	if *first != *second {
		t.Fatalf("identical inputs resolved to different materials: %+v vs %+v", first, second)
	}
	if a.Layers() != 4 {
		t.Fatalf("expected 4 atlas layers after dedup; got %d", a.Layers())
	}
}

func TestResolveMaterialEmittance(t *testing.T) {
	a := atlas.New(16)

	m := resolveMaterial(a, &mesh.Material{}, &scene.Transforms{
		Emittance: types.Vec3{10, 10, 8},
	})
	if m.Emittance != (types.Vec3{10, 10, 8}) {
		t.Fatalf("expected emittance (10 10 8); got %v", m.Emittance)
	}
}
