package compiler

import (
	"fmt"
	"time"

	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/asset/atlas"
	"github.com/wave-glsl/fspt/asset/env"
	"github.com/wave-glsl/fspt/asset/mesh"
	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/types"
)

const (
	// Importance bins derived from an image environment.
	envBins = 32

	// Sample budget when the descriptor does not set one.
	defaultSamples = 512
)

// Feature toggles derived from the run mode.
type Flags struct {
	// Enable next-event estimation in the tracer.
	NextEvent bool

	// Enable alpha texture sampling in the tracer.
	Alpha bool
}

// The compiler output: the packed buffers ready for upload plus the pointer
// tree and triangle list retained for CPU-side probes such as autofocus.
type Result struct {
	Packed *scene.PackedScene
	Root   *Node
	Depth  int
	Tris   []*scene.Triangle
}

type sceneCompiler struct {
	logger log.Logger

	desc  *scene.Descriptor
	base  *asset.Resource
	flags Flags

	atlas       *atlas.Atlas
	tris        []*scene.Triangle
	materials   []*Material
	lightGroups [][]*scene.Triangle
	bounds      scene.BoundingBox

	root       *Node
	depth      int
	serialized *SerializedBVH

	envMap *env.Map
}

// Compile a scene descriptor into the packed form the tracer consumes. The
// base resource anchors relative mesh and texture paths; pass nil when the
// descriptor only references absolute paths or URLs.
func Compile(desc *scene.Descriptor, base *asset.Resource, flags Flags) (*Result, error) {
	c := &sceneCompiler{
		logger: log.New("compiler"),
		desc:   desc,
		base:   base,
		flags:  flags,
		atlas:  atlas.New(desc.AtlasRes),
		bounds: scene.NewBoundingBox(),
	}

	start := time.Now()

	type phase struct {
		name string
		run  func() error
	}
	for _, p := range []phase{
		{"load geometry", c.loadGeometry},
		{"normalize geometry", c.normalizeGeometry},
		{"build hierarchy", c.buildHierarchy},
		{"prepare environment", c.prepareEnvironment},
	} {
		phaseStart := time.Now()
		if err := p.run(); err != nil {
			return nil, err
		}
		c.logger.Infof("%s completed in %d ms", p.name, time.Since(phaseStart).Nanoseconds()/1e6)
	}

	packed := c.emitBuffers()
	c.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)

	return &Result{
		Packed: packed,
		Root:   c.root,
		Depth:  c.depth,
		Tris:   c.tris,
	}, nil
}

// Load every prop mesh, resolve one material per group and flag emissive
// groups as lights. The prop lists merge in descriptor order so light range
// assignment stays stable between runs.
func (c *sceneCompiler) loadGeometry() error {
	for _, prop := range c.desc.AllProps() {
		res, err := asset.Open(prop.Path, c.base)
		if err != nil {
			return fmt.Errorf("compiler: could not open prop '%s': %v", prop.Path, err)
		}

		m, err := mesh.Load(res)
		res.Close()
		if err != nil {
			return err
		}

		merged := mergeTransforms(&prop.Transforms, c.desc.WorldTransforms)
		for _, group := range m.Groups {
			mat := resolveMaterial(c.atlas, group.Material, merged)

			matIndex := len(c.materials)
			c.materials = append(c.materials, mat)

			for _, tri := range group.Triangles {
				tri.MaterialIndex = matIndex
				tri.Transforms = merged
			}
			c.tris = append(c.tris, group.Triangles...)

			if merged.IsEmissive() {
				c.lightGroups = append(c.lightGroups, group.Triangles)
			}
		}

		c.bounds.AddBox(m.Bounds)
	}

	if len(c.tris) == 0 {
		return fmt.Errorf("compiler: scene contains no geometry")
	}
	return nil
}

// Overlay the per-prop transforms on top of the descriptor's world
// transforms. Fields left unset by the prop inherit the world value.
func mergeTransforms(prop, world *scene.Transforms) *scene.Transforms {
	merged := *prop
	if world == nil {
		return &merged
	}

	if !merged.IsEmissive() && world.IsEmissive() {
		merged.Emittance = world.Emittance
	}
	if merged.Reflectance == nil {
		merged.Reflectance = world.Reflectance
	}
	if merged.Diffuse == nil {
		merged.Diffuse = world.Diffuse
	}
	if merged.MetallicRoughness == nil {
		merged.MetallicRoughness = world.MetallicRoughness
		if merged.MrSwizzle == "" {
			merged.MrSwizzle = world.MrSwizzle
		}
	}
	if merged.Emission == nil {
		merged.Emission = world.Emission
	}
	if merged.Normal == nil {
		merged.Normal = world.Normal
	}
	if merged.IOR == nil {
		merged.IOR = world.IOR
	}
	if merged.Dielectric == nil {
		merged.Dielectric = world.Dielectric
	}
	return &merged
}

// Rescale the scene so its longest extent spans 2*normalize units centered
// on the origin. Skipped when the descriptor does not set a normalize size.
func (c *sceneCompiler) normalizeGeometry() error {
	if c.desc.Normalize <= 0 {
		return nil
	}

	center := c.bounds.Centroid()
	longest := c.bounds.Max.Sub(c.bounds.Min).MaxComponent()
	if longest <= 0 {
		return fmt.Errorf("compiler: cannot normalize a degenerate scene box")
	}
	scale := 2.0 * c.desc.Normalize / longest

	c.bounds = scene.NewBoundingBox()
	for _, tri := range c.tris {
		for i := range tri.Verts {
			tri.Verts[i] = tri.Verts[i].Sub(center).Mul(scale)
			c.bounds.AddPoint(tri.Verts[i])
		}
		tri.MarkBBoxDirty()
	}

	c.logger.Infof("normalized scene by %.4f around %v", scale, center)
	return nil
}

func (c *sceneCompiler) buildHierarchy() error {
	root, depth, err := BuildBVH(c.tris, LeafSize)
	if err != nil {
		return err
	}
	c.root = root
	c.depth = depth
	c.serialized = SerializeBVH(root)
	return nil
}

// Prepare the environment map: an equirectangular image when the descriptor
// names one, a rasterized gradient when it supplies color stops, and a plain
// white dome when it is silent.
func (c *sceneCompiler) prepareEnvironment() error {
	spec := c.desc.Environment
	if spec == nil {
		m, err := env.Gradient([]types.Vec3{{1, 1, 1}})
		c.envMap = m
		return err
	}

	if spec.Path != "" {
		res, err := asset.Open(spec.Path, c.base)
		if err != nil {
			return fmt.Errorf("compiler: could not open environment '%s': %v", spec.Path, err)
		}
		defer res.Close()

		m, err := env.Load(res, envBins)
		if err != nil {
			return err
		}
		c.envMap = m
		return nil
	}

	m, err := env.Gradient(spec.Stops)
	c.envMap = m
	return err
}

// Emit every packed buffer. The triangle, normal, uv and material buffers
// follow the serializer's leaf-visit order so that the leaf base indices in
// the bvh buffer stay valid.
func (c *sceneCompiler) emitBuffers() *scene.PackedScene {
	order := c.serialized.TriOrder

	triData := make([]float32, 0, len(order)*9)
	normData := make([]float32, 0, len(order)*27)
	uvData := make([]float32, 0, len(order)*6)
	matData := make([]float32, 0, len(order)*12)

	for _, ti := range order {
		tri := c.tris[ti]
		for v := 0; v < 3; v++ {
			triData = append(triData, tri.Verts[v][:]...)
		}
		for v := 0; v < 3; v++ {
			normData = append(normData, tri.Normals[v][:]...)
			normData = append(normData, tri.Tangents[v][:]...)
			normData = append(normData, tri.Bitangents[v][:]...)
		}
		for v := 0; v < 3; v++ {
			uvData = append(uvData, tri.UVs[v][:]...)
		}

		mat := c.materials[tri.MaterialIndex]
		matData = append(matData,
			float32(mat.Diffuse), float32(mat.Roughness), float32(mat.Normal), float32(mat.Emission),
			-1, -1,
			mat.Emittance[0], mat.Emittance[1], mat.Emittance[2],
			mat.Ior, mat.Dielectric,
			-1,
		)
	}

	lightData := make([]float32, 0)
	lightRanges := make([]scene.LightRange, 0, len(c.lightGroups))
	base := 0
	for _, group := range c.lightGroups {
		for _, tri := range group {
			for v := 0; v < 3; v++ {
				lightData = append(lightData, tri.Verts[v][:]...)
			}
		}
		lightRanges = append(lightRanges, scene.LightRange{First: base, Last: base + len(group) - 1})
		base += len(group)
	}

	packed := &scene.PackedScene{
		Bvh:       packBuffer("bvh", c.serialized.Cells, 3, 3),
		Triangles: packBuffer("triangles", triData, 3, 3),
		Normals:   packBuffer("normals", normData, 3, 9),
		UVs:       packBuffer("uvs", uvData, 2, 3),
		Materials: packBuffer("materials", matData, 3, 4),
		Lights:    packBuffer("lights", lightData, 3, 3),

		LightRanges: lightRanges,

		AtlasData:   c.atlas.Data(),
		AtlasRes:    c.atlas.Res(),
		AtlasLayers: c.atlas.Layers(),

		EnvPixels:    c.envMap.Pixels,
		EnvWidth:     c.envMap.Width,
		EnvHeight:    c.envMap.Height,
		RadianceBins: c.envMap.Bins,

		Defines: c.generateDefines(len(lightRanges)),

		Camera:  scene.NewCamera(c.desc),
		Samples: c.desc.Samples,
	}
	if packed.Samples <= 0 {
		packed.Samples = defaultSamples
	}
	return packed
}

// Preprocessor directives injected into the tracer shader ahead of its
// source. The light range count is clamped to one because the shader
// declares a fixed-size uniform array even for lightless scenes.
func (c *sceneCompiler) generateDefines(numLightRanges int) []string {
	if numLightRanges < 1 {
		numLightRanges = 1
	}

	defines := []string{
		fmt.Sprintf("#define ENV_BINS %d", len(c.envMap.Bins)),
		fmt.Sprintf("#define NUM_LIGHT_RANGES %d", numLightRanges),
		fmt.Sprintf("#define LEAF_SIZE %d", LeafSize),
	}
	if c.flags.NextEvent {
		defines = append(defines, "#define USE_EXPLICIT")
	}
	if c.flags.Alpha {
		defines = append(defines, "#define USE_ALPHA")
	}
	return defines
}
