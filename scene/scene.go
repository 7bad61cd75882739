package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/wave-glsl/fspt/types"
)

// A texture reference inside the scene descriptor. Descriptors may supply
// either a path to an image asset or an inline flat color; the two forms are
// distinguished during unmarshaling.
type TexRef struct {
	Path  string
	Color *types.Vec3
}

func (r *TexRef) UnmarshalJSON(data []byte) error {
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		r.Path = path
		return nil
	}

	var arr [3]float32
	if err := json.Unmarshal(data, &arr); err == nil {
		c := types.Vec3(arr)
		r.Color = &c
		return nil
	}

	var obj struct {
		R float32 `json:"r"`
		G float32 `json:"g"`
		B float32 `json:"b"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		c := types.Vec3{obj.R, obj.G, obj.B}
		r.Color = &c
		return nil
	}

	return fmt.Errorf("scene: texture reference must be a path string or a color")
}

// Per-prop surface overrides. The material resolver consults them after the
// loaded material's own maps and colors and before the global defaults (see
// the compiler's material resolution order).
type Transforms struct {
	Emittance         types.Vec3  `json:"emittance"`
	Reflectance       *types.Vec3 `json:"reflectance,omitempty"`
	Diffuse           *TexRef     `json:"diffuse,omitempty"`
	MetallicRoughness *TexRef     `json:"metallicRoughness,omitempty"`
	Emission          *TexRef     `json:"emission,omitempty"`
	Normal            *TexRef     `json:"normal,omitempty"`
	IOR               *float32    `json:"ior,omitempty"`
	Dielectric        *float32    `json:"dielectric,omitempty"`
	MrSwizzle         string      `json:"mrSwizzle,omitempty"`
}

// True if the prop emits light.
func (t *Transforms) IsEmissive() bool {
	return t.Emittance.Dot(types.Vec3{1, 1, 1}) > 0
}

// A renderable prop: a mesh path plus its surface overrides.
type Prop struct {
	Path string `json:"path"`
	Transforms
}

// The environment setting: either a path to an equirectangular image
// or a list of gradient color stops.
type Environment struct {
	Path  string
	Stops []types.Vec3
}

func (e *Environment) UnmarshalJSON(data []byte) error {
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		e.Path = path
		return nil
	}

	var stops [][3]float32
	if err := json.Unmarshal(data, &stops); err == nil {
		e.Stops = make([]types.Vec3, len(stops))
		for i, s := range stops {
			e.Stops[i] = types.Vec3(s)
		}
		return nil
	}

	return fmt.Errorf("scene: environment must be a path string or a list of color stops")
}

// The scene descriptor as parsed from a scene JSON document.
type Descriptor struct {
	Props         []Prop `json:"props"`
	StaticProps   []Prop `json:"static_props"`
	AnimatedProps []Prop `json:"animated_props"`

	Environment *Environment `json:"environment,omitempty"`

	CameraPos        types.Vec3 `json:"cameraPos"`
	CameraDir        types.Vec3 `json:"cameraDir"`
	FovScale         float32    `json:"fovScale"`
	Aperture         float32    `json:"aperture"`
	EnvironmentTheta float32    `json:"environmentTheta"`
	Exposure         float32    `json:"exposure"`

	Samples   int      `json:"samples"`
	Normalize float32  `json:"normalize"`
	AtlasRes  int      `json:"atlasRes"`

	WorldTransforms *Transforms `json:"worldTransforms,omitempty"`
}

// Merge the three prop lists into the single sequence the compiler walks.
// Order matters for light range assignment so it is kept stable:
// props, static_props, animated_props.
func (d *Descriptor) AllProps() []Prop {
	out := make([]Prop, 0, len(d.Props)+len(d.StaticProps)+len(d.AnimatedProps))
	out = append(out, d.Props...)
	out = append(out, d.StaticProps...)
	out = append(out, d.AnimatedProps...)
	return out
}

// Parse a scene descriptor from a JSON stream.
func ParseDescriptor(r io.Reader) (*Descriptor, error) {
	desc := &Descriptor{
		FovScale: 1.0,
		Exposure: 1.0,
		AtlasRes: 2048,
	}

	dec := json.NewDecoder(r)
	if err := dec.Decode(desc); err != nil {
		return nil, fmt.Errorf("scene: malformed descriptor: %v", err)
	}

	if len(desc.AllProps()) == 0 {
		return nil, fmt.Errorf("scene: descriptor defines no props")
	}

	for _, v := range []float32{
		desc.CameraPos[0], desc.CameraPos[1], desc.CameraPos[2],
		desc.CameraDir[0], desc.CameraDir[1], desc.CameraDir[2],
		desc.FovScale, desc.EnvironmentTheta, desc.Exposure,
	} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("scene: descriptor camera fields must be finite")
		}
	}

	return desc, nil
}
