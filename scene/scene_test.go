package scene

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/wave-glsl/fspt/types"
)

func TestParseDescriptorDefaults(t *testing.T) {
	desc, err := ParseDescriptor(strings.NewReader(`{
		"props": [{"path": "bunny.obj"}]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if desc.FovScale != 1.0 {
		t.Fatalf("expected default fovScale 1; got %v", desc.FovScale)
	}
	if desc.Exposure != 1.0 {
		t.Fatalf("expected default exposure 1; got %v", desc.Exposure)
	}
	if desc.AtlasRes != 2048 {
		t.Fatalf("expected default atlasRes 2048; got %v", desc.AtlasRes)
	}
}

func TestParseDescriptorNoProps(t *testing.T) {
	_, err := ParseDescriptor(strings.NewReader(`{"cameraPos": [0, 0, 1]}`))
	if err == nil || !strings.Contains(err.Error(), "defines no props") {
		t.Fatalf("expected a no-props error; got %v", err)
	}
}

func TestParseDescriptorMalformed(t *testing.T) {
	_, err := ParseDescriptor(strings.NewReader(`{"props": `))
	if err == nil || !strings.Contains(err.Error(), "malformed descriptor") {
		t.Fatalf("expected a malformed descriptor error; got %v", err)
	}
}

func TestTexRefForms(t *testing.T) {
	var ref TexRef
	if err := json.Unmarshal([]byte(`"wood.png"`), &ref); err != nil {
		t.Fatal(err)
	}
	if ref.Path != "wood.png" || ref.Color != nil {
		t.Fatalf("unexpected path form %+v", ref)
	}

	ref = TexRef{}
	if err := json.Unmarshal([]byte(`[1, 0.5, 0]`), &ref); err != nil {
		t.Fatal(err)
	}
	if ref.Color == nil || *ref.Color != (types.Vec3{1, 0.5, 0}) {
		t.Fatalf("unexpected array form %+v", ref)
	}

	ref = TexRef{}
	if err := json.Unmarshal([]byte(`{"r": 0.1, "g": 0.2, "b": 0.3}`), &ref); err != nil {
		t.Fatal(err)
	}
	if ref.Color == nil || *ref.Color != (types.Vec3{0.1, 0.2, 0.3}) {
		t.Fatalf("unexpected object form %+v", ref)
	}

	if err := json.Unmarshal([]byte(`42`), &ref); err == nil {
		t.Fatal("expected an error for a numeric texture reference")
	}
}

func TestEnvironmentForms(t *testing.T) {
	var env Environment
	if err := json.Unmarshal([]byte(`"sky.jpg"`), &env); err != nil {
		t.Fatal(err)
	}
	if env.Path != "sky.jpg" {
		t.Fatalf("unexpected path form %+v", env)
	}

	env = Environment{}
	if err := json.Unmarshal([]byte(`[[0, 0, 0], [1, 1, 1]]`), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Stops) != 2 || env.Stops[1] != (types.Vec3{1, 1, 1}) {
		t.Fatalf("unexpected stop form %+v", env)
	}

	if err := json.Unmarshal([]byte(`true`), &env); err == nil {
		t.Fatal("expected an error for a boolean environment")
	}
}

func TestAllPropsOrder(t *testing.T) {
	desc := &Descriptor{
		Props:         []Prop{{Path: "a.obj"}},
		StaticProps:   []Prop{{Path: "b.obj"}},
		AnimatedProps: []Prop{{Path: "c.obj"}},
	}

	all := desc.AllProps()
	if len(all) != 3 {
		t.Fatalf("expected 3 props; got %d", len(all))
	}
	for i, want := range []string{"a.obj", "b.obj", "c.obj"} {
		if all[i].Path != want {
			t.Fatalf("prop %d: expected %s; got %s", i, want, all[i].Path)
		}
	}
}

func TestIsEmissive(t *testing.T) {
	if (&Transforms{}).IsEmissive() {
		t.Fatal("expected a zero emittance prop to be non-emissive")
	}
	if !(&Transforms{Emittance: types.Vec3{0, 5, 0}}).IsEmissive() {
		t.Fatal("expected a lit prop to be emissive")
	}
}
