package env

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/types"
)

func TestGradientEndpoints(t *testing.T) {
	m, err := Gradient([]types.Vec3{{0, 0, 0}, {1, 1, 1}})
	if err != nil {
		t.Fatal(err)
	}

	if m.Width != 1 || m.Height != GradientHeight {
		t.Fatalf("expected a 1x%d texture; got %dx%d", GradientHeight, m.Width, m.Height)
	}
	if m.Pixels[0] != 0 || m.Pixels[1] != 0 || m.Pixels[2] != 0 || m.Pixels[3] != 255 {
		t.Fatalf("expected an opaque black first row; got %v", m.Pixels[:4])
	}
	last := (GradientHeight - 1) * 4
	if m.Pixels[last] != 255 || m.Pixels[last+1] != 255 || m.Pixels[last+2] != 255 {
		t.Fatalf("expected a white last row; got %v", m.Pixels[last:last+4])
	}

	// A smooth gradient gets a single importance bin over the whole texture.
	if len(m.Bins) != 1 || m.Bins[0] != [4]uint32{0, 0, 1, GradientHeight} {
		t.Fatalf("expected one full-texture bin; got %v", m.Bins)
	}
}

func TestGradientSingleStop(t *testing.T) {
	m, err := Gradient([]types.Vec3{{0.5, 0.5, 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < GradientHeight; y += 512 {
		o := y * 4
		if m.Pixels[o] != 128 || m.Pixels[o+1] != 128 || m.Pixels[o+2] != 128 {
			t.Fatalf("row %d: expected uniform gray; got %v", y, m.Pixels[o:o+4])
		}
	}
}

func TestGradientNoStops(t *testing.T) {
	if _, err := Gradient(nil); err == nil {
		t.Fatal("expected an error for an empty stop list")
	}
}

func TestLoadMedianCut(t *testing.T) {
	// A uniform 4x4 white image splits into four equal-radiance quadrants.
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	m, err := Load(asset.FromStream("sky.png", &buf), 4)
	if err != nil {
		t.Fatal(err)
	}

	if m.Width != 4 || m.Height != 4 {
		t.Fatalf("expected a 4x4 map; got %dx%d", m.Width, m.Height)
	}
	if len(m.Bins) != 4 {
		t.Fatalf("expected 4 bins; got %d", len(m.Bins))
	}

	// The bins must tile the image exactly once.
	covered := [4][4]int{}
	for _, b := range m.Bins {
		if b[2] > 4 || b[3] > 4 || b[0] >= b[2] || b[1] >= b[3] {
			t.Fatalf("bin %v out of bounds", b)
		}
		for y := b[1]; y < b[3]; y++ {
			for x := b[0]; x < b[2]; x++ {
				covered[y][x]++
			}
		}
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if covered[y][x] != 1 {
				t.Fatalf("pixel (%d,%d) covered %d times", x, y, covered[y][x])
			}
		}
	}
}

func TestLoadDecodeError(t *testing.T) {
	if _, err := Load(asset.FromStream("junk.png", bytes.NewReader([]byte("not an image"))), 4); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestClampByte(t *testing.T) {
	specs := []struct {
		in  float32
		out uint8
	}{
		{-1, 0}, {0, 0}, {0.5, 128}, {1, 255}, {2, 255},
	}
	for _, spec := range specs {
		if got := clampByte(spec.in); got != spec.out {
			t.Fatalf("clampByte(%v): expected %d; got %d", spec.in, spec.out, got)
		}
	}
}
