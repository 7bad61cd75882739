package atlas

import (
	"fmt"
	"image"
	"time"

	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/types"
)

// An Atlas packs material images and flat colors into the layers of a square
// RGBA texture array. Every layer shares one resolution so the sampler can
// address the whole set with a single array index.
//
// Images and colors are deduplicated: adding the same path or the same color
// twice returns the first layer's index.
type Atlas struct {
	logger log.Logger

	res    int
	layers [][]uint8

	pathCache  map[string]int
	colorCache map[types.Vec3]int
}

// Create an empty atlas with the given per-layer resolution.
func New(res int) *Atlas {
	return &Atlas{
		logger:     log.New("atlas"),
		res:        res,
		pathCache:  make(map[string]int),
		colorCache: make(map[types.Vec3]int),
	}
}

// Per-layer resolution.
func (a *Atlas) Res() int {
	return a.res
}

// Number of packed layers.
func (a *Atlas) Layers() int {
	return len(a.layers)
}

// All layers concatenated in index order, res*res*4 bytes each.
func (a *Atlas) Data() []uint8 {
	out := make([]uint8, 0, len(a.layers)*a.res*a.res*4)
	for _, layer := range a.layers {
		out = append(out, layer...)
	}
	return out
}

// Decode an image resource, resample it to the atlas resolution and pack it
// into a new layer. Returns the layer index.
func (a *Atlas) AddTexture(path string, relTo *asset.Resource) (int, error) {
	return a.AddTextureSwizzled(path, relTo, "")
}

// Like AddTexture but with an RGB channel swizzle such as "bgr" applied
// while packing. Metallic-roughness maps exported with shuffled channels
// pass their swizzle through here.
func (a *Atlas) AddTextureSwizzled(path string, relTo *asset.Resource, swizzle string) (int, error) {
	res, err := asset.Open(path, relTo)
	if err != nil {
		return -1, err
	}
	defer res.Close()

	cacheKey := res.Path() + "|" + swizzle
	if index, exists := a.pathCache[cacheKey]; exists {
		return index, nil
	}

	start := time.Now()
	img, _, err := image.Decode(res)
	if err != nil {
		return -1, fmt.Errorf("atlas: could not decode '%s': %v", res.Path(), err)
	}

	layer := image.NewRGBA(image.Rect(0, 0, a.res, a.res))
	xdraw.CatmullRom.Scale(layer, layer.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	if err := applySwizzle(layer.Pix, swizzle); err != nil {
		return -1, fmt.Errorf("atlas: '%s': %v", res.Path(), err)
	}

	index := len(a.layers)
	a.layers = append(a.layers, layer.Pix)
	a.pathCache[cacheKey] = index

	a.logger.Infof(
		"packed %s into layer %d (%dx%d -> %dx%d) in %d ms",
		res.Path(), index,
		img.Bounds().Dx(), img.Bounds().Dy(), a.res, a.res,
		time.Since(start).Nanoseconds()/1e6,
	)
	return index, nil
}

// Pack a flat color as a solid layer. Returns the layer index.
func (a *Atlas) AddColor(c types.Vec3) int {
	if index, exists := a.colorCache[c]; exists {
		return index
	}

	layer := make([]uint8, a.res*a.res*4)
	r, g, b := colorByte(c[0]), colorByte(c[1]), colorByte(c[2])
	for i := 0; i < len(layer); i += 4 {
		layer[i] = r
		layer[i+1] = g
		layer[i+2] = b
		layer[i+3] = 255
	}

	index := len(a.layers)
	a.layers = append(a.layers, layer)
	a.colorCache[c] = index
	return index
}

// Reorder the RGB channels of every pixel per a three-letter swizzle string.
// The empty swizzle is the identity.
func applySwizzle(pix []uint8, swizzle string) error {
	if swizzle == "" {
		return nil
	}
	if len(swizzle) != 3 {
		return fmt.Errorf("swizzle must name three channels; got '%s'", swizzle)
	}

	var sel [3]int
	for i := 0; i < 3; i++ {
		switch swizzle[i] {
		case 'r':
			sel[i] = 0
		case 'g':
			sel[i] = 1
		case 'b':
			sel[i] = 2
		default:
			return fmt.Errorf("swizzle channel '%c' is not one of r, g, b", swizzle[i])
		}
	}

	for o := 0; o < len(pix); o += 4 {
		src := [3]uint8{pix[o], pix[o+1], pix[o+2]}
		pix[o] = src[sel[0]]
		pix[o+1] = src[sel[1]]
		pix[o+2] = src[sel[2]]
	}
	return nil
}

func colorByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
