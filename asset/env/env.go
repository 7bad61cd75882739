package env

import (
	"fmt"
	"image"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/wave-glsl/fspt/asset"
	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/types"
)

// The number of rows a gradient environment is rasterized into.
const GradientHeight = 2048

// An environment map ready for upload: equirectangular RGBA pixels plus the
// importance bins the sampler uses for environment light selection.
type Map struct {
	Pixels []uint8
	Width  int
	Height int

	// Importance regions as (x0, y0, x1, y1) pixel rects of roughly equal
	// radiance, produced by median-cut subdivision.
	Bins [][4]uint32
}

// Load an equirectangular environment image and derive its importance bins.
func Load(res *asset.Resource, binCount int) (*Map, error) {
	logger := log.New("env")
	start := time.Now()

	img, _, err := image.Decode(res)
	if err != nil {
		return nil, fmt.Errorf("env: could not decode '%s': %v", res.Path(), err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			o := (y*w + x) * 4
			pixels[o] = uint8(r >> 8)
			pixels[o+1] = uint8(g >> 8)
			pixels[o+2] = uint8(b >> 8)
			pixels[o+3] = uint8(a >> 8)
		}
	}

	m := &Map{Pixels: pixels, Width: w, Height: h}
	m.Bins = medianCut(pixels, w, h, binCount)

	logger.Noticef("prepared %dx%d environment with %d bins in %d ms", w, h, len(m.Bins), time.Since(start).Nanoseconds()/1e6)
	return m, nil
}

// Rasterize a gradient environment from color stops: a one-column texture
// whose rows interpolate linearly through the stops, the stop intervals
// partitioning the rows evenly. A single gradient bin covers the whole
// texture since a smooth gradient has no hot spots worth importance
// sampling.
func Gradient(stops []types.Vec3) (*Map, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("env: gradient needs at least one color stop")
	}

	pixels := make([]uint8, GradientHeight*4)
	for y := 0; y < GradientHeight; y++ {
		c := stops[0]
		if len(stops) > 1 {
			pos := float32(y) / float32(GradientHeight-1) * float32(len(stops)-1)
			i := int(pos)
			if i >= len(stops)-1 {
				i = len(stops) - 2
			}
			c = stops[i].Lerp(stops[i+1], pos-float32(i))
		}

		o := y * 4
		pixels[o] = clampByte(c[0])
		pixels[o+1] = clampByte(c[1])
		pixels[o+2] = clampByte(c[2])
		pixels[o+3] = 255
	}

	return &Map{
		Pixels: pixels,
		Width:  1,
		Height: GradientHeight,
		Bins:   [][4]uint32{{0, 0, 1, GradientHeight}},
	}, nil
}

// Median-cut subdivision of the radiance map. The brightest region is split
// along its longer axis at the column or row where the cumulative luminance
// reaches half, until binCount regions exist. Every region then carries
// roughly equal radiance, which is exactly what the sampler wants for
// proportional light selection.
func medianCut(pixels []uint8, w, h, binCount int) [][4]uint32 {
	lum := make([]float64, w*h)
	for i := 0; i < w*h; i++ {
		o := i * 4
		lum[i] = 0.2126*float64(pixels[o]) + 0.7152*float64(pixels[o+1]) + 0.0722*float64(pixels[o+2])
	}

	// Summed area table, one row and column of zero padding.
	sat := make([]float64, (w+1)*(h+1))
	for y := 1; y <= h; y++ {
		for x := 1; x <= w; x++ {
			sat[y*(w+1)+x] = lum[(y-1)*w+x-1] +
				sat[(y-1)*(w+1)+x] + sat[y*(w+1)+x-1] - sat[(y-1)*(w+1)+x-1]
		}
	}
	regionSum := func(x0, y0, x1, y1 int) float64 {
		return sat[y1*(w+1)+x1] - sat[y0*(w+1)+x1] - sat[y1*(w+1)+x0] + sat[y0*(w+1)+x0]
	}

	type region struct{ x0, y0, x1, y1 int }
	regions := []region{{0, 0, w, h}}

	for len(regions) < binCount {
		// Pick the splittable region with the largest radiance.
		best, bestSum := -1, 0.0
		for i, r := range regions {
			if r.x1-r.x0 < 2 && r.y1-r.y0 < 2 {
				continue
			}
			if s := regionSum(r.x0, r.y0, r.x1, r.y1); best == -1 || s > bestSum {
				best, bestSum = i, s
			}
		}
		if best == -1 {
			break
		}

		r := regions[best]
		half := regionSum(r.x0, r.y0, r.x1, r.y1) / 2

		var a, b region
		if r.x1-r.x0 >= r.y1-r.y0 {
			cut := r.x0 + 1
			for ; cut < r.x1-1; cut++ {
				if regionSum(r.x0, r.y0, cut, r.y1) >= half {
					break
				}
			}
			a = region{r.x0, r.y0, cut, r.y1}
			b = region{cut, r.y0, r.x1, r.y1}
		} else {
			cut := r.y0 + 1
			for ; cut < r.y1-1; cut++ {
				if regionSum(r.x0, r.y0, r.x1, cut) >= half {
					break
				}
			}
			a = region{r.x0, r.y0, r.x1, cut}
			b = region{r.x0, cut, r.x1, r.y1}
		}

		regions[best] = a
		regions = append(regions, b)
	}

	bins := make([][4]uint32, len(regions))
	for i, r := range regions {
		bins[i] = [4]uint32{uint32(r.x0), uint32(r.y0), uint32(r.x1), uint32(r.y1)}
	}
	return bins
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
