package compiler

import (
	"fmt"
	"math"

	"github.com/wave-glsl/fspt/scene"
)

// Pad a flat float array out to a 2D texture rectangle. The width is the
// square root of the pixel count rounded up to a multiple of perElement so
// that no logical record straddles a row boundary; the tail is padded with
// -1 cells.
func packBuffer(name string, data []float32, channels, perElement int) scene.Buffer {
	numPixels := len(data) / channels

	width := int(math.Ceil(math.Sqrt(float64(numPixels))/float64(perElement))) * perElement
	if width == 0 {
		width = perElement
	}
	height := (numPixels + width - 1) / width
	if height == 0 {
		height = 1
	}

	padding := width*height*channels - len(data)
	if padding < 0 {
		panic(fmt.Sprintf("compiler: %s buffer rectangle smaller than its payload (%d cells over)", name, -padding))
	}

	padded := make([]float32, len(data), len(data)+padding)
	copy(padded, data)
	for i := 0; i < padding; i++ {
		padded = append(padded, -1)
	}

	return scene.Buffer{
		Name:     name,
		Data:     padded,
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}
