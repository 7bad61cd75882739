package scene

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// A packed buffer: a flat float32 array padded out to a Width x Height
// texture rectangle with Channels floats per pixel. Padding cells hold -1.
type Buffer struct {
	Name     string
	Data     []float32
	Width    int
	Height   int
	Channels int
}

// A contiguous slab of emissive triangles inside the light buffer,
// identified by first/last triangle ordinals.
type LightRange struct {
	First int
	Last  int
}

// The fully packed scene: every buffer the tracer pass samples, plus the
// atlas and environment products and the shader preprocessor directives
// derived from the descriptor and run mode.
type PackedScene struct {
	Bvh       Buffer
	Triangles Buffer
	Normals   Buffer
	UVs       Buffer
	Materials Buffer
	Lights    Buffer

	LightRanges []LightRange

	// Material atlas: AtlasLayers slices of AtlasRes^2 RGBA pixels.
	AtlasData   []uint8
	AtlasRes    int
	AtlasLayers int

	// Environment map pixels (RGBA) and importance bins.
	EnvPixels    []uint8
	EnvWidth     int
	EnvHeight    int
	RadianceBins [][4]uint32

	// Preprocessor directives injected into the tracer shader.
	Defines []string

	Camera  *Camera
	Samples int
}

// Build a tabular representation of packed scene sizes.
func (ps *PackedScene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Buffer", "Dims", "Size"})

	total := 0
	for _, b := range []*Buffer{&ps.Bvh, &ps.Triangles, &ps.Normals, &ps.UVs, &ps.Materials, &ps.Lights} {
		byteLen := len(b.Data) * 4
		total += byteLen
		table.Append([]string{b.Name, fmt.Sprintf("%dx%dx%d", b.Width, b.Height, b.Channels), fmtSize(byteLen)})
	}
	table.Append([]string{"atlas", fmt.Sprintf("%dx%dx%d", ps.AtlasRes, ps.AtlasRes, ps.AtlasLayers), fmtSize(len(ps.AtlasData))})
	table.Append([]string{"environment", fmt.Sprintf("%dx%d", ps.EnvWidth, ps.EnvHeight), fmtSize(len(ps.EnvPixels))})
	total += len(ps.AtlasData) + len(ps.EnvPixels)
	table.SetFooter([]string{"Total", fmt.Sprintf("%d light ranges", len(ps.LightRanges)), fmtSize(total)})

	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes int) string {
	switch {
	case totalBytes < 1e3:
		return fmt.Sprintf("%3d bytes", totalBytes)
	case totalBytes < 1e6:
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float32(totalBytes)/1e6)
}
