package compiler

import "testing"

func TestPackBufferRectangle(t *testing.T) {
	// 15 floats at 3 channels make 5 pixels; sqrt(5) rounds up to one
	// 3-pixel-wide element, so the rectangle is 3x2 with 3 pad cells.
	data := make([]float32, 15)
	for i := range data {
		data[i] = float32(i)
	}

	b := packBuffer("triangles", data, 3, 3)
	if b.Width != 3 || b.Height != 2 {
		t.Fatalf("expected a 3x2 rectangle; got %dx%d", b.Width, b.Height)
	}
	if len(b.Data) != b.Width*b.Height*b.Channels {
		t.Fatalf("expected %d cells; got %d", b.Width*b.Height*b.Channels, len(b.Data))
	}
	for i, v := range data {
		if b.Data[i] != v {
			t.Fatalf("cell %d: expected %v; got %v", i, v, b.Data[i])
		}
	}
	for i := len(data); i < len(b.Data); i++ {
		if b.Data[i] != -1 {
			t.Fatalf("pad cell %d: expected -1; got %v", i, b.Data[i])
		}
	}
}

func TestPackBufferEmpty(t *testing.T) {
	b := packBuffer("lights", nil, 3, 3)
	if b.Width != 3 || b.Height != 1 {
		t.Fatalf("expected a 3x1 rectangle; got %dx%d", b.Width, b.Height)
	}
	for i, v := range b.Data {
		if v != -1 {
			t.Fatalf("cell %d: expected -1; got %v", i, v)
		}
	}
}

func TestPackBufferNoRecordStraddlesRows(t *testing.T) {
	// 100 normal records of 27 floats (9 pixels) each. Every record must
	// start and end on the same row for the shader's fixed-stride fetches to
	// work.
	data := make([]float32, 100*27)
	b := packBuffer("normals", data, 3, 9)

	if b.Width%9 != 0 {
		t.Fatalf("width %d is not a multiple of the 9-pixel record", b.Width)
	}
	perRow := b.Width / 9
	if perRow*b.Height < 100 {
		t.Fatalf("rectangle %dx%d cannot hold 100 records", b.Width, b.Height)
	}
}
