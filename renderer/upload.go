package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Deliver the finished frame: POST it to the upload endpoint when one is
// configured, otherwise write it to the Out path, or to <scene>-<frame>.png
// in the working directory when Out is empty.
func (r *Renderer) deliverFrame() error {
	start := time.Now()
	img := r.readFrame()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("renderer: could not encode frame: %v", err)
	}

	if r.opts.UploadURL == "" {
		out := r.opts.Out
		if out == "" {
			out = fmt.Sprintf("%s-%04d.png", r.opts.SceneName, r.opts.Frame)
		}
		if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("renderer: could not write frame: %v", err)
		}
		logger.Noticef("wrote frame %d to %s in %d ms", r.opts.Frame, out, time.Since(start).Nanoseconds()/1e6)
		return nil
	}

	endpoint := fmt.Sprintf("%s/upload/%s/%d", strings.TrimRight(r.opts.UploadURL, "/"), r.opts.SceneName, r.opts.Frame)
	resp, err := http.Post(endpoint, "image/png", &buf)
	if err != nil {
		return fmt.Errorf("renderer: frame upload failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("renderer: frame upload to %s failed with status %d", endpoint, resp.StatusCode)
	}

	logger.Noticef("uploaded frame %d to %s in %d ms", r.opts.Frame, endpoint, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Read the default framebuffer back and flip it; gl rows run bottom-up.
func (r *Renderer) readFrame() *image.RGBA {
	w, h := r.opts.Width, r.opts.Height
	pixels := make([]uint8, w*h*4)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rowLen := w * 4
	for y := 0; y < h; y++ {
		src := pixels[(h-1-y)*rowLen : (h-y)*rowLen]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}
