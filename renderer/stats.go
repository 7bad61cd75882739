package renderer

import (
	"fmt"
	"time"
)

// Per-tick render statistics shown in the window title.
type FrameStats struct {
	// Accumulated sample count.
	Samples int

	// Wall time of the last tick.
	RenderTime time.Duration

	// Resolution scale the last tick rendered at.
	ResScale float32
}

func (s FrameStats) String() string {
	ms := float64(s.RenderTime.Nanoseconds()) / 1e6
	if s.ResScale != 1.0 {
		return fmt.Sprintf("%d samples | %.1f ms | %.0f%% res", s.Samples, ms, s.ResScale*100)
	}
	return fmt.Sprintf("%d samples | %.1f ms", s.Samples, ms)
}
