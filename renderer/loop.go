package renderer

// The resolution scale applied while the camera is moving so interaction
// stays responsive.
const movingResScale float32 = 0.25

// The draw passes one tick executes. Split out as plain functions so the
// loop logic can run against counters in tests.
type Passes struct {
	// Write the per-pixel ray origin/direction textures.
	Camera func()

	// Accumulate one sample. Receives the sample ordinal, which selects
	// the ping-pong source and destination targets.
	Tracer func(sample int)

	// Tone-map the latest accumulator to the screen. Receives the current
	// sample counter.
	Present func(sample int)

	// Zero both accumulator targets.
	Clear func()

	// Deliver the finished frame. Only invoked when a frame index is set.
	Upload func() error
}

// The progressive sampling loop state. All mutation happens on the tick
// goroutine; input callbacks only flip the flags.
type Loop struct {
	passes Passes

	max   int
	frame int

	pingpong int
	dirty    bool
	moving   bool
	active   bool
	resScale float32
}

func NewLoop(passes Passes, max, frame int) *Loop {
	return &Loop{
		passes:   passes,
		max:      max,
		frame:    frame,
		active:   true,
		resScale: 1.0,
	}
}

// Invalidate accumulated samples. The clear itself happens inside the next
// tick so the accumulator is never zeroed mid-frame.
func (l *Loop) Invalidate() {
	l.dirty = true
}

// Flag the camera as moving or settled. While moving, ticks render at
// reduced resolution and a pending clear skips the accumulator wipe since
// every moving frame overwrites it anyway.
func (l *Loop) SetMoving(moving bool) {
	l.moving = moving
}

// Suspend or resume sample accumulation. Presentation continues either way.
func (l *Loop) SetActive(active bool) {
	l.active = active
}

// The sample counter.
func (l *Loop) Samples() int {
	return l.pingpong
}

// The resolution scale chosen by the last tick.
func (l *Loop) ResScale() float32 {
	return l.resScale
}

// Advance one frame: camera and tracer passes while the sample budget
// lasts, then present, then handle invalidation and completion. Returns
// false once the budget is spent and the frame has been delivered.
func (l *Loop) Tick() (bool, error) {
	if l.moving {
		l.resScale = movingResScale
	} else {
		l.resScale = 1.0
	}

	if l.max > 0 && l.pingpong <= l.max && l.active {
		l.passes.Camera()
		l.passes.Tracer(l.pingpong)
		l.pingpong++
	}

	l.passes.Present(l.pingpong)

	if l.dirty {
		if !l.moving {
			l.passes.Clear()
		}
		l.pingpong = 0
		l.dirty = false
	}

	if l.pingpong >= l.max && l.frame >= 0 {
		if l.passes.Upload != nil {
			if err := l.passes.Upload(); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	return true, nil
}
