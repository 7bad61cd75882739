package scene

import (
	"github.com/wave-glsl/fspt/types"
)

// Directions the camera can be moved in by the WASD/RF key handlers.
type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

var worldUp = types.Vec3{0, 1, 0}

// The camera holds all mutable view state. Pose, lens and environment
// rotation changes invalidate accumulated samples; exposure and saturation
// only feed the tone-map pass.
type Camera struct {
	Position  types.Vec3
	Direction types.Vec3

	FovScale float32
	Aperture float32

	// (1 - 1/focalDepth, aperture) as consumed by the camera pass.
	LensFeatures types.Vec2
	FocalDepth   float32

	EnvTheta   float32
	Exposure   float32
	Saturation float32
}

// Create a camera from the descriptor's initial state.
func NewCamera(desc *Descriptor) *Camera {
	dir := desc.CameraDir.Normalize()
	if dir.Len() == 0 {
		dir = types.Vec3{0, 0, -1}
	}

	return &Camera{
		Position:   desc.CameraPos,
		Direction:  dir,
		FovScale:   desc.FovScale,
		Aperture:   desc.Aperture,
		EnvTheta:   desc.EnvironmentTheta,
		Exposure:   desc.Exposure,
		Saturation: 1.0,
	}
}

// Translate the camera along its local axes.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	right := c.Direction.Cross(worldUp).Normalize()

	switch dir {
	case Forward:
		c.Position = c.Position.Add(c.Direction.Mul(amount))
	case Backward:
		c.Position = c.Position.Sub(c.Direction.Mul(amount))
	case Left:
		c.Position = c.Position.Sub(right.Mul(amount))
	case Right:
		c.Position = c.Position.Add(right.Mul(amount))
	case Up:
		c.Position = c.Position.Add(worldUp.Mul(amount))
	case Down:
		c.Position = c.Position.Sub(worldUp.Mul(amount))
	}
}

// Rotate the view direction by yaw around world up and pitch around the
// local right axis.
func (c *Camera) Rotate(yaw, pitch float32) {
	dir := c.Direction.Rotate(worldUp, yaw)
	right := dir.Cross(worldUp).Normalize()
	dir = dir.Rotate(right, pitch).Normalize()

	// Refuse to flip over the poles
	if dir.Cross(worldUp).Len() < 1e-4 {
		return
	}
	c.Direction = dir
}

// Scale the field of view; wheel deltas multiply so zooming is symmetric.
func (c *Camera) Zoom(scale float32) {
	c.FovScale *= scale
}

// Record an autofocus probe result. A miss (infinite depth) degenerates to
// a pinhole response of (1, aperture).
func (c *Camera) SetFocalDepth(depth, aperture float32) {
	c.FocalDepth = depth
	c.LensFeatures = types.Vec2{1.0 - 1.0/depth, aperture}
}
