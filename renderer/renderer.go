package renderer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/wave-glsl/fspt/log"
	"github.com/wave-glsl/fspt/scene"
	"github.com/wave-glsl/fspt/scene/compiler"
	"github.com/wave-glsl/fspt/tracer"
	"github.com/wave-glsl/fspt/types"
)

var logger = log.New("renderer")

const (
	// Coefficients for converting delta cursor movements to yaw/pitch camera angles.
	mouseSensitivityX float32 = 0.005
	mouseSensitivityY float32 = 0.005

	// Camera movement speed.
	cameraMoveSpeed float32 = 0.1

	// Wheel zoom per scroll notch.
	zoomStep float32 = 0.05

	// Tone-map adjustment steps.
	exposureStep   float32 = 1.1
	saturationStep float32 = 0.1

	// Environment rotation per keypress.
	envThetaStep float32 = 0.05
)

// Texture unit assignments shared by resource upload and pass binding. The
// two accumulators must occupy consecutive units starting at zero so the
// ping-pong source unit is just the sample parity.
const (
	unitAccumA uint32 = iota
	unitAccumB
	unitRayOrigin
	unitRayDir
	unitBvh
	unitTriangles
	unitNormals
	unitUVs
	unitMaterials
	unitLights
	unitAtlas
	unitEnv
)

// An interactive opengl renderer driving the three-pass progressive
// pipeline. All GL calls happen on the goroutine that calls New and Render;
// glfw requires that to be the main thread.
type Renderer struct {
	opts Options

	res    *compiler.Result
	camera *scene.Camera

	window *glfw.Window

	cameraProg  *program
	tracerProg  *program
	presentProg *program

	accum [2]*target
	rays  *cameraTarget
	quad  uint32

	loop *Loop

	lastCursorPos types.Vec2
	mousePressed  bool

	stats FrameStats
}

// Create a window, upload the packed scene and wire the progressive loop.
func New(res *compiler.Result, opts Options) (*Renderer, error) {
	r := &Renderer{
		opts:   opts,
		res:    res,
		camera: res.Packed.Camera,
	}

	if err := r.initGL(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.uploadResources(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.initPrograms(); err != nil {
		r.Close()
		return nil, err
	}

	passes := Passes{
		Camera:  r.cameraPass,
		Tracer:  r.tracerPass,
		Present: r.presentPass,
		Clear:   r.clearAccumulators,
	}
	if opts.Frame >= 0 {
		passes.Upload = r.deliverFrame
	}
	r.loop = NewLoop(passes, res.Packed.Samples, opts.Frame)

	// Seed the lens response before the first camera pass.
	tracer.Autofocus(res, r.camera, r.camera.Aperture)

	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)
	r.window.SetScrollCallback(r.onScrollEvent)

	return r, nil
}

func (r *Renderer) initGL() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("renderer: failed to initialize glfw: %v", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(r.opts.Width, r.opts.Height, r.opts.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("renderer: could not create opengl window: %v", err)
	}
	r.window = window
	r.window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return fmt.Errorf("renderer: could not init opengl: %v", err)
	}
	glfw.SwapInterval(1)

	logger.Noticef("opengl %s on %s", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	return nil
}

// Upload every packed buffer, the atlas and the environment map and create
// the render targets. Each resource is pinned to its texture unit for the
// lifetime of the renderer.
func (r *Renderer) uploadResources() error {
	start := time.Now()
	packed := r.res.Packed

	for _, b := range []struct {
		unit uint32
		buf  scene.Buffer
	}{
		{unitBvh, packed.Bvh},
		{unitTriangles, packed.Triangles},
		{unitNormals, packed.Normals},
		{unitUVs, packed.UVs},
		{unitMaterials, packed.Materials},
		{unitLights, packed.Lights},
	} {
		if _, err := newDataTexture(b.unit, b.buf); err != nil {
			return err
		}
	}

	newAtlasTexture(unitAtlas, packed.AtlasData, packed.AtlasRes, packed.AtlasLayers)
	newEnvTexture(unitEnv, packed.EnvPixels, packed.EnvWidth, packed.EnvHeight)

	var err error
	for i := range r.accum {
		if r.accum[i], err = newTarget(unitAccumA+uint32(i), r.opts.Width, r.opts.Height); err != nil {
			return err
		}
	}
	if r.rays, err = newCameraTarget(unitRayOrigin, unitRayDir, r.opts.Width, r.opts.Height); err != nil {
		return err
	}
	r.quad = newQuad()

	logger.Infof("uploaded scene resources in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

func (r *Renderer) initPrograms() error {
	var err error
	if r.cameraProg, err = newProgram(quadVertexShader, cameraFragmentShader, nil); err != nil {
		return err
	}

	tracerSrc := tracerFragmentShader
	if r.opts.Debug {
		tracerSrc = debugTracerShader
	}
	if r.tracerProg, err = newProgram(quadVertexShader, tracerSrc, r.res.Packed.Defines); err != nil {
		return err
	}
	if r.presentProg, err = newProgram(quadVertexShader, presentFragmentShader, nil); err != nil {
		return err
	}

	r.bindStaticUniforms()
	return nil
}

// Bind the sampler units and the uniform arrays that never change between
// frames.
func (r *Renderer) bindStaticUniforms() {
	packed := r.res.Packed

	r.tracerProg.use()
	for _, s := range []struct {
		name string
		unit uint32
	}{
		{"rayOriginTex", unitRayOrigin},
		{"rayDirTex", unitRayDir},
		{"bvhTex", unitBvh},
		{"triTex", unitTriangles},
		{"normTex", unitNormals},
		{"uvTex", unitUVs},
		{"matTex", unitMaterials},
		{"lightTex", unitLights},
		{"atlasTex", unitAtlas},
		{"envTex", unitEnv},
	} {
		gl.Uniform1i(r.tracerProg.uniform(s.name), int32(s.unit))
	}

	bins := make([]uint32, 0, len(packed.RadianceBins)*4)
	for _, b := range packed.RadianceBins {
		bins = append(bins, b[0], b[1], b[2], b[3])
	}
	if len(bins) > 0 {
		gl.Uniform4uiv(r.tracerProg.uniform("radianceBins"), int32(len(packed.RadianceBins)), &bins[0])
	}

	ranges := make([]int32, 0, len(packed.LightRanges)*2)
	for _, lr := range packed.LightRanges {
		ranges = append(ranges, int32(lr.First), int32(lr.Last))
	}
	if len(ranges) > 0 {
		gl.Uniform2iv(r.tracerProg.uniform("lightRanges"), int32(len(packed.LightRanges)), &ranges[0])
	}
	gl.Uniform1i(r.tracerProg.uniform("numLightRanges"), int32(len(packed.LightRanges)))
}

// Run ticks until the window closes or, in offline mode, the sample budget
// is spent and the frame delivered. Closing the window mid-budget in offline
// mode reports an interrupted render.
func (r *Renderer) Render() error {
	for !r.window.ShouldClose() {
		glfw.PollEvents()

		start := time.Now()
		cont, err := r.loop.Tick()
		if err != nil {
			return err
		}
		r.window.SwapBuffers()

		r.stats = FrameStats{
			Samples:    r.loop.Samples(),
			RenderTime: time.Since(start),
			ResScale:   r.loop.ResScale(),
		}
		r.window.SetTitle(fmt.Sprintf("%s | %s", r.opts.Title, r.stats))

		if !cont {
			return nil
		}
	}

	if r.opts.Frame >= 0 {
		return ErrInterrupted
	}
	return nil
}

func (r *Renderer) Stats() FrameStats {
	return r.stats
}

func (r *Renderer) Close() {
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
	}
	glfw.Terminate()
}

func (r *Renderer) scaledViewport() (int32, int32) {
	scale := r.loop.ResScale()
	return int32(float32(r.opts.Width) * scale), int32(float32(r.opts.Height) * scale)
}

func (r *Renderer) drawQuad() {
	gl.BindVertexArray(r.quad)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

// Write the per-pixel ray origin and direction textures.
func (r *Renderer) cameraPass() {
	w, h := r.scaledViewport()
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.rays.fbo)
	gl.Viewport(0, 0, w, h)

	p := r.cameraProg
	p.use()
	cam := r.camera
	gl.Uniform3f(p.uniform("eye"), cam.Position[0], cam.Position[1], cam.Position[2])
	gl.Uniform3f(p.uniform("viewDir"), cam.Direction[0], cam.Direction[1], cam.Direction[2])
	gl.Uniform1f(p.uniform("fovScale"), cam.FovScale)
	gl.Uniform2f(p.uniform("lensFeatures"), cam.LensFeatures[0], cam.LensFeatures[1])
	gl.Uniform2f(p.uniform("resolution"), float32(w), float32(h))
	gl.Uniform1f(p.uniform("seed"), rand.Float32())

	r.drawQuad()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Accumulate one sample: read accumulator (sample mod 2), write the other.
func (r *Renderer) tracerPass(sample int) {
	dst := r.accum[(sample+1)%2]
	w, h := r.scaledViewport()
	gl.BindFramebuffer(gl.FRAMEBUFFER, dst.fbo)
	gl.Viewport(0, 0, w, h)

	p := r.tracerProg
	p.use()
	gl.Uniform1i(p.uniform("accTex"), int32(unitAccumA)+int32(sample%2))
	gl.Uniform1f(p.uniform("sampleIndex"), float32(sample))
	gl.Uniform1f(p.uniform("envTheta"), r.camera.EnvTheta)
	gl.Uniform1f(p.uniform("resScale"), r.loop.ResScale())

	r.drawQuad()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Tone-map the latest accumulator to the default framebuffer.
func (r *Renderer) presentPass(sample int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.opts.Width), int32(r.opts.Height))

	p := r.presentProg
	p.use()
	gl.Uniform1i(p.uniform("accTex"), int32(unitAccumA)+int32(sample%2))
	gl.Uniform1f(p.uniform("samples"), float32(sample))
	gl.Uniform1f(p.uniform("exposure"), r.camera.Exposure)
	gl.Uniform1f(p.uniform("saturation"), r.camera.Saturation)
	gl.Uniform1f(p.uniform("resScale"), r.loop.ResScale())

	r.drawQuad()
}

func (r *Renderer) clearAccumulators() {
	r.accum[0].clear()
	r.accum[1].clear()
}

// Re-probe the focal depth after a pose change settles.
func (r *Renderer) refocus() {
	tracer.Autofocus(r.res, r.camera, r.camera.Aperture)
}

func (r *Renderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	var moveDir scene.CameraDirection
	switch key {
	case glfw.KeyEscape:
		r.window.SetShouldClose(true)
		return
	case glfw.KeyW:
		moveDir = scene.Forward
	case glfw.KeyS:
		moveDir = scene.Backward
	case glfw.KeyA:
		moveDir = scene.Left
	case glfw.KeyD:
		moveDir = scene.Right
	case glfw.KeyR:
		moveDir = scene.Up
	case glfw.KeyF:
		moveDir = scene.Down
	case glfw.KeyQ:
		r.camera.EnvTheta -= envThetaStep
		r.loop.Invalidate()
		return
	case glfw.KeyE:
		r.camera.EnvTheta += envThetaStep
		r.loop.Invalidate()
		return
	case glfw.KeyMinus:
		// Tone-map tweaks reuse the accumulated samples.
		r.camera.Exposure /= exposureStep
		return
	case glfw.KeyEqual:
		r.camera.Exposure *= exposureStep
		return
	case glfw.KeyLeftBracket:
		r.camera.Saturation = maxf(r.camera.Saturation-saturationStep, 0)
		return
	case glfw.KeyRightBracket:
		r.camera.Saturation += saturationStep
		return
	default:
		return
	}

	// Double speed if shift is pressed.
	var speedScaler float32 = 1.0
	if (mods & glfw.ModShift) == glfw.ModShift {
		speedScaler = 2.0
	}
	r.camera.Move(moveDir, speedScaler*cameraMoveSpeed)
	r.refocus()
	r.loop.Invalidate()
}

func (r *Renderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}

	switch action {
	case glfw.Press:
		xPos, yPos := w.GetCursorPos()
		r.lastCursorPos = types.Vec2{float32(xPos), float32(yPos)}
		r.mousePressed = true
		r.loop.SetMoving(true)
	case glfw.Release:
		r.mousePressed = false
		r.loop.SetMoving(false)
		r.refocus()
		r.loop.Invalidate()
	}
}

func (r *Renderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !r.mousePressed {
		return
	}

	newPos := types.Vec2{float32(xPos), float32(yPos)}
	delta := r.lastCursorPos.Sub(newPos)
	r.lastCursorPos = newPos

	r.camera.Rotate(delta[0]*mouseSensitivityX, delta[1]*mouseSensitivityY)
	r.loop.Invalidate()
}

func (r *Renderer) onScrollEvent(w *glfw.Window, xOff, yOff float64) {
	r.camera.Zoom(1.0 - float32(yOff)*zoomStep)
	r.refocus()
	r.loop.Invalidate()
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
