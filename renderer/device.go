package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/wave-glsl/fspt/scene"
)

// A compiled shader program plus a uniform location cache.
type program struct {
	handle   uint32
	uniforms map[string]int32
}

// Compile and link a program, splicing the preprocessor defines in right
// after the fragment source's #version line.
func newProgram(vertexSrc, fragmentSrc string, defines []string) (*program, error) {
	fragmentSrc = injectDefines(fragmentSrc, defines)

	vertex, err := compileShader(gl.VERTEX_SHADER, "vertex", vertexSrc)
	if err != nil {
		return nil, err
	}
	fragment, err := compileShader(gl.FRAGMENT_SHADER, "fragment", fragmentSrc)
	if err != nil {
		gl.DeleteShader(vertex)
		return nil, err
	}

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vertex)
	gl.AttachShader(handle, fragment)
	gl.LinkProgram(handle)
	gl.DeleteShader(vertex)
	gl.DeleteShader(fragment)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return nil, fmt.Errorf("renderer: program link failed: %s", programInfoLog(handle))
	}

	return &program{
		handle:   handle,
		uniforms: make(map[string]int32),
	}, nil
}

func (p *program) use() {
	gl.UseProgram(p.handle)
}

func (p *program) uniform(name string) int32 {
	if loc, exists := p.uniforms[name]; exists {
		return loc
	}
	loc := gl.GetUniformLocation(p.handle, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

func compileShader(kind uint32, kindName, src string) (uint32, error) {
	handle := gl.CreateShader(kind)
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)

	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLen)
		infoLog := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(handle, logLen, nil, gl.Str(infoLog))
		gl.DeleteShader(handle)
		return 0, fmt.Errorf("renderer: %s shader compile failed: %s", kindName, strings.TrimRight(infoLog, "\x00"))
	}
	return handle, nil
}

func programInfoLog(handle uint32) string {
	var logLen int32
	gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLen)
	infoLog := strings.Repeat("\x00", int(logLen+1))
	gl.GetProgramInfoLog(handle, logLen, nil, gl.Str(infoLog))
	return strings.TrimRight(infoLog, "\x00")
}

// Insert preprocessor directives after the #version line so they precede
// every use in the shader body.
func injectDefines(src string, defines []string) string {
	if len(defines) == 0 {
		return src
	}

	block := strings.Join(defines, "\n") + "\n"
	if idx := strings.Index(src, "\n"); idx >= 0 && strings.HasPrefix(src, "#version") {
		return src[:idx+1] + block + src[idx+1:]
	}
	return block + src
}

// Upload a packed buffer as a float texture the tracer indexes with
// texelFetch. Two-channel buffers map to RG32F, three-channel to RGB32F.
func newDataTexture(unit uint32, buf scene.Buffer) (uint32, error) {
	var internal int32
	var format uint32
	switch buf.Channels {
	case 2:
		internal, format = gl.RG32F, gl.RG
	case 3:
		internal, format = gl.RGB32F, gl.RGB
	default:
		return 0, fmt.Errorf("renderer: %s buffer has unsupported channel count %d", buf.Name, buf.Channels)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	var ptr interface{}
	if len(buf.Data) > 0 {
		ptr = buf.Data
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(buf.Width), int32(buf.Height), 0, format, gl.FLOAT, gl.Ptr(ptr))
	return tex, nil
}

// Upload the material atlas as an RGBA texture array, one layer per packed
// image.
func newAtlasTexture(unit uint32, data []uint8, res, layers int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, tex)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.REPEAT)

	var ptr interface{}
	if len(data) > 0 {
		ptr = data
	}
	gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, gl.RGBA8, int32(res), int32(res), int32(layers), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(ptr))
	return tex
}

// Upload the environment map.
func newEnvTexture(unit uint32, pixels []uint8, width, height int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return tex
}

// A float render target with its framebuffer.
type target struct {
	tex uint32
	fbo uint32
}

// Create a floating point render target sized to the output. Used for the
// two accumulators; the camera ray textures use a cameraTarget.
func newTarget(unit uint32, width, height int) (*target, error) {
	t := &target{}
	t.tex = newFloatTexture(unit, width, height)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return nil, fmt.Errorf("renderer: framebuffer incomplete: 0x%x", status)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	return t, nil
}

// The camera pass writes ray origins and directions into two color
// attachments of a single framebuffer.
type cameraTarget struct {
	originTex uint32
	dirTex    uint32
	fbo       uint32
}

func newCameraTarget(originUnit, dirUnit uint32, width, height int) (*cameraTarget, error) {
	t := &cameraTarget{}
	t.originTex = newFloatTexture(originUnit, width, height)
	t.dirTex = newFloatTexture(dirUnit, width, height)

	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.originTex, 0)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, gl.TEXTURE_2D, t.dirTex, 0)
	attachments := []uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
	gl.DrawBuffers(2, &attachments[0])
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return nil, fmt.Errorf("renderer: camera framebuffer incomplete: 0x%x", status)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	return t, nil
}

func newFloatTexture(unit uint32, width, height int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	return tex
}

// Zero a render target.
func (t *target) clear() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// A fullscreen quad shared by every pass.
func newQuad() uint32 {
	verts := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		-1, 1,
		1, -1,
		1, 1,
	}

	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 0, nil)
	gl.BindVertexArray(0)

	return vao
}
