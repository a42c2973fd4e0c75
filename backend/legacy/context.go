package legacy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

// ErrMissingUniform is returned when a linked program lacks u_transform.
var ErrMissingUniform = errors.New("legacy: program has no " + TransformUniform + " uniform")

type glBuffer struct {
	id   uint32 // 0 for uniform buffers
	size int

	// shadow holds uniform data; nil for vertex buffers.
	shadow []byte
}

type program struct {
	key       backend.PipelineKey
	id        uint32
	transform int32
}

// Context is a live Legacy backend.
type Context struct {
	mu  sync.Mutex
	log *slog.Logger

	gl      GL
	surface GLSurface
	variant string
	lang    shader.Language
	vao     uint32

	next     backend.Handle
	buffers  map[backend.Handle]*glBuffer
	programs map[backend.Handle]*program

	lastClear [4]float32
	destroyed bool
}

var _ backend.Context = (*Context)(nil)

func newContext(gl GL, surface GLSurface, variant string, lang shader.Language, log *slog.Logger) *Context {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Context{
		log:      log,
		gl:       gl,
		surface:  surface,
		variant:  variant,
		lang:     lang,
		buffers:  make(map[backend.Handle]*glBuffer),
		programs: make(map[backend.Handle]*program),
	}
	if va, ok := gl.(VertexArrays); ok {
		c.vao = va.GenVertexArray()
		va.BindVertexArray(c.vao)
	}
	gl.Disable(DepthTest)
	gl.Disable(CullFace)
	return c
}

// Kind returns backend.Legacy.
func (c *Context) Kind() backend.Kind { return backend.Legacy }

// Variant returns "legacy/gl33" or "legacy/gl21".
func (c *Context) Variant() string { return c.variant }

// ShaderLanguage returns the GLSL dialect of the variant.
func (c *Context) ShaderLanguage() shader.Language { return c.lang }

// SurfaceSize returns the surface size, at least 1x1.
func (c *Context) SurfaceSize() (width, height int) {
	width, height = c.surface.Size()
	return max(width, 1), max(height, 1)
}

// LastClear returns the clear color of the last presented frame.
func (c *Context) LastClear() [4]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastClear
}

// Stats reports live buffer and program counts.
func (c *Context) Stats() (buffers, programs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffers), len(c.programs)
}

func (c *Context) allocHandle() backend.Handle {
	c.next++
	return c.next
}

// CreateVertexResource creates an array buffer holding data.
func (c *Context) CreateVertexResource(label string, data []byte) (backend.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.NoHandle, backend.ErrDestroyed
	}
	if len(data) == 0 {
		return backend.NoHandle, fmt.Errorf("create %s: empty: %w", label, backend.ErrResourceCreation)
	}
	id := c.gl.GenBuffer()
	if id == 0 {
		return backend.NoHandle, fmt.Errorf("create %s: %w", label, backend.ErrResourceCreation)
	}
	c.gl.BindBuffer(ArrayBuffer, id)
	c.gl.BufferData(ArrayBuffer, data, DynamicDraw)
	if e := c.gl.GetError(); e != NoError {
		c.gl.DeleteBuffer(id)
		return backend.NoHandle, fmt.Errorf("create %s: GL error 0x%x: %w", label, e, backend.ErrResourceCreation)
	}

	h := c.allocHandle()
	c.buffers[h] = &glBuffer{id: id, size: len(data)}
	c.log.Debug("buffer created", "label", label, "size", len(data))
	return h, nil
}

// CreateUniformResource allocates a zeroed CPU shadow of size bytes.
func (c *Context) CreateUniformResource(label string, size int) (backend.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.NoHandle, backend.ErrDestroyed
	}
	if size <= 0 {
		return backend.NoHandle, fmt.Errorf("create %s: size %d: %w", label, size, backend.ErrResourceCreation)
	}
	h := c.allocHandle()
	c.buffers[h] = &glBuffer{size: size, shadow: make([]byte, size)}
	c.log.Debug("buffer created", "label", label, "size", size, "uniform", true)
	return h, nil
}

// WriteResource writes data at offset.
func (c *Context) WriteResource(h backend.Handle, offset int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.ErrDestroyed
	}
	b, ok := c.buffers[h]
	if !ok {
		return fmt.Errorf("write %d: %w", h, backend.ErrInvalidHandle)
	}
	if offset < 0 || offset+len(data) > b.size {
		return fmt.Errorf("write %d bytes at %d into %d: %w", len(data), offset, b.size, backend.ErrOutOfRange)
	}
	if b.shadow != nil {
		copy(b.shadow[offset:], data)
		return nil
	}
	c.gl.BindBuffer(ArrayBuffer, b.id)
	c.gl.BufferSubData(ArrayBuffer, offset, data)
	return nil
}

// ReleaseResource deletes a buffer.
func (c *Context) ReleaseResource(h backend.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.buffers[h]
	if !ok || c.destroyed {
		return
	}
	if b.id != 0 {
		c.gl.DeleteBuffer(b.id)
	}
	delete(c.buffers, h)
}

// CompilePipeline compiles and links mod's vertex and fragment stages.
// Compile and link failures are returned as *shader.CompileError carrying
// the GL info log.
func (c *Context) CompilePipeline(key backend.PipelineKey, mod *shader.Module) (backend.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return backend.NoHandle, backend.ErrDestroyed
	}
	if mod == nil || mod.Lang != c.lang {
		return backend.NoHandle, &shader.CompileError{Path: key.Shader, Lang: c.lang, Err: shader.ErrUnknownLanguage}
	}
	fail := func(err error) (backend.Handle, error) {
		return backend.NoHandle, &shader.CompileError{Path: mod.Path, Lang: mod.Lang, Err: err}
	}

	vs, err := c.compileStage(VertexShader, mod.Vertex)
	if err != nil {
		return fail(fmt.Errorf("vertex: %w", err))
	}
	defer c.gl.DeleteShader(vs)
	fs, err := c.compileStage(FragmentShader, mod.Fragment)
	if err != nil {
		return fail(fmt.Errorf("fragment: %w", err))
	}
	defer c.gl.DeleteShader(fs)

	id := c.gl.CreateProgram()
	c.gl.AttachShader(id, vs)
	c.gl.AttachShader(id, fs)
	c.gl.BindAttribLocation(id, positionAttrib, PositionAttribName)
	c.gl.BindAttribLocation(id, colorAttrib, ColorAttribName)
	c.gl.LinkProgram(id)
	if ok, infoLog := c.gl.ProgramStatus(id); !ok {
		c.gl.DeleteProgram(id)
		return fail(fmt.Errorf("link: %s", infoLog))
	}
	loc := c.gl.GetUniformLocation(id, TransformUniform)
	if loc < 0 {
		c.gl.DeleteProgram(id)
		return fail(ErrMissingUniform)
	}

	h := c.allocHandle()
	c.programs[h] = &program{key: key, id: id, transform: loc}
	c.log.Debug("pipeline compiled", "key", key.String())
	return h, nil
}

func (c *Context) compileStage(stage uint32, src string) (uint32, error) {
	if src == "" {
		return 0, shader.ErrMissingStage
	}
	sh := c.gl.CreateShader(stage)
	c.gl.ShaderSource(sh, src)
	c.gl.CompileShader(sh)
	if ok, infoLog := c.gl.ShaderStatus(sh); !ok {
		c.gl.DeleteShader(sh)
		return 0, fmt.Errorf("compile: %s", infoLog)
	}
	return sh, nil
}

// ReleasePipeline deletes a program.
func (c *Context) ReleasePipeline(h backend.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.programs[h]
	if !ok || c.destroyed {
		return
	}
	c.gl.DeleteProgram(p.id)
	delete(c.programs, h)
}

// glDraw is a draw with every handle resolved.
type glDraw struct {
	program   *program
	vertices  uint32
	colors    uint32
	transform [4]float32
	count     int32
}

// resolve maps a draw's handles to GL objects. Called with c.mu held.
func (c *Context) resolve(d backend.Draw) (glDraw, error) {
	p, ok := c.programs[d.Pipeline]
	if !ok {
		return glDraw{}, fmt.Errorf("pipeline %d: %w", d.Pipeline, backend.ErrInvalidHandle)
	}
	vb, ok := c.buffers[d.Vertices]
	if !ok || vb.shadow != nil {
		return glDraw{}, fmt.Errorf("vertices %d: %w", d.Vertices, backend.ErrInvalidHandle)
	}
	cb, ok := c.buffers[d.Colors]
	if !ok || cb.shadow != nil {
		return glDraw{}, fmt.Errorf("colors %d: %w", d.Colors, backend.ErrInvalidHandle)
	}
	ub, ok := c.buffers[d.Uniform]
	if !ok || ub.shadow == nil {
		return glDraw{}, fmt.Errorf("uniform %d: %w", d.Uniform, backend.ErrInvalidHandle)
	}
	if d.VertexCount <= 0 || d.VertexCount*backend.PositionStride > vb.size || d.VertexCount*backend.ColorStride > cb.size {
		return glDraw{}, fmt.Errorf("vertex count %d: %w", d.VertexCount, backend.ErrOutOfRange)
	}
	if d.UniformOffset < 0 || d.UniformOffset+backend.TransformSize > ub.size {
		return glDraw{}, fmt.Errorf("uniform slot %d in %d bytes: %w", d.UniformOffset, ub.size, backend.ErrOutOfRange)
	}

	var xf [4]float32
	slot := ub.shadow[d.UniformOffset : d.UniformOffset+backend.TransformSize]
	for i := range xf {
		xf[i] = math.Float32frombits(binary.LittleEndian.Uint32(slot[i*4:]))
	}
	return glDraw{
		program:   p,
		vertices:  vb.id,
		colors:    cb.id,
		transform: xf,
		count:     int32(d.VertexCount), //nolint:gosec // bounded by buffer size
	}, nil
}

// EncodeFrame clears the default framebuffer, issues the draws in order and
// swaps buffers. A canceled frame is not presented.
func (c *Context) EncodeFrame(pass backend.PassConfig, draws []backend.Draw) (backend.FrameResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res backend.FrameResult
	if c.destroyed {
		return res, backend.ErrDestroyed
	}

	w, h := c.SurfaceSize()
	gl := c.gl
	gl.Viewport(0, 0, int32(w), int32(h)) //nolint:gosec // window sizes fit int32
	gl.ClearColor(pass.Clear[0], pass.Clear[1], pass.Clear[2], pass.Clear[3])
	gl.Clear(ColorBufferBit)
	gl.Enable(Blend)
	gl.BlendFuncSeparate(SrcAlpha, OneMinusSrcAlpha, One, OneMinusSrcAlpha)

	var bound uint32
	for i, d := range draws {
		if pass.IsCanceled() {
			res.Canceled = true
			break
		}
		st, err := c.resolve(d)
		if err != nil {
			c.log.Warn("draw skipped", "index", i, "err", err)
			continue
		}
		if st.program.id != bound {
			gl.UseProgram(st.program.id)
			bound = st.program.id
		}
		gl.Uniform4f(st.program.transform, st.transform[0], st.transform[1], st.transform[2], st.transform[3])

		gl.BindBuffer(ArrayBuffer, st.vertices)
		gl.EnableVertexAttribArray(positionAttrib)
		gl.VertexAttribPointer(positionAttrib, 2, backend.PositionStride, 0)
		gl.BindBuffer(ArrayBuffer, st.colors)
		gl.EnableVertexAttribArray(colorAttrib)
		gl.VertexAttribPointer(colorAttrib, 4, backend.ColorStride, 0)

		gl.DrawArrays(Triangles, 0, st.count)
		res.Draws++
		res.Vertices += int(st.count)
	}
	if res.Canceled {
		return res, nil
	}
	if e := gl.GetError(); e != NoError {
		c.log.Warn("GL error after frame", "code", fmt.Sprintf("0x%x", e))
	}
	c.surface.SwapBuffers()
	c.lastClear = pass.Clear
	return res, nil
}

// Destroy deletes every program, buffer and the vertex array object.
// Safe to call multiple times.
func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true

	for h, p := range c.programs {
		c.gl.DeleteProgram(p.id)
		delete(c.programs, h)
	}
	for h, b := range c.buffers {
		if b.id != 0 {
			c.gl.DeleteBuffer(b.id)
		}
		delete(c.buffers, h)
	}
	if va, ok := c.gl.(VertexArrays); ok && c.vao != 0 {
		va.DeleteVertexArray(c.vao)
		c.vao = 0
	}
	c.log.Debug("context destroyed", "variant", c.variant)
}
