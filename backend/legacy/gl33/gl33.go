// Package gl33 registers the "gl33" Legacy variant: an OpenGL 3.3 core
// context compiling GLSL 330, bound through go-gl.
package gl33

import (
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/gogpu/magnolia/backend/legacy"
	"github.com/gogpu/magnolia/shader"
)

// Variant is the GL 3.3 core variant.
var Variant = legacy.Variant{
	Name:     "gl33",
	Priority: 20,
	Profile:  legacy.Profile{Major: 3, Minor: 3, Core: true},
	Language: shader.GLSL330,
	Load:     load,
}

func init() {
	legacy.Register(Variant)
}

func load() (legacy.GL, error) {
	if err := gl.Init(); err != nil {
		return nil, err
	}
	return binding{}, nil
}

// binding forwards legacy.GL to the 3.3 core entry points.
type binding struct{}

var (
	_ legacy.GL           = binding{}
	_ legacy.VertexArrays = binding{}
)

func (binding) CreateShader(stage uint32) uint32 { return gl.CreateShader(stage) }

func (binding) ShaderSource(sh uint32, src string) {
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(sh, 1, csources, nil)
	free()
}

func (binding) CompileShader(sh uint32) { gl.CompileShader(sh) }

func (binding) ShaderStatus(sh uint32) (bool, string) {
	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLength)
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(sh, logLength, nil, gl.Str(log))
	return false, strings.TrimRight(log, "\x00")
}

func (binding) DeleteShader(sh uint32)           { gl.DeleteShader(sh) }
func (binding) CreateProgram() uint32            { return gl.CreateProgram() }
func (binding) AttachShader(prog, sh uint32)     { gl.AttachShader(prog, sh) }
func (binding) LinkProgram(prog uint32)          { gl.LinkProgram(prog) }
func (binding) DeleteProgram(prog uint32)        { gl.DeleteProgram(prog) }
func (binding) UseProgram(prog uint32)           { gl.UseProgram(prog) }
func (binding) Enable(capability uint32)         { gl.Enable(capability) }
func (binding) Disable(capability uint32)        { gl.Disable(capability) }
func (binding) Clear(mask uint32)                { gl.Clear(mask) }
func (binding) GetError() uint32                 { return gl.GetError() }
func (binding) BindBuffer(target, buf uint32)    { gl.BindBuffer(target, buf) }
func (binding) EnableVertexAttribArray(i uint32) { gl.EnableVertexAttribArray(i) }

func (binding) BindAttribLocation(prog, index uint32, name string) {
	gl.BindAttribLocation(prog, index, gl.Str(name+"\x00"))
}

func (binding) ProgramStatus(prog uint32) (bool, string) {
	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
	return false, strings.TrimRight(log, "\x00")
}

func (binding) GetUniformLocation(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

func (binding) Uniform4f(loc int32, v0, v1, v2, v3 float32) { gl.Uniform4f(loc, v0, v1, v2, v3) }

func (binding) GenBuffer() uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	return buf
}

func (binding) BufferData(target uint32, data []byte, usage uint32) {
	gl.BufferData(target, len(data), gl.Ptr(data), usage)
}

func (binding) BufferSubData(target uint32, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(target, offset, len(data), gl.Ptr(data))
}

func (binding) DeleteBuffer(buf uint32) { gl.DeleteBuffers(1, &buf) }

func (binding) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	gl.VertexAttribPointer(index, size, gl.FLOAT, false, stride, gl.PtrOffset(offset))
}

func (binding) Viewport(x, y, w, h int32)              { gl.Viewport(x, y, w, h) }
func (binding) ClearColor(r, g, b, a float32)          { gl.ClearColor(r, g, b, a) }
func (binding) DrawArrays(mode uint32, first, n int32) { gl.DrawArrays(mode, first, n) }

func (binding) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	gl.BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (binding) GenVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

func (binding) BindVertexArray(vao uint32)   { gl.BindVertexArray(vao) }
func (binding) DeleteVertexArray(vao uint32) { gl.DeleteVertexArrays(1, &vao) }
