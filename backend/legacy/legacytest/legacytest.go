// Package legacytest provides a recording fake of the legacy.GL function
// table and a fake GL surface for tests that run without a GPU.
package legacytest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/backend/legacy"
	"github.com/gogpu/magnolia/shader"
)

// DrawCall is one recorded glDrawArrays.
type DrawCall struct {
	Program   uint32
	Transform [4]float32
	First     int32
	Count     int32
}

// GL records the calls made through legacy.GL. It also implements
// legacy.VertexArrays, like a 3.3 core binding.
//
// Shader sources containing FailMarker fail to compile with that text as
// the info log.
type GL struct {
	mu sync.Mutex

	// FailMarker, when non-empty, makes any shader whose source contains it
	// fail to compile.
	FailMarker string
	// FailLink makes every LinkProgram fail.
	FailLink bool
	// NoUniform makes GetUniformLocation return -1.
	NoUniform bool
	// FailBuffers makes GenBuffer return 0.
	FailBuffers bool

	next     uint32
	shaders  map[uint32]string
	programs map[uint32]bool
	buffers  map[uint32][]byte
	vaos     map[uint32]bool

	program   uint32
	bound     uint32
	transform [4]float32

	names  []string
	draws  []DrawCall
	clears [][4]float32
}

var (
	_ legacy.GL           = (*GL)(nil)
	_ legacy.VertexArrays = (*GL)(nil)
)

// NewGL returns an empty recorder.
func NewGL() *GL {
	return &GL{
		shaders:  make(map[uint32]string),
		programs: make(map[uint32]bool),
		buffers:  make(map[uint32][]byte),
		vaos:     make(map[uint32]bool),
	}
}

func (g *GL) record(name string) {
	g.names = append(g.names, name)
}

func (g *GL) id() uint32 {
	g.next++
	return g.next
}

// Draws returns the recorded draw calls in order.
func (g *GL) Draws() []DrawCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]DrawCall(nil), g.draws...)
}

// Clears returns the clear color of each glClear in order.
func (g *GL) Clears() [][4]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][4]float32(nil), g.clears...)
}

// Count returns how many times the named entry point was called.
func (g *GL) Count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.names {
		if s == name {
			n++
		}
	}
	return n
}

// Live reports the GL objects not yet deleted.
func (g *GL) Live() (shaders, programs, buffers, vaos int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.shaders), len(g.programs), len(g.buffers), len(g.vaos)
}

// Buffer returns a copy of a buffer's contents.
func (g *GL) Buffer(id uint32) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]byte(nil), g.buffers[id]...)
}

// Reset forgets recorded calls but keeps live objects.
func (g *GL) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.names = nil
	g.draws = nil
	g.clears = nil
}

func (g *GL) CreateShader(uint32) uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateShader")
	id := g.id()
	g.shaders[id] = ""
	return id
}

func (g *GL) ShaderSource(sh uint32, src string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ShaderSource")
	g.shaders[sh] = src
}

func (g *GL) CompileShader(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CompileShader")
}

func (g *GL) ShaderStatus(sh uint32) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailMarker != "" && strings.Contains(g.shaders[sh], g.FailMarker) {
		return false, "0:1(1): error: " + g.FailMarker
	}
	return true, ""
}

func (g *GL) DeleteShader(sh uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteShader")
	delete(g.shaders, sh)
}

func (g *GL) CreateProgram() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateProgram")
	id := g.id()
	g.programs[id] = true
	return id
}

func (g *GL) AttachShader(uint32, uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("AttachShader")
}

func (g *GL) BindAttribLocation(uint32, uint32, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindAttribLocation")
}

func (g *GL) LinkProgram(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("LinkProgram")
}

func (g *GL) ProgramStatus(uint32) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailLink {
		return false, "error: linking failed"
	}
	return true, ""
}

func (g *GL) DeleteProgram(p uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteProgram")
	delete(g.programs, p)
}

func (g *GL) UseProgram(p uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("UseProgram")
	g.program = p
}

func (g *GL) GetUniformLocation(uint32, string) int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.NoUniform {
		return -1
	}
	return 0
}

func (g *GL) Uniform4f(_ int32, v0, v1, v2, v3 float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Uniform4f")
	g.transform = [4]float32{v0, v1, v2, v3}
}

func (g *GL) GenBuffer() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GenBuffer")
	if g.FailBuffers {
		return 0
	}
	id := g.id()
	g.buffers[id] = nil
	return id
}

func (g *GL) BindBuffer(_ uint32, b uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindBuffer")
	g.bound = b
}

func (g *GL) BufferData(_ uint32, data []byte, _ uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BufferData")
	g.buffers[g.bound] = append([]byte(nil), data...)
}

func (g *GL) BufferSubData(_ uint32, offset int, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BufferSubData")
	copy(g.buffers[g.bound][offset:], data)
}

func (g *GL) DeleteBuffer(b uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteBuffer")
	delete(g.buffers, b)
}

func (g *GL) EnableVertexAttribArray(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("EnableVertexAttribArray")
}

func (g *GL) VertexAttribPointer(uint32, int32, int32, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("VertexAttribPointer")
}

func (g *GL) Viewport(int32, int32, int32, int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Viewport")
}

func (g *GL) ClearColor(r, gr, b, a float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ClearColor")
	g.clears = append(g.clears, [4]float32{r, gr, b, a})
}

func (g *GL) Clear(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Clear")
}

func (g *GL) Enable(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Enable")
}

func (g *GL) Disable(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Disable")
}

func (g *GL) BlendFuncSeparate(uint32, uint32, uint32, uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BlendFuncSeparate")
}

func (g *GL) DrawArrays(_ uint32, first, count int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DrawArrays")
	g.draws = append(g.draws, DrawCall{Program: g.program, Transform: g.transform, First: first, Count: count})
}

func (g *GL) GetError() uint32 { return legacy.NoError }

func (g *GL) GenVertexArray() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GenVertexArray")
	id := g.id()
	g.vaos[id] = true
	return id
}

func (g *GL) BindVertexArray(uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindVertexArray")
}

func (g *GL) DeleteVertexArray(vao uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteVertexArray")
	delete(g.vaos, vao)
}

// ErrProfileUnavailable is returned by Surface.MakeCurrent for a rejected
// profile.
var ErrProfileUnavailable = errors.New("legacytest: GL profile unavailable")

// Surface is a fake legacy.GLSurface.
type Surface struct {
	mu sync.Mutex

	Width, Height int
	// NoCore rejects core profiles, forcing the gl21 fallback.
	NoCore bool

	current legacy.Profile
	swaps   int
}

var _ legacy.GLSurface = (*Surface)(nil)

// NewSurface returns a surface of the given size accepting every profile.
func NewSurface(w, h int) *Surface {
	return &Surface{Width: w, Height: h}
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Width, s.Height
}

// Resize changes the reported size.
func (s *Surface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Width, s.Height = w, h
}

func (s *Surface) MakeCurrent(p legacy.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Core && s.NoCore {
		return fmt.Errorf("%s: %w", p, ErrProfileUnavailable)
	}
	s.current = p
	return nil
}

func (s *Surface) SwapBuffers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++
}

// Current returns the last profile made current.
func (s *Surface) Current() legacy.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Swaps returns how many frames were presented.
func (s *Surface) Swaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swaps
}

// compatGL hides the vertex array methods of GL, like a 2.1 binding.
type compatGL struct{ legacy.GL }

// Variants returns gl33 and gl21 variants bound to g.
func Variants(g *GL) []legacy.Variant {
	return []legacy.Variant{
		{
			Name:     "gl33",
			Priority: 20,
			Profile:  legacy.Profile{Major: 3, Minor: 3, Core: true},
			Language: shader.GLSL330,
			Load:     func() (legacy.GL, error) { return g, nil },
		},
		{
			Name:     "gl21",
			Priority: 10,
			Profile:  legacy.Profile{Major: 2, Minor: 1},
			Language: shader.GLSL120,
			Load:     func() (legacy.GL, error) { return compatGL{g}, nil },
		},
	}
}

// Register adds both fake variants to r.
func Register(r *backend.Registry, g *GL) {
	for _, v := range Variants(g) {
		legacy.RegisterWith(r, v)
	}
}
