package legacy

// GL is the subset of OpenGL the Legacy backend uses.
//
// Method names follow the gl* entry points. Strings are Go strings and
// buffers are byte slices; bindings convert them. All enum values are the
// standard GL constants below, which are identical across GL versions.
type GL interface {
	CreateShader(stage uint32) uint32
	ShaderSource(shader uint32, src string)
	CompileShader(shader uint32)
	// ShaderStatus returns COMPILE_STATUS and the info log.
	ShaderStatus(shader uint32) (ok bool, log string)
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	BindAttribLocation(program, index uint32, name string)
	LinkProgram(program uint32)
	// ProgramStatus returns LINK_STATUS and the info log.
	ProgramStatus(program uint32) (ok bool, log string)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	GetUniformLocation(program uint32, name string) int32
	Uniform4f(location int32, v0, v1, v2, v3 float32)

	GenBuffer() uint32
	BindBuffer(target, buffer uint32)
	BufferData(target uint32, data []byte, usage uint32)
	BufferSubData(target uint32, offset int, data []byte)
	DeleteBuffer(buffer uint32)
	EnableVertexAttribArray(index uint32)
	// VertexAttribPointer describes a float attribute in the bound buffer.
	VertexAttribPointer(index uint32, size, stride int32, offset int)

	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	Enable(capability uint32)
	Disable(capability uint32)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)
	DrawArrays(mode uint32, first, count int32)
	GetError() uint32
}

// VertexArrays is implemented by bindings whose profile requires a bound
// vertex array object (GL 3.x core).
type VertexArrays interface {
	GenVertexArray() uint32
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)
}

// Standard GL enum values.
const (
	NoError          = 0
	Triangles        = 0x0004
	One              = 1
	SrcAlpha         = 0x0302
	OneMinusSrcAlpha = 0x0303
	Blend            = 0x0BE2
	DepthTest        = 0x0B71
	CullFace         = 0x0B44
	ColorBufferBit   = 0x4000
	ArrayBuffer      = 0x8892
	StaticDraw       = 0x88E4
	DynamicDraw      = 0x88E8
	FragmentShader   = 0x8B30
	VertexShader     = 0x8B31
)

// Attribute locations shared by every program.
const (
	positionAttrib = 0
	colorAttrib    = 1
)

// Names the GLSL sources must declare.
const (
	PositionAttribName = "a_position"
	ColorAttribName    = "a_color"
	TransformUniform   = "u_transform"
)
