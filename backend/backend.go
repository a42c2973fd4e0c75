package backend

import (
	"fmt"
	"strings"

	"github.com/gogpu/magnolia/shader"
)

// Kind is the backend family.
type Kind uint8

const (
	// Explicit is the command-buffer/bind-group family.
	Explicit Kind = iota + 1

	// Legacy is the shader-program/attribute family.
	Legacy
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Explicit:
		return "explicit"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses a kind name. Besides the canonical names it accepts the
// API names hosts tend to use: "webgpu", "wgpu", "vulkan" for Explicit and
// "webgl", "gl", "opengl" for Legacy.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "explicit", "webgpu", "wgpu", "vulkan":
		return Explicit, nil
	case "legacy", "webgl", "webgl2", "gl", "opengl":
		return Legacy, nil
	default:
		return 0, fmt.Errorf("backend: unknown kind %q", s)
	}
}

// Handle identifies a resource or pipeline owned by one Context.
// Handles are only meaningful to the Context that issued them.
type Handle uint32

// NoHandle is the zero Handle. No Context ever issues it.
const NoHandle Handle = 0

// BlendMode selects the color blend state of a pipeline.
type BlendMode uint8

const (
	// BlendAlpha is straight alpha compositing:
	// color = src*srcA + dst*(1-srcA), alpha = srcA + dstA*(1-srcA).
	BlendAlpha BlendMode = iota
)

// Topology is the primitive topology of a pipeline.
type Topology uint8

const (
	// TriangleList draws independent triangles, no index buffer.
	TriangleList Topology = iota
)

// VertexLayout describes how vertex buffers feed a pipeline.
type VertexLayout uint8

const (
	// LayoutPositionColor uses two buffers: slot 0 holds float32x2
	// positions, slot 1 holds float32x4 colors.
	LayoutPositionColor VertexLayout = iota
)

// Buffer strides and uniform sizes shared by all backends.
const (
	PositionStride = 8  // float32x2
	ColorStride    = 16 // float32x4

	// TransformSize is the per-draw uniform: offset.xy, scale.xy as float32.
	TransformSize = 16

	// UniformAlignment is the slot stride inside a shared uniform buffer.
	// It matches the minUniformBufferOffsetAlignment guaranteed by WebGPU.
	UniformAlignment = 256
)

// PipelineKey is the structural identity of a compiled pipeline.
type PipelineKey struct {
	Shader   string
	Layout   VertexLayout
	Blend    BlendMode
	Topology Topology
}

func (k PipelineKey) String() string {
	return fmt.Sprintf("%s/layout%d/blend%d/topo%d", k.Shader, k.Layout, k.Blend, k.Topology)
}

// PassConfig configures one render pass.
type PassConfig struct {
	// Clear is the RGBA clear color, each component in [0, 1].
	Clear [4]float32

	// Canceled, when set, is polled before each draw. Once it reports true
	// no further draws are recorded and the frame is not submitted.
	Canceled func() bool
}

// IsCanceled reports whether the pass was canceled.
// Backends call it before each draw.
func (p PassConfig) IsCanceled() bool {
	return p.Canceled != nil && p.Canceled()
}

// Draw is one draw call: VertexCount vertices read from Vertices and Colors,
// placed by the transform stored at UniformOffset in Uniform.
type Draw struct {
	Pipeline      Handle
	Vertices      Handle
	Colors        Handle
	Uniform       Handle
	UniformOffset int
	VertexCount   int
}

// FrameResult reports what EncodeFrame did.
type FrameResult struct {
	Draws    int
	Vertices int
	Canceled bool
}

// Surface is the drawable the host hands to a backend.
// Backends type-assert for richer capabilities (a GL context, a shared
// device) and only rely on Size otherwise.
type Surface interface {
	Size() (width, height int)
}

// Context is one live backend.
//
// All methods are called from the goroutine that owns the Renderer, never
// concurrently. Resources and pipelines are released by Destroy if the
// caller has not released them already.
type Context interface {
	// Kind returns the backend family.
	Kind() Kind

	// Variant returns "family/variant", for example "legacy/gl21".
	Variant() string

	// ShaderLanguage is the language this context compiles.
	ShaderLanguage() shader.Language

	// SurfaceSize returns the current drawable size in pixels.
	SurfaceSize() (width, height int)

	// CreateVertexResource creates a vertex buffer holding data.
	CreateVertexResource(label string, data []byte) (Handle, error)

	// CreateUniformResource creates a zeroed uniform buffer of size bytes.
	CreateUniformResource(label string, size int) (Handle, error)

	// WriteResource writes data at offset into a vertex or uniform buffer.
	WriteResource(h Handle, offset int, data []byte) error

	// ReleaseResource frees a buffer. Unknown handles are ignored.
	ReleaseResource(h Handle)

	// CompilePipeline builds a pipeline for key from mod.
	CompilePipeline(key PipelineKey, mod *shader.Module) (Handle, error)

	// ReleasePipeline frees a pipeline. Unknown handles are ignored.
	ReleasePipeline(h Handle)

	// EncodeFrame clears the surface and records draws in order within one
	// pass, then submits it. A draw referencing unknown handles is skipped.
	EncodeFrame(pass PassConfig, draws []Draw) (FrameResult, error)

	// Destroy releases everything the context owns. Safe to call twice.
	Destroy()
}
