package magnolia

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/internal/tess"
)

// Geometry is a flat-colored shape and the backend buffers that draw it.
//
// Vertices are stored in local unit space and never change after creation.
// Position and scale reach the GPU as a per-draw transform, and the color
// as a per-vertex color buffer. Translate, SetScale and ChangeColor only
// update the logical state; buffers are written right before the next draw.
//
// Buffers belong to one backend generation. After a backend switch they are
// recreated on first draw.
//
// Geometry methods are safe for concurrent use with rendering.
type Geometry struct {
	mu    sync.Mutex
	owner *Renderer

	local    []mgl32.Vec2
	position mgl32.Vec2
	scale    mgl32.Vec2
	color    Color
	shader   string

	gen          uint64
	vertices     backend.Handle
	colors       backend.Handle
	uniform      backend.Handle
	colorDirty   bool
	uniformDirty bool
}

// NewQuad creates the canonical 6-vertex box centered at position.
func (r *Renderer) NewQuad(position, scale mgl32.Vec2, c Color) (*Geometry, error) {
	return r.newGeometry(tess.Quad(), position, scale, c)
}

// NewTriangle creates a triangle inscribed in the box centered at position.
func (r *Renderer) NewTriangle(position, scale mgl32.Vec2, c Color) (*Geometry, error) {
	return r.newGeometry(tess.Triangle(), position, scale, c)
}

// NewPolygon creates a convex polygon from an outline in clip space.
// The geometry is positioned at the outline's centroid with a uniform
// scale equal to its larger extent.
func (r *Renderer) NewPolygon(outline []mgl32.Vec2, c Color) (*Geometry, error) {
	local, center, size := tess.Normalize(outline)
	tris, err := tess.Fan(local)
	if err != nil {
		return nil, fmt.Errorf("magnolia: polygon: %w", err)
	}
	return r.newGeometry(tris, center, mgl32.Vec2{size, size}, c)
}

func (r *Renderer) newGeometry(local []mgl32.Vec2, position, scale mgl32.Vec2, c Color) (*Geometry, error) {
	if r.State() != StateReady {
		return nil, ErrBackendNotReady
	}
	return &Geometry{
		owner:    r,
		local:    local,
		position: position,
		scale:    scale,
		color:    c,
	}, nil
}

// Translate moves the geometry's center to p.
func (g *Geometry) Translate(p mgl32.Vec2) {
	g.mu.Lock()
	g.position = p
	g.uniformDirty = true
	g.mu.Unlock()
}

// SetScale sets the size of the geometry along each axis.
func (g *Geometry) SetScale(s mgl32.Vec2) {
	g.mu.Lock()
	g.scale = s
	g.uniformDirty = true
	g.mu.Unlock()
}

// ChangeColor sets the fill color.
func (g *Geometry) ChangeColor(c Color) {
	g.mu.Lock()
	g.color = c
	g.colorDirty = true
	g.mu.Unlock()
}

// SetShader draws the geometry with its own shader instead of the
// Renderer's default. An empty path restores the default.
func (g *Geometry) SetShader(path string) {
	g.mu.Lock()
	g.shader = path
	g.mu.Unlock()
}

// Position returns the center.
func (g *Geometry) Position() mgl32.Vec2 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

// Scale returns the size along each axis.
func (g *Geometry) Scale() mgl32.Vec2 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

// Color returns the fill color.
func (g *Geometry) Color() Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.color
}

// VertexCount returns the number of triangle-list vertices.
func (g *Geometry) VertexCount() int {
	return len(g.local)
}

// Vertices returns the clip-space vertices for the current position and
// scale, as the shaders compute them.
func (g *Geometry) Vertices() []mgl32.Vec2 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return tess.Transform(g.local, g.position, g.scale)
}

// SizeInBytes reports the size of the buffers the geometry currently owns
// on the GPU: positions and colors once uploaded, plus the transform buffer
// under UniformPerObject. It is 0 before the first draw and after Remove.
// Transforms in the shared UniformDynamic arena belong to the Renderer and
// are not counted.
func (g *Geometry) SizeInBytes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.local)
	size := 0
	if g.vertices != backend.NoHandle {
		size += n * backend.PositionStride
	}
	if g.colors != backend.NoHandle {
		size += n * backend.ColorStride
	}
	if g.uniform != backend.NoHandle {
		size += backend.TransformSize
	}
	return size
}

// drawState is what one frame needs from a geometry, captured under its lock.
type drawState struct {
	shader    string
	transform []byte
}

// sync brings the geometry's buffers up to date on bc for generation gen.
// It returns the vertex and color handles plus the per-object uniform
// handle when perObject is set.
func (g *Geometry) sync(bc backend.Context, gen uint64, perObject bool) (backend.Draw, drawState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.gen != gen {
		g.vertices, g.colors, g.uniform = backend.NoHandle, backend.NoHandle, backend.NoHandle
		g.gen = gen
	}
	n := len(g.local)

	if g.vertices == backend.NoHandle {
		h, err := bc.CreateVertexResource("magnolia_positions", tess.PackPositions(g.local))
		if err != nil {
			return backend.Draw{}, drawState{}, err
		}
		g.vertices = h
	}
	if g.colors == backend.NoHandle {
		h, err := bc.CreateVertexResource("magnolia_colors", tess.PackColors(n, g.color.Array()))
		if err != nil {
			return backend.Draw{}, drawState{}, err
		}
		g.colors = h
		g.colorDirty = false
	} else if g.colorDirty {
		if err := bc.WriteResource(g.colors, 0, tess.PackColors(n, g.color.Array())); err != nil {
			return backend.Draw{}, drawState{}, err
		}
		g.colorDirty = false
	}

	xf := tess.PackTransform(g.position, g.scale)
	d := backend.Draw{
		Vertices:    g.vertices,
		Colors:      g.colors,
		VertexCount: n,
	}
	if perObject {
		if g.uniform == backend.NoHandle {
			h, err := bc.CreateUniformResource("magnolia_transform", backend.TransformSize)
			if err != nil {
				return backend.Draw{}, drawState{}, err
			}
			g.uniform = h
			g.uniformDirty = true
		}
		if g.uniformDirty {
			if err := bc.WriteResource(g.uniform, 0, xf); err != nil {
				return backend.Draw{}, drawState{}, err
			}
			g.uniformDirty = false
		}
		d.Uniform = g.uniform
	}
	return d, drawState{shader: g.shader, transform: xf}, nil
}

// release frees the geometry's buffers if they belong to generation gen.
func (g *Geometry) release(bc backend.Context, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen == gen && bc != nil {
		for _, h := range []backend.Handle{g.vertices, g.colors, g.uniform} {
			if h != backend.NoHandle {
				bc.ReleaseResource(h)
			}
		}
	}
	g.vertices, g.colors, g.uniform = backend.NoHandle, backend.NoHandle, backend.NoHandle
	g.gen = 0
}
