// Package tess turns 2D shapes into triangle-list vertices and packs them
// into the buffer formats the backends consume.
//
// All shapes are produced in local unit space, centered on the origin with
// an extent of 1 on each axis. The per-draw transform scales and offsets
// them, so a shape's vertex data never changes when it moves.
package tess

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// convexityEpsilon is the tolerance for cross product comparisons.
const convexityEpsilon = 1e-7

// ErrNotConvex is returned by Fan for concave, self-intersecting or
// degenerate outlines.
var ErrNotConvex = errors.New("tess: polygon is not convex")

// QuadVertexCount is the vertex count of the canonical box.
const QuadVertexCount = 6

// Quad returns the canonical box: two triangles covering [-0.5, 0.5]².
func Quad() []mgl32.Vec2 {
	return []mgl32.Vec2{
		{-0.5, 0.5}, {-0.5, -0.5}, {0.5, -0.5},
		{-0.5, 0.5}, {0.5, -0.5}, {0.5, 0.5},
	}
}

// Triangle returns a triangle inscribed in the unit box:
// top-center, bottom-left, bottom-right.
func Triangle() []mgl32.Vec2 {
	return []mgl32.Vec2{{0, 0.5}, {-0.5, -0.5}, {0.5, -0.5}}
}

// Fan triangulates a convex outline from its first point.
// An outline with N points gives N-2 triangles. The outline is treated as
// closed and may wind either way.
func Fan(outline []mgl32.Vec2) ([]mgl32.Vec2, error) {
	if !IsConvex(outline) {
		return nil, ErrNotConvex
	}
	out := make([]mgl32.Vec2, 0, (len(outline)-2)*3)
	p0 := outline[0]
	for i := 1; i < len(outline)-1; i++ {
		out = append(out, p0, outline[i], outline[i+1])
	}
	return out, nil
}

// Normalize recenters outline on its centroid and scales it so that its
// larger bounding-box side is 1. It returns the normalized outline plus
// the centroid and the scale that map it back.
func Normalize(outline []mgl32.Vec2) (local []mgl32.Vec2, center mgl32.Vec2, size float32) {
	if len(outline) == 0 {
		return nil, mgl32.Vec2{}, 0
	}
	minP, maxP := outline[0], outline[0]
	for _, p := range outline {
		center = center.Add(p)
		minP = mgl32.Vec2{min(minP[0], p[0]), min(minP[1], p[1])}
		maxP = mgl32.Vec2{max(maxP[0], p[0]), max(maxP[1], p[1])}
	}
	center = center.Mul(1 / float32(len(outline)))
	ext := maxP.Sub(minP)
	size = max(ext[0], ext[1])
	if size == 0 {
		size = 1
	}
	local = make([]mgl32.Vec2, len(outline))
	for i, p := range outline {
		local[i] = p.Sub(center).Mul(1 / size)
	}
	return local, center, size
}

// IsConvex reports whether outline is a convex polygon. Collinear edges
// are allowed; fewer than 3 points or all-collinear points are not convex.
func IsConvex(outline []mgl32.Vec2) bool {
	n := len(outline)
	if n < 3 {
		return false
	}
	var pos, neg int
	for i := 0; i < n; i++ {
		p0 := outline[i]
		p1 := outline[(i+1)%n]
		p2 := outline[(i+2)%n]
		e1 := p1.Sub(p0)
		e2 := p2.Sub(p1)
		cross := e1[0]*e2[1] - e1[1]*e2[0]
		switch {
		case cross > convexityEpsilon:
			pos++
		case cross < -convexityEpsilon:
			neg++
		}
	}
	if pos == 0 && neg == 0 {
		return false
	}
	return pos == 0 || neg == 0
}

// Transform applies offset and scale to local vertices, the same mapping
// the shaders perform.
func Transform(local []mgl32.Vec2, offset, scale mgl32.Vec2) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, len(local))
	for i, p := range local {
		out[i] = mgl32.Vec2{p[0]*scale[0] + offset[0], p[1]*scale[1] + offset[1]}
	}
	return out
}

// Centroid returns the average of points.
func Centroid(points []mgl32.Vec2) mgl32.Vec2 {
	var c mgl32.Vec2
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Mul(1 / float32(len(points)))
}

// PackPositions encodes vertices as little-endian float32x2.
func PackPositions(vertices []mgl32.Vec2) []byte {
	buf := make([]byte, len(vertices)*8)
	for i, v := range vertices {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(v[1]))
	}
	return buf
}

// PackColors encodes n copies of an RGBA color as little-endian float32x4.
func PackColors(n int, rgba [4]float32) []byte {
	buf := make([]byte, n*16)
	for i := 0; i < n; i++ {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(buf[i*16+c*4:], math.Float32bits(rgba[c]))
		}
	}
	return buf
}

// PackTransform encodes the per-draw uniform: offset.xy, scale.xy.
func PackTransform(offset, scale mgl32.Vec2) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(offset[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(offset[1]))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(scale[0]))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(scale[1]))
	return buf
}

// UnpackFloats decodes little-endian float32 values. Trailing bytes that
// do not form a whole float are ignored.
func UnpackFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
