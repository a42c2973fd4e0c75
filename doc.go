// Package magnolia draws flat-colored 2D convex shapes through whichever GPU
// API the host supports.
//
// # Overview
//
// A [Renderer] owns one backend, a [PipelineCache] and a [RenderQueue].
// The host creates [Geometry] through the Renderer, enqueues it and calls
// [Renderer.Render] once per tick. Each frame is one render pass cleared to
// the clear color with one draw per queued geometry, in queue order, and
// looks the same on every backend.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/magnolia"
//	    "github.com/gogpu/magnolia/backend"
//	    _ "github.com/gogpu/magnolia/backend/explicit"
//	    _ "github.com/gogpu/magnolia/backend/legacy/gl21"
//	    _ "github.com/gogpu/magnolia/backend/legacy/gl33"
//	)
//
//	r := magnolia.NewRenderer()
//	if err := r.Init(ctx, surface, backend.Explicit); err != nil {
//	    return err
//	}
//	defer r.Destroy()
//
//	quad, _ := r.NewQuad(mgl32.Vec2{0, 0}, mgl32.Vec2{0.5, 0.5}, magnolia.Red)
//	r.Enqueue(quad)
//	for running {
//	    quad.Translate(next())
//	    r.Render()
//	}
//
// # Backends
//
// Backends register with [backend.Default] when their package is imported.
// Explicit runs on the gogpu/wgpu HAL; Legacy runs on OpenGL 3.3 core and
// degrades to OpenGL 2.1. Init falls back from Explicit to Legacy and logs
// "backend downgraded"; it fails with [ErrNoBackendAvailable] only when
// nothing opens.
//
// # Coordinate System
//
// Positions are in clip space: x and y in [-1, 1], origin at the center,
// y up. A geometry's scale is its size along each axis in the same units.
//
// # Lifecycle
//
//	Uninitialized -> Initializing -> Ready -> Destroyed
//
// Render is a no-op in every state but Ready. [Renderer.SwitchBackend] goes
// Ready -> Destroyed -> Initializing -> Ready. A failed Init releases what it
// created and returns to Uninitialized.
package magnolia

// Version is the library version.
const Version = "0.1.0"
