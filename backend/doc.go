// Package backend defines the GPU backend abstraction used by magnolia.
//
// A backend is one concrete GPU programming model. Two families exist:
//
//   - [Explicit]: command buffers, bind groups and render pipelines
//     (package backend/explicit, built on gogpu/wgpu HAL)
//   - [Legacy]: shader programs, vertex attributes and uniforms
//     (package backend/legacy, built on OpenGL)
//
// Both implement [Context]. The Renderer only talks to a Context and never
// branches on the concrete backend.
//
// # Registration
//
// Backend packages register one factory per variant from an init function:
//
//	func init() {
//		backend.Register(backend.Legacy, "gl33", 20, open)
//	}
//
// Importing the variant package for side effects makes it available:
//
//	import _ "github.com/gogpu/magnolia/backend/legacy/gl33"
//
// # Selection
//
// [Registry.Open] tries the variants of the requested kind in priority
// order, then falls back to Legacy. Each step down is logged as
// "backend downgraded" at Info level and is not an error. When no variant
// can be opened, Open fails with [ErrNoBackendAvailable].
package backend
