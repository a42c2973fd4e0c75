// Package legacy implements the magnolia Legacy backend on OpenGL.
//
// The package itself is binding-agnostic: it drives a [GL] function table
// and a [GLSurface] that owns the GL context. Concrete bindings live in the
// variant subpackages, which register themselves when imported:
//
//	import _ "github.com/gogpu/magnolia/backend/legacy/gl33" // GL 3.3 core, GLSL 330
//	import _ "github.com/gogpu/magnolia/backend/legacy/gl21" // GL 2.1, GLSL 120
//
// gl33 is tried first. When the surface cannot provide a 3.3 core context
// the registry degrades to gl21 and logs "backend downgraded".
//
// Uniform buffers have no GL object behind them. They are kept as CPU
// shadows and each draw uploads its 16-byte transform with glUniform4f.
package legacy
