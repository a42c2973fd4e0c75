// Package shader loads shader sources for the magnolia backends.
//
// A shader is addressed by a backend-neutral path such as "flat". The
// loader appends the extension of the requested language and returns a
// [Module] ready for the backend to compile:
//
//   - [WGSL]: "flat.wgsl", validated and compiled to SPIR-V with naga
//   - [GLSL330]: "flat.330.glsl", OpenGL 3.3 core
//   - [GLSL120]: "flat.120.glsl", OpenGL 2.1
//
// GLSL files hold both stages in one file. The vertex stage comes first and
// the fragment stage follows a line containing the marker
//
//	//Fragment shader
//
// Failures to parse or validate a source are reported as *[CompileError].
//
// # Built-in shaders
//
// [Builtin] returns a loader over the shaders embedded in this package.
// The "flat" shader draws flat-colored 2D geometry: per-vertex position
// (location 0, vec2) and color (location 1, vec4), placed by a transform
// uniform holding an offset and a scale.
package shader
