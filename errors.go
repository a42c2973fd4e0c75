package magnolia

import (
	"errors"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

var (
	// ErrBackendNotReady is returned when an operation needs a Ready
	// Renderer, for example creating geometry before Init.
	ErrBackendNotReady = errors.New("magnolia: backend not ready")

	// ErrAlreadyInitialized is returned by Init on a Renderer that is
	// Ready or still Initializing.
	ErrAlreadyInitialized = errors.New("magnolia: already initialized")

	// ErrNilSurface is returned by Init and SwitchBackend without a surface.
	ErrNilSurface = errors.New("magnolia: nil surface")

	// ErrForeignGeometry is returned for geometry created by another
	// Renderer.
	ErrForeignGeometry = errors.New("magnolia: geometry belongs to another renderer")
)

// Backend errors, re-exported for callers that only import magnolia.
var (
	ErrNoBackendAvailable = backend.ErrNoBackendAvailable
	ErrBackendDowngraded  = backend.ErrBackendDowngraded
	ErrResourceCreation   = backend.ErrResourceCreation
)

// ShaderCompileError is returned by Init when the default shader cannot be
// loaded or compiled for the selected backend.
type ShaderCompileError = shader.CompileError
