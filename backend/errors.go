package backend

import "errors"

// Common backend errors.
var (
	// ErrNoBackendAvailable is returned by Open when no variant of the
	// requested kind or of the Legacy fallback could be brought up.
	ErrNoBackendAvailable = errors.New("backend: no backend available")

	// ErrBackendDowngraded marks a fallback to a lesser backend or variant.
	// It is logged, never returned: the downgraded context is usable.
	ErrBackendDowngraded = errors.New("backend: downgraded")

	// ErrUnsupported is returned by a factory when the runtime environment
	// does not support its API (no adapter, no GL context, wrong surface).
	ErrUnsupported = errors.New("backend: unsupported by environment")

	// ErrResourceCreation is returned when a buffer or pipeline cannot be
	// allocated.
	ErrResourceCreation = errors.New("backend: resource creation failed")

	// ErrInvalidHandle is returned for a handle this context never issued
	// or already released.
	ErrInvalidHandle = errors.New("backend: invalid handle")

	// ErrOutOfRange is returned when a write exceeds the buffer size.
	ErrOutOfRange = errors.New("backend: write out of range")

	// ErrDestroyed is returned by a context after Destroy.
	ErrDestroyed = errors.New("backend: context destroyed")
)
