package magnolia

import (
	"log/slog"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

// DefaultShader is the shader path used by geometry without its own.
const DefaultShader = "flat"

// UniformStrategy selects how per-draw transforms reach the GPU.
type UniformStrategy uint8

const (
	// UniformDynamic packs every draw's transform into one shared buffer,
	// one 256-byte aligned slot per draw, grown as the queue grows.
	UniformDynamic UniformStrategy = iota

	// UniformPerObject gives each geometry its own 16-byte uniform buffer,
	// rewritten only when the geometry moves.
	UniformPerObject
)

func (s UniformStrategy) String() string {
	switch s {
	case UniformDynamic:
		return "dynamic"
	case UniformPerObject:
		return "per-object"
	default:
		return "unknown"
	}
}

// Option configures a Renderer during creation.
//
// Example:
//
//	r := magnolia.NewRenderer(
//	    magnolia.WithClearColor(magnolia.RGB(0.1, 0.1, 0.1)),
//	    magnolia.WithUniformStrategy(magnolia.UniformPerObject),
//	)
type Option func(*options)

type options struct {
	clear    Color
	uniforms UniformStrategy
	loader   shader.Loader
	registry *backend.Registry
	log      *slog.Logger
	shader   string
}

func defaultOptions() options {
	return options{
		clear:    Black,
		uniforms: UniformDynamic,
		shader:   DefaultShader,
	}
}

// WithClearColor sets the initial clear color. Alpha is forced to 1.
func WithClearColor(c Color) Option {
	return func(o *options) {
		c.A = 1
		o.clear = c
	}
}

// WithUniformStrategy selects the uniform buffer strategy.
func WithUniformStrategy(s UniformStrategy) Option {
	return func(o *options) {
		o.uniforms = s
	}
}

// WithShaderLoader replaces the loader over the built-in shaders.
func WithShaderLoader(l shader.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithRegistry opens backends from r instead of backend.Default().
func WithRegistry(r *backend.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLogger sets the Renderer's logger instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithShader sets the shader path used by geometry without its own.
func WithShader(path string) Option {
	return func(o *options) {
		if path != "" {
			o.shader = path
		}
	}
}
