package magnolia

import (
	"log/slog"
	"testing"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer()
	if r.State() != StateUninitialized {
		t.Errorf("State() = %v, want uninitialized", r.State())
	}
	if r.ClearColor() != Black {
		t.Errorf("ClearColor() = %+v, want black", r.ClearColor())
	}
	if r.opts.registry != backend.Default() {
		t.Error("registry is not backend.Default()")
	}
	if r.opts.loader == nil {
		t.Error("loader is nil, expected the built-in shaders")
	}
	if r.opts.uniforms != UniformDynamic {
		t.Errorf("uniforms = %v, want dynamic", r.opts.uniforms)
	}
	if r.opts.shader != DefaultShader {
		t.Errorf("shader = %q, want %q", r.opts.shader, DefaultShader)
	}
}

func TestOptions(t *testing.T) {
	reg := backend.NewRegistry()
	loader := shader.Builtin()
	log := slog.New(slog.DiscardHandler)

	r := NewRenderer(
		WithClearColor(RGBA(0.1, 0.2, 0.3, 0.5)),
		WithUniformStrategy(UniformPerObject),
		WithRegistry(reg),
		WithShaderLoader(loader),
		WithLogger(log),
		WithShader("custom"),
	)

	if got := r.ClearColor(); got != RGB(0.1, 0.2, 0.3) {
		t.Errorf("ClearColor() = %+v, want opaque", got)
	}
	if r.opts.uniforms != UniformPerObject {
		t.Errorf("uniforms = %v", r.opts.uniforms)
	}
	if r.opts.registry != reg {
		t.Error("registry not injected")
	}
	if r.opts.loader != loader {
		t.Error("loader not injected")
	}
	if r.log != log {
		t.Error("logger not injected")
	}
	if r.opts.shader != "custom" {
		t.Errorf("shader = %q", r.opts.shader)
	}
}

func TestWithShaderEmptyKeepsDefault(t *testing.T) {
	r := NewRenderer(WithShader(""))
	if r.opts.shader != DefaultShader {
		t.Errorf("shader = %q, want %q", r.opts.shader, DefaultShader)
	}
}

func TestUniformStrategyString(t *testing.T) {
	tests := []struct {
		s    UniformStrategy
		want string
	}{
		{UniformDynamic, "dynamic"},
		{UniformPerObject, "per-object"},
		{UniformStrategy(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateUninitialized, "uninitialized"},
		{StateInitializing, "initializing"},
		{StateReady, "ready"},
		{StateDestroyed, "destroyed"},
		{State(7), "State(7)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
