package legacy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

// Profile is the GL context version a variant needs.
type Profile struct {
	Major, Minor int
	Core         bool
}

func (p Profile) String() string {
	if p.Core {
		return fmt.Sprintf("%d.%d core", p.Major, p.Minor)
	}
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// GLSurface is a surface that can host a GL context.
type GLSurface interface {
	backend.Surface

	// MakeCurrent creates or reuses a GL context of profile p and makes it
	// current on the calling goroutine. It fails when p is unavailable.
	MakeCurrent(p Profile) error

	// SwapBuffers presents the back buffer.
	SwapBuffers()
}

// Variant describes one GL binding.
type Variant struct {
	// Name is the short variant name, for example "gl33".
	Name     string
	Priority int
	Profile  Profile
	Language shader.Language

	// Load binds GL entry points for the current context.
	Load func() (GL, error)
}

// Register adds v to the default backend registry.
func Register(v Variant) {
	RegisterWith(backend.Default(), v)
}

// RegisterWith adds v to r.
func RegisterWith(r *backend.Registry, v Variant) {
	r.Register(backend.Legacy, v.Name, v.Priority, v.Factory())
}

// Factory returns the backend factory opening v.
func (v Variant) Factory() backend.Factory {
	return func(ctx context.Context, surface backend.Surface, log *slog.Logger) (backend.Context, error) {
		return Open(ctx, v, surface, log)
	}
}

// Open makes a v.Profile context current on surface and wraps it.
func Open(ctx context.Context, v Variant, surface backend.Surface, log *slog.Logger) (*Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gs, ok := surface.(GLSurface)
	if !ok {
		return nil, fmt.Errorf("surface %T cannot host GL: %w", surface, backend.ErrUnsupported)
	}
	if err := gs.MakeCurrent(v.Profile); err != nil {
		return nil, fmt.Errorf("GL %s context: %w: %w", v.Profile, backend.ErrUnsupported, err)
	}
	gl, err := v.Load()
	if err != nil {
		return nil, fmt.Errorf("load GL %s: %w: %w", v.Profile, backend.ErrUnsupported, err)
	}
	c := newContext(gl, gs, "legacy/"+v.Name, v.Language, log)
	c.log.Info("backend initialized", "variant", c.variant, "profile", v.Profile.String())
	return c, nil
}
