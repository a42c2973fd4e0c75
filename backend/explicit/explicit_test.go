package explicit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/internal/tess"
	"github.com/gogpu/magnolia/shader"
)

const testWGSL = `
struct Transform { offset: vec2<f32>, scale: vec2<f32> }
@group(0) @binding(0) var<uniform> u: Transform;
@vertex fn vs_main(@location(0) p: vec2<f32>, @location(1) c: vec4<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(p * u.scale + u.offset, 0.0, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`

type testSurface struct{ w, h int }

func (s testSurface) Size() (int, int) { return s.w, s.h }

var flatKey = backend.PipelineKey{Shader: "flat"}

func openNoop(t *testing.T, log *slog.Logger) *Context {
	t.Helper()
	bc, err := Noop(context.Background(), testSurface{w: 8, h: 4}, log)
	if err != nil {
		t.Fatalf("Noop: %v", err)
	}
	c, ok := bc.(*Context)
	if !ok {
		t.Fatalf("Noop returned %T", bc)
	}
	t.Cleanup(c.Destroy)
	return c
}

// quadDraw uploads a quad and one transform slot and returns the draw for it.
func quadDraw(t *testing.T, c *Context, pipe backend.Handle) backend.Draw {
	t.Helper()
	q := tess.Quad()
	vb, err := c.CreateVertexResource("quad_pos", tess.PackPositions(q))
	if err != nil {
		t.Fatalf("CreateVertexResource: %v", err)
	}
	cb, err := c.CreateVertexResource("quad_col", tess.PackColors(len(q), [4]float32{1, 0, 0, 1}))
	if err != nil {
		t.Fatalf("CreateVertexResource: %v", err)
	}
	ub, err := c.CreateUniformResource("quad_xf", backend.UniformAlignment)
	if err != nil {
		t.Fatalf("CreateUniformResource: %v", err)
	}
	return backend.Draw{Pipeline: pipe, Vertices: vb, Colors: cb, Uniform: ub, VertexCount: len(q)}
}

func compileFlat(t *testing.T, c *Context) backend.Handle {
	t.Helper()
	h, err := c.CompilePipeline(flatKey, &shader.Module{Path: "flat", Lang: shader.WGSL, Source: testWGSL})
	if err != nil {
		t.Fatalf("CompilePipeline: %v", err)
	}
	return h
}

func TestNoopOpen(t *testing.T) {
	var buf bytes.Buffer
	c := openNoop(t, slog.New(slog.NewTextHandler(&buf, nil)))

	if c.Kind() != backend.Explicit {
		t.Errorf("Kind = %v, want explicit", c.Kind())
	}
	if c.Variant() != "explicit/noop" {
		t.Errorf("Variant = %q", c.Variant())
	}
	if c.ShaderLanguage() != shader.WGSL {
		t.Errorf("ShaderLanguage = %v", c.ShaderLanguage())
	}
	if w, h := c.SurfaceSize(); w != 8 || h != 4 {
		t.Errorf("SurfaceSize = %dx%d, want 8x4", w, h)
	}
	if !strings.Contains(buf.String(), "backend initialized") {
		t.Errorf("log = %q, want backend initialized", buf.String())
	}
}

func TestSurfaceSizeFloor(t *testing.T) {
	bc, err := Noop(context.Background(), testSurface{}, nil)
	if err != nil {
		t.Fatalf("Noop: %v", err)
	}
	defer bc.Destroy()
	if w, h := bc.SurfaceSize(); w != 1 || h != 1 {
		t.Errorf("SurfaceSize = %dx%d, want 1x1", w, h)
	}
}

func TestOpenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Noop(ctx, testSurface{w: 1, h: 1}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSharedRejectsForeignDevice(t *testing.T) {
	_, err := Open(context.Background(), foreignProvider{}, nil)
	if !errors.Is(err, backend.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

type foreignProvider struct{ testSurface }

func (foreignProvider) HalDevice() any { return "device" }
func (foreignProvider) HalQueue() any  { return "queue" }

func TestBufferLifecycle(t *testing.T) {
	c := openNoop(t, nil)

	h, err := c.CreateVertexResource("v", make([]byte, 48))
	if err != nil {
		t.Fatalf("CreateVertexResource: %v", err)
	}
	if err := c.WriteResource(h, 40, make([]byte, 8)); err != nil {
		t.Errorf("in-range write: %v", err)
	}
	if err := c.WriteResource(h, 44, make([]byte, 8)); !errors.Is(err, backend.ErrOutOfRange) {
		t.Errorf("overflow write err = %v, want ErrOutOfRange", err)
	}
	if err := c.WriteResource(h, -1, nil); !errors.Is(err, backend.ErrOutOfRange) {
		t.Errorf("negative offset err = %v, want ErrOutOfRange", err)
	}
	if _, err := c.CreateVertexResource("empty", nil); !errors.Is(err, backend.ErrResourceCreation) {
		t.Errorf("empty buffer err = %v, want ErrResourceCreation", err)
	}

	c.ReleaseResource(h)
	c.ReleaseResource(h)
	if err := c.WriteResource(h, 0, []byte{1}); !errors.Is(err, backend.ErrInvalidHandle) {
		t.Errorf("write after release err = %v, want ErrInvalidHandle", err)
	}
	if b, _, _ := c.Stats(); b != 0 {
		t.Errorf("buffers = %d, want 0", b)
	}
}

func TestCompilePipeline(t *testing.T) {
	c := openNoop(t, nil)

	h := compileFlat(t, c)
	if h == backend.NoHandle {
		t.Fatal("NoHandle for compiled pipeline")
	}
	if _, p, _ := c.Stats(); p != 1 {
		t.Errorf("pipelines = %d, want 1", p)
	}

	_, err := c.CompilePipeline(flatKey, &shader.Module{Path: "flat", Lang: shader.GLSL330})
	var ce *shader.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("GLSL module err = %v, want *shader.CompileError", err)
	}

	c.ReleasePipeline(h)
	if _, p, _ := c.Stats(); p != 0 {
		t.Errorf("pipelines after release = %d, want 0", p)
	}
}

func TestCompileBuiltinShader(t *testing.T) {
	mod, err := shader.Builtin().Load(context.Background(), "flat", shader.WGSL)
	if err != nil {
		if strings.Contains(err.Error(), "not yet implemented") {
			t.Skipf("naga: %v", err)
		}
		t.Fatalf("Load: %v", err)
	}
	c := openNoop(t, nil)
	if _, err := c.CompilePipeline(flatKey, mod); err != nil {
		t.Fatalf("CompilePipeline: %v", err)
	}
}

func TestEncodeFrame(t *testing.T) {
	c := openNoop(t, nil)
	pipe := compileFlat(t, c)
	d := quadDraw(t, c, pipe)

	clear := [4]float32{0.1, 0.2, 0.3, 1}
	res, err := c.EncodeFrame(backend.PassConfig{Clear: clear}, []backend.Draw{d, d})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if res.Draws != 2 || res.Vertices != 12 || res.Canceled {
		t.Errorf("result = %+v, want 2 draws, 12 vertices", res)
	}
	if c.LastClear() != clear {
		t.Errorf("LastClear = %v, want %v", c.LastClear(), clear)
	}
	if _, _, bg := c.Stats(); bg != 1 {
		t.Errorf("bind groups = %d, want 1 shared by both draws", bg)
	}
}

func TestEncodeFrameEmpty(t *testing.T) {
	c := openNoop(t, nil)
	res, err := c.EncodeFrame(backend.PassConfig{Clear: [4]float32{0, 0, 0, 1}}, nil)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if res.Draws != 0 {
		t.Errorf("Draws = %d, want 0", res.Draws)
	}
}

func TestEncodeFrameSkipsInvalidDraws(t *testing.T) {
	var buf bytes.Buffer
	c := openNoop(t, slog.New(slog.NewTextHandler(&buf, nil)))
	pipe := compileFlat(t, c)
	good := quadDraw(t, c, pipe)

	stale := good
	stale.Pipeline = 999
	overrun := good
	overrun.VertexCount = 7
	badSlot := good
	badSlot.UniformOffset = backend.UniformAlignment

	res, err := c.EncodeFrame(backend.PassConfig{}, []backend.Draw{stale, good, overrun, badSlot})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if res.Draws != 1 {
		t.Errorf("Draws = %d, want 1", res.Draws)
	}
	if got := strings.Count(buf.String(), "draw skipped"); got != 3 {
		t.Errorf("logged %d skipped draws, want 3", got)
	}
}

func TestEncodeFrameCanceled(t *testing.T) {
	c := openNoop(t, nil)
	pipe := compileFlat(t, c)
	d := quadDraw(t, c, pipe)

	calls := 0
	pass := backend.PassConfig{
		Clear: [4]float32{1, 1, 1, 1},
		Canceled: func() bool {
			calls++
			return calls > 1
		},
	}
	res, err := c.EncodeFrame(pass, []backend.Draw{d, d, d})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if !res.Canceled {
		t.Error("Canceled = false, want true")
	}
	if res.Draws != 1 {
		t.Errorf("Draws = %d, want 1 before cancellation", res.Draws)
	}
	if c.LastClear() == pass.Clear {
		t.Error("canceled frame recorded as submitted")
	}
}

func TestReadPixels(t *testing.T) {
	c := openNoop(t, nil)
	if _, err := c.ReadPixels(); !errors.Is(err, ErrNoOffscreenTarget) {
		t.Fatalf("ReadPixels before frame err = %v, want ErrNoOffscreenTarget", err)
	}
	if _, err := c.EncodeFrame(backend.PassConfig{Clear: [4]float32{0, 0, 0, 1}}, nil); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	img, err := c.ReadPixels()
	if err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("bounds = %v, want 8x4", b)
	}
}

func TestDestroy(t *testing.T) {
	bc, err := Noop(context.Background(), testSurface{w: 2, h: 2}, nil)
	if err != nil {
		t.Fatalf("Noop: %v", err)
	}
	c := bc.(*Context)
	pipe := compileFlat(t, c)
	d := quadDraw(t, c, pipe)
	if _, err := c.EncodeFrame(backend.PassConfig{}, []backend.Draw{d}); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	c.Destroy()
	c.Destroy()

	if b, p, bg := c.Stats(); b+p+bg != 0 {
		t.Errorf("Stats after Destroy = %d/%d/%d, want all zero", b, p, bg)
	}
	if _, err := c.EncodeFrame(backend.PassConfig{}, nil); !errors.Is(err, backend.ErrDestroyed) {
		t.Errorf("EncodeFrame after Destroy err = %v, want ErrDestroyed", err)
	}
	if _, err := c.CreateUniformResource("u", 16); !errors.Is(err, backend.ErrDestroyed) {
		t.Errorf("CreateUniformResource after Destroy err = %v, want ErrDestroyed", err)
	}
	c.ReleaseResource(d.Vertices)
	c.ReleasePipeline(pipe)
}
