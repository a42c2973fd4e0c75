package magnolia

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/shader"
)

// State is the lifecycle state of a Renderer.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// FrameStats describes the last frame rendered.
type FrameStats struct {
	// Variant is the backend variant that rendered the frame.
	Variant string
	// Queued is the queue length when the frame started.
	Queued int
	// Draws and Vertices count what the backend issued.
	Draws    int
	Vertices int
	// Dropped counts geometry skipped because its buffers or pipeline
	// could not be prepared.
	Dropped int
	// Canceled is set when the frame was abandoned for a teardown.
	Canceled bool
}

// Renderer draws queued Geometry through one backend.Context.
//
// Backend-affecting operations (Init, Destroy, SwitchBackend) are serialized
// by an operation mutex. Render never blocks on them: it reads the state and
// a disposed flag first and returns when the Renderer is not Ready. A frame
// already running when teardown starts sees the disposed flag before its
// next draw, stops, and is not presented.
type Renderer struct {
	opMu sync.Mutex // serializes Init, Destroy and SwitchBackend

	state    atomic.Int32
	disposed atomic.Bool
	opts     options
	log      *slog.Logger
	queue    RenderQueue

	// mu guards the fields below. Render holds it for a whole frame.
	mu      sync.Mutex
	backend backend.Context
	gen     uint64
	cache   *PipelineCache
	arena   *uniformArena
	geoms   map[*Geometry]struct{}
	clear   Color
	last    FrameStats
	loop    *Loop
}

// NewRenderer creates an uninitialized Renderer.
func NewRenderer(opts ...Option) *Renderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		o.loader = shader.Builtin()
	}
	if o.registry == nil {
		o.registry = backend.Default()
	}
	log := o.log
	if log == nil {
		log = Logger()
	}
	return &Renderer{
		opts:  o,
		log:   log,
		clear: o.clear,
		geoms: make(map[*Geometry]struct{}),
	}
}

// State returns the lifecycle state.
func (r *Renderer) State() State {
	return State(r.state.Load())
}

// Backend returns the active backend kind and variant, or false when the
// Renderer is not Ready.
func (r *Renderer) Backend() (backend.Kind, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backend == nil {
		return 0, "", false
	}
	return r.backend.Kind(), r.backend.Variant(), true
}

// Cache returns the pipeline cache of the active backend, or nil.
func (r *Renderer) Cache() *PipelineCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache
}

// Queue returns the render queue.
func (r *Renderer) Queue() *RenderQueue {
	return &r.queue
}

// LastFrame returns statistics of the last rendered frame.
func (r *Renderer) LastFrame() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// SetClearColor sets the color the next frames are cleared to. Alpha is 1.
func (r *Renderer) SetClearColor(red, green, blue float32) {
	r.mu.Lock()
	r.clear = RGB(red, green, blue)
	r.mu.Unlock()
}

// ClearColor returns the current clear color.
func (r *Renderer) ClearColor() Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clear
}

// pixelReader is implemented by backends that can read back the last frame.
type pixelReader interface {
	ReadPixels() (*image.RGBA, error)
}

// Snapshot returns the last rendered frame. It fails with ErrBackendNotReady
// unless the Renderer is Ready, and with backend.ErrUnsupported when the
// active backend cannot read its frame back.
func (r *Renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backend == nil {
		return nil, ErrBackendNotReady
	}
	pr, ok := r.backend.(pixelReader)
	if !ok {
		return nil, fmt.Errorf("snapshot on %s: %w", r.backend.Variant(), backend.ErrUnsupported)
	}
	return pr.ReadPixels()
}

// Init opens a backend of the requested kind on surface, falling back to
// Legacy (logged as "backend downgraded"), and compiles the default
// pipeline.
//
// Init fails with ErrAlreadyInitialized while Ready or Initializing, with an
// error wrapping ErrNoBackendAvailable when no backend opens, and with a
// *ShaderCompileError when the default shader does not build. On failure
// every partial resource is released and the Renderer is Uninitialized.
// A Destroyed Renderer can be initialized again.
func (r *Renderer) Init(ctx context.Context, surface backend.Surface, kind backend.Kind) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.initLocked(ctx, surface, kind)
}

func (r *Renderer) initLocked(ctx context.Context, surface backend.Surface, kind backend.Kind) error {
	if !r.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) &&
		!r.state.CompareAndSwap(int32(StateDestroyed), int32(StateInitializing)) {
		return ErrAlreadyInitialized
	}
	if surface == nil {
		r.state.Store(int32(StateUninitialized))
		return ErrNilSurface
	}

	bc, err := r.opts.registry.Open(ctx, surface, kind, r.log)
	if err != nil {
		r.state.Store(int32(StateUninitialized))
		return err
	}

	cache := NewPipelineCache(func(ctx context.Context, key backend.PipelineKey) (backend.Handle, error) {
		mod, err := r.opts.loader.Load(ctx, key.Shader, bc.ShaderLanguage())
		if err != nil {
			return backend.NoHandle, err
		}
		return bc.CompilePipeline(key, mod)
	}, bc.ReleasePipeline)

	if _, err := cache.GetOrCreate(ctx, r.pipelineKey("")); err != nil {
		r.mu.Lock()
		clearColor := r.clear
		r.mu.Unlock()
		// Leave the surface cleared rather than showing a stale frame.
		if _, cerr := bc.EncodeFrame(backend.PassConfig{Clear: clearColor.Array()}, nil); cerr != nil {
			r.log.Warn("clear after failed init", "err", cerr)
		}
		cache.InvalidateAll()
		bc.Destroy()
		r.state.Store(int32(StateUninitialized))
		return err
	}

	r.mu.Lock()
	r.backend = bc
	r.gen++
	r.cache = cache
	r.arena = &uniformArena{bc: bc}
	r.last = FrameStats{}
	r.mu.Unlock()

	r.disposed.Store(false)
	r.state.Store(int32(StateReady))
	r.log.Info(bc.Variant()+" initialized", "kind", bc.Kind().String(), "uniforms", r.opts.uniforms.String())
	return nil
}

// Enqueue appends g to the render queue. It is drawn from the next Render
// on, never by a frame already in progress.
func (r *Renderer) Enqueue(g *Geometry) error {
	if g == nil || g.owner != r {
		return ErrForeignGeometry
	}
	r.mu.Lock()
	r.geoms[g] = struct{}{}
	r.mu.Unlock()
	r.queue.Push(g)
	return nil
}

// Remove takes every occurrence of g off the queue and releases its
// buffers.
func (r *Renderer) Remove(g *Geometry) {
	if g == nil || g.owner != r {
		return
	}
	r.queue.Remove(g)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.geoms, g)
	g.release(r.backend, r.gen)
}

// Render draws the queue in order, one draw per entry, in a single pass
// cleared to the clear color. It returns immediately unless the Renderer is
// Ready, so it can be called every tick from before Init to after Destroy.
//
// Geometry whose buffers or pipeline cannot be prepared is dropped from the
// frame and logged; see FrameStats.Dropped.
func (r *Renderer) Render() {
	if r.disposed.Load() || r.State() != StateReady {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed.Load() || r.backend == nil {
		return
	}

	items := r.queue.Snapshot()
	stats := FrameStats{Variant: r.backend.Variant(), Queued: len(items)}
	perObject := r.opts.uniforms == UniformPerObject

	if !perObject {
		if err := r.arena.begin(len(items)); err != nil {
			r.log.Warn("frame skipped", "err", err)
			stats.Dropped = len(items)
			r.last = stats
			return
		}
	}

	draws := make([]backend.Draw, 0, len(items))
	for i, g := range items {
		if r.disposed.Load() {
			stats.Canceled = true
			r.last = stats
			return
		}
		d, err := r.prepare(g, perObject)
		if err != nil {
			stats.Dropped++
			r.log.Warn("geometry dropped", "index", i, "err", err)
			continue
		}
		draws = append(draws, d)
	}
	if !perObject {
		if err := r.arena.flush(); err != nil {
			r.log.Warn("frame skipped", "err", err)
			stats.Dropped = len(items)
			r.last = stats
			return
		}
	}

	res, err := r.backend.EncodeFrame(backend.PassConfig{
		Clear:    r.clear.Array(),
		Canceled: r.disposed.Load,
	}, draws)
	if err != nil {
		r.log.Warn("frame submission failed", "variant", stats.Variant, "err", err)
	}
	stats.Draws = res.Draws
	stats.Vertices = res.Vertices
	stats.Canceled = res.Canceled
	r.last = stats
}

// prepare syncs g's buffers and resolves its pipeline. Called with r.mu held.
func (r *Renderer) prepare(g *Geometry, perObject bool) (backend.Draw, error) {
	if g.owner != r {
		return backend.Draw{}, ErrForeignGeometry
	}
	d, st, err := g.sync(r.backend, r.gen, perObject)
	if err != nil {
		return backend.Draw{}, err
	}
	pipe, err := r.cache.GetOrCreate(context.Background(), r.pipelineKey(st.shader))
	if err != nil {
		return backend.Draw{}, err
	}
	d.Pipeline = pipe
	if !perObject {
		d.Uniform, d.UniformOffset = r.arena.put(st.transform)
	}
	return d, nil
}

func (r *Renderer) pipelineKey(shaderPath string) backend.PipelineKey {
	if shaderPath == "" {
		shaderPath = r.opts.shader
	}
	return backend.PipelineKey{
		Shader:   shaderPath,
		Layout:   backend.LayoutPositionColor,
		Blend:    backend.BlendAlpha,
		Topology: backend.TriangleList,
	}
}

// Destroy releases every GPU resource, empties the queue and the pipeline
// cache and leaves the Renderer Destroyed. A frame in progress is canceled
// and waited for. Destroy is idempotent.
func (r *Renderer) Destroy() {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	r.destroyLocked()
}

func (r *Renderer) destroyLocked() {
	if r.State() == StateDestroyed {
		return
	}
	r.disposed.Store(true)
	r.state.Store(int32(StateDestroyed))

	r.queue.Clear()

	r.mu.Lock()
	defer r.mu.Unlock()
	for g := range r.geoms {
		g.release(r.backend, r.gen)
	}
	clear(r.geoms)
	if r.arena != nil {
		r.arena.release()
		r.arena = nil
	}
	if r.cache != nil {
		r.cache.InvalidateAll()
		r.cache = nil
	}
	if r.backend != nil {
		variant := r.backend.Variant()
		r.backend.Destroy()
		r.backend = nil
		r.log.Info("backend destroyed", "variant", variant)
	}
}

// SwitchBackend stops the attached Loop's ticks, waits for the frame in
// flight, destroys the active backend and initializes kind on surface.
// Switching to the active kind still rebuilds everything.
//
// The queue is emptied by the switch. Geometry stays valid and can be
// enqueued again; its buffers are recreated on the new backend.
func (r *Renderer) SwitchBackend(ctx context.Context, kind backend.Kind, surface backend.Surface) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop != nil {
		loop.pause()
		defer loop.resume()
	}

	r.destroyLocked()
	return r.initLocked(ctx, surface, kind)
}
