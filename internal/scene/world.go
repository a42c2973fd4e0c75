// Package scene is the demo's game layer: objects with velocity and
// behaviours, drawn as quads through a magnolia.Renderer.
package scene

import (
	"log/slog"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/magnolia"
)

// frameTime is the tick length that counts as one frame of motion.
const frameTime = 1.0 / 60

// World owns the objects of a scene and their geometry.
type World struct {
	r       *magnolia.Renderer
	log     *slog.Logger
	rng     *rand.Rand
	objects []*Object
	input   Input
	pending []func()
}

// NewWorld creates an empty world drawing through r. The seed fixes every
// random choice.
func NewWorld(r *magnolia.Renderer, seed uint64, log *slog.Logger) *World {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &World{
		r:   r,
		log: log,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Spawn creates an object of the given size centered at pos. Its box is
// size/3*2 wide and size tall.
func (w *World) Spawn(pos mgl32.Vec2, size float32, c magnolia.Color) (*Object, error) {
	scale := mgl32.Vec2{size / 3 * 2, size}
	g, err := w.r.NewQuad(pos, scale, c)
	if err != nil {
		return nil, err
	}
	if err := w.r.Enqueue(g); err != nil {
		return nil, err
	}
	o := &Object{Position: pos, Scale: scale, shape: g}
	w.objects = append(w.objects, o)
	return o, nil
}

// Update advances every object by dt seconds with in as the held keys.
// Objects spawned by behaviours join after the update.
func (w *World) Update(dt float64, in Input) {
	w.input = in
	t := float32(min(max(dt/frameTime, 0), 1))
	for _, o := range w.objects {
		o.update(t, w)
	}
	pending := w.pending
	w.pending = nil
	for _, f := range pending {
		f()
	}
}

// Reattach enqueues every object again, after the renderer's queue was
// emptied by a backend switch.
func (w *World) Reattach() error {
	for _, o := range w.objects {
		if err := w.r.Enqueue(o.shape); err != nil {
			return err
		}
	}
	return nil
}

// Objects returns the live objects in spawn order.
func (w *World) Objects() []*Object { return w.objects }

// Input returns the keys held in the current update.
func (w *World) Input() Input { return w.input }

// Defer runs f after the current update.
func (w *World) Defer(f func()) { w.pending = append(w.pending, f) }

// Rand returns a value in [lo, hi).
func (w *World) Rand(lo, hi float32) float32 {
	return lo + w.rng.Float32()*(hi-lo)
}

// RandColor returns an opaque random color.
func (w *World) RandColor() magnolia.Color {
	return magnolia.RGB(w.rng.Float32(), w.rng.Float32(), w.rng.Float32())
}
