package magnolia

import (
	"fmt"

	"github.com/gogpu/magnolia/backend"
)

// minArenaSlots is the initial capacity of the dynamic uniform buffer.
const minArenaSlots = 16

// uniformArena is the shared uniform buffer of UniformDynamic: one
// UniformAlignment-sized slot per draw, filled on the CPU during a frame and
// uploaded with a single write.
type uniformArena struct {
	bc      backend.Context
	handle  backend.Handle
	slots   int
	staging []byte
	used    int
}

// begin prepares room for n draws, growing the buffer if needed.
// Growth releases the old buffer, so begin must run before any slot of the
// frame is handed out.
func (a *uniformArena) begin(n int) error {
	a.used = 0
	if n > a.slots {
		slots := max(n, 2*a.slots, minArenaSlots)
		h, err := a.bc.CreateUniformResource("magnolia_uniform_arena", slots*backend.UniformAlignment)
		if err != nil {
			return fmt.Errorf("grow uniform arena to %d slots: %w", slots, err)
		}
		if a.handle != backend.NoHandle {
			a.bc.ReleaseResource(a.handle)
		}
		a.handle = h
		a.slots = slots
	}
	if need := n * backend.UniformAlignment; cap(a.staging) < need {
		a.staging = make([]byte, need)
	}
	a.staging = a.staging[:n*backend.UniformAlignment]
	return nil
}

// put stores one transform and returns where the draw finds it.
func (a *uniformArena) put(transform []byte) (backend.Handle, int) {
	off := a.used * backend.UniformAlignment
	copy(a.staging[off:off+backend.TransformSize], transform)
	a.used++
	return a.handle, off
}

// flush uploads the slots used this frame.
func (a *uniformArena) flush() error {
	if a.used == 0 {
		return nil
	}
	return a.bc.WriteResource(a.handle, 0, a.staging[:a.used*backend.UniformAlignment])
}

func (a *uniformArena) release() {
	if a.handle != backend.NoHandle {
		a.bc.ReleaseResource(a.handle)
		a.handle = backend.NoHandle
	}
	a.slots = 0
	a.used = 0
}
