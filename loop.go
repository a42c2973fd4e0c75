package magnolia

import (
	"context"
	"sync"
	"time"
)

// UpdateFunc advances the host's scene by dt seconds before a frame.
type UpdateFunc func(dt float64)

// Loop drives a Renderer: each tick calls the update function and then
// Render.
//
// Ticks either come from the host calling Tick (required for GL, whose
// context is bound to one OS thread) or from Start, which ticks on a
// time.Ticker in its own goroutine. SwitchBackend pauses the Loop attached
// to its Renderer and waits for the tick in flight before tearing down, so
// it must not be called from an UpdateFunc.
type Loop struct {
	r      *Renderer
	update UpdateFunc

	// tickMu is held for the duration of a tick.
	tickMu sync.Mutex
	paused bool
	last   time.Time
	fps    float64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a Loop for r and attaches it, replacing any Loop
// attached before. update may be nil.
func (r *Renderer) NewLoop(update UpdateFunc) *Loop {
	l := &Loop{r: r, update: update}
	r.mu.Lock()
	r.loop = l
	r.mu.Unlock()
	return l
}

// Tick runs one frame at time now. It is a no-op while paused.
func (l *Loop) Tick(now time.Time) {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	if l.paused {
		return
	}
	var dt float64
	if !l.last.IsZero() {
		dt = now.Sub(l.last).Seconds()
	}
	l.last = now
	if dt > 0 {
		l.fps = 1 / dt
	}
	if l.update != nil {
		l.update(dt)
	}
	l.r.Render()
}

// FPS returns the rate implied by the last two ticks.
func (l *Loop) FPS() float64 {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	return l.fps
}

// Start ticks every interval in a new goroutine until ctx is done or Stop
// is called. Starting a running Loop has no effect.
func (l *Loop) Start(ctx context.Context, interval time.Duration) {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.Tick(now)
			}
		}
	}()
}

// Stop ends the goroutine started by Start and waits for it.
func (l *Loop) Stop() {
	l.runMu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the Start goroutine is active.
func (l *Loop) Running() bool {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.done != nil
}

// pause blocks new ticks and waits for the one in flight.
func (l *Loop) pause() {
	l.tickMu.Lock()
	l.paused = true
	l.tickMu.Unlock()
}

func (l *Loop) resume() {
	l.tickMu.Lock()
	l.paused = false
	l.last = time.Time{}
	l.tickMu.Unlock()
}
