package magnolia

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/magnolia/backend"
)

func TestLoopTick(t *testing.T) {
	f := newLegacyFixture(t)
	f.init(t)
	g := mustQuad(t, f.r, 0)

	var dts []float64
	l := f.r.NewLoop(func(dt float64) {
		dts = append(dts, dt)
		g.Translate(g.Position().Add(g.Scale().Mul(float32(dt))))
	})

	start := time.Unix(100, 0)
	l.Tick(start)
	l.Tick(start.Add(500 * time.Millisecond))

	if len(dts) != 2 || dts[0] != 0 || dts[1] != 0.5 {
		t.Errorf("dts = %v, want [0 0.5]", dts)
	}
	if l.FPS() != 2 {
		t.Errorf("FPS() = %v, want 2", l.FPS())
	}
	draws := f.gl.Draws()
	if len(draws) != 2 || draws[1].Transform[0] != 0.05 {
		t.Errorf("draws = %+v", draws)
	}
}

func TestLoopStartStop(t *testing.T) {
	f := newLegacyFixture(t)
	f.init(t)

	var ticks atomic.Int32
	l := f.r.NewLoop(func(float64) { ticks.Add(1) })
	l.Start(context.Background(), time.Millisecond)
	l.Start(context.Background(), time.Millisecond)
	if !l.Running() {
		t.Fatal("Running() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	l.Stop()
	l.Stop()

	if l.Running() {
		t.Error("Running() = true after Stop")
	}
	n := ticks.Load()
	if n < 3 {
		t.Fatalf("ticks = %d, want at least 3", n)
	}
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != n {
		t.Error("ticks continued after Stop")
	}
}

func TestLoopContextCancel(t *testing.T) {
	r := NewRenderer(WithRegistry(backend.NewRegistry()))
	l := r.NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx, time.Millisecond)
	cancel()
	l.Stop()
	if l.Running() {
		t.Error("Running() = true after cancel and Stop")
	}
}

func TestSwitchBackendWithRunningLoop(t *testing.T) {
	f := newLegacyFixture(t)
	f.init(t)
	l := f.r.NewLoop(nil)
	l.Start(context.Background(), time.Millisecond)
	defer l.Stop()

	for range 5 {
		if err := f.r.SwitchBackend(context.Background(), backend.Legacy, f.surface); err != nil {
			t.Fatal(err)
		}
		mustQuad(t, f.r, 0)
		time.Sleep(2 * time.Millisecond)
	}
	if f.r.State() != StateReady {
		t.Errorf("State() = %v", f.r.State())
	}
	if l.paused {
		t.Error("loop left paused after SwitchBackend")
	}
}
