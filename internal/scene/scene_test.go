package scene

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/magnolia"
	"github.com/gogpu/magnolia/backend"
	"github.com/gogpu/magnolia/backend/legacy/legacytest"
)

func newWorld(t *testing.T) (*World, *magnolia.Renderer) {
	t.Helper()
	reg := backend.NewRegistry()
	legacytest.Register(reg, legacytest.NewGL())
	r := magnolia.NewRenderer(magnolia.WithRegistry(reg))
	if err := r.Init(context.Background(), legacytest.NewSurface(32, 32), backend.Legacy); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Destroy)
	return NewWorld(r, 1, nil), r
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestAccelerate(t *testing.T) {
	tests := []struct{ v, t, want float32 }{
		{1, 1, 1},
		{0.5, 0.5, 0.125},
		{-2, 0.1, -0.02},
		{3, 0, 0},
	}
	for _, tt := range tests {
		if got := Accelerate(tt.v, tt.t); !approx(got, tt.want) {
			t.Errorf("Accelerate(%v, %v) = %v, want %v", tt.v, tt.t, got, tt.want)
		}
	}
}

func TestInput(t *testing.T) {
	in := Input(0).With(KeyLeft).With(KeySpace)
	if !in.Down(KeyLeft) || !in.Down(KeySpace) || in.Down(KeyRight) {
		t.Errorf("Input %b", in)
	}
}

func TestSpawnScale(t *testing.T) {
	w, r := newWorld(t)
	o, err := w.Spawn(mgl32.Vec2{0.1, 0.2}, 0.3, magnolia.Red)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(o.Scale[0], 0.2) || !approx(o.Scale[1], 0.3) {
		t.Errorf("Scale = %v, want (0.2, 0.3)", o.Scale)
	}
	if r.Queue().Len() != 1 {
		t.Errorf("queue len = %d, want 1", r.Queue().Len())
	}
	if o.Shape().Position() != o.Position {
		t.Errorf("shape at %v, object at %v", o.Shape().Position(), o.Position)
	}
}

func TestPlayerControls(t *testing.T) {
	w, _ := newWorld(t)
	o, _ := w.Spawn(mgl32.Vec2{}, 0.3, magnolia.White)
	o.AddBehaviour(PlayerControls{})

	w.Update(frameTime, Input(0).With(KeyRight).With(KeyUp))
	if !approx(o.Position[0], PlayerStep) || !approx(o.Position[1], PlayerStep) {
		t.Errorf("Position = %v, want one step up and right", o.Position)
	}
	if o.Velocity != (mgl32.Vec2{}) {
		t.Errorf("Velocity = %v, want fully damped after a full frame", o.Velocity)
	}
	if o.Shape().Position() != o.Position {
		t.Error("geometry not moved with the object")
	}

	w.Update(frameTime, Input(0).With(KeyLeft))
	if !approx(o.Position[0], 0) {
		t.Errorf("x = %v after moving back", o.Position[0])
	}
	w.Update(frameTime, 0)
	if !approx(o.Position[0], 0) || !approx(o.Position[1], PlayerStep) {
		t.Errorf("idle update moved the object to %v", o.Position)
	}
}

func TestUpdateClampsFrameTime(t *testing.T) {
	w, _ := newWorld(t)
	o, _ := w.Spawn(mgl32.Vec2{}, 0.3, magnolia.White)
	o.AddBehaviour(PlayerControls{})

	w.Update(1, Input(0).With(KeyRight))
	if !approx(o.Position[0], PlayerStep) {
		t.Errorf("x = %v, want one step for a long frame", o.Position[0])
	}
	w.Update(frameTime/2, Input(0).With(KeyRight))
	if want := float32(PlayerStep + PlayerStep/8); !approx(o.Position[0], want) {
		t.Errorf("x = %v, want %v for half a frame", o.Position[0], want)
	}
}

func TestBorderCollision(t *testing.T) {
	w, _ := newWorld(t)
	o, _ := w.Spawn(mgl32.Vec2{0.95, 0}, 0.3, magnolia.White)
	o.AddBehaviour(BorderCollision{})
	o.Velocity = mgl32.Vec2{0.01, 0.01}

	w.Update(frameTime/2, 0)
	if o.Position[0] >= 0.95 {
		t.Errorf("x = %v, want bounced left", o.Position[0])
	}
	if o.Position[1] <= 0 {
		t.Errorf("y = %v, want still moving up", o.Position[1])
	}
}

func TestWanderMirrorsAtBorder(t *testing.T) {
	w, _ := newWorld(t)
	o, _ := w.Spawn(mgl32.Vec2{-0.95, 0}, 0.3, magnolia.White)
	b := &Wander{Heading: mgl32.Vec2{-0.5, 0.25}, Speed: 1}
	o.AddBehaviour(b)

	w.Update(frameTime, 0)
	if b.Heading != (mgl32.Vec2{0.5, 0.25}) {
		t.Errorf("Heading = %v, want x mirrored", b.Heading)
	}
	if !approx(o.Position[0], -0.45) || !approx(o.Position[1], 0.25) {
		t.Errorf("Position = %v", o.Position)
	}
}

func TestSpawner(t *testing.T) {
	w, r := newWorld(t)
	player, _ := w.Spawn(mgl32.Vec2{0.5, 0.5}, 0.3, magnolia.White)
	player.AddBehaviour(Spawner{Range: 0.2})

	w.Update(frameTime, 0)
	if len(w.Objects()) != 1 {
		t.Fatalf("objects = %d without Space", len(w.Objects()))
	}
	for range 3 {
		w.Update(frameTime, Input(0).With(KeySpace))
	}
	objs := w.Objects()
	if len(objs) != 4 || r.Queue().Len() != 4 {
		t.Fatalf("objects = %d queue = %d, want 4", len(objs), r.Queue().Len())
	}
	for _, o := range objs[1:] {
		size := o.Scale[1]
		if size < 0.2 || size >= 0.5 || !approx(o.Scale[0], size/3*2) {
			t.Errorf("spawned scale %v", o.Scale)
		}
		if len(o.behaviours) != 1 {
			t.Errorf("spawned object has %d behaviours, want wander", len(o.behaviours))
		}
	}
}

func TestReattach(t *testing.T) {
	w, r := newWorld(t)
	for i := range 3 {
		if _, err := w.Spawn(mgl32.Vec2{float32(i) / 4, 0}, 0.2, magnolia.Blue); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.SwitchBackend(context.Background(), backend.Legacy, legacytest.NewSurface(32, 32)); err != nil {
		t.Fatal(err)
	}
	if r.Queue().Len() != 0 {
		t.Fatal("queue survived SwitchBackend")
	}
	if err := w.Reattach(); err != nil {
		t.Fatal(err)
	}
	r.Render()
	if st := r.LastFrame(); st.Draws != 3 {
		t.Errorf("Draws = %d after Reattach, want 3", st.Draws)
	}
}
