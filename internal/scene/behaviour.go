package scene

import "github.com/go-gl/mathgl/mgl32"

// PlayerStep is the push applied per frame while an arrow key is held.
const PlayerStep = 0.02

// PlayerControls moves the object with the arrow keys.
type PlayerControls struct{}

func (PlayerControls) Update(o *Object, w *World) {
	in := w.Input()
	if in.Down(KeyUp) {
		o.MoveTransform(0, PlayerStep)
	}
	if in.Down(KeyDown) {
		o.MoveTransform(0, -PlayerStep)
	}
	if in.Down(KeyLeft) {
		o.MoveTransform(-PlayerStep, 0)
	}
	if in.Down(KeyRight) {
		o.MoveTransform(PlayerStep, 0)
	}
}

// BorderCollision bounces the object off the clip-space border.
type BorderCollision struct{}

func (BorderCollision) Update(o *Object, _ *World) {
	for axis := 0; axis < 2; axis++ {
		if o.OutOfBounds(axis) {
			o.Ricochet(axis)
		}
	}
}

// Wander drifts toward a random heading, mirroring it at the border.
type Wander struct {
	Heading mgl32.Vec2
	Speed   float32
}

// NewWander picks a heading in [-0.5, 0.5) on each axis.
func NewWander(w *World, speed float32) *Wander {
	return &Wander{
		Heading: mgl32.Vec2{w.Rand(-0.5, 0.5), w.Rand(-0.5, 0.5)},
		Speed:   speed,
	}
}

func (b *Wander) Update(o *Object, _ *World) {
	for axis := 0; axis < 2; axis++ {
		if o.OutOfBounds(axis) {
			b.Heading[axis] = -b.Heading[axis]
		}
	}
	o.MoveTransform(b.Heading[0]*b.Speed, b.Heading[1]*b.Speed)
}

// WanderSpeed is the speed of objects spawned by Spawner.
const WanderSpeed = 0.001

// Spawner creates a wandering object near its owner every frame Space is
// held.
type Spawner struct {
	Range float32
}

func (s Spawner) Update(o *Object, w *World) {
	if !w.Input().Down(KeySpace) {
		return
	}
	pos := mgl32.Vec2{
		w.Rand(o.Position[0]-s.Range, o.Position[0]+s.Range),
		w.Rand(o.Position[1]-s.Range, o.Position[1]+s.Range),
	}
	c := w.RandColor()
	size := w.Rand(0.2, 0.5)
	w.Defer(func() {
		obj, err := w.Spawn(pos, size, c)
		if err != nil {
			w.log.Warn("spawn failed", "err", err)
			return
		}
		obj.AddBehaviour(NewWander(w, WanderSpeed))
	})
}
