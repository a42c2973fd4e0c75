package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/magnolia"
)

// Accelerate returns the velocity change for v over t frames.
func Accelerate(v, t float32) float32 {
	return v * t * t
}

// Behaviour is per-object logic run at the start of each update.
type Behaviour interface {
	Update(o *Object, w *World)
}

// BehaviourFunc adapts a function to Behaviour.
type BehaviourFunc func(o *Object, w *World)

func (f BehaviourFunc) Update(o *Object, w *World) { f(o, w) }

// Object is a moving shape. Velocity decays every update and behaviours
// push it through MoveTransform.
type Object struct {
	Position mgl32.Vec2
	Scale    mgl32.Vec2
	Velocity mgl32.Vec2

	shape      *magnolia.Geometry
	behaviours []Behaviour
	t          float32
}

// Shape returns the geometry drawing the object.
func (o *Object) Shape() *magnolia.Geometry { return o.shape }

// AddBehaviour appends b to the behaviours run each update.
func (o *Object) AddBehaviour(b Behaviour) {
	o.behaviours = append(o.behaviours, b)
}

// MoveTransform accelerates the object by (x, y) over the current frame.
func (o *Object) MoveTransform(x, y float32) {
	o.Velocity[0] += Accelerate(x, o.t) * o.t
	o.Velocity[1] += Accelerate(y, o.t) * o.t
}

// ScaleTransform multiplies the scale by s.
func (o *Object) ScaleTransform(s float32) {
	o.Scale = o.Scale.Mul(s)
}

// Ricochet reverses the velocity along axis 0 (x) or 1 (y).
func (o *Object) Ricochet(axis int) {
	o.Velocity[axis] = -o.Velocity[axis]
}

// OutOfBounds reports whether the object's box crosses the clip-space
// border along axis.
func (o *Object) OutOfBounds(axis int) bool {
	half := o.Scale[axis] / 2
	return o.Position[axis]+half > 1 || o.Position[axis]-half < -1
}

func (o *Object) update(t float32, w *World) {
	o.t = t
	for _, b := range o.behaviours {
		b.Update(o, w)
	}
	o.Position = o.Position.Add(o.Velocity)
	o.Velocity[0] -= Accelerate(o.Velocity[0], t)
	o.Velocity[1] -= Accelerate(o.Velocity[1], t)
	o.shape.Translate(o.Position)
	o.shape.SetScale(o.Scale)
}
