package scene

// Key is a key the scene reacts to.
type Key uint8

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
)

// Input is the set of keys held during one tick.
type Input uint32

// With returns in plus k.
func (in Input) With(k Key) Input { return in | 1<<k }

// Down reports whether k is held.
func (in Input) Down(k Key) bool { return in&(1<<k) != 0 }
