// Package hwio defines the small GPIO surface the rest of the module
// builds on. Concrete implementations live in platform code (machine.Pin
// wrappers on MCU builds) and in FakePin for host-side tests.
package hwio

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// GPIOPin is a single digital pin.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQPin extends GPIOPin with level-change interrupts. The handler runs in
// interrupt context: it must not block and should do minimal work.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// EdgeBetween reports the edge seen when a level moves from old to new.
func EdgeBetween(old, new bool) Edge {
	switch {
	case !old && new:
		return EdgeRising
	case old && !new:
		return EdgeFalling
	default:
		return EdgeNone
	}
}

// EdgeMatches reports whether a configured edge selection covers a seen edge.
func EdgeMatches(cfg, seen Edge) bool {
	if seen == EdgeNone {
		return false
	}
	if cfg == EdgeBoth {
		return true
	}
	return cfg == seen
}
