package hwio

import "sync"

// FakePin implements GPIOPin and IRQPin for host builds and tests.
// Set fires the registered IRQ handler ISR-style when the level change
// matches the configured edge.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	output  bool
	irqEdge Edge
	irqFunc func()
}

func NewFakePin(number int) *FakePin { return &FakePin{number: number} }

func (p *FakePin) ConfigureInput(_ Pull) error {
	p.mu.Lock()
	p.output = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.output = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	seen := EdgeBetween(p.level, level)
	p.level = level
	irq := p.irqFunc
	fire := irq != nil && EdgeMatches(p.irqEdge, seen)
	p.mu.Unlock()
	if fire {
		irq() // ISR-style callback, outside the lock
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Toggle() { p.Set(!p.Get()) }

func (p *FakePin) Number() int { return p.number }

// IsOutput reports the last configured direction (test hook).
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	v := p.output
	p.mu.RUnlock()
	return v
}

func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}
