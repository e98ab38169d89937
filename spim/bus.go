package spim

import (
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"spimaster-go/errcode"
)

// Bus is a blocking drivers.SPI facade over one driver instance, so the
// event-driven engine can sit underneath existing tinygo.org/x/drivers
// device drivers. It registers its own handler for the duration of each
// call and unregisters it afterwards; the instance's handler slot belongs
// to the Bus while it is in use.
//
// Bus serializes its own calls; it must not be used from inside an event
// handler.
type Bus struct {
	d    *Driver
	inst Instance

	// Timeout bounds the wait for completion. Zero means DefaultBusTimeout.
	Timeout time.Duration

	mu   sync.Mutex
	done chan Event
}

const DefaultBusTimeout = time.Second

var _ drivers.SPI = (*Bus)(nil)

// NewBus wraps an instance of d. The instance must be opened by the
// caller before use.
func NewBus(d *Driver, inst Instance) *Bus {
	return &Bus{d: d, inst: inst, done: make(chan Event, 1)}
}

// Tx performs a full-duplex exchange and blocks until it completes.
func (b *Bus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Drain a completion left over from a timed-out call.
	select {
	case <-b.done:
	default:
	}

	b.d.RegisterHandler(b.inst, func(ev Event) {
		if ev.Type != TransferCompleted {
			return
		}
		select {
		case b.done <- ev:
		default:
		}
	})
	defer b.d.RegisterHandler(b.inst, nil)

	if err := b.d.SendReceive(b.inst, w, r); err != nil {
		return err
	}

	timeout := b.Timeout
	if timeout == 0 {
		timeout = DefaultBusTimeout
	}
	select {
	case <-b.done:
		return nil
	case <-time.After(timeout):
		return errcode.Timeout
	}
}

// Transfer exchanges a single octet.
func (b *Bus) Transfer(out byte) (byte, error) {
	w := [1]byte{out}
	var r [1]byte
	if err := b.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}
