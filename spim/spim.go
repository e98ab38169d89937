// Package spim drives SPI peripherals in master (clock-generating) mode.
//
// The driver owns a fixed table of peripheral instances, one per hardware
// unit. Each instance moves through three lifecycle states:
//
//	Disabled --Open--> Idle --SendReceive--> Busy --completion--> Idle
//	any state --Close--> Disabled
//
// SendReceive never blocks: it arms the hardware and returns, and the
// caller observes completion through the registered Handler. The state
// word is the only synchronization token between the calling thread and
// the completion context; see the field comments on instance.
package spim

import (
	"sync"
	"sync/atomic"

	"spimaster-go/errcode"
	"spimaster-go/x/mathx"
)

// Instance identifies one physical master unit. The set is closed and
// fixed at compile time.
type Instance uint8

const (
	SPIM0 Instance = iota
	SPIM1

	// InstanceCount is the number of hardware units the driver manages.
	InstanceCount
)

func (i Instance) valid() bool { return i < InstanceCount }

func (i Instance) String() string {
	switch i {
	case SPIM0:
		return "spim0"
	case SPIM1:
		return "spim1"
	default:
		return "spim?"
	}
}

// State is an instance's lifecycle state.
type State uint32

const (
	StateDisabled State = iota
	StateIdle
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	default:
		return "disabled"
	}
}

// transfer is the per-request snapshot. It is fully written before the
// hardware is armed and never mutated afterwards, so the completion
// context may read it without locks.
type transfer struct {
	tx, rx  []byte
	n       int
	handler Handler // handler registered at acceptance time; may be nil
}

type instance struct {
	// state is the mutual-exclusion token between the calling thread and
	// the completion context: SendReceive proceeds only past a CAS
	// Idle->Busy, the completion path only past a CAS Busy->Idle, and
	// Close swaps to Disabled unconditionally.
	state atomic.Uint32

	// cur holds the in-flight transfer snapshot, nil when none.
	cur atomic.Pointer[transfer]

	// mu guards the administration fields below. The completion path
	// never takes it.
	mu      sync.Mutex
	port    Port
	cfg     Config
	handler Handler
}

// Driver is the process-wide instance registry plus transfer engine.
// Construct it once at start-up with New; instances are never destroyed,
// only reconfigured through Open and Close.
type Driver struct {
	provider Provider
	inst     [InstanceCount]instance
}

// New returns a driver backed by the given platform provider. All
// instances start Disabled.
func New(p Provider) *Driver {
	return &Driver{provider: p}
}

// Open powers and programs a Disabled instance, leaving it Idle.
//
// It fails with errcode.AlreadyOpen when the instance is not Disabled,
// errcode.NullConfig when cfg is nil, errcode.InvalidPin for a bad pin
// assignment and errcode.ResourceUnavailable when the unit's clock or
// interrupt resources cannot be claimed. On failure the instance remains
// Disabled.
func (d *Driver) Open(id Instance, cfg *Config) error {
	if !id.valid() {
		return errcode.UnknownInstance
	}
	if cfg == nil {
		return errcode.NullConfig
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	in := &d.inst[id]
	in.mu.Lock()
	defer in.mu.Unlock()

	if State(in.state.Load()) != StateDisabled {
		return errcode.AlreadyOpen
	}
	port, ok := d.provider.Port(id)
	if !ok {
		return errcode.ResourceUnavailable
	}
	if err := port.Configure(*cfg); err != nil {
		return err
	}

	in.port = port
	in.cfg = *cfg
	in.cur.Store(nil) // discard stale buffer state
	in.state.Store(uint32(StateIdle))
	return nil
}

// Close disables an instance from any state, discarding buffer references
// and the registered handler. It is idempotent and cannot fail; closing an
// unknown instance is a no-op.
//
// Close while Busy first silences the port, so a transfer aborted this way
// yields no completion event.
func (d *Driver) Close(id Instance) {
	if !id.valid() {
		return
	}
	in := &d.inst[id]
	in.mu.Lock()
	defer in.mu.Unlock()

	// Leaving Busy (or Idle) for Disabled before Shutdown makes a
	// completion signal already in flight lose the Busy->Idle CAS and
	// drop its event.
	in.state.Store(uint32(StateDisabled))
	if in.port != nil {
		in.port.Shutdown()
		in.port = nil
	}
	in.cur.Store(nil)
	in.handler = nil
	in.cfg = Config{}
}

// RegisterHandler replaces the instance's event handler. Valid in any
// state; a nil handler unregisters. A transfer already in flight keeps
// delivering to the handler that was registered when it was accepted.
func (d *Driver) RegisterHandler(id Instance, h Handler) {
	if !id.valid() {
		return
	}
	in := &d.inst[id]
	in.mu.Lock()
	in.handler = h
	in.mu.Unlock()
}

// State reports an instance's current lifecycle state. It has no side
// effects; an unknown instance reads as Disabled.
func (d *Driver) State(id Instance) State {
	if !id.valid() {
		return StateDisabled
	}
	return State(d.inst[id].state.Load())
}

// SendReceive submits a full-duplex exchange on an Idle instance.
//
// tx and rx bound the two directions independently: the exchange clocks
// exactly max(len(tx), len(rx)) octets, emitting DefaultTxByte once tx is
// exhausted and discarding received octets beyond len(rx). Either buffer
// may be empty, but not both. Both buffers are borrowed: the caller must
// not touch them until the TransferCompleted event is observed.
//
// On acceptance the instance is Busy, TransferStarted has been delivered
// synchronously to the handler registered at acceptance time, and the
// hardware is clocking; the call returns without waiting for completion.
// It fails with errcode.NotOpen on a Disabled instance and errcode.Busy
// when a transfer is already outstanding, leaving state unchanged.
func (d *Driver) SendReceive(id Instance, tx, rx []byte) error {
	if !id.valid() {
		return errcode.UnknownInstance
	}
	if len(tx) == 0 && len(rx) == 0 {
		return errcode.InvalidLength
	}

	in := &d.inst[id]
	if !in.state.CompareAndSwap(uint32(StateIdle), uint32(StateBusy)) {
		if State(in.state.Load()) == StateDisabled {
			return errcode.NotOpen
		}
		return errcode.Busy
	}
	// The CAS above granted exclusive ownership until the hardware is
	// armed; the completion context takes over from Begin onwards.

	in.mu.Lock()
	port := in.port
	if port == nil {
		// Closed between the CAS and here; Close already forced
		// Disabled, nothing to roll back.
		in.mu.Unlock()
		return errcode.NotOpen
	}
	t := &transfer{
		tx:      tx,
		rx:      rx,
		n:       mathx.Max(len(tx), len(rx)),
		handler: in.handler,
	}
	in.mu.Unlock()

	in.cur.Store(t)
	if t.handler != nil {
		// Reentrant SendReceive from this callback sees Busy and is
		// rejected; Close from it is permitted.
		t.handler(Event{Type: TransferStarted})
	}
	port.Begin(t.tx, t.rx, t.n, func(count int) { d.complete(id, count) })
	return nil
}

// complete finalizes a transfer on the completion signal's execution
// context. A signal observed while the instance is not Busy is spurious
// (or the transfer was aborted by Close) and is ignored.
func (d *Driver) complete(id Instance, count int) {
	in := &d.inst[id]
	t := in.cur.Load()
	if t == nil {
		return
	}
	// Claim the snapshot before releasing the state token. Releasing
	// state first would let the caller start the next transfer while
	// this context still holds a reference it could null out, clobbering
	// the successor's snapshot and losing its completion.
	if !in.cur.CompareAndSwap(t, nil) {
		return
	}
	if !in.state.CompareAndSwap(uint32(StateBusy), uint32(StateIdle)) {
		return
	}
	if t.handler != nil {
		t.handler(Event{Type: TransferCompleted, Count: count})
	}
}
