// Package bsp abstracts a board's indicator LEDs and buttons.
//
// LEDs play back per-indication blink patterns on an internal timer;
// buttons are IRQ-driven with software debounce and map to logical events
// through a runtime-reconfigurable assignment table. The registered
// callback runs on the board's worker goroutine: keep it short and do not
// block in it.
package bsp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"spimaster-go/errcode"
	"spimaster-go/hwio"
	"spimaster-go/x/mathx"
)

// Event is a logical input event delivered to the callback.
type Event uint8

const (
	// EventNothing unassigns a button.
	EventNothing Event = iota
	EventClearAlert
	EventDisconnect
	EventAdvertisingStart
	EventAdvertisingStop
	EventBond
	EventReset
	EventSleep
	EventWakeup

	// EventKey0..EventKey7 are assigned to buttons 0..7 by default.
	EventKey0
	EventKey1
	EventKey2
	EventKey3
	EventKey4
	EventKey5
	EventKey6
	EventKey7
)

// Callback receives button events.
type Callback func(Event)

// MaxButtons bounds the button table (one default key event each).
const MaxButtons = 8

// Config describes the board wiring.
type Config struct {
	LEDs    []hwio.GPIOPin
	Buttons []hwio.IRQPin

	// ActiveLow marks buttons that read low when pressed.
	ActiveLow bool

	// Debounce window per button. Default 50 ms, clamped to [0, 500 ms].
	Debounce time.Duration

	// QueueLen is the ISR-to-worker queue depth. Default 8.
	QueueLen int
}

type isrEvent struct {
	idx   int
	level bool // raw level captured in the ISR
}

// Board owns the LED playback and button dispatch state.
type Board struct {
	leds      []hwio.GPIOPin
	buttons   []hwio.IRQPin
	activeLow bool
	debounce  time.Duration

	// Fed by button ISRs; must never block them.
	isrQ  chan isrEvent
	setQ  chan Indication
	drops uint32

	mu      sync.Mutex
	started bool
	cb      Callback
	assign  [MaxButtons]Event
	enabled uint32
}

// New builds a Board from the wiring description. Call Start before use.
func New(cfg Config) *Board {
	deb := cfg.Debounce
	if deb == 0 {
		deb = 50 * time.Millisecond
	}
	deb = mathx.Clamp(deb, 0, 500*time.Millisecond)
	qlen := cfg.QueueLen
	if qlen <= 0 {
		qlen = 8
	}
	buttons := cfg.Buttons
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}
	b := &Board{
		leds:      cfg.LEDs,
		buttons:   buttons,
		activeLow: cfg.ActiveLow,
		debounce:  deb,
		isrQ:      make(chan isrEvent, qlen),
		setQ:      make(chan Indication, 4),
	}
	for i := range b.assign {
		if i < len(buttons) {
			b.assign[i] = EventKey0 + Event(i)
		}
	}
	b.enabled = (uint32(1) << len(buttons)) - 1
	return b
}

// Start configures the pins, enables button interrupts and launches the
// worker. It fails with errcode.AlreadyOpen on a second call.
func (b *Board) Start(ctx context.Context, cb Callback) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errcode.AlreadyOpen
	}
	b.started = true
	b.cb = cb
	b.mu.Unlock()

	for _, led := range b.leds {
		if err := led.ConfigureOutput(false); err != nil {
			return err
		}
	}
	pull := hwio.PullDown
	if b.activeLow {
		pull = hwio.PullUp
	}
	for i, btn := range b.buttons {
		if err := btn.ConfigureInput(pull); err != nil {
			return err
		}
		idx := i
		pin := btn
		handler := func() {
			// ISR context: fast level read, non-blocking send.
			select {
			case b.isrQ <- isrEvent{idx: idx, level: pin.Get()}:
			default:
				atomic.AddUint32(&b.drops, 1)
			}
		}
		if err := btn.SetIRQ(hwio.EdgeBoth, handler); err != nil {
			return err
		}
	}

	go b.run(ctx)
	return nil
}

// IndicationSet selects the LED pattern to play. It fails with
// errcode.NotOpen before Start and errcode.Busy when the playback queue
// is full.
func (b *Board) IndicationSet(ind Indication) error {
	if ind >= indicationCount {
		return errcode.InvalidLength
	}
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return errcode.NotOpen
	}
	select {
	case b.setQ <- ind:
		return nil
	default:
		return errcode.Busy
	}
}

// AssignEvent maps a button to an event at runtime. EventNothing
// unassigns. Fails with errcode.InvalidPin for an unknown button.
func (b *Board) AssignEvent(button int, ev Event) error {
	if button < 0 || button >= len(b.buttons) {
		return errcode.InvalidPin
	}
	b.mu.Lock()
	b.assign[button] = ev
	b.mu.Unlock()
	return nil
}

// ButtonsEnable enables the masked buttons and disables all others.
func (b *Board) ButtonsEnable(mask uint32) {
	b.mu.Lock()
	b.enabled = mask
	b.mu.Unlock()
}

// ButtonsState reads all buttons: bit n set means button n is pressed.
func (b *Board) ButtonsState() uint32 {
	var s uint32
	for i, btn := range b.buttons {
		if b.pressed(btn.Get()) {
			s |= 1 << i
		}
	}
	return s
}

// ButtonIsPressed reads one button.
func (b *Board) ButtonIsPressed(button int) (bool, error) {
	if button < 0 || button >= len(b.buttons) {
		return false, errcode.InvalidPin
	}
	return b.pressed(b.buttons[button].Get()), nil
}

// ISRDrops reports button edges lost to a full queue.
func (b *Board) ISRDrops() uint32 { return atomic.LoadUint32(&b.drops) }

func (b *Board) pressed(level bool) bool {
	if b.activeLow {
		return !level
	}
	return level
}

// run is the worker: LED playback steps and debounced button dispatch.
func (b *Board) run(ctx context.Context) {
	var (
		pat     []step
		stepIdx int
		wasDown [MaxButtons]bool
		lastHit [MaxButtons]time.Time
	)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		drainTimer(timer)
	}

	arm := func(d time.Duration) {
		if !timer.Stop() {
			drainTimer(timer)
		}
		if d > 0 {
			timer.Reset(d)
		}
	}
	apply := func() {
		s := pat[stepIdx]
		for i, led := range b.leds {
			led.Set(s.mask&(1<<i) != 0)
		}
		arm(s.d)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ind := <-b.setQ:
			pat = patternFor(ind)
			stepIdx = 0
			apply()

		case <-timer.C:
			if len(pat) == 0 {
				continue
			}
			stepIdx = (stepIdx + 1) % len(pat)
			apply()

		case ev := <-b.isrQ:
			if ev.idx >= MaxButtons {
				continue
			}
			down := b.pressed(ev.level)
			if down == wasDown[ev.idx] {
				continue
			}
			now := time.Now()
			if !lastHit[ev.idx].IsZero() && now.Sub(lastHit[ev.idx]) < b.debounce {
				continue
			}
			lastHit[ev.idx] = now
			wasDown[ev.idx] = down
			if !down {
				continue
			}

			b.mu.Lock()
			enabled := b.enabled&(1<<ev.idx) != 0
			logical := b.assign[ev.idx]
			cb := b.cb
			b.mu.Unlock()
			if enabled && logical != EventNothing && cb != nil {
				cb(logical)
			}
		}
	}
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
