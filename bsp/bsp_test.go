package bsp

import (
	"context"
	"testing"
	"time"

	"spimaster-go/errcode"
	"spimaster-go/hwio"
)

type rig struct {
	board   *Board
	leds    []*hwio.FakePin
	buttons []*hwio.FakePin
	events  chan Event
	cancel  context.CancelFunc
}

func newRig(t *testing.T, nLEDs, nButtons int, activeLow bool) *rig {
	t.Helper()
	r := &rig{events: make(chan Event, 16)}

	cfg := Config{
		ActiveLow: activeLow,
		Debounce:  time.Millisecond,
	}
	for i := 0; i < nLEDs; i++ {
		p := hwio.NewFakePin(10 + i)
		r.leds = append(r.leds, p)
		cfg.LEDs = append(cfg.LEDs, p)
	}
	for i := 0; i < nButtons; i++ {
		p := hwio.NewFakePin(20 + i)
		r.buttons = append(r.buttons, p)
		cfg.Buttons = append(cfg.Buttons, p)
	}

	r.board = New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	t.Cleanup(cancel)
	if err := r.board.Start(ctx, func(ev Event) { r.events <- ev }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

// press performs a full press/release with debounce-friendly spacing.
func (r *rig) press(i int, activeLow bool) {
	down, up := true, false
	if activeLow {
		down, up = false, true
	}
	r.buttons[i].Set(down)
	time.Sleep(5 * time.Millisecond)
	r.buttons[i].Set(up)
	time.Sleep(5 * time.Millisecond)
}

func expectEvent(t *testing.T, ch <-chan Event, want Event) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("event = %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event %v", want)
	}
}

func expectNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected event %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitLED(t *testing.T, p *hwio.FakePin, want bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for p.Get() != want {
		if time.Now().After(deadline) {
			t.Fatalf("LED never reached %v", want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDefaultKeyAssignment(t *testing.T) {
	r := newRig(t, 0, 2, false)
	r.press(0, false)
	expectEvent(t, r.events, EventKey0)
	r.press(1, false)
	expectEvent(t, r.events, EventKey1)
}

func TestAssignAndUnassign(t *testing.T) {
	r := newRig(t, 0, 1, false)

	if err := r.board.AssignEvent(0, EventSleep); err != nil {
		t.Fatalf("AssignEvent: %v", err)
	}
	r.press(0, false)
	expectEvent(t, r.events, EventSleep)

	if err := r.board.AssignEvent(0, EventNothing); err != nil {
		t.Fatalf("AssignEvent: %v", err)
	}
	r.press(0, false)
	expectNoEvent(t, r.events)

	if err := r.board.AssignEvent(5, EventBond); err != errcode.InvalidPin {
		t.Fatalf("bad button: got %v, want %v", err, errcode.InvalidPin)
	}
}

func TestButtonsEnableMask(t *testing.T) {
	r := newRig(t, 0, 2, false)

	r.board.ButtonsEnable(1 << 1) // only button 1
	r.press(0, false)
	expectNoEvent(t, r.events)
	r.press(1, false)
	expectEvent(t, r.events, EventKey1)

	r.board.ButtonsEnable(^uint32(0))
	r.press(0, false)
	expectEvent(t, r.events, EventKey0)
}

func TestButtonsStateActiveLow(t *testing.T) {
	r := newRig(t, 0, 2, true)

	// Active-low: released reads high.
	r.buttons[0].Set(true)
	r.buttons[1].Set(true)
	if s := r.board.ButtonsState(); s != 0 {
		t.Fatalf("state = %#b, want 0", s)
	}

	r.buttons[1].Set(false) // pressed
	if s := r.board.ButtonsState(); s != 1<<1 {
		t.Fatalf("state = %#b, want %#b", s, uint32(1<<1))
	}
	pressed, err := r.board.ButtonIsPressed(1)
	if err != nil || !pressed {
		t.Fatalf("ButtonIsPressed = %v, %v; want true, nil", pressed, err)
	}
	if _, err := r.board.ButtonIsPressed(9); err != errcode.InvalidPin {
		t.Fatalf("bad button: got %v, want %v", err, errcode.InvalidPin)
	}
}

func TestIndicationStatic(t *testing.T) {
	r := newRig(t, 2, 0, false)

	if err := r.board.IndicationSet(IndicateConnected); err != nil {
		t.Fatalf("IndicationSet: %v", err)
	}
	waitLED(t, r.leds[0], true)

	if err := r.board.IndicationSet(IndicateFatalError); err != nil {
		t.Fatalf("IndicationSet: %v", err)
	}
	waitLED(t, r.leds[1], true)

	if err := r.board.IndicationSet(IndicateIdle); err != nil {
		t.Fatalf("IndicationSet: %v", err)
	}
	waitLED(t, r.leds[0], false)
	waitLED(t, r.leds[1], false)
}

func TestIndicationOneShotFlash(t *testing.T) {
	r := newRig(t, 2, 0, false)

	if err := r.board.IndicationSet(IndicateSentOK); err != nil {
		t.Fatalf("IndicationSet: %v", err)
	}
	waitLED(t, r.leds[1], true)  // flash
	waitLED(t, r.leds[1], false) // and back off, holding dark
}

func TestLifecycleErrors(t *testing.T) {
	b := New(Config{})
	if err := b.IndicationSet(IndicateIdle); err != errcode.NotOpen {
		t.Fatalf("before Start: got %v, want %v", err, errcode.NotOpen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.Start(ctx, nil); err != errcode.AlreadyOpen {
		t.Fatalf("second Start: got %v, want %v", err, errcode.AlreadyOpen)
	}
}
