//go:build !nrf51

package platform

import (
	"sync"
	"testing"
	"time"

	"spimaster-go/errcode"
	"spimaster-go/spim"
)

func waitEvent(t *testing.T, ch <-chan spim.Event, want spim.EventType) spim.Event {
	t.Helper()
	select {
	case ev := <-ch:
		if ev.Type != want {
			t.Fatalf("event = %v, want %v", ev.Type, want)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %v event", want)
		return spim.Event{}
	}
}

func TestFullDuplexExchange(t *testing.T) {
	hp := NewHostProvider()
	replies := []byte{0x11, 0x22}
	i := 0
	hp.SetSlave(spim.SPIM0, func(out byte) byte {
		r := replies[i%len(replies)]
		i++
		return r
	})

	d := spim.New(hp)
	cfg := spim.DefaultConfig()
	cfg.Frequency = spim.Freq8M
	if err := d.Open(spim.SPIM0, &cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}

	evs := make(chan spim.Event, 4)
	d.RegisterHandler(spim.SPIM0, func(ev spim.Event) { evs <- ev })

	rx := make([]byte, 2)
	if err := d.SendReceive(spim.SPIM0, []byte{0xAA, 0xBB}, rx); err != nil {
		t.Fatalf("SendReceive: %v", err)
	}
	waitEvent(t, evs, spim.TransferStarted)
	ev := waitEvent(t, evs, spim.TransferCompleted)
	if ev.Count != 2 {
		t.Fatalf("completed count = %d, want 2", ev.Count)
	}
	if rx[0] != 0x11 || rx[1] != 0x22 {
		t.Fatalf("rx = %#v, want [0x11 0x22]", rx)
	}
	if got := d.State(spim.SPIM0); got != spim.StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
}

func TestFillerAndDiscard(t *testing.T) {
	hp := NewHostProvider()

	var mu sync.Mutex
	var seen []byte
	hp.SetSlave(spim.SPIM0, func(out byte) byte {
		mu.Lock()
		seen = append(seen, out)
		n := len(seen)
		mu.Unlock()
		return byte(0xF0 + n)
	})

	d := spim.New(hp)
	cfg := spim.DefaultConfig()
	cfg.Frequency = spim.Freq8M
	if err := d.Open(spim.SPIM0, &cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	evs := make(chan spim.Event, 4)
	d.RegisterHandler(spim.SPIM0, func(ev spim.Event) { evs <- ev })

	// TX longer than RX: five clock cycles, two octets kept.
	rx := make([]byte, 2)
	if err := d.SendReceive(spim.SPIM0, []byte{1, 2, 3, 4, 5}, rx); err != nil {
		t.Fatalf("SendReceive: %v", err)
	}
	waitEvent(t, evs, spim.TransferStarted)
	if ev := waitEvent(t, evs, spim.TransferCompleted); ev.Count != 5 {
		t.Fatalf("completed count = %d, want 5", ev.Count)
	}
	mu.Lock()
	if len(seen) != 5 {
		t.Fatalf("slave clocked %d octets, want 5", len(seen))
	}
	seen = nil
	mu.Unlock()
	if rx[0] != 0xF1 || rx[1] != 0xF2 {
		t.Fatalf("rx = %#v, want first two replies only", rx)
	}

	// RX longer than TX: filler octets clock the tail.
	rx5 := make([]byte, 5)
	if err := d.SendReceive(spim.SPIM0, []byte{0x7E, 0x7F}, rx5); err != nil {
		t.Fatalf("SendReceive: %v", err)
	}
	waitEvent(t, evs, spim.TransferStarted)
	if ev := waitEvent(t, evs, spim.TransferCompleted); ev.Count != 5 {
		t.Fatalf("completed count = %d, want 5", ev.Count)
	}
	mu.Lock()
	defer mu.Unlock()
	wantSeen := []byte{0x7E, 0x7F, spim.DefaultTxByte, spim.DefaultTxByte, spim.DefaultTxByte}
	for i, b := range wantSeen {
		if seen[i] != b {
			t.Fatalf("slave octet %d = %#x, want %#x", i, seen[i], b)
		}
	}
}

func TestPortClaiming(t *testing.T) {
	hp := NewHostProvider()
	cfg := spim.DefaultConfig()

	d1 := spim.New(hp)
	if err := d1.Open(spim.SPIM0, &cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, claimed := hp.Config(spim.SPIM0); !claimed {
		t.Fatal("port not claimed after Open")
	}

	// A second driver sharing the provider cannot claim the same unit.
	d2 := spim.New(hp)
	if err := d2.Open(spim.SPIM0, &cfg); err != errcode.ResourceUnavailable {
		t.Fatalf("double claim: got %v, want %v", err, errcode.ResourceUnavailable)
	}

	d1.Close(spim.SPIM0)
	if _, claimed := hp.Config(spim.SPIM0); claimed {
		t.Fatal("port still claimed after Close")
	}
	if err := d2.Open(spim.SPIM0, &cfg); err != nil {
		t.Fatalf("reclaim after Close: %v", err)
	}
}

func TestPinRangeCheck(t *testing.T) {
	hp := NewHostProvider()
	d := spim.New(hp)
	cfg := spim.DefaultConfig()
	cfg.SCK = HostPinLimit + 7
	if err := d.Open(spim.SPIM0, &cfg); err != errcode.InvalidPin {
		t.Fatalf("got %v, want %v", err, errcode.InvalidPin)
	}
}

func TestShutdownSuppressesCompletion(t *testing.T) {
	hp := NewHostProvider()
	d := spim.New(hp)
	cfg := spim.DefaultConfig()
	cfg.Frequency = spim.Freq125K // 64 us per octet keeps the transfer in flight
	if err := d.Open(spim.SPIM0, &cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}

	evs := make(chan spim.Event, 4)
	d.RegisterHandler(spim.SPIM0, func(ev spim.Event) { evs <- ev })

	if err := d.SendReceive(spim.SPIM0, make([]byte, 200), nil); err != nil {
		t.Fatalf("SendReceive: %v", err)
	}
	waitEvent(t, evs, spim.TransferStarted)
	d.Close(spim.SPIM0)

	select {
	case ev := <-evs:
		t.Fatalf("aborted transfer still delivered %v", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
	if got := d.State(spim.SPIM0); got != spim.StateDisabled {
		t.Fatalf("state = %v, want disabled", got)
	}
}
