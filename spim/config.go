package spim

import (
	"spimaster-go/errcode"
)

// PinDisconnected marks a signal the peripheral should leave unrouted.
const PinDisconnected uint32 = 0xFFFFFFFF

// DefaultTxByte is the filler octet clocked out once the TX buffer is
// exhausted during a full-duplex exchange.
const DefaultTxByte byte = 0x00

// Frequency selects the serial clock rate from the discrete set the
// hardware divider supports. Arbitrary Hz values are not accepted.
type Frequency uint8

const (
	Freq125K Frequency = iota
	Freq250K
	Freq500K
	Freq1M
	Freq2M
	Freq4M
	Freq8M
)

// Hz returns the nominal clock rate for the selector.
func (f Frequency) Hz() uint32 {
	switch f {
	case Freq125K:
		return 125_000
	case Freq250K:
		return 250_000
	case Freq500K:
		return 500_000
	case Freq1M:
		return 1_000_000
	case Freq2M:
		return 2_000_000
	case Freq4M:
		return 4_000_000
	case Freq8M:
		return 8_000_000
	default:
		return 1_000_000
	}
}

// BitOrder selects which bit of each octet is shifted out first.
type BitOrder uint8

const (
	LSBFirst BitOrder = iota
	MSBFirst
)

// Polarity is the serial clock idle level.
type Polarity uint8

const (
	ActiveHigh Polarity = iota // clock idles low
	ActiveLow                  // clock idles high
)

// Phase selects the sampling clock edge.
type Phase uint8

const (
	Leading Phase = iota
	Trailing
)

// Config is the immutable configuration record accepted by Open. It is
// replaced wholesale by a later Open after Close; the driver never mutates
// an accepted record.
type Config struct {
	Frequency Frequency

	// Pin assignments. Each may be PinDisconnected independently.
	SCK  uint32
	MISO uint32
	MOSI uint32
	SS   uint32

	// IRQPriority is the priority level for the completion interrupt.
	IRQPriority uint8

	Order    BitOrder
	Polarity Polarity
	Phase    Phase

	// DisableAllIRQ masks every interrupt source, not just the
	// peripheral's own line, during the critical section that arms a
	// transfer.
	DisableAllIRQ bool
}

// DefaultConfig returns the stock configuration: all pins disconnected,
// 1 Mbps, lowest interrupt priority, LSB first, active-high polarity,
// leading-edge phase, interrupts not globally disabled.
func DefaultConfig() Config {
	return Config{
		Frequency:   Freq1M,
		SCK:         PinDisconnected,
		MISO:        PinDisconnected,
		MOSI:        PinDisconnected,
		SS:          PinDisconnected,
		IRQPriority: PriorityLow,
	}
}

// PriorityLow is the lowest completion-interrupt priority level.
const PriorityLow uint8 = 3

// Mode folds polarity and phase into the conventional SPI mode number 0-3.
func (c Config) Mode() uint8 {
	var m uint8
	if c.Polarity == ActiveLow {
		m |= 2
	}
	if c.Phase == Trailing {
		m |= 1
	}
	return m
}

// validate rejects configurations no port could accept: connected pins
// must be mutually distinct. Per-target range checks belong to the port.
func (c Config) validate() error {
	pins := [4]uint32{c.SCK, c.MISO, c.MOSI, c.SS}
	for i, a := range pins {
		if a == PinDisconnected {
			continue
		}
		for _, b := range pins[i+1:] {
			if b == a {
				return errcode.InvalidPin
			}
		}
	}
	return nil
}
