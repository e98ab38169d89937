package bsp

import "time"

// Indication is a board state shown on the LEDs.
type Indication uint8

const (
	IndicateIdle Indication = iota
	IndicateScanning
	IndicateAdvertising
	IndicateBonding
	IndicateConnected
	IndicateSentOK
	IndicateSendError
	IndicateRcvOK
	IndicateRcvError
	IndicateFatalError
	IndicateAlert0
	IndicateAlert1
	IndicateAlert2
	IndicateAlert3
	IndicateAlertOff

	indicationCount
)

func (i Indication) String() string {
	switch i {
	case IndicateIdle:
		return "idle"
	case IndicateScanning:
		return "scanning"
	case IndicateAdvertising:
		return "advertising"
	case IndicateBonding:
		return "bonding"
	case IndicateConnected:
		return "connected"
	case IndicateSentOK:
		return "sent_ok"
	case IndicateSendError:
		return "send_error"
	case IndicateRcvOK:
		return "rcv_ok"
	case IndicateRcvError:
		return "rcv_error"
	case IndicateFatalError:
		return "fatal_error"
	case IndicateAlert0, IndicateAlert1, IndicateAlert2, IndicateAlert3:
		return "alert"
	case IndicateAlertOff:
		return "alert_off"
	default:
		return "unknown"
	}
}

const (
	led0 uint32 = 1 << 0
	led1 uint32 = 1 << 1
)

// step is one playback element: drive the masked LEDs for d, then advance.
// d == 0 holds the step until the next IndicationSet.
type step struct {
	mask uint32
	d    time.Duration
}

// patternFor maps an indication to its LED playback pattern. Patterns use
// at most the first two LEDs; boards with fewer simply mask them off.
func patternFor(ind Indication) []step {
	switch ind {
	case IndicateScanning, IndicateAdvertising:
		return []step{{led0, 200 * time.Millisecond}, {0, 1800 * time.Millisecond}}
	case IndicateBonding:
		return []step{{led0, 100 * time.Millisecond}, {0, 100 * time.Millisecond}}
	case IndicateConnected:
		return []step{{led0, 0}}
	case IndicateSentOK, IndicateRcvOK:
		// One-shot flash, then dark until the next indication.
		return []step{{led1, 100 * time.Millisecond}, {0, 0}}
	case IndicateSendError, IndicateRcvError:
		return []step{{led1, 500 * time.Millisecond}, {0, 500 * time.Millisecond}}
	case IndicateFatalError:
		return []step{{led0 | led1, 0}}
	case IndicateAlert0, IndicateAlert1, IndicateAlert2, IndicateAlert3:
		d := time.Duration(200+100*int(ind-IndicateAlert0)) * time.Millisecond
		return []step{{led1, d}, {0, d}}
	default: // IndicateIdle, IndicateAlertOff
		return []step{{0, 0}}
	}
}
