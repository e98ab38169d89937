package spim

// EventType discriminates the two notifications a transfer produces.
type EventType uint8

const (
	// TransferStarted fires synchronously inside SendReceive once the
	// request is accepted, before the hardware is armed.
	TransferStarted EventType = iota
	// TransferCompleted fires from the completion context once the last
	// octet has been clocked.
	TransferCompleted
)

func (t EventType) String() string {
	switch t {
	case TransferStarted:
		return "started"
	case TransferCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event is delivered to the registered Handler. Count is the number of
// octets exchanged and is meaningful on TransferCompleted only.
type Event struct {
	Type  EventType
	Count int
}

// Handler receives transfer events. TransferCompleted is delivered outside
// the caller's control flow, on the completion signal's execution context:
// the handler must not block and must keep its work minimal.
type Handler func(Event)
