package spim

// Port is one hardware unit as seen by the transfer engine. Platform code
// implements it; the engine guarantees single-threaded use of Configure,
// Begin and Shutdown, with at most one transfer in flight.
type Port interface {
	// Configure claims the unit's clock, pins and interrupt line and
	// programs the given configuration. It reports
	// errcode.ResourceUnavailable when the unit cannot be claimed and
	// errcode.InvalidPin when a connected pin is outside the target's
	// range.
	Configure(cfg Config) error

	// Begin starts clocking exactly n octets. For i >= len(tx) the port
	// emits DefaultTxByte; received octets beyond len(rx) are discarded.
	// When the last octet has been clocked the port invokes complete(n)
	// exactly once, from its own execution context (interrupt handler on
	// hardware, transfer goroutine on host). The engine calls Begin only
	// on a configured port with 1 <= n and n == max(len(tx), len(rx)).
	Begin(tx, rx []byte, n int, complete func(count int))

	// Shutdown silences the completion interrupt, powers the unit down
	// and releases the claim. A completion racing past Shutdown is
	// tolerated: the engine drops signals for transfers it no longer
	// tracks.
	Shutdown()
}

// Provider hands out ports by instance. The set of instances a target
// offers is fixed; Port reports false for an instance the target lacks.
type Provider interface {
	Port(inst Instance) (Port, bool)
}
