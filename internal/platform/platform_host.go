//go:build !nrf51

// Host-side simulated SPI hardware. Transfers run on their own goroutine,
// standing in for the interrupt context a real target reports completion
// from, and are paced by the configured clock frequency.
package platform

import (
	"sync"
	"sync/atomic"
	"time"

	"spimaster-go/errcode"
	"spimaster-go/spim"
	"spimaster-go/x/timex"
)

// HostPinLimit bounds the pin numbers the simulated ports accept.
const HostPinLimit uint32 = 32

// Slave models the device on the far side of the bus: one octet in, one
// octet out, per clock cycle.
type Slave func(out byte) byte

// Echo returns the master's octet unchanged (MOSI looped to MISO).
func Echo(out byte) byte { return out }

// HostProvider implements spim.Provider with one simulated port per
// instance.
type HostProvider struct {
	ports [spim.InstanceCount]*hostPort
}

var _ spim.Provider = (*HostProvider)(nil)

func NewHostProvider() *HostProvider {
	p := &HostProvider{}
	for i := range p.ports {
		p.ports[i] = &hostPort{slave: Echo}
	}
	return p
}

func (p *HostProvider) Port(inst spim.Instance) (spim.Port, bool) {
	if int(inst) >= len(p.ports) {
		return nil, false
	}
	return p.ports[inst], true
}

// SetSlave installs the far-side model for an instance. A nil slave
// restores Echo. Takes effect for subsequently started transfers.
func (p *HostProvider) SetSlave(inst spim.Instance, s Slave) {
	if int(inst) >= len(p.ports) {
		return
	}
	if s == nil {
		s = Echo
	}
	pt := p.ports[inst]
	pt.mu.Lock()
	pt.slave = s
	pt.mu.Unlock()
}

// Config reports the configuration last accepted for an instance, and
// whether the port is currently claimed.
func (p *HostProvider) Config(inst spim.Instance) (spim.Config, bool) {
	if int(inst) >= len(p.ports) {
		return spim.Config{}, false
	}
	pt := p.ports[inst]
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.cfg, pt.claimed
}

type hostPort struct {
	mu      sync.Mutex
	claimed bool
	cfg     spim.Config
	slave   Slave

	// stop belongs to the current claim; Shutdown flips it so a transfer
	// goroutine from the old claim cannot report completion. A signal
	// racing Shutdown is additionally dropped by the engine's state guard.
	stop *atomic.Bool
}

func (p *hostPort) Configure(cfg spim.Config) error {
	for _, pin := range [4]uint32{cfg.SCK, cfg.MISO, cfg.MOSI, cfg.SS} {
		if pin != spim.PinDisconnected && pin >= HostPinLimit {
			return errcode.InvalidPin
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claimed {
		return errcode.ResourceUnavailable
	}
	p.claimed = true
	p.cfg = cfg
	p.stop = new(atomic.Bool)
	return nil
}

func (p *hostPort) Begin(tx, rx []byte, n int, complete func(count int)) {
	p.mu.Lock()
	slave := p.slave
	stop := p.stop
	pace := timex.BytePeriod(p.cfg.Frequency.Hz())
	p.mu.Unlock()

	go func() {
		for i := 0; i < n; i++ {
			out := spim.DefaultTxByte
			if i < len(tx) {
				out = tx[i]
			}
			in := slave(out)
			if i < len(rx) {
				rx[i] = in
			}
		}
		time.Sleep(time.Duration(n) * pace)
		if stop == nil || stop.Load() {
			return
		}
		complete(n)
	}()
}

func (p *hostPort) Shutdown() {
	p.mu.Lock()
	p.claimed = false
	if p.stop != nil {
		p.stop.Store(true)
	}
	p.mu.Unlock()
}
