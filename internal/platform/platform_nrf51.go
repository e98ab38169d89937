//go:build nrf51

// nRF51 hardware ports. The SPI units have no DMA; the READY interrupt
// pumps TXD/RXD one octet at a time, double-buffered, exactly as the
// hardware expects.
package platform

import (
	"device/nrf"
	"machine"
	"runtime/interrupt"

	"spimaster-go/errcode"
	"spimaster-go/spim"
)

// nrf51 pin space: P0.00 .. P0.31.
const pinLimit uint32 = 32

// HWProvider implements spim.Provider over the two on-chip SPI units.
type HWProvider struct{}

var _ spim.Provider = HWProvider{}

func NewHWProvider() HWProvider { return HWProvider{} }

func (HWProvider) Port(inst spim.Instance) (spim.Port, bool) {
	switch inst {
	case spim.SPIM0:
		return &port0, true
	case spim.SPIM1:
		return &port1, true
	default:
		return nil, false
	}
}

type nrfPort struct {
	regs *nrf.SPI_Type
	intr interrupt.Interrupt

	claimed bool
	cfg     spim.Config

	// Transfer progress, owned by the READY ISR while a transfer is in
	// flight.
	tx, rx   []byte
	n        int
	sent     int
	recvd    int
	complete func(count int)
}

// The READY interrupt vector is registered once per unit at link time.
var (
	port0 = nrfPort{regs: nrf.SPI0}
	port1 = nrfPort{regs: nrf.SPI1}
)

func init() {
	port0.intr = interrupt.New(nrf.IRQ_SPI0_TWI0, func(interrupt.Interrupt) { port0.isr() })
	port1.intr = interrupt.New(nrf.IRQ_SPI1_TWI1, func(interrupt.Interrupt) { port1.isr() })
}

func (p *nrfPort) Configure(cfg spim.Config) error {
	for _, pin := range [4]uint32{cfg.SCK, cfg.MISO, cfg.MOSI, cfg.SS} {
		if pin != spim.PinDisconnected && pin >= pinLimit {
			return errcode.InvalidPin
		}
	}
	if p.claimed {
		return errcode.ResourceUnavailable
	}

	if cfg.SCK != spim.PinDisconnected {
		machine.Pin(cfg.SCK).Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	if cfg.MOSI != spim.PinDisconnected {
		machine.Pin(cfg.MOSI).Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	if cfg.MISO != spim.PinDisconnected {
		machine.Pin(cfg.MISO).Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	if cfg.SS != spim.PinDisconnected {
		machine.Pin(cfg.SS).Configure(machine.PinConfig{Mode: machine.PinOutput})
		machine.Pin(cfg.SS).High() // deasserted
	}

	p.regs.PSELSCK.Set(cfg.SCK)
	p.regs.PSELMOSI.Set(cfg.MOSI)
	p.regs.PSELMISO.Set(cfg.MISO)
	p.regs.FREQUENCY.Set(frequencyBits(cfg.Frequency))
	p.regs.CONFIG.Set(configBits(cfg))
	p.regs.EVENTS_READY.Set(0)
	p.regs.ENABLE.Set(nrf.SPI_ENABLE_ENABLE_Enabled)

	// Unmask the vector here: Begin's critical-section branches only
	// pause delivery while arming, they do not own NVIC enable state.
	p.intr.SetPriority(cfg.IRQPriority)
	p.intr.Enable()

	p.claimed = true
	p.cfg = cfg
	return nil
}

func (p *nrfPort) Begin(tx, rx []byte, n int, complete func(count int)) {
	p.tx = tx
	p.rx = rx
	p.n = n
	p.sent = 0
	p.recvd = 0
	p.complete = complete

	// Critical section while arming: either every interrupt source or
	// just this unit's line, per the configured policy.
	var mask interrupt.State
	if p.cfg.DisableAllIRQ {
		mask = interrupt.Disable()
	} else {
		p.intr.Disable()
	}

	if p.cfg.SS != spim.PinDisconnected {
		machine.Pin(p.cfg.SS).Low()
	}
	p.regs.EVENTS_READY.Set(0)
	p.regs.INTENSET.Set(nrf.SPI_INTENSET_READY_Msk)

	// TXD is double-buffered: prime up to two octets.
	p.regs.TXD.Set(uint32(p.nextTxByte()))
	if n > 1 {
		p.regs.TXD.Set(uint32(p.nextTxByte()))
	}

	if p.cfg.DisableAllIRQ {
		interrupt.Restore(mask)
	} else {
		p.intr.Enable()
	}
}

// isr services one READY event: one octet has been exchanged.
func (p *nrfPort) isr() {
	if p.regs.EVENTS_READY.Get() == 0 {
		return
	}
	p.regs.EVENTS_READY.Set(0)

	b := byte(p.regs.RXD.Get())
	if p.recvd < len(p.rx) {
		p.rx[p.recvd] = b
	}
	p.recvd++

	if p.sent < p.n {
		p.regs.TXD.Set(uint32(p.nextTxByte()))
	}
	if p.recvd < p.n {
		return
	}

	p.regs.INTENCLR.Set(nrf.SPI_INTENCLR_READY_Msk)
	if p.cfg.SS != spim.PinDisconnected {
		machine.Pin(p.cfg.SS).High()
	}
	done := p.complete
	p.complete = nil
	p.tx = nil
	p.rx = nil
	if done != nil {
		done(p.n)
	}
}

func (p *nrfPort) nextTxByte() byte {
	b := spim.DefaultTxByte
	if p.sent < len(p.tx) {
		b = p.tx[p.sent]
	}
	p.sent++
	return b
}

func (p *nrfPort) Shutdown() {
	p.intr.Disable()
	p.regs.INTENCLR.Set(nrf.SPI_INTENCLR_READY_Msk)
	p.regs.ENABLE.Set(nrf.SPI_ENABLE_ENABLE_Disabled)
	if p.cfg.SS != spim.PinDisconnected {
		machine.Pin(p.cfg.SS).High()
	}
	p.complete = nil
	p.tx = nil
	p.rx = nil
	p.claimed = false
}

func frequencyBits(f spim.Frequency) uint32 {
	switch f {
	case spim.Freq125K:
		return nrf.SPI_FREQUENCY_FREQUENCY_K125
	case spim.Freq250K:
		return nrf.SPI_FREQUENCY_FREQUENCY_K250
	case spim.Freq500K:
		return nrf.SPI_FREQUENCY_FREQUENCY_K500
	case spim.Freq2M:
		return nrf.SPI_FREQUENCY_FREQUENCY_M2
	case spim.Freq4M:
		return nrf.SPI_FREQUENCY_FREQUENCY_M4
	case spim.Freq8M:
		return nrf.SPI_FREQUENCY_FREQUENCY_M8
	default:
		return nrf.SPI_FREQUENCY_FREQUENCY_M1
	}
}

func configBits(cfg spim.Config) uint32 {
	var v uint32
	if cfg.Order == spim.LSBFirst {
		v |= nrf.SPI_CONFIG_ORDER_LsbFirst
	}
	if cfg.Phase == spim.Trailing {
		v |= nrf.SPI_CONFIG_CPHA_Trailing << nrf.SPI_CONFIG_CPHA_Pos
	}
	if cfg.Polarity == spim.ActiveLow {
		v |= nrf.SPI_CONFIG_CPOL_ActiveLow << nrf.SPI_CONFIG_CPOL_Pos
	}
	return v
}
