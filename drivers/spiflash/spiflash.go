// Package spiflash provides a driver for JEDEC-compatible SPI NOR flash
// (W25Q, MX25, AT25 and similar parts). It speaks the classic command set
// over any drivers.SPI transport with a dedicated chip-select pin:
//
//	id, err := d.ReadJEDEC()       // identify the part
//	err = d.EraseSector(0)         // 4 KiB erase
//	err = d.WriteAt(buf, 0)        // page-aware program
//	err = d.ReadAt(buf, 0)         // sequential read
//
// Program and erase commands poll the status register until the part
// reports ready; the poll is bounded by Config.OpTimeout.
package spiflash

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"spimaster-go/hwio"
	"spimaster-go/x/mathx"
)

// Command set (per JEDEC / common datasheet practice).
const (
	cmdWriteEnable  = 0x06
	cmdReadStatus   = 0x05
	cmdReadData     = 0x03
	cmdPageProgram  = 0x02
	cmdSectorErase  = 0x20
	cmdChipErase    = 0xC7
	cmdReadJEDECID  = 0x9F
	cmdPowerDown    = 0xB9
	cmdReleasePower = 0xAB
)

// Status register bits.
const (
	statusBusy        = 0x01
	statusWriteEnable = 0x02
)

// Geometry constants shared by the supported parts.
const (
	PageSize   = 256
	SectorSize = 4096
)

// Errors returned by the driver.
var (
	ErrTimeout     = errors.New("spiflash: timeout waiting for ready")
	ErrWriteEnable = errors.New("spiflash: write enable not latched")
	ErrOutOfRange  = errors.New("spiflash: address out of range")
	ErrAlignment   = errors.New("spiflash: address not sector aligned")
)

// JEDECID identifies the flash part.
type JEDECID struct {
	Manufacturer byte
	MemoryType   byte
	Capacity     byte
}

// Size returns the part capacity in bytes, derived from the JEDEC
// capacity code (a power of two), or 0 when the code is implausible.
func (id JEDECID) Size() uint32 {
	if id.Capacity < 0x10 || id.Capacity > 0x20 {
		return 0
	}
	return 1 << id.Capacity
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Size bounds address checks in bytes. When zero the driver takes the
	// size from ReadJEDEC during Configure, falling back to unchecked.
	Size uint32
	// PollInterval between status reads while waiting for ready.
	// Default 1 ms.
	PollInterval time.Duration
	// OpTimeout bounds a single program or erase wait. Default 3 s
	// (chip erase on larger parts can take seconds).
	OpTimeout time.Duration
}

// Device wraps a SPI connection and chip-select pin to a flash part.
type Device struct {
	bus drivers.SPI
	cs  hwio.GPIOPin

	cfg Config
	hdr [4]byte // command + 24-bit address scratch
}

// New creates a flash connection. The SPI bus must already be configured;
// the chip-select pin is driven by the driver and must not be shared.
func New(bus drivers.SPI, cs hwio.GPIOPin) *Device {
	return &Device{bus: bus, cs: cs}
}

// Configure initialises the chip-select line and applies optional config.
// When no size is given it probes the part over JEDEC ID.
func (d *Device) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Millisecond
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 3 * time.Second
	}
	d.cfg = c

	if err := d.cs.ConfigureOutput(true); err != nil {
		return err
	}
	if d.cfg.Size == 0 {
		id, err := d.ReadJEDEC()
		if err != nil {
			return err
		}
		d.cfg.Size = id.Size()
	}
	return nil
}

// ReadJEDEC reads the 3-byte JEDEC identification.
func (d *Device) ReadJEDEC() (JEDECID, error) {
	var r [4]byte
	if err := d.command([]byte{cmdReadJEDECID, 0, 0, 0}, r[:]); err != nil {
		return JEDECID{}, err
	}
	return JEDECID{Manufacturer: r[1], MemoryType: r[2], Capacity: r[3]}, nil
}

// Status reads the status register.
func (d *Device) Status() (byte, error) {
	var r [2]byte
	if err := d.command([]byte{cmdReadStatus, 0}, r[:]); err != nil {
		return 0, err
	}
	return r[1], nil
}

// Busy reports whether a program or erase is still in progress.
func (d *Device) Busy() (bool, error) {
	st, err := d.Status()
	return st&statusBusy != 0, err
}

// ReadAt fills p from flash starting at addr.
func (d *Device) ReadAt(p []byte, addr uint32) error {
	if err := d.checkRange(addr, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	d.csLow()
	defer d.csHigh()
	if err := d.bus.Tx(d.addressed(cmdReadData, addr), nil); err != nil {
		return err
	}
	return d.bus.Tx(nil, p)
}

// WriteAt programs p into flash starting at addr, splitting across page
// boundaries as needed. The target range must already be erased.
func (d *Device) WriteAt(p []byte, addr uint32) error {
	if err := d.checkRange(addr, len(p)); err != nil {
		return err
	}
	for len(p) > 0 {
		n := mathx.Min(PageSize-int(addr%PageSize), len(p))
		if err := d.pageProgram(p[:n], addr); err != nil {
			return err
		}
		p = p[n:]
		addr += uint32(n)
	}
	return nil
}

// EraseSector erases the 4 KiB sector at addr, which must be sector
// aligned.
func (d *Device) EraseSector(addr uint32) error {
	if addr%SectorSize != 0 {
		return ErrAlignment
	}
	if err := d.checkRange(addr, SectorSize); err != nil {
		return err
	}
	if err := d.writeEnable(); err != nil {
		return err
	}
	if err := d.command(d.addressed(cmdSectorErase, addr), nil); err != nil {
		return err
	}
	return d.waitReady()
}

// EraseChip erases the whole part.
func (d *Device) EraseChip() error {
	if err := d.writeEnable(); err != nil {
		return err
	}
	if err := d.command([]byte{cmdChipErase}, nil); err != nil {
		return err
	}
	return d.waitReady()
}

// PowerDown puts the part into deep power-down; ReleasePowerDown wakes it.
func (d *Device) PowerDown() error {
	return d.command([]byte{cmdPowerDown}, nil)
}

func (d *Device) ReleasePowerDown() error {
	return d.command([]byte{cmdReleasePower}, nil)
}

func (d *Device) pageProgram(p []byte, addr uint32) error {
	if err := d.writeEnable(); err != nil {
		return err
	}
	d.csLow()
	if err := d.bus.Tx(d.addressed(cmdPageProgram, addr), nil); err != nil {
		d.csHigh()
		return err
	}
	err := d.bus.Tx(p, nil)
	d.csHigh()
	if err != nil {
		return err
	}
	return d.waitReady()
}

func (d *Device) writeEnable() error {
	if err := d.command([]byte{cmdWriteEnable}, nil); err != nil {
		return err
	}
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusWriteEnable == 0 {
		return ErrWriteEnable
	}
	return nil
}

// waitReady polls the status register until the busy bit clears.
func (d *Device) waitReady() error {
	deadline := time.Now().Add(d.cfg.OpTimeout)
	for {
		busy, err := d.Busy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(d.cfg.PollInterval)
	}
}

// command runs one chip-select framed exchange. r may be nil for
// write-only commands; when set it must cover the full exchange length.
func (d *Device) command(w, r []byte) error {
	d.csLow()
	defer d.csHigh()
	return d.bus.Tx(w, r)
}

// addressed builds command + 24-bit big-endian address in the scratch
// header.
func (d *Device) addressed(cmd byte, addr uint32) []byte {
	d.hdr[0] = cmd
	d.hdr[1] = byte(addr >> 16)
	d.hdr[2] = byte(addr >> 8)
	d.hdr[3] = byte(addr)
	return d.hdr[:]
}

func (d *Device) checkRange(addr uint32, n int) error {
	if d.cfg.Size == 0 {
		return nil // size unknown, leave checks to the part
	}
	if addr >= d.cfg.Size || uint64(addr)+uint64(n) > uint64(d.cfg.Size) {
		return ErrOutOfRange
	}
	return nil
}

func (d *Device) csLow()  { d.cs.Set(false) }
func (d *Device) csHigh() { d.cs.Set(true) }
