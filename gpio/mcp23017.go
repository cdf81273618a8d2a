package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/i2ctx"
)

// registry identifies a register independently of the IOCON.BANK layout: bits 3:0
// hold its position in the A/B pair list, bit 4 selects port B.
type registry byte

const DefaultMCP23017Address i2ctx.Addr7 = 0x21

const portB registry = 0x10

const (
	IODIRA registry = iota
	IOPOLA
	GPINTENA
	DEFVALA
	INTCONA
	IOCONA
	GPPUA
	INTFA
	INTCAPA
	GPIOA
	OLATA
)

const (
	IODIRB   = IODIRA | portB
	IOPOLB   = IOPOLA | portB
	GPINTENB = GPINTENA | portB
	DEFVALB  = DEFVALA | portB
	INTCONB  = INTCONA | portB
	IOCONB   = IOCONA | portB
	GPPUB    = GPPUA | portB
	INTFB    = INTFA | portB
	INTCAPB  = INTCAPA | portB
	GPIOB    = GPIOA | portB
	OLATB    = OLATA | portB
)

// addr returns the register address. BANK=0 interleaves the ports, BANK=1 puts
// port B registers 0x10 above port A.
func (r registry) addr(bank int) byte {
	idx, b := byte(r&0x0F), byte(r>>4&1)
	if bank == 1 {
		return b<<4 | idx
	}
	return idx<<1 | b
}

// MCP23017 is a 16-bit port expander. Reading a port takes three steps: IODIR to
// inputs, optional pull-ups, then GPIO.
type MCP23017 struct {
	mx         sync.Mutex
	bus        i2ctx.Transactor
	bank       int
	address    i2ctx.Addr7
	retryLimit int
}

func NewMCP23017(bus i2ctx.Transactor, address i2ctx.Addr7) *MCP23017 {
	return &MCP23017{retryLimit: 1, bus: bus, address: address}
}

// SetRetryLimit sets how many times a register access is attempted while the bus
// reports busy.
func (m *MCP23017) SetRetryLimit(n int) {
	m.retryLimit = max(n, 1)
}

// retry runs fn until it succeeds, fails with anything but ErrBusBusy or runs out of
// attempts. Every attempt is a transaction of its own so the bus is given back in
// between.
func (m *MCP23017) retry(what string, fn func() error) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, i2ctx.ErrBusBusy) {
			return fmt.Errorf("could not %s: %w", what, err)
		}
	}
	return fmt.Errorf("could not %s (retry limit reached): %w", what, err)
}

func (m *MCP23017) writeRegister(ctx context.Context, what string, reg registry, value byte) error {
	return m.retry(what, func() error {
		return i2ctx.Write(ctx, m.bus, m.address, i2ctx.Bytes(reg.addr(m.bank), value))
	})
}

func (m *MCP23017) readRegister(ctx context.Context, what string, reg registry) (byte, error) {
	buf := make([]byte, 1)
	err := m.retry(what, func() error {
		return i2ctx.WriteRead(ctx, m.bus, m.address, i2ctx.Bytes(reg.addr(m.bank)), buf)
	})
	return buf[0], err
}

// InitA sets port A directions, 1 for input.
func (m *MCP23017) InitA(ctx context.Context, inout byte) error {
	return m.writeRegister(ctx, "initialize gpio A set", IODIRA, inout)
}

// InitB sets port B directions.
func (m *MCP23017) InitB(ctx context.Context, inout byte) error {
	return m.writeRegister(ctx, "initialize gpio B set", IODIRB, inout)
}

// PullUpA sets up pull up resistors on set A
func (m *MCP23017) PullUpA(ctx context.Context, settings byte) error {
	return m.writeRegister(ctx, "set pull-up on gpio A set", GPPUA, settings)
}

// PullUpB sets up pull up resistors on set B
func (m *MCP23017) PullUpB(ctx context.Context, settings byte) error {
	return m.writeRegister(ctx, "set pull-up on gpio B set", GPPUB, settings)
}

// Read returns both ports. With BANK=0 and sequential addressing GPIOA and GPIOB
// are adjacent, so both come from one write-then-read.
func (m *MCP23017) Read(ctx context.Context) ([]byte, error) {
	res := make([]byte, 2)
	err := m.retry("read gpio sets", func() error {
		if m.bank == 0 {
			return i2ctx.WriteRead(ctx, m.bus, m.address, i2ctx.Bytes(GPIOA.addr(0)), res)
		}
		if err := i2ctx.WriteRead(ctx, m.bus, m.address, i2ctx.Bytes(GPIOA.addr(1)), res[:1]); err != nil {
			return err
		}
		return i2ctx.WriteRead(ctx, m.bus, m.address, i2ctx.Bytes(GPIOB.addr(1)), res[1:])
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReadA reads gpio A set values
func (m *MCP23017) ReadA(ctx context.Context) (byte, error) {
	return m.readRegister(ctx, "read gpio A set", GPIOA)
}

// ReadB reads gpio B set values
func (m *MCP23017) ReadB(ctx context.Context) (byte, error) {
	return m.readRegister(ctx, "read gpio B set", GPIOB)
}

// ReadSettingsA reads contents of IOCON registry
func (m *MCP23017) ReadSettingsA(ctx context.Context) (byte, error) {
	return m.readRegister(ctx, "read gpio A settings", IOCONA)
}

func (m *MCP23017) WriteSettingsA(ctx context.Context, settings byte) error {
	if err := m.writeRegister(ctx, "write settings on gpio A set", IOCONA, settings); err != nil {
		return err
	}
	m.setBank(settings)
	return nil
}

// setBank follows the BANK bit of IOCON, which moves every register.
func (m *MCP23017) setBank(iocon byte) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.bank = int(iocon >> 7)
}

func (m *MCP23017) ReadSettingsB(ctx context.Context) (byte, error) {
	return m.readRegister(ctx, "read gpio B settings", IOCONB)
}

func (m *MCP23017) WriteSettingsB(ctx context.Context, settings byte) error {
	if err := m.writeRegister(ctx, "write settings on gpio B set", IOCONB, settings); err != nil {
		return err
	}
	m.setBank(settings)
	return nil
}
