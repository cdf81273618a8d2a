// Package potentiometer drives MCP4661 dual digital potentiometers.
package potentiometer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/i2ctx"
)

// MCP446x commands
const (
	OpWrite     byte = 0x00
	OpIncrement byte = 0x01
	OpDecrement byte = 0x02
	OpRead      byte = 0x03
)

// Memory map
const (
	AddrVolatileWiper0  byte = 0x00
	AddrVolatileWiper1  byte = 0x01
	AddrPermanentWiper0 byte = 0x02
	AddrPermanentWiper1 byte = 0x03
	AddrVolatileTCON0   byte = 0x04
	AddrStatus          byte = 0x05
	DataEEPROM0         byte = 0x06
	DataEEPROM9         byte = 0x0F
)

// MaxWiper is full scale on the 257 step parts.
const MaxWiper = 0x100

// DefaultAddress has A2..A0 tied low.
const DefaultAddress i2ctx.Addr7 = 0b0101000

var ErrOutOfRange = errors.New("wiper value out of range")

type MCP4661 struct {
	bus  i2ctx.Transactor
	addr i2ctx.Addr7
}

func NewMCP4661(bus i2ctx.Transactor, addr i2ctx.Addr7) *MCP4661 {
	return &MCP4661{bus: bus, addr: addr}
}

// command builds the control byte: memory address on bits 7:4, operation on
// bits 3:2 and data bits 9:8 on bits 1:0.
func command(reg, op byte, value uint16) byte {
	return reg<<4 | op<<2 | byte(value>>8)&0x03
}

// Get reads a 9-bit register value.
func (p *MCP4661) Get(ctx context.Context, reg byte) (uint16, error) {
	data := make([]byte, 2)
	err := i2ctx.WriteRead(ctx, p.bus, p.addr, i2ctx.Bytes(command(reg, OpRead, 0)), data)
	if err != nil {
		return 0, fmt.Errorf("read register %#x error: %w", reg, err)
	}
	return (uint16(data[0])<<8 | uint16(data[1])) & 0x01FF, nil
}

// Set writes value to reg. Non-volatile registers need the EEPROM write cycle
// before the part acknowledges again.
func (p *MCP4661) Set(ctx context.Context, reg byte, value uint16) error {
	if value > MaxWiper {
		return fmt.Errorf("%w: %d", ErrOutOfRange, value)
	}
	err := i2ctx.Write(ctx, p.bus, p.addr, i2ctx.Bytes(command(reg, OpWrite, value), byte(value)))
	if err != nil {
		return fmt.Errorf("write register %#x error: %w", reg, err)
	}
	return nil
}

// Step moves a volatile wiper one step up or down.
func (p *MCP4661) Step(ctx context.Context, wiper byte, up bool) error {
	op := OpDecrement
	if up {
		op = OpIncrement
	}
	err := i2ctx.Write(ctx, p.bus, p.addr, i2ctx.Bytes(command(wiper, op, 0)))
	if err != nil {
		return fmt.Errorf("step wiper %#x error: %w", wiper, err)
	}
	return nil
}
