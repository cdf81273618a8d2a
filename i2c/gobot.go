package i2c

import (
	"context"
	"fmt"
	"io"
	"sync"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/i2ctx"
)

var _ i2ctx.Conn = &GobotBus{}

// GobotBus is a conn over a gobot platform adaptor (nanopi, raspi, ...).
//
// Gobot connections are plain reads and writes, so every step ends with a STOP
// condition. Devices that need a repeated start between the register pointer and the
// data are better served by GenericBus.
type GobotBus struct {
	connector gi2c.Connector
	bus       int
	mx        sync.Mutex
	conns     map[uint16]gi2c.Connection
}

// NewGobotBus uses the given bus number, or the adaptor's default one when bus is negative.
func NewGobotBus(connector gi2c.Connector, bus int) *GobotBus {
	if bus < 0 {
		bus = connector.DefaultI2cBus()
	}
	return &GobotBus{connector: connector, bus: bus, conns: map[uint16]gi2c.Connection{}}
}

func (b *GobotBus) connection(addr i2ctx.Address) (gi2c.Connection, error) {
	if addr.TenBit() {
		return nil, fmt.Errorf("%w: gobot does not support 10-bit address %s", i2ctx.ErrInvalidAddress, addr)
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	a := addr.BaseAddr()
	if c, ok := b.conns[a]; ok {
		return c, nil
	}
	c, err := b.connector.GetI2cConnection(int(a), b.bus)
	if err != nil {
		return nil, fmt.Errorf("could not get i2c connection to %s on bus %d: %w", addr, b.bus, err)
	}
	b.conns[a] = c
	return c, nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	c, err := b.connection(addr)
	if err != nil {
		return err
	}
	n, err := c.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to %s: %w", addr, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("wrote %d of %d bytes to %s: %w", n, len(buffer), addr, io.ErrShortWrite)
	}
	return nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	c, err := b.connection(addr)
	if err != nil {
		return err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from %s: %w", addr, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("read %d of %d bytes from %s: %w", n, len(buffer), addr, i2ctx.ErrShortRead)
	}
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close closes every connection opened so far.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var first error
	for a, c := range b.conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(b.conns, a)
	}
	return first
}
