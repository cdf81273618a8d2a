// Package i2c provides i2ctx conns for host I2C controllers and driver frameworks.
package i2c

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/i2ctx"
)

var _ i2ctx.Conn = &GenericBus{}

// GenericBus is a conn over a periph.io bus, typically /dev/i2c-N on Linux.
//
// Every transaction goes out as one periph Tx message, so it can hold a single write, a
// single read, or a write followed by a read. Longer sequences fail with
// ErrUnsupportedSequence before anything of the offending step reaches the wire.
type GenericBus struct {
	combiner
	bus i2c.BusCloser
}

func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("periph driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewGenericBusFrom(bus), nil
}

// NewGenericBusFrom wraps an already opened periph bus.
func NewGenericBusFrom(bus i2c.BusCloser) *GenericBus {
	b := &GenericBus{bus: bus}
	b.tx = func(addr uint16, w, r []byte) error {
		if err := bus.Tx(addr, w, r); err != nil {
			return fmt.Errorf("i2c tx to %#x failed: %w", addr, err)
		}
		return nil
	}
	return b
}

func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
