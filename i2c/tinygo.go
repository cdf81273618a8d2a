package i2c

import (
	"context"
	"fmt"

	"tinygo.org/x/drivers"

	"github.com/mklimuk/i2ctx"
)

var (
	_ i2ctx.Conn  = &TinyGoBus{}
	_ drivers.I2C = &TinyGoDevice{}
)

// TinyGoBus is a conn over a TinyGo bus such as machine.I2C0. It accepts the same step
// sequences as GenericBus.
type TinyGoBus struct {
	combiner
}

func NewTinyGoBus(bus drivers.I2C) *TinyGoBus {
	b := &TinyGoBus{}
	b.tx = func(addr uint16, w, r []byte) error {
		if err := bus.Tx(addr, w, r); err != nil {
			return fmt.Errorf("i2c tx to %#x failed: %w", addr, err)
		}
		return nil
	}
	return b
}

// TinyGoDevice lets TinyGo drivers run on top of a Transactor. Every call becomes one
// transaction.
type TinyGoDevice struct {
	ctx context.Context
	t   i2ctx.Transactor
}

func NewTinyGoDevice(ctx context.Context, t i2ctx.Transactor) *TinyGoDevice {
	return &TinyGoDevice{ctx: ctx, t: t}
}

func (d *TinyGoDevice) Tx(addr uint16, w, r []byte) error {
	a, err := i2ctx.AddressOf(addr)
	if err != nil {
		return err
	}
	ops := make([]i2ctx.Operation, 0, 2)
	if len(w) > 0 || len(r) == 0 {
		ops = append(ops, i2ctx.WriteIter{Bytes: i2ctx.Bytes(w...)})
	}
	if len(r) > 0 {
		ops = append(ops, i2ctx.Read{Buf: r})
	}
	return d.t.Transaction(d.ctx, a, i2ctx.Ops(ops...))
}

func (d *TinyGoDevice) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return i2ctx.WriteRead(d.ctx, d.t, i2ctx.Addr7(addr), i2ctx.Bytes(r), buf)
}

func (d *TinyGoDevice) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return i2ctx.Write(d.ctx, d.t, i2ctx.Addr7(addr), i2ctx.Concat(i2ctx.Bytes(r), i2ctx.Bytes(buf...)))
}
