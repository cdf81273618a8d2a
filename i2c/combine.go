package i2c

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/i2ctx"
)

// ErrUnsupportedSequence is returned by conns built on a single Tx message for step
// sequences that message cannot carry without a STOP in between.
var ErrUnsupportedSequence = errors.New("i2c: step sequence does not fit one message")

// txFunc is a combined write-then-read message with a repeated start in between, the
// primitive of periph and TinyGo buses.
type txFunc func(addr uint16, w, r []byte) error

// combiner adapts a txFunc to the step-wise Conn calls. A transaction maps to exactly
// one message, so the only step sequences it accepts are a single write, a single read,
// and a write followed by a read from the same address. The write is held back until
// the read or Release so both go out together.
type combiner struct {
	tx          txFunc
	pending     []byte
	pendingAddr uint16
	hasPending  bool
	sent        bool
}

func (c *combiner) WriteToAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	a, err := txAddr(addr)
	if err != nil {
		return err
	}
	if c.hasPending || c.sent {
		c.hasPending = false
		return fmt.Errorf("write to %s after another step: %w", addr, ErrUnsupportedSequence)
	}
	c.pending = append(c.pending[:0], buffer...)
	c.pendingAddr = a
	c.hasPending = true
	return nil
}

func (c *combiner) ReadFromAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	a, err := txAddr(addr)
	if err != nil {
		return err
	}
	if c.sent || (c.hasPending && c.pendingAddr != a) {
		c.hasPending = false
		return fmt.Errorf("read from %s after another step: %w", addr, ErrUnsupportedSequence)
	}
	var w []byte
	if c.hasPending {
		w = c.pending
		c.hasPending = false
	}
	c.sent = true
	return c.tx(a, w, buffer)
}

// Release sends a write still held back.
func (c *combiner) Release(ctx context.Context) error {
	c.sent = false
	if !c.hasPending {
		return nil
	}
	c.hasPending = false
	return c.tx(c.pendingAddr, c.pending, nil)
}

// txAddr rejects 10-bit addresses in the 7-bit range: Tx takes a bare number and would
// put them on the wire as 7-bit addresses.
func txAddr(addr i2ctx.Address) (uint16, error) {
	a := addr.BaseAddr()
	if addr.TenBit() && a <= 0x7f {
		return 0, fmt.Errorf("%w: 10-bit address %s is ambiguous on this bus", i2ctx.ErrInvalidAddress, addr)
	}
	return a, nil
}
