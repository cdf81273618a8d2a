package i2ctx

import (
	"context"
	"fmt"
	"iter"

	"github.com/mklimuk/i2ctx/logctx"
)

// Transactor executes an ordered sequence of operations against one address as a single
// bus transaction. Steps run strictly in order under one claim of the bus. The first
// failing step aborts the transaction and its error is returned unchanged; how many of
// the preceding steps reached the wire is then undefined.
type Transactor interface {
	Transaction(ctx context.Context, addr Address, ops iter.Seq[Operation]) error
}

// Write transmits bytes to addr in a transaction of one WriteIter step.
func Write(ctx context.Context, t Transactor, addr Address, bytes iter.Seq[byte]) error {
	return t.Transaction(ctx, addr, Ops(WriteIter{Bytes: bytes}))
}

// WriteRead transmits bytes and then fills buf without releasing the bus in between,
// the usual way of reading a register: the device sees the register pointer and the
// read in one transaction.
func WriteRead(ctx context.Context, t Transactor, addr Address, bytes iter.Seq[byte], buf []byte) error {
	return t.Transaction(ctx, addr, Ops(WriteIter{Bytes: bytes}, Read{Buf: buf}))
}

// ReadInto fills buf from addr in a transaction of one Read step.
func ReadInto(ctx context.Context, t Transactor, addr Address, buf []byte) error {
	return t.Transaction(ctx, addr, Ops(Read{Buf: buf}))
}

// stepper performs single transaction steps. Bus and AsyncBus differ only in how a step
// waits for the hardware.
type stepper interface {
	write(ctx context.Context, addr Address, bytes iter.Seq[byte], scratch []byte) error
	read(ctx context.Context, addr Address, buf []byte) error
	release(ctx context.Context) error
}

// scratchSize covers register pointers and short commands without allocating.
const scratchSize = 32

func transact(ctx context.Context, s stepper, addr Address, ops iter.Seq[Operation]) (err error) {
	if addr == nil {
		return ErrInvalidAddress
	}
	if ops == nil {
		return nil
	}
	log := logctx.Logger(ctx)
	var scratch [scratchSize]byte
	step := 0
	defer func() {
		if step == 0 {
			// nothing reached the bus
			return
		}
		// the bus must be given back even when the caller gave up
		rerr := s.release(context.WithoutCancel(ctx))
		if rerr != nil {
			log.DebugContext(ctx, "i2c release failed", "addr", addr, "error", rerr)
			if err == nil {
				err = rerr
			}
		}
	}()
	for op := range ops {
		if err = ctx.Err(); err != nil {
			return err
		}
		switch op := op.(type) {
		case Read:
			log.DebugContext(ctx, "i2c read", "addr", addr, "step", step, "len", len(op.Buf))
			step++
			err = s.read(ctx, addr, op.Buf)
		case WriteIter:
			log.DebugContext(ctx, "i2c write", "addr", addr, "step", step)
			step++
			err = s.write(ctx, addr, op.Bytes, scratch[:0])
		default:
			return fmt.Errorf("i2c: unsupported operation %T", op)
		}
		if err != nil {
			log.DebugContext(ctx, "i2c transaction aborted", "addr", addr, "step", step-1, "error", err)
			return err
		}
	}
	return nil
}
