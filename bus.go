package i2ctx

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// Bus errors shared by the conns in this module. Transactions return them unchanged.
var (
	ErrBusBusy         = fmt.Errorf("I2C engine is busy (command not completed)")
	ErrNoAck           = errors.New("i2c: no acknowledge from target")
	ErrArbitrationLost = errors.New("i2c: arbitration lost")
	ErrBusTimeout      = errors.New("i2c: bus timeout")
	ErrInvalidAddress  = errors.New("i2c: invalid address")
	ErrShortRead       = errors.New("i2c: short read")
)

// Conn is the byte-level transfer capability a Bus runs transactions on.
//
// Every WriteToAddr and ReadFromAddr issued before the next Release belongs to the same
// transaction: the conn keeps the bus claimed and continues with a repeated start.
// A conn that cannot continue a transaction this way either rejects the step with an
// error or documents that it splits transactions.
// Buffers are only valid for the duration of the call.
type Conn interface {
	// WriteToAddr transmits buffer to addr. An empty buffer is an address-only write.
	WriteToAddr(ctx context.Context, addr Address, buffer []byte) error
	// ReadFromAddr fills buffer completely from addr or returns an error.
	ReadFromAddr(ctx context.Context, addr Address, buffer []byte) error
	// Release ends the current transaction and gives up the bus.
	Release(ctx context.Context) error
}

// SeqWriter is implemented by conns that can feed a write step to the hardware byte by
// byte. The Bus hands such conns the byte source directly instead of collecting it first.
type SeqWriter interface {
	WriteSeqToAddr(ctx context.Context, addr Address, bytes iter.Seq[byte]) error
}

// AsyncConn is the transfer capability of interrupt or DMA driven controllers. A started
// transfer reports its outcome exactly once on the returned channel, which must be
// buffered so that an abandoned transfer never blocks the driver.
type AsyncConn interface {
	StartWrite(ctx context.Context, addr Address, buffer []byte) <-chan error
	StartRead(ctx context.Context, addr Address, buffer []byte) <-chan error
	Release(ctx context.Context) error
}
