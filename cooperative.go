package i2ctx

import (
	"context"
	"iter"
)

var _ Transactor = &AsyncBus{}

// AsyncBus runs transactions on an AsyncConn. Each step starts the transfer and parks
// the calling goroutine until the conn reports completion, leaving the scheduler free
// to run other work while the controller is busy. Outcomes, step order and failure
// scope are the same as with Bus.
//
// When ctx is cancelled while a step is in flight the call returns ctx.Err(). What that
// step did on the wire is up to the conn. The bus is released only once the conn has
// reported completion of the step, so the call returns after that and the transfer can
// never spill into the next transaction. Conns should honour ctx to end such a step early.
type AsyncBus struct {
	conn AsyncConn
}

func NewAsyncBus(conn AsyncConn) *AsyncBus {
	return &AsyncBus{conn: conn}
}

func (b *AsyncBus) Transaction(ctx context.Context, addr Address, ops iter.Seq[Operation]) error {
	return transact(ctx, &asyncSteps{conn: b.conn}, addr, ops)
}

func (b *AsyncBus) Write(ctx context.Context, addr Address, bytes iter.Seq[byte]) error {
	return Write(ctx, b, addr, bytes)
}

func (b *AsyncBus) WriteRead(ctx context.Context, addr Address, bytes iter.Seq[byte], buf []byte) error {
	return WriteRead(ctx, b, addr, bytes, buf)
}

func (b *AsyncBus) ReadInto(ctx context.Context, addr Address, buf []byte) error {
	return ReadInto(ctx, b, addr, buf)
}

type asyncSteps struct {
	conn AsyncConn
	// inflight is the completion of a step abandoned on cancellation.
	inflight <-chan error
}

func (s *asyncSteps) write(ctx context.Context, addr Address, bytes iter.Seq[byte], scratch []byte) error {
	return s.await(ctx, s.conn.StartWrite(ctx, addr, collect(scratch, bytes)))
}

func (s *asyncSteps) read(ctx context.Context, addr Address, buf []byte) error {
	return s.await(ctx, s.conn.StartRead(ctx, addr, buf))
}

func (s *asyncSteps) release(ctx context.Context) error {
	if s.inflight != nil {
		<-s.inflight
		s.inflight = nil
	}
	return s.conn.Release(ctx)
}

// await suspends until done fires or ctx is cancelled. A completed transfer wins over
// a cancellation that arrives at the same time.
func (s *asyncSteps) await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	default:
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.inflight = done
		return ctx.Err()
	}
}
