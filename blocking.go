package i2ctx

import (
	"context"
	"iter"
)

var _ Transactor = &Bus{}

// Bus runs transactions on a Conn, blocking the calling goroutine until every step has
// completed. It does no locking: callers sharing a Bus serialize access themselves.
type Bus struct {
	conn Conn
}

func NewBus(conn Conn) *Bus {
	return &Bus{conn: conn}
}

func (b *Bus) Transaction(ctx context.Context, addr Address, ops iter.Seq[Operation]) error {
	return transact(ctx, connSteps{b.conn}, addr, ops)
}

func (b *Bus) Write(ctx context.Context, addr Address, bytes iter.Seq[byte]) error {
	return Write(ctx, b, addr, bytes)
}

func (b *Bus) WriteRead(ctx context.Context, addr Address, bytes iter.Seq[byte], buf []byte) error {
	return WriteRead(ctx, b, addr, bytes, buf)
}

func (b *Bus) ReadInto(ctx context.Context, addr Address, buf []byte) error {
	return ReadInto(ctx, b, addr, buf)
}

type connSteps struct {
	conn Conn
}

func (s connSteps) write(ctx context.Context, addr Address, bytes iter.Seq[byte], scratch []byte) error {
	if sw, ok := s.conn.(SeqWriter); ok {
		if bytes == nil {
			bytes = Bytes()
		}
		return sw.WriteSeqToAddr(ctx, addr, bytes)
	}
	return s.conn.WriteToAddr(ctx, addr, collect(scratch, bytes))
}

func (s connSteps) read(ctx context.Context, addr Address, buf []byte) error {
	return s.conn.ReadFromAddr(ctx, addr, buf)
}

func (s connSteps) release(ctx context.Context) error {
	return s.conn.Release(ctx)
}
