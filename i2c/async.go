package i2c

import (
	"context"

	"github.com/mklimuk/i2ctx"
)

// Async runs the steps of a blocking conn on a goroutine so it can back an AsyncBus.
func Async(conn i2ctx.Conn) i2ctx.AsyncConn {
	return asyncConn{conn: conn}
}

type asyncConn struct {
	conn i2ctx.Conn
}

func (a asyncConn) StartWrite(ctx context.Context, addr i2ctx.Address, buffer []byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- a.conn.WriteToAddr(ctx, addr, buffer)
	}()
	return done
}

func (a asyncConn) StartRead(ctx context.Context, addr i2ctx.Address, buffer []byte) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- a.conn.ReadFromAddr(ctx, addr, buffer)
	}()
	return done
}

func (a asyncConn) Release(ctx context.Context) error {
	return a.conn.Release(ctx)
}
