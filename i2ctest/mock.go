package i2ctest

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/i2ctx"
)

// Conn is a testify mock of i2ctx.Conn. Release is always allowed.
//
//	conn := i2ctest.NewConn()
//	conn.On("WriteToAddr", mock.Anything, i2ctx.Addr7(0x4d), []byte{0x01}).Return(nil)
//	conn.On("ReadFromAddr", mock.Anything, i2ctx.Addr7(0x4d), mock.Anything).Return([]byte{0x40}, nil)
type Conn struct {
	mock.Mock
}

var _ i2ctx.Conn = &Conn{}

func NewConn() *Conn {
	c := &Conn{}
	c.On("Release", mock.Anything).Return(nil).Maybe()
	return c
}

func (m *Conn) WriteToAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	args := m.Called(ctx, addr, append([]byte{}, buffer...))
	return args.Error(0)
}

// ReadFromAddr copies the []byte returned by the expectation into buffer. Fewer bytes
// than buffer holds is a short read.
func (m *Conn) ReadFromAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	args := m.Called(ctx, addr, buffer)
	if err := args.Error(1); err != nil {
		return err
	}
	data, _ := args.Get(0).([]byte)
	n := copy(buffer, data)
	if n < len(buffer) {
		return fmt.Errorf("got %d of %d bytes from %s: %w", n, len(buffer), addr, i2ctx.ErrShortRead)
	}
	return nil
}

func (m *Conn) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
