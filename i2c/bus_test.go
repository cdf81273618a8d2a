package i2c

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/i2ctx"
)

func TestGenericBus_WriteReadIsOneMessage(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{0x00, 0x10}, R: []byte{1, 2, 3, 4}},
		},
		DontPanic: true,
	}
	bus := i2ctx.NewBus(NewGenericBusFrom(pb))
	buf := make([]byte, 4)
	err := bus.WriteRead(context.Background(), i2ctx.Addr7(0x50), i2ctx.Bytes(0x00, 0x10), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	assert.NoError(t, pb.Close())
}

func TestGenericBus_WriteIsFlushedOnRelease(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x48, W: []byte{0x01, 0x80}},
		},
		DontPanic: true,
	}
	bus := i2ctx.NewBus(NewGenericBusFrom(pb))
	err := bus.Write(context.Background(), i2ctx.Addr7(0x48), i2ctx.Bytes(0x01, 0x80))
	require.NoError(t, err)
	assert.NoError(t, pb.Close())
}

func TestGenericBus_RejectsSplitTransaction(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	bus := i2ctx.NewBus(NewGenericBusFrom(pb))
	err := bus.Transaction(context.Background(), i2ctx.Addr7(0x20), i2ctx.Ops(
		i2ctx.WriteIter{Bytes: i2ctx.Bytes(0x00)},
		i2ctx.WriteIter{Bytes: i2ctx.Bytes(0x01, 0x02)},
		i2ctx.Read{Buf: make([]byte, 1)},
	))
	assert.ErrorIs(t, err, ErrUnsupportedSequence)
	// nothing was played back
	assert.NoError(t, pb.Close())
}

func TestGenericBus_AsyncParity(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x50, W: []byte{0x00, 0x10}, R: []byte{9, 8}},
		},
		DontPanic: true,
	}
	bus := i2ctx.NewAsyncBus(Async(NewGenericBusFrom(pb)))
	buf := make([]byte, 2)
	err := bus.WriteRead(context.Background(), i2ctx.Addr7(0x50), i2ctx.Bytes(0x00, 0x10), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, buf)
	assert.NoError(t, pb.Close())
}

// stallingBus is a periph bus whose first message blocks until unblock is closed.
type stallingBus struct {
	mx      sync.Mutex
	calls   []txCall
	entered chan struct{}
	unblock chan struct{}
}

func (b *stallingBus) Tx(addr uint16, w, r []byte) error {
	b.mx.Lock()
	b.calls = append(b.calls, txCall{addr: addr, w: append([]byte(nil), w...), r: len(r)})
	first := len(b.calls) == 1
	b.mx.Unlock()
	if first {
		close(b.entered)
		<-b.unblock
	}
	return nil
}

func (b *stallingBus) SetSpeed(f physic.Frequency) error { return nil }
func (b *stallingBus) String() string                    { return "stalling" }
func (b *stallingBus) Close() error                      { return nil }

func TestGenericBus_AsyncCancelDoesNotLeak(t *testing.T) {
	fake := &stallingBus{entered: make(chan struct{}), unblock: make(chan struct{})}
	bus := i2ctx.NewAsyncBus(Async(NewGenericBusFrom(fake)))
	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan error, 1)
	go func() {
		res <- bus.WriteRead(ctx, i2ctx.Addr7(0x20), i2ctx.Bytes(0x01), make([]byte, 2))
	}()
	<-fake.entered
	cancel()
	select {
	case <-res:
		t.Fatal("returned while the message was still on the bus")
	case <-time.After(20 * time.Millisecond):
	}
	close(fake.unblock)
	assert.ErrorIs(t, <-res, context.Canceled)

	buf := make([]byte, 1)
	require.NoError(t, bus.WriteRead(context.Background(), i2ctx.Addr7(0x48), i2ctx.Bytes(0x00), buf))
	fake.mx.Lock()
	defer fake.mx.Unlock()
	assert.Equal(t, []txCall{
		{addr: 0x20, w: []byte{0x01}, r: 2},
		{addr: 0x48, w: []byte{0x00}, r: 1},
	}, fake.calls)
}
