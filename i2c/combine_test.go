package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2ctx"
)

type txCall struct {
	addr uint16
	w    []byte
	r    int
}

func recorder(calls *[]txCall, err error) txFunc {
	return func(addr uint16, w, r []byte) error {
		*calls = append(*calls, txCall{addr: addr, w: append([]byte(nil), w...), r: len(r)})
		return err
	}
}

func TestCombiner_ReadFromOtherAddressIsRejected(t *testing.T) {
	var calls []txCall
	c := &combiner{tx: recorder(&calls, nil)}
	ctx := context.Background()
	require.NoError(t, c.WriteToAddr(ctx, i2ctx.Addr7(0x10), []byte{1}))
	err := c.ReadFromAddr(ctx, i2ctx.Addr7(0x11), make([]byte, 2))
	assert.ErrorIs(t, err, ErrUnsupportedSequence)
	require.NoError(t, c.Release(ctx))
	assert.Empty(t, calls, "the held back write must be dropped")
}

func TestCombiner_Sequences(t *testing.T) {
	w := func(c *combiner) error { return c.WriteToAddr(context.Background(), i2ctx.Addr7(0x20), []byte{1}) }
	r := func(c *combiner) error {
		return c.ReadFromAddr(context.Background(), i2ctx.Addr7(0x20), make([]byte, 1))
	}
	tests := []struct {
		name  string
		steps []func(*combiner) error
		calls int
		fails bool
	}{
		{name: "write", steps: []func(*combiner) error{w}, calls: 1},
		{name: "read", steps: []func(*combiner) error{r}, calls: 1},
		{name: "write read", steps: []func(*combiner) error{w, r}, calls: 1},
		{name: "write write", steps: []func(*combiner) error{w, w}, calls: 0, fails: true},
		{name: "read read", steps: []func(*combiner) error{r, r}, calls: 1, fails: true},
		{name: "write read write", steps: []func(*combiner) error{w, r, w}, calls: 1, fails: true},
		{name: "read write", steps: []func(*combiner) error{r, w}, calls: 1, fails: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []txCall
			c := &combiner{tx: recorder(&calls, nil)}
			var err error
			for _, step := range tt.steps {
				if err = step(c); err != nil {
					break
				}
			}
			if tt.fails {
				assert.ErrorIs(t, err, ErrUnsupportedSequence)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, c.Release(context.Background()))
			assert.Len(t, calls, tt.calls)
		})
	}
}

func TestCombiner_ReleaseStartsNewMessage(t *testing.T) {
	var calls []txCall
	c := &combiner{tx: recorder(&calls, nil)}
	ctx := context.Background()
	require.NoError(t, c.ReadFromAddr(ctx, i2ctx.Addr7(0x20), make([]byte, 1)))
	require.NoError(t, c.Release(ctx))
	require.NoError(t, c.ReadFromAddr(ctx, i2ctx.Addr7(0x20), make([]byte, 1)))
	require.NoError(t, c.Release(ctx))
	assert.Len(t, calls, 2)
}

func TestCombiner_TenBitAddresses(t *testing.T) {
	var calls []txCall
	c := &combiner{tx: recorder(&calls, nil)}
	ctx := context.Background()
	assert.ErrorIs(t, c.WriteToAddr(ctx, i2ctx.Addr10(0x050), []byte{1}), i2ctx.ErrInvalidAddress)
	assert.ErrorIs(t, c.ReadFromAddr(ctx, i2ctx.Addr10(0x050), make([]byte, 1)), i2ctx.ErrInvalidAddress)
	require.NoError(t, c.Release(ctx))
	assert.Empty(t, calls)

	require.NoError(t, c.ReadFromAddr(ctx, i2ctx.Addr10(0x250), make([]byte, 1)))
	require.NoError(t, c.Release(ctx))
	assert.Equal(t, []txCall{{addr: 0x250, r: 1}}, calls)
}

func TestCombiner_PendingIsCopied(t *testing.T) {
	var calls []txCall
	c := &combiner{tx: recorder(&calls, nil)}
	ctx := context.Background()
	buf := []byte{1, 2}
	require.NoError(t, c.WriteToAddr(ctx, i2ctx.Addr7(0x10), buf))
	buf[0] = 0xff
	require.NoError(t, c.Release(ctx))
	assert.Equal(t, []txCall{{addr: 0x10, w: []byte{1, 2}}}, calls)
}

func TestCombiner_ErrorOnRelease(t *testing.T) {
	var calls []txCall
	nack := errors.New("nack")
	c := &combiner{tx: recorder(&calls, nack)}
	ctx := context.Background()
	require.NoError(t, c.WriteToAddr(ctx, i2ctx.Addr7(0x10), []byte{1}))
	assert.ErrorIs(t, c.Release(ctx), nack)
	// nothing left to send
	assert.NoError(t, c.Release(ctx))
	assert.Len(t, calls, 1)
}

func TestCombiner_EmptyReleaseIsNoop(t *testing.T) {
	var calls []txCall
	c := &combiner{tx: recorder(&calls, nil)}
	assert.NoError(t, c.Release(context.Background()))
	assert.Empty(t, calls)
}
