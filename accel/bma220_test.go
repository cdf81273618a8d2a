package accel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/i2ctest"
)

func TestBMA220_InitMotionDetection(t *testing.T) {
	conn := i2ctest.NewConn()
	for _, w := range [][]byte{
		{regRange, 0x03},
		{regLatch, 0x70},
		{regSlopeDet, 0x38},
		{regSlopeSettings, 0x45},
		{regWatchdog, 0x06},
	} {
		conn.On("WriteToAddr", mock.Anything, DefaultAddress, w).Return(nil).Once()
	}
	err := NewBMA220(i2ctx.NewBus(conn)).InitMotionDetection(context.Background())
	require.NoError(t, err)
	conn.AssertExpectations(t)
	conn.AssertNumberOfCalls(t, "Release", 5)
}

func TestBMA220_InitStopsOnError(t *testing.T) {
	conn := i2ctest.NewConn()
	conn.On("WriteToAddr", mock.Anything, DefaultAddress, []byte{regRange, 0x03}).Return(nil).Once()
	conn.On("WriteToAddr", mock.Anything, DefaultAddress, []byte{regLatch, 0x70}).Return(i2ctx.ErrNoAck).Once()
	err := NewBMA220(i2ctx.NewBus(conn)).InitMotionDetection(context.Background())
	assert.ErrorIs(t, err, i2ctx.ErrNoAck)
	assert.ErrorContains(t, err, "could not set interrupt settings")
	conn.AssertNumberOfCalls(t, "WriteToAddr", 2)
}

func TestBMA220_CheckMotionInterrupt(t *testing.T) {
	tests := []struct {
		name  string
		value byte
		fired bool
	}{
		{"idle", 0x00, false},
		{"slope", 0x01, true},
		{"other bits", 0xFE, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			script := i2ctest.NewScript().ExpectWrite(nil).ExpectRead([]byte{test.value}, nil)
			fired, err := NewBMA220(i2ctx.NewBus(script)).CheckMotionInterrupt(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.fired, fired)
			assert.Equal(t, []byte{regInterrupts}, script.Events()[0].Data)
		})
	}
}

func TestBMA220_ResetMotionInterrupt(t *testing.T) {
	script := i2ctest.NewScript().ExpectWrite(nil)
	require.NoError(t, NewBMA220(i2ctx.NewBus(script)).ResetMotionInterrupt(context.Background()))
	assert.Equal(t, []byte{regLatch, 0xF0}, script.Events()[0].Data)
}
