package gpio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/i2ctest"
)

func TestMCP23017_Init(t *testing.T) {
	script := i2ctest.NewScript().ExpectWrite(nil).ExpectWrite(nil)
	exp := NewMCP23017(i2ctx.NewBus(script), DefaultMCP23017Address)
	require.NoError(t, exp.InitA(context.Background(), 0xFF))
	require.NoError(t, exp.InitB(context.Background(), 0x0F))
	events := script.Events()
	assert.Equal(t, []byte{0x00, 0xFF}, events[0].Data)
	assert.Equal(t, []byte{0x01, 0x0F}, events[2].Data)
}

func TestMCP23017_Read(t *testing.T) {
	script := i2ctest.NewScript().ExpectWrite(nil).ExpectRead([]byte{0xA5, 0x5A}, nil)
	exp := NewMCP23017(i2ctx.NewBus(script), 0x20)
	res, err := exp.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5, 0x5A}, res)
	assert.Equal(t, []i2ctest.Event{
		{Kind: i2ctest.EventWrite, Addr: 0x20, Data: []byte{0x12}},
		{Kind: i2ctest.EventRead, Addr: 0x20, Data: []byte{0xA5, 0x5A}},
		{Kind: i2ctest.EventRelease},
	}, script.Events())
}

func TestMCP23017_ReadBank1(t *testing.T) {
	script := i2ctest.NewScript().
		ExpectWrite(nil).
		ExpectWrite(nil).ExpectRead([]byte{0xA5}, nil).
		ExpectWrite(nil).ExpectRead([]byte{0x5A}, nil)
	exp := NewMCP23017(i2ctx.NewBus(script), 0x20)
	require.NoError(t, exp.WriteSettingsB(context.Background(), 0x80))
	res, err := exp.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5, 0x5A}, res)
	events := script.Events()
	assert.Equal(t, []byte{0x0B, 0x80}, events[0].Data)
	assert.Equal(t, []byte{0x09}, events[2].Data)
	assert.Equal(t, []byte{0x19}, events[5].Data)
}

func TestRegistryAddr(t *testing.T) {
	tests := []struct {
		reg          registry
		bank0, bank1 byte
	}{
		{IODIRA, 0x00, 0x00},
		{IODIRB, 0x01, 0x10},
		{IOCONA, 0x0A, 0x05},
		{GPPUB, 0x0D, 0x16},
		{GPIOA, 0x12, 0x09},
		{OLATB, 0x15, 0x1A},
	}
	for _, test := range tests {
		assert.Equal(t, test.bank0, test.reg.addr(0), "%#x bank 0", test.reg)
		assert.Equal(t, test.bank1, test.reg.addr(1), "%#x bank 1", test.reg)
	}
}

func TestMCP23017_RetryOnBusy(t *testing.T) {
	conn := i2ctest.NewConn()
	conn.On("WriteToAddr", mock.Anything, DefaultMCP23017Address, []byte{0x0C, 0xFF}).Return(i2ctx.ErrBusBusy).Twice()
	conn.On("WriteToAddr", mock.Anything, DefaultMCP23017Address, []byte{0x0C, 0xFF}).Return(nil).Once()
	exp := NewMCP23017(i2ctx.NewBus(conn), DefaultMCP23017Address)
	exp.SetRetryLimit(3)
	require.NoError(t, exp.PullUpA(context.Background(), 0xFF))
	conn.AssertExpectations(t)
	// every attempt gives the bus back
	conn.AssertNumberOfCalls(t, "Release", 3)
}

func TestMCP23017_RetryLimit(t *testing.T) {
	conn := i2ctest.NewConn()
	conn.On("WriteToAddr", mock.Anything, mock.Anything, mock.Anything).Return(i2ctx.ErrBusBusy)
	exp := NewMCP23017(i2ctx.NewBus(conn), DefaultMCP23017Address)
	exp.SetRetryLimit(2)
	err := exp.PullUpB(context.Background(), 0xFF)
	assert.ErrorIs(t, err, i2ctx.ErrBusBusy)
	assert.ErrorContains(t, err, "retry limit reached")
	conn.AssertNumberOfCalls(t, "WriteToAddr", 2)
}

func TestMCP23017_NoRetryOnOtherErrors(t *testing.T) {
	conn := i2ctest.NewConn()
	conn.On("WriteToAddr", mock.Anything, mock.Anything, mock.Anything).Return(i2ctx.ErrNoAck)
	exp := NewMCP23017(i2ctx.NewBus(conn), DefaultMCP23017Address)
	exp.SetRetryLimit(5)
	_, err := exp.ReadA(context.Background())
	assert.ErrorIs(t, err, i2ctx.ErrNoAck)
	conn.AssertNumberOfCalls(t, "WriteToAddr", 1)
}

func TestMCP23017_BankSwitch(t *testing.T) {
	script := i2ctest.NewScript().
		ExpectWrite(nil).
		ExpectWrite(nil).ExpectRead([]byte{0x01}, nil)
	exp := NewMCP23017(i2ctx.NewBus(script), DefaultMCP23017Address)
	require.NoError(t, exp.WriteSettingsA(context.Background(), 0x80))
	_, err := exp.ReadB(context.Background())
	require.NoError(t, err)
	events := script.Events()
	assert.Equal(t, []byte{0x0A, 0x80}, events[0].Data)
	assert.Equal(t, []byte{0x19}, events[2].Data)
}
