package adapter

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/i2ctest"
)

// chip emulates the bridge firmware in front of an i2ctest.Memory.
type chip struct {
	mem      *i2ctest.Memory
	commands []byte
	last     []byte
	data     []byte
	readErr  bool
	busy     bool
	divider  byte
	gpio     []byte
	flash    []byte
}

func (c *chip) open(id ...int) (io.ReadWriteCloser, error) {
	return c, nil
}

func (c *chip) Write(b []byte) (int, error) {
	c.last = append(c.last[:0], b...)
	c.commands = append(c.commands, b[0])
	return len(b), nil
}

func (c *chip) Read(b []byte) (int, error) {
	clear(b)
	req := c.last
	b[0] = req[0]
	ctx := context.Background()
	addr := i2ctx.Addr7(req[3] >> 1)
	n := int(binary.LittleEndian.Uint16(req[1:3]))
	switch req[0] {
	case cmdWrite, cmdWriteNoStop, cmdWriteRepeated:
		if c.busy {
			b[1] = 0x01
			break
		}
		if err := c.mem.WriteToAddr(ctx, addr, req[4:4+n]); err != nil {
			b[1] = 0x01
		}
	case cmdRead, cmdReadRepeated:
		c.data = make([]byte, n)
		c.readErr = c.mem.ReadFromAddr(ctx, addr, c.data) != nil
	case cmdGetData:
		if c.readErr {
			b[1] = 0x41
			b[3] = 127
			break
		}
		b[3] = byte(len(c.data))
		copy(b[4:], c.data)
	case cmdStatus:
		if req[2] == cancelTransfer {
			_ = c.mem.Release(ctx)
		}
		if req[3] == setSpeed {
			c.divider = req[4]
			b[4] = speedSet
		}
		b[14] = c.divider
	case cmdGPIOGet:
		copy(b[2:], c.gpio)
	case cmdGPIOSet:
		for gp := range 4 {
			if req[2+4*gp] == 1 {
				c.gpio[2*gp] = req[3+4*gp]
			}
		}
	case cmdReadFlash:
		copy(b[4:], c.flash)
	case cmdWriteFlash:
		copy(c.flash, req[2:6])
	}
	return len(b), nil
}

func (c *chip) Close() error {
	return nil
}

func newChip() *chip {
	return &chip{
		mem:   i2ctest.NewMemory(0x50, 256, 0xff),
		gpio:  []byte{0, 0, 1, 1, 0, 0xEE, 0, 0xEE},
		flash: []byte{0x00, 0x08, 0x02, 0x01},
	}
}

func TestMCP2221_WriteReadUsesRepeatedStart(t *testing.T) {
	c := newChip()
	copy(c.mem.Mem[0x10:], []byte{1, 2, 3, 4})
	a := NewMCP2221With(c.open, 0)
	bus := i2ctx.NewBus(a)
	buf := make([]byte, 4)
	err := bus.WriteRead(context.Background(), i2ctx.Addr7(0x50), i2ctx.Bytes(0x10), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	assert.Equal(t, []byte{cmdWriteNoStop, cmdReadRepeated, cmdGetData, cmdStatus}, c.commands)
	assert.Equal(t, 1, c.mem.Transactions)
}

func TestMCP2221_ReadFirstStep(t *testing.T) {
	c := newChip()
	a := NewMCP2221With(c.open, 0)
	buf := make([]byte, 2)
	err := i2ctx.NewBus(a).ReadInto(context.Background(), i2ctx.Addr7(0x50), buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, buf)
	assert.Equal(t, []byte{cmdRead, cmdGetData, cmdStatus}, c.commands)
}

func TestMCP2221_NoAck(t *testing.T) {
	c := newChip()
	a := NewMCP2221With(c.open, 0)
	err := i2ctx.NewBus(a).ReadInto(context.Background(), i2ctx.Addr7(0x20), make([]byte, 2))
	assert.ErrorIs(t, err, i2ctx.ErrNoAck)
	// bus given back anyway
	assert.Equal(t, byte(cmdStatus), c.commands[len(c.commands)-1])
}

func TestMCP2221_Busy(t *testing.T) {
	c := newChip()
	c.busy = true
	a := NewMCP2221With(c.open, 0)
	err := i2ctx.NewBus(a).Write(context.Background(), i2ctx.Addr7(0x50), i2ctx.Bytes(0x00, 0x01))
	assert.ErrorIs(t, err, i2ctx.ErrBusBusy)
}

func TestMCP2221_Limits(t *testing.T) {
	c := newChip()
	a := NewMCP2221With(c.open, 0)
	bus := i2ctx.NewBus(a)
	err := bus.Write(context.Background(), i2ctx.Addr7(0x50), i2ctx.Bytes(make([]byte, MaxPayload+1)...))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	err = bus.ReadInto(context.Background(), i2ctx.Addr10(0x250), make([]byte, 1))
	assert.ErrorIs(t, err, i2ctx.ErrInvalidAddress)
	// only the releases reach the adapter
	assert.Equal(t, []byte{cmdStatus, cmdStatus}, c.commands)
}

func TestMCP2221_Init(t *testing.T) {
	c := newChip()
	a := NewMCP2221With(c.open, 0)
	require.NoError(t, a.Init(context.Background()))
	assert.Equal(t, byte(117), c.divider)

	require.NoError(t, a.SetSpeed(context.Background(), 400_000))
	assert.Equal(t, byte(27), c.divider)

	assert.Error(t, a.SetSpeed(context.Background(), 0))
}

func TestMCP2221_OpenError(t *testing.T) {
	notFound := errors.New("MCP2221 device not found")
	a := NewMCP2221With(func(id ...int) (io.ReadWriteCloser, error) { return nil, notFound }, 0)
	_, err := a.Status(context.Background())
	assert.ErrorIs(t, err, notFound)
}

func TestBufferToStatus(t *testing.T) {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint16(buf[9:11], 12)
	binary.LittleEndian.PutUint16(buf[11:13], 10)
	buf[13] = 3
	buf[14] = 117
	buf[16] = 0xa0
	buf[25] = 1
	s := bufferToStatus(buf)
	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   3,
		I2CSpeedDivider:        117,
		CurrentAddress:         "a000",
		LastWriteRequestedSize: 12,
		LastWriteSentSize:      10,
		ReadPending:            1,
	}, s)
}

func TestMCP2221_GPIO(t *testing.T) {
	c := newChip()
	a := NewMCP2221With(c.open, 0)
	ctx := context.Background()

	values, err := a.ReadGPIO(ctx)
	require.NoError(t, err)
	assert.Equal(t, MCP2221GPIOValues{
		{Mode: GPIOModeOut, Value: 0},
		{Mode: GPIOModeIn, Value: 1},
		{Mode: GPIOModeNoOperation, Value: 0},
		{Mode: GPIOModeNoOperation, Value: 0},
	}, values)

	require.NoError(t, a.SetGPIO(ctx, 0, true))
	levels, err := a.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 0, 0}, levels)
	assert.Error(t, a.SetGPIO(ctx, 4, true))
}

func TestMCP2221_GPIOParameters(t *testing.T) {
	c := newChip()
	a := NewMCP2221With(c.open, 0)
	ctx := context.Background()

	params, err := a.GetGPIOParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, MCP2221GPIOParameters{
		{Mode: GPIOModeOut, Designation: GPIOOperation},
		{Mode: GPIOModeIn, Designation: GPIOOperation},
		{Mode: GPIOModeOut, Designation: GPIO2ADC2},
		{Mode: GPIOModeOut, Designation: GPIO3LEDI2C},
	}, params)

	params[0].Mode = GPIOModeIn
	require.NoError(t, a.SetGPIOParameters(ctx, params))
	assert.Equal(t, []byte{0x08, 0x08, 0x02, 0x01}, c.flash)
}
