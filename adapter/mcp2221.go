// Package adapter drives USB to I2C bridges.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/logctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

var ErrCommandUnsupported = errors.New("unsupported command")
var ErrCommandFailed = errors.New("command failed")
var ErrPayloadTooLarge = errors.New("payload exceeds a single adapter report")

// MaxPayload is the most data a single HID report carries.
const MaxPayload = 60

const (
	cmdStatus        = 0x10
	cmdGetData       = 0x40
	cmdGPIOGet       = 0x51
	cmdGPIOSet       = 0x50
	cmdWrite         = 0x90
	cmdRead          = 0x91
	cmdWriteRepeated = 0x92
	cmdReadRepeated  = 0x93
	cmdWriteNoStop   = 0x94
	cmdReadFlash     = 0xB0
	cmdWriteFlash    = 0xB1

	cancelTransfer = 0x10
	setSpeed       = 0x20
	speedSet       = 0x20
	clockHz        = 12_000_000
)

// Opener opens the adapter's HID device. The optional id picks one of several
// connected adapters.
type Opener func(id ...int) (io.ReadWriteCloser, error)

var _ i2ctx.Conn = &MCP2221{}

// MCP2221 is a Microchip MCP2221(A) USB bridge.
//
// Within a transaction writes leave the bus without a STOP condition and every step
// after the first one starts with a repeated START, so register reads reach the device
// as one message. Release cancels whatever the engine still holds, which puts a STOP on
// the bus.
type MCP2221 struct {
	mx           sync.Mutex
	open         Opener
	request      []byte
	response     []byte
	responseWait time.Duration
	speed        uint32
	inTx         bool
}

type MCP2221Status struct {
	I2CDataBufferCounter   int
	I2CSpeedDivider        int
	I2CTimeout             int
	CurrentAddress         string
	LastWriteRequestedSize uint16
	LastWriteSentSize      uint16
	ReadPending            int
}

func NewMCP2221() *MCP2221 {
	return NewMCP2221With(openHID, 50*time.Millisecond)
}

// NewMCP2221With uses open to reach the device and waits responseWait between a
// request and its response.
func NewMCP2221With(open Opener, responseWait time.Duration) *MCP2221 {
	return &MCP2221{
		open:         open,
		request:      make([]byte, 64),
		response:     make([]byte, 64),
		responseWait: responseWait,
		speed:        100_000,
	}
}

// exchange sends cmd with the parameters fill puts into the request and reads the
// response. Callers hold d.mx.
func (d *MCP2221) exchange(ctx context.Context, cmd byte, fill func(req []byte), id ...int) error {
	d.resetBuffers()
	d.request[0] = cmd
	if fill != nil {
		fill(d.request)
	}
	return d.send(ctx, true, id...)
}

// rejected reports whether the firmware refused the last command.
func (d *MCP2221) rejected() bool {
	return d.response[1] == 0x01
}

// Init cancels any transfer left over by a previous user and sets the bus speed.
func (d *MCP2221) Init(ctx context.Context) error {
	if _, err := d.ReleaseBus(ctx); err != nil {
		return err
	}
	return d.SetSpeed(ctx, d.speed)
}

// SetSpeed sets the I2C clock in Hz.
func (d *MCP2221) SetSpeed(ctx context.Context, hz uint32) error {
	if hz == 0 || clockHz/hz < 4 || clockHz/hz-3 > 0xff {
		return fmt.Errorf("unsupported i2c speed %d Hz", hz)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.exchange(ctx, cmdStatus, func(req []byte) {
		req[3] = setSpeed
		req[4] = byte(clockHz/hz - 3)
	})
	if err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	if d.response[4] != speedSet {
		return fmt.Errorf("speed not set, transfer in progress: %w", i2ctx.ErrBusBusy)
	}
	d.speed = hz
	return nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	if addr.TenBit() {
		return fmt.Errorf("%w: adapter supports 7-bit addresses only", i2ctx.ErrInvalidAddress)
	}
	if len(buffer) > MaxPayload {
		return fmt.Errorf("write of %d bytes: %w", len(buffer), ErrPayloadTooLarge)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	cmd := byte(cmdWriteNoStop)
	if d.inTx {
		cmd = cmdWriteRepeated
	}
	d.inTx = true
	err := d.exchange(ctx, cmd, func(req []byte) {
		transfer(req, addr, len(buffer), false)
		copy(req[4:], buffer)
	})
	if err != nil {
		return fmt.Errorf("write to %s failed: %w", addr, err)
	}
	if d.rejected() {
		logctx.Logger(ctx).DebugContext(ctx, "adapter busy")
		return i2ctx.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, addr i2ctx.Address, buffer []byte) error {
	if addr.TenBit() {
		return fmt.Errorf("%w: adapter supports 7-bit addresses only", i2ctx.ErrInvalidAddress)
	}
	if len(buffer) > MaxPayload {
		return fmt.Errorf("read of %d bytes: %w", len(buffer), ErrPayloadTooLarge)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	cmd := byte(cmdRead)
	if d.inTx {
		cmd = cmdReadRepeated
	}
	d.inTx = true
	err := d.exchange(ctx, cmd, func(req []byte) { transfer(req, addr, len(buffer), true) })
	if err != nil {
		return fmt.Errorf("bus read from %s failed: %w", addr, err)
	}
	if d.rejected() {
		return i2ctx.ErrBusBusy
	}
	// the firmware buffers the read, it is fetched separately
	if err := d.exchange(ctx, cmdGetData, nil); err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 || d.response[3] == 127 {
		return fmt.Errorf("reading from %s: %w", addr, i2ctx.ErrNoAck)
	}
	if int(d.response[3]) != len(buffer) {
		return fmt.Errorf("expected %d bytes, got %d: %w", len(buffer), d.response[3], i2ctx.ErrShortRead)
	}
	copy(buffer, d.response[4:])
	return nil
}

// transfer fills the length and the 8-bit address of an I2C transfer request.
func transfer(req []byte, addr i2ctx.Address, n int, read bool) {
	binary.LittleEndian.PutUint16(req[1:3], uint16(n))
	req[3] = byte(addr.BaseAddr()) << 1
	if read {
		req[3] |= 1
	}
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.exchange(ctx, cmdStatus, nil); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// bufferToStatus decodes the status response: requested and transferred lengths at
// 9 and 11 (little endian), buffer counter, speed divider and timeout at 13..15,
// the address in use at 16 and the read pending flag at 25.
func bufferToStatus(buffer []byte) *MCP2221Status {
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
		ReadPending:            int(buffer[25]),
	}
}

// Release ends the current transaction.
func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.inTx = false
	_, err := d.releaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.inTx = false
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	err := d.exchange(ctx, cmdStatus, func(req []byte) { req[2] = cancelTransfer })
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func openHID(id ...int) (io.ReadWriteCloser, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) > 1 && len(id) == 0 {
		return nil, fmt.Errorf("ambiguous device identification")
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("MCP2221 device not found")
	}
	idx := 0
	if len(id) > 0 {
		if id[0] < 0 || id[0] >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", id[0])
		}
		idx = id[0]
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) send(ctx context.Context, response bool, id ...int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, err := d.open(id...)
	if err != nil {
		return err
	}
	log := logctx.Logger(ctx)
	defer func() {
		if err := dev.Close(); err != nil {
			log.DebugContext(ctx, "could not close adapter", "error", err)
		}
	}()
	verbose := logctx.IsVerbose(ctx)
	if verbose {
		log.DebugContext(ctx, "sending message to adapter\n"+hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short write: %d", n)
	}
	if !response {
		return nil
	}
	select {
	case <-time.After(d.responseWait):
	case <-ctx.Done():
		return ctx.Err()
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != 64 {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		log.DebugContext(ctx, "read message from adapter\n"+hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
