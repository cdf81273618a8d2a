// Package air drives air quality sensors.
package air

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sigurn/crc8"

	"github.com/mklimuk/i2ctx"
)

// The datasheet's 0x34/0x35 write and read instructions are this address on the wire.
const ags02maAddress i2ctx.Addr7 = 0x1A

const (
	regTVOC       byte = 0x00
	regCalibrate  byte = 0x01
	regVersion    byte = 0x11
	regResistance byte = 0x20
)

// status bit 0 is set until the sensor is ready or while it pre-heats
const statusBitRDY = 0x01

var ErrNotReady = errors.New("ags02ma: data not ready or sensor in pre-heat stage")

var ErrChecksum = errors.New("ags02ma: crc mismatch")

var crcTable = crc8.MakeTable(crc8.Params{
	Poly: 0x31,
	Init: 0xFF,
	Name: "CRC-8/NRSC-5",
})

const (
	TVOCModeDirectRead    byte = 0x00
	TVOCModeRegisterWrite byte = 0x01
)

type AGS02MAOpts struct {
	// ConfigureDelay is the quiet time after Configure.
	ConfigureDelay time.Duration
	// ReadDelay is the quiet time after a measurement or calibration.
	ReadDelay time.Duration
	// TxDelay separates a register select from the read that follows it.
	TxDelay  time.Duration
	TVOCMode byte
}

type AGS02MAOpt func(*AGS02MAOpts)

func WithConfigureDelay(delay time.Duration) AGS02MAOpt {
	return func(o *AGS02MAOpts) { o.ConfigureDelay = delay }
}

func WithReadDelay(delay time.Duration) AGS02MAOpt {
	return func(o *AGS02MAOpts) { o.ReadDelay = delay }
}

func WithTxDelay(delay time.Duration) AGS02MAOpt {
	return func(o *AGS02MAOpts) { o.TxDelay = delay }
}

func WithTVOCMode(mode byte) AGS02MAOpt {
	return func(o *AGS02MAOpts) { o.TVOCMode = mode }
}

// AGS02MA is the Aosong TVOC sensor. It needs a slow bus (<= 30 kHz).
//
//	s := NewAGS02MA(bus)
//	ppb, err := s.GetTVOC(ctx)
//
// Calls are serialised and each one first waits out the quiet time the previous
// call left behind.
type AGS02MA struct {
	mx      sync.Mutex
	readyAt time.Time
	config  AGS02MAOpts
	bus     i2ctx.Transactor
	addr    i2ctx.Addr7
	buf     [5]byte
}

func NewAGS02MA(bus i2ctx.Transactor, opts ...AGS02MAOpt) *AGS02MA {
	config := AGS02MAOpts{
		ConfigureDelay: 2 * time.Second,
		ReadDelay:      1500 * time.Millisecond,
		TxDelay:        100 * time.Millisecond,
		TVOCMode:       TVOCModeDirectRead,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &AGS02MA{config: config, bus: bus, addr: ags02maAddress}
}

// acquire locks the sensor once its quiet time is over.
func (s *AGS02MA) acquire(ctx context.Context) error {
	s.mx.Lock()
	if err := wait(ctx, time.Until(s.readyAt)); err != nil {
		s.mx.Unlock()
		return err
	}
	return nil
}

// release unlocks the sensor and keeps it quiet for d.
func (s *AGS02MA) release(d time.Duration) {
	s.readyAt = time.Now().Add(d)
	s.mx.Unlock()
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits until the sensor may be addressed again.
func (s *AGS02MA) Close(ctx context.Context) {
	if s.acquire(ctx) == nil {
		s.release(0)
	}
}

func (s *AGS02MA) Configure(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	err := i2ctx.Write(ctx, s.bus, s.addr, i2ctx.Bytes(regTVOC, 0x00, 0xFF, 0x00, 0xFF, 0x30))
	if err != nil {
		s.release(0)
		return fmt.Errorf("ags02ma: configuration write failed: %w", err)
	}
	s.release(s.config.ConfigureDelay)
	return nil
}

// GetTVOC returns the TVOC level in ppb using the configured TVOCMode.
func (s *AGS02MA) GetTVOC(ctx context.Context) (uint32, error) {
	if s.config.TVOCMode == TVOCModeDirectRead {
		return s.GetTVOCDirectRead(ctx)
	}
	return s.GetTVOCWithRegisterWrite(ctx)
}

// GetTVOCDirectRead reads the data register without selecting it first. The
// sensor answers with a status byte and a 24-bit big-endian ppb value.
func (s *AGS02MA) GetTVOCDirectRead(ctx context.Context) (uint32, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	if err := i2ctx.ReadInto(ctx, s.bus, s.addr, s.buf[:]); err != nil {
		s.release(0)
		return 0, fmt.Errorf("ags02ma: read failed: %w", err)
	}
	ppb, err := s.tvoc()
	s.release(s.config.ReadDelay)
	return ppb, err
}

// GetTVOCWithRegisterWrite selects the data register before reading it.
func (s *AGS02MA) GetTVOCWithRegisterWrite(ctx context.Context) (uint32, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	if err := s.readRegister(ctx, regTVOC); err != nil {
		s.release(0)
		return 0, err
	}
	ppb, err := s.tvoc()
	s.release(s.config.ReadDelay)
	return ppb, err
}

func (s *AGS02MA) tvoc() (uint32, error) {
	if s.buf[0]&statusBitRDY != 0 {
		return 0, ErrNotReady
	}
	return uint32(s.buf[1])<<16 | uint32(s.buf[2])<<8 | uint32(s.buf[3]), nil
}

func (s *AGS02MA) ReadVersion(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release(0)
	if err := s.readRegister(ctx, regVersion); err != nil {
		return 0, err
	}
	return int(s.buf[3]), nil
}

func (s *AGS02MA) ReadResistance(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	if err := s.readRegister(ctx, regResistance); err != nil {
		s.release(0)
		return 0, err
	}
	s.release(s.config.ReadDelay)
	return int(s.buf[3]), nil
}

func (s *AGS02MA) Calibrate(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	if err := s.readRegister(ctx, regCalibrate); err != nil {
		s.release(0)
		return err
	}
	s.release(s.config.ReadDelay)
	return nil
}

// readRegister selects reg and reads 4 data bytes and their CRC into s.buf. The
// sensor needs TxDelay between the two, so they are separate transactions.
func (s *AGS02MA) readRegister(ctx context.Context, reg byte) error {
	if err := i2ctx.Write(ctx, s.bus, s.addr, i2ctx.Bytes(reg)); err != nil {
		return fmt.Errorf("ags02ma: write reg 0x%02x failed: %w", reg, err)
	}
	if err := wait(ctx, s.config.TxDelay); err != nil {
		return err
	}
	if err := i2ctx.ReadInto(ctx, s.bus, s.addr, s.buf[:]); err != nil {
		return fmt.Errorf("ags02ma: read failed: %w", err)
	}
	if crc := crc8.Checksum(s.buf[:4], crcTable); crc != s.buf[4] {
		return fmt.Errorf("%w: expected %#x, got %#x", ErrChecksum, s.buf[4], crc)
	}
	return nil
}
