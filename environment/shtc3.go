package environment

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sigurn/crc8"

	"github.com/mklimuk/i2ctx"
)

// SHTC3 I2C address (7-bit)
const shtc3Address i2ctx.Addr7 = 0x70

// Commands (Big Endian on the wire)
const (
	shtc3CmdWake  uint16 = 0x3517
	shtc3CmdSleep uint16 = 0xB098

	// Normal power, clock stretching disabled
	// Measure T first, then RH
	shtc3CmdMeasureTFirstNoCS uint16 = 0x7866
)

// SHTC3 represents Sensirion SHTC3 Temperature/Humidity sensor
// Typical usage:
//
//	s := NewSHTC3(bus)
//	t, h, err := s.GetTempAndHum(ctx)
type SHTC3 struct {
	bus         i2ctx.Transactor
	lastTemp    float32
	lastHum     float32
	wakeWait    time.Duration
	measureWait time.Duration
}

func NewSHTC3(bus i2ctx.Transactor) *SHTC3 {
	return &SHTC3{
		bus: bus,
		// typical wake time is < 240us
		wakeWait: time.Millisecond,
		// typical measurement time ~12.1 ms in normal mode
		measureWait: 15 * time.Millisecond,
	}
}

// GetTemperature performs a single measurement and returns temperature in Celsius.
func (s *SHTC3) GetTemperature(ctx context.Context) (float32, error) {
	if err := s.measure(ctx); err != nil {
		return 0, err
	}
	return s.lastTemp, nil
}

// GetHumidity performs a single measurement and returns relative humidity in %RH.
func (s *SHTC3) GetHumidity(ctx context.Context) (float32, error) {
	if err := s.measure(ctx); err != nil {
		return 0, err
	}
	return s.lastHum, nil
}

// GetTempAndHum performs a single measurement and returns temperature and humidity.
func (s *SHTC3) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	if err := s.measure(ctx); err != nil {
		return 0, 0, err
	}
	return s.lastTemp, s.lastHum, nil
}

func (s *SHTC3) measure(ctx context.Context) error {
	if err := s.writeCmd(ctx, shtc3CmdWake); err != nil {
		return fmt.Errorf("shtc3: wake failed: %w", err)
	}
	if err := sleep(ctx, s.wakeWait); err != nil {
		return err
	}
	if err := s.writeCmd(ctx, shtc3CmdMeasureTFirstNoCS); err != nil {
		return fmt.Errorf("shtc3: measure command failed: %w", err)
	}
	if err := sleep(ctx, s.measureWait); err != nil {
		return err
	}

	// T[0:2], CRC, RH[3:5], CRC
	buf := make([]byte, 6)
	if err := i2ctx.ReadInto(ctx, s.bus, shtc3Address, buf); err != nil {
		return fmt.Errorf("shtc3: read failed: %w", err)
	}
	if shtCRC8(buf[0:2]) != buf[2] {
		return fmt.Errorf("shtc3: temperature CRC mismatch")
	}
	if shtCRC8(buf[3:5]) != buf[5] {
		return fmt.Errorf("shtc3: humidity CRC mismatch")
	}

	rawT := binary.BigEndian.Uint16(buf[0:2])
	rawRH := binary.BigEndian.Uint16(buf[3:5])

	// T(C) = -45 + 175 * rawT / 65535
	// RH(%) = 100 * rawRH / 65535
	s.lastTemp = -45.0 + (175.0 * float32(rawT) / 65535.0)
	s.lastHum = 100.0 * float32(rawRH) / 65535.0

	if err := s.writeCmd(ctx, shtc3CmdSleep); err != nil {
		return fmt.Errorf("shtc3: sleep failed: %w", err)
	}
	return nil
}

func (s *SHTC3) writeCmd(ctx context.Context, cmd uint16) error {
	return i2ctx.Write(ctx, s.bus, shtc3Address, i2ctx.Uint16BE(cmd))
}

// Sensirion CRC-8: polynomial 0x31, init 0xFF, no reflection
var shtCRC = crc8.MakeTable(crc8.Params{Poly: 0x31, Init: 0xFF, Check: 0xF7, Name: "CRC-8/NRSC-5"})

func shtCRC8(data []byte) byte {
	return crc8.Checksum(data, shtCRC)
}
