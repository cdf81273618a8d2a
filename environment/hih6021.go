package environment

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mklimuk/i2ctx"
)

const hih6021Address i2ctx.Addr7 = 0x27

var divider = float32(1<<14 - 2)

var ErrStaleData = fmt.Errorf("stale data")
var ErrCommandMode = fmt.Errorf("device in command mode")

// HIH6021 represents Honywell HumidIcon Digital Humidity/Temperature sensor
type HIH6021 struct {
	bus      i2ctx.Transactor
	lastTemp float32
	lastHum  float32
	// measurement cycle takes typically 36.65ms
	wait time.Duration
}

func NewHIH6021(bus i2ctx.Transactor) *HIH6021 {
	return &HIH6021{bus: bus, wait: 50 * time.Millisecond}
}

func (sensor *HIH6021) GetTemperature(ctx context.Context) (float32, error) {
	err := sensor.measure(ctx)
	return sensor.lastTemp, err
}

func (sensor *HIH6021) GetHumidity(ctx context.Context) (float32, error) {
	err := sensor.measure(ctx)
	return sensor.lastHum, err
}

func (sensor *HIH6021) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	err := sensor.measure(ctx)
	return sensor.lastTemp, sensor.lastHum, err
}

func (sensor *HIH6021) measure(ctx context.Context) error {
	// an address-only write starts a measurement
	err := i2ctx.Write(ctx, sensor.bus, hih6021Address, nil)
	if err != nil {
		return fmt.Errorf("could not write measurement request to device: %w", err)
	}
	if err := sleep(ctx, sensor.wait); err != nil {
		return err
	}
	resp := make([]byte, 4)
	err = i2ctx.ReadInto(ctx, sensor.bus, hih6021Address, resp)
	if err != nil {
		return fmt.Errorf("could not read measurement from device: %w", err)
	}
	if resp[0]&0x80 > 0 {
		return ErrCommandMode
	}
	if resp[0]&0x40 > 0 {
		// data has already been fetched since last measurement or fetched before the first
		// measurement completed
		return ErrStaleData
	}
	sensor.lastHum = convertHumidity(resp[0:2])
	sensor.lastTemp = convertTemperature(resp[2:4])
	return nil
}

func convertHumidity(resp []byte) float32 {
	hum := float32(binary.BigEndian.Uint16(resp)) / divider * 100
	if hum > 100.00 {
		return 100.00
	}
	return hum
}

func convertTemperature(resp []byte) float32 {
	shift := resp[0] & 0x03
	shift <<= 6
	lsb := (resp[1] >> 2) | shift
	msb := resp[0] >> 2
	return float32(binary.BigEndian.Uint16([]byte{msb, lsb}))/divider*165 - 40
}
