package environment

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/i2ctx"
)

const tc74DefaultAddress = 0x4D
const tc74TempRegister = 0x00
const tc74ConfigRegister = 0x01

// tc74DataReady is the DATA_RDY bit of the config register.
const tc74DataReady = 0x40

// ErrUnsupported is returned for readings a sensor cannot provide.
var ErrUnsupported = fmt.Errorf("measurement not supported: %w", errors.ErrUnsupported)

// TC74 represents a Microchip TC74 Digital Temperature Sensor
// See: https://ww1.microchip.com/downloads/en/DeviceDoc/21462D.pdf
//
// Usage: Instantiate with NewTC74, then call GetTemperature(ctx)
type TC74 struct {
	bus      i2ctx.Transactor
	address  i2ctx.Addr7
	lastTemp float32
}

type TC74Config struct {
	Address i2ctx.Addr7
}

type TC74ConfigOption func(*TC74Config)

func WithAddress(address i2ctx.Addr7) TC74ConfigOption {
	return func(c *TC74Config) {
		c.Address = address
	}
}

// NewTC74 creates a new TC74 sensor on the given bus. The default address 0x4D can be
// changed with WithAddress.
func NewTC74(bus i2ctx.Transactor, opts ...TC74ConfigOption) *TC74 {
	config := &TC74Config{
		Address: tc74DefaultAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &TC74{bus: bus, address: config.Address}
}

// GetConfig reads the configuration register (0x01) and returns its value.
func (sensor *TC74) GetConfig(ctx context.Context) (byte, error) {
	resp := make([]byte, 1)
	err := i2ctx.WriteRead(ctx, sensor.bus, sensor.address, i2ctx.Bytes(tc74ConfigRegister), resp)
	if err != nil {
		return 0, fmt.Errorf("tc74: could not read config register: %w", err)
	}
	return resp[0], nil
}

// GetTemperature reads the current temperature in Celsius. Until the first conversion
// is ready the last known value is returned.
func (sensor *TC74) GetTemperature(ctx context.Context) (float32, error) {
	config, err := sensor.GetConfig(ctx)
	if err != nil {
		return 0, err
	}
	if config&tc74DataReady == 0 {
		return sensor.lastTemp, nil
	}
	resp := make([]byte, 1)
	err = i2ctx.WriteRead(ctx, sensor.bus, sensor.address, i2ctx.Bytes(tc74TempRegister), resp)
	if err != nil {
		return 0, fmt.Errorf("tc74: could not read temp register: %w", err)
	}
	// 2's complement
	sensor.lastTemp = float32(int8(resp[0]))
	return sensor.lastTemp, nil
}

// GetHumidity is not supported by TC74.
func (sensor *TC74) GetHumidity(ctx context.Context) (float32, error) {
	return 0, fmt.Errorf("tc74: %w", ErrUnsupported)
}
