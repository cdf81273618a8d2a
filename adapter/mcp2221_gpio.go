package adapter

import (
	"context"
	"fmt"
)

// GPIOMode is the direction bit as stored in the GP settings.
type GPIOMode byte

const (
	GPIOModeOut GPIOMode = 0b00000000
	GPIOModeIn  GPIOMode = 0b00001000
	// GPIOModeNoOperation marks a pin assigned to another function.
	GPIOModeNoOperation GPIOMode = 0xEE
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOModeIn:
		return "INPUT"
	case GPIOModeOut:
		return "OUTPUT"
	default:
		return "NOOP"
	}
}

func (m GPIOMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// GPIODesignation selects the pin function. Values other than GPIOOperation mean a
// different function on every pin.
type GPIODesignation byte

const (
	GPIOOperation GPIODesignation = 0b000

	GPIO0LedUartRx GPIODesignation = 0b001
	GPIO0SSPND     GPIODesignation = 0b010

	GPIO1ClockOutput        GPIODesignation = 0b001
	GPIO1ADC1               GPIODesignation = 0b010
	GPIO1LedUartTx          GPIODesignation = 0b011
	GPIO1InterruptDetection GPIODesignation = 0b100

	GPIO2ClockOutput GPIODesignation = 0b001
	GPIO2ADC2        GPIODesignation = 0b010
	GPIO2DAC1        GPIODesignation = 0b011

	GPIO3LEDI2C GPIODesignation = 0b001
	GPIO3ADC3   GPIODesignation = 0b010
	GPIO3DAC2   GPIODesignation = 0b011
)

const (
	gpioModeMask        = 0b00001000
	gpioDesignationMask = 0b00000111
	gpSettingsSubcode   = 0x01
)

// GPIOPin is the state of one GP pin.
type GPIOPin struct {
	Mode  GPIOMode `yaml:"mode"`
	Value byte     `yaml:"value"`
}

// MCP2221GPIOValues holds GP0..GP3.
type MCP2221GPIOValues [4]GPIOPin

// GPIOSetting is the power-up configuration of one GP pin.
type GPIOSetting struct {
	Mode        GPIOMode        `yaml:"mode"`
	Designation GPIODesignation `yaml:"designation"`
}

// MCP2221GPIOParameters holds the flash settings of GP0..GP3.
type MCP2221GPIOParameters [4]GPIOSetting

// ReadGPIO returns the current level and direction of every GP pin.
func (d *MCP2221) ReadGPIO(ctx context.Context, id ...int) (MCP2221GPIOValues, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	var res MCP2221GPIOValues
	if err := d.exchange(ctx, cmdGPIOGet, nil, id...); err != nil {
		return res, fmt.Errorf("read GPIO values command write failed: %w", err)
	}
	if d.rejected() {
		return res, ErrCommandFailed
	}
	for i := range res {
		value, direction := d.response[2+2*i], d.response[3+2*i]
		res[i] = GPIOPin{Mode: GPIOModeNoOperation, Value: value}
		if direction != byte(GPIOModeNoOperation) {
			res[i].Mode = GPIOMode(direction << 3)
		}
	}
	return res, nil
}

// Read returns the GP pin levels.
func (d *MCP2221) Read(ctx context.Context, id ...int) ([]byte, error) {
	res, err := d.ReadGPIO(ctx, id...)
	if err != nil {
		return nil, err
	}
	levels := make([]byte, len(res))
	for i, pin := range res {
		levels[i] = pin.Value
	}
	return levels, nil
}

// SetGPIO drives output pin gp (0..3) to level.
func (d *MCP2221) SetGPIO(ctx context.Context, gp int, level bool) error {
	if gp < 0 || gp > 3 {
		return fmt.Errorf("no GP%d on the adapter", gp)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.exchange(ctx, cmdGPIOSet, func(req []byte) {
		req[2+4*gp] = 1
		if level {
			req[3+4*gp] = 1
		}
	})
	if err != nil {
		return fmt.Errorf("set GPIO command write failed: %w", err)
	}
	if d.rejected() {
		return ErrCommandFailed
	}
	return nil
}

func (d *MCP2221) GetGPIOParameters(ctx context.Context) (MCP2221GPIOParameters, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	var params MCP2221GPIOParameters
	err := d.exchange(ctx, cmdReadFlash, func(req []byte) { req[1] = gpSettingsSubcode })
	if err != nil {
		return params, fmt.Errorf("get GP parameters command write failed: %w", err)
	}
	if d.rejected() {
		return params, ErrCommandUnsupported
	}
	for i := range params {
		b := d.response[4+i]
		params[i] = GPIOSetting{
			Mode:        GPIOMode(b & gpioModeMask),
			Designation: GPIODesignation(b & gpioDesignationMask),
		}
	}
	return params, nil
}

func (d *MCP2221) SetGPIOParameters(ctx context.Context, params MCP2221GPIOParameters) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	err := d.exchange(ctx, cmdWriteFlash, func(req []byte) {
		req[1] = gpSettingsSubcode
		for i, p := range params {
			req[2+i] = byte(p.Designation) | byte(p.Mode)
		}
	})
	if err != nil {
		return fmt.Errorf("set GP parameters command write failed: %w", err)
	}
	if d.rejected() {
		return ErrCommandFailed
	}
	return nil
}
