package accel

import (
	"context"
	"fmt"

	"github.com/mklimuk/i2ctx"
)

const (
	regRange         = 0x22
	regLatch         = 0x1C
	regSlopeSettings = 0x12
	regSlopeDet      = 0x1A
	regWatchdog      = 0x2E
	regInterrupts    = 0x18
)

const DefaultAddress i2ctx.Addr7 = 0x0A

// BMA220 represents Bosh BMA220 accelerometer
type BMA220 struct {
	bus  i2ctx.Transactor
	addr i2ctx.Addr7
}

func NewBMA220(bus i2ctx.Transactor) *BMA220 {
	return &BMA220{bus: bus, addr: DefaultAddress}
}

func (b *BMA220) writeRegister(ctx context.Context, reg, value byte) error {
	return i2ctx.Write(ctx, b.bus, b.addr, i2ctx.Bytes(reg, value))
}

/*
en_slope_x (0x1A.5) enable slope detection on x-axis
en_slope_y (0x1A.4) enable slope detection on y-axis
en_slope_z (0x1A.3) enable slope detection on z-axis
slope_th (0x12[5:2]) define the threshold level of the slope 1 LSB threshold is 1 LSB of acc_data
slope_dur (0x12[1:0]) define the number of consecutive slope data points above slope_th which are required to set the interrupt (“00” = 1,”01” = 2,”10” = 3, “11” = 4)
slope_filt (0x12.6) defines whether filtered or unfiltered acceleration data should be used (evaluated) (‘0’=unfiltered, ‘1’=filtered)
slope_int (0x0C.0) whetherslopeinterrupthasbeentriggered
slope_first_x whether x-axis has triggered the interrupt (0=no, 1=yes)
slope_first_y whether y-axis has triggered the interrupt (0=no, 1=yes)
slope_first_z whether z-axis has triggered the interrupt (0=no, 1=yes)
slope_sign global register bit for all interrupts define the slope sign of the triggering signal (0=positive slope, 1=negative slope)
*/
func (b *BMA220) InitMotionDetection(ctx context.Context) error {
	steps := []struct {
		reg, value byte
		what       string
	}{
		{regRange, 0x03, "set detection sensitivity"},
		// permanent interrupt latch lat_int[2:0] = 111
		{regLatch, 0b01110000, "set interrupt settings"},
		{regSlopeDet, 0b00111000, "enable slope detection"},
		// default 0x45
		{regSlopeSettings, 0x45, "set slope detection settings"},
		{regWatchdog, 0x06, "set watchdog settings"},
	}
	for _, s := range steps {
		if err := b.writeRegister(ctx, s.reg, s.value); err != nil {
			return fmt.Errorf("could not %s: %w", s.what, err)
		}
	}
	return nil
}

// CheckMotionInterrupt reports whether slope detection has fired since the last reset.
func (b *BMA220) CheckMotionInterrupt(ctx context.Context) (bool, error) {
	buf := []byte{0x00}
	err := i2ctx.WriteRead(ctx, b.bus, b.addr, i2ctx.Bytes(regInterrupts), buf)
	if err != nil {
		return false, fmt.Errorf("could not read interrupt register: %w", err)
	}
	// slope detection is on bit 0
	return buf[0]&0x01 != 0, nil
}

func (b *BMA220) ResetMotionInterrupt(ctx context.Context) error {
	err := b.writeRegister(ctx, regLatch, 0b11110000)
	if err != nil {
		return fmt.Errorf("could not set interrupt settings: %w", err)
	}
	return nil
}
