package environment

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mklimuk/i2ctx"
)

const BH1750AddrHigh = 0b1011100
const BH1750AddrLow = 0b0100011

const (
	opCodeSingleLowResolution = 0b00100011
)

type BH1750 struct {
	bus  i2ctx.Transactor
	addr i2ctx.Addr7
	buf  []byte
	// measurement cycle takes typically 16ms, max time is 24ms
	wait time.Duration
}

func NewBH1750(bus i2ctx.Transactor, addr i2ctx.Addr7) *BH1750 {
	return &BH1750{
		addr: addr,
		bus:  bus,
		buf:  make([]byte, 2),
		wait: 25 * time.Millisecond,
	}
}

func (sensor *BH1750) GetLux(ctx context.Context) (int, error) {
	err := i2ctx.Write(ctx, sensor.bus, sensor.addr, i2ctx.Bytes(opCodeSingleLowResolution))
	if err != nil {
		return 0, fmt.Errorf("could not write command: %w", err)
	}
	if err := sleep(ctx, sensor.wait); err != nil {
		return 0, err
	}
	err = i2ctx.ReadInto(ctx, sensor.bus, sensor.addr, sensor.buf)
	if err != nil {
		return 0, fmt.Errorf("could not read data: %w", err)
	}
	res := float32(binary.BigEndian.Uint16(sensor.buf)) / 1.2
	return int(res), nil
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
