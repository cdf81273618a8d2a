package i2ctx

import (
	"fmt"
	"strconv"
	"strings"
)

// Address identifies a target on the bus.
type Address interface {
	BaseAddr() uint16
	TenBit() bool
	String() string
}

// Addr7 is a 7-bit target address.
type Addr7 uint8

func (a Addr7) BaseAddr() uint16 {
	return uint16(a & 0x7f)
}

func (a Addr7) TenBit() bool {
	return false
}

func (a Addr7) String() string {
	return fmt.Sprintf("%#02x", a.BaseAddr())
}

// Addr10 is a 10-bit target address.
type Addr10 uint16

func (a Addr10) BaseAddr() uint16 {
	return uint16(a & 0x03ff)
}

func (a Addr10) TenBit() bool {
	return true
}

func (a Addr10) String() string {
	return fmt.Sprintf("%#03x/10", a.BaseAddr())
}

// AddressOf returns the 7-bit address for values up to 0x7f and the 10-bit one above.
func AddressOf(addr uint16) (Address, error) {
	switch {
	case addr <= 0x7f:
		return Addr7(addr), nil
	case addr <= 0x3ff:
		return Addr10(addr), nil
	}
	return nil, fmt.Errorf("%w: %#x", ErrInvalidAddress, addr)
}

// ParseAddress accepts Go integer literals ("0x50", "80", "0b1010000"), a trailing "h"
// for hex ("50h") and a "/10" suffix selecting 10-bit addressing ("0x250/10").
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	tenBit := false
	if rest, ok := strings.CutSuffix(s, "/10"); ok {
		s, tenBit = rest, true
	} else if rest, ok := strings.CutSuffix(s, "/7"); ok {
		s = rest
	}
	base := 0
	if rest, ok := strings.CutSuffix(s, "h"); ok {
		s, base = rest, 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if tenBit {
		if v > 0x3ff {
			return nil, fmt.Errorf("%w: %#x does not fit 10 bits", ErrInvalidAddress, v)
		}
		return Addr10(v), nil
	}
	if v > 0x7f {
		return nil, fmt.Errorf("%w: %#x does not fit 7 bits", ErrInvalidAddress, v)
	}
	return Addr7(v), nil
}
