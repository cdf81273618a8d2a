package i2ctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		given    string
		expected Address
	}{
		{"0x50", Addr7(0x50)},
		{"80", Addr7(0x50)},
		{"50h", Addr7(0x50)},
		{" 0X4D ", Addr7(0x4d)},
		{"0b0100011", Addr7(0x23)},
		{"0x27/7", Addr7(0x27)},
		{"0x250/10", Addr10(0x250)},
		{"0x10/10", Addr10(0x10)},
	}
	for _, test := range tests {
		t.Run(test.given, func(t *testing.T) {
			addr, err := ParseAddress(test.given)
			require.NoError(t, err)
			assert.Equal(t, test.expected, addr)
		})
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, given := range []string{"", "0x80", "0x400/10", "zz", "-1", "0x50h"} {
		t.Run(given, func(t *testing.T) {
			_, err := ParseAddress(given)
			assert.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}

func TestAddressOf(t *testing.T) {
	a, err := AddressOf(0x7f)
	require.NoError(t, err)
	assert.Equal(t, Addr7(0x7f), a)
	a, err = AddressOf(0x80)
	require.NoError(t, err)
	assert.Equal(t, Addr10(0x80), a)
	_, err = AddressOf(0x400)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddress_Masking(t *testing.T) {
	assert.Equal(t, uint16(0x50), Addr7(0xd0).BaseAddr())
	assert.False(t, Addr7(0x50).TenBit())
	assert.Equal(t, uint16(0x3ff), Addr10(0xffff).BaseAddr())
	assert.True(t, Addr10(0x50).TenBit())
	assert.Equal(t, "0x50", Addr7(0x50).String())
	assert.Equal(t, "0x250/10", Addr10(0x250).String())
}
