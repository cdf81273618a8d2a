package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2ctx"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "i2ctx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
adapter: mcp2221
verbose: true
devices:
  eeprom:
    address: 0x50
    kind: 24c02
  far:
    address: 0x2a5/10
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mcp2221", c.Adapter)
	assert.Equal(t, uint32(100_000), c.SpeedHz)
	assert.True(t, c.Verbose)

	addr, err := c.Address("eeprom")
	require.NoError(t, err)
	assert.Equal(t, i2ctx.Addr7(0x50), addr)

	addr, err = c.Address("far")
	require.NoError(t, err)
	assert.Equal(t, i2ctx.Addr10(0x2a5), addr)

	addr, err = c.Address("0x48")
	require.NoError(t, err)
	assert.Equal(t, i2ctx.Addr7(0x48), addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown adapter", "adapter: ftdi\n"},
		{"zero speed", "speed_hz: 0\n"},
		{"bad device address", "devices:\n  x:\n    address: 0x80\n"},
		{"unknown field", "adaptor: periph\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeFile(t, test.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite_RoundTrip(t *testing.T) {
	c := Default()
	c.Devices = map[string]Device{"temp": {Address: "0x4d", Kind: "tc74"}}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, c.Write(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
