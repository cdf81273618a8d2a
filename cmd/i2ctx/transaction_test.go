package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/i2ctest"
)

func TestParseSteps(t *testing.T) {
	ops, reads, err := parseSteps([]string{"w:0x1020", "r:2", "w:30", "r:1"})
	require.NoError(t, err)
	require.Len(t, ops, 4)
	require.Len(t, reads, 2)
	assert.True(t, ops[1].(i2ctx.Read).Equal(i2ctx.Read{Buf: reads[0]}))
	assert.Len(t, reads[1], 1)

	mem := i2ctest.NewMemory(0x50, 256, 0)
	mem.Mem[0x20] = 0xAA
	mem.Mem[0x21] = 0xBB
	mem.Mem[0x30] = 0xCC
	err = i2ctx.NewBus(mem).Transaction(context.Background(), i2ctx.Addr7(0x50), i2ctx.Ops(ops...))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, reads[0])
	assert.Equal(t, []byte{0xCC}, reads[1])
}

func TestParseStepsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"x:00"},
		{"w"},
		{"w:0g"},
		{"r:-1"},
		{"r:abc"},
	} {
		_, _, err := parseSteps(args)
		assert.ErrorIs(t, err, errBadStep, "%v", args)
	}
}

func TestDecodeHex(t *testing.T) {
	tests := map[string][]byte{
		"0a0b":   {0x0a, 0x0b},
		"0x0A0B": {0x0a, 0x0b},
		"0a:0b":  {0x0a, 0x0b},
		"":       {},
	}
	for in, want := range tests {
		got, err := decodeHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := decodeHex("abc")
	assert.Error(t, err)
}

func TestWritingCommandsHaveYesFlag(t *testing.T) {
	for _, cmd := range []*cli.Command{&writeCmd, &writeReadCmd, &txCmd} {
		t.Run(cmd.Name, func(t *testing.T) {
			assert.Contains(t, cmd.Flags, cli.Flag(yesFlag))
		})
	}
}
