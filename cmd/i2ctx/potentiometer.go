package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/potentiometer"
)

// knob addresses of the amplifier board
var mcp4661Addresses = []i2ctx.Addr7{0b0101000, 0b0101001, 0b0101010, 0b0101011, 0b0101100, 0b0101101}

var potentiometerGetCmd = cli.Command{
	Name:  "get",
	Usage: "get potentiometer values",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			for i, addr := range mcp4661Addresses {
				val, err := potentiometer.NewMCP4661(bus, addr).Get(ctx, potentiometer.AddrVolatileWiper0)
				if err != nil {
					slog.Error("knob read error", "knob", i, "addr", addr, "error", err)
					continue
				}
				console.Printf("knob %s (addr %s) value: %s\n", console.White(i), console.White(addr), console.White(val))
			}
			return nil
		})
	},
}

var potentiometerSetCmd = cli.Command{
	Name:      "set",
	Usage:     "set amplifier knob values",
	ArgsUsage: "<knob index 0-5> <value 0-256>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		knobIdx, err := strconv.Atoi(c.Args().Get(0))
		if err != nil || knobIdx < 0 || knobIdx >= len(mcp4661Addresses) {
			return console.Exit(1, "invalid knob index: %s", c.Args().Get(0))
		}
		val, err := strconv.ParseUint(c.Args().Get(1), 0, 16)
		if err != nil {
			return console.Exit(1, "invalid value: %s", c.Args().Get(1))
		}
		addr := mcp4661Addresses[knobIdx]
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			err := potentiometer.NewMCP4661(bus, addr).Set(ctx, potentiometer.AddrVolatileWiper0, uint16(val))
			if err != nil {
				return fmt.Errorf("knob %d (addr %s) write error: %w", knobIdx, addr, err)
			}
			console.Printf("knob %s (addr %s) set to %s\n", console.White(knobIdx), console.White(addr), console.White(val))
			return nil
		})
	},
}

var potentiometerCmd = cli.Command{
	Name:    "potentiometer",
	Aliases: []string{"pot"},
	Usage:   "control potentiometer",
	Subcommands: []*cli.Command{
		&potentiometerGetCmd,
		&potentiometerSetCmd,
	},
}
