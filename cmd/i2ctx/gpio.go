package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/gpio"
)

var gpioCmd = cli.Command{
	Name:  "gpio",
	Usage: "MCP23017 port expander",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Value: "0x21",
			Usage: "expander address or configured device name",
		},
	},
	Subcommands: []*cli.Command{
		&gpioStatusCmd,
		&gpioReadCmd,
		&gpioConfigureCmd,
		&gpioPullCmd,
	},
}

// withExpander runs fn with a five second deadline, like the expander
// commands always did.
func withExpander(c *cli.Context, fn func(ctx context.Context, exp *gpio.MCP23017) error) error {
	addr, err := addr7(c.String("addr"))
	if err != nil {
		return console.Exit(1, "could not decode address: %v", err)
	}
	return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return fn(ctx, gpio.NewMCP23017(bus, addr))
	})
}

func byteArg(c *cli.Context) (byte, error) {
	if c.NArg() != 1 {
		return 0, console.Exit(1, "expected 1 argument, got %d", c.NArg())
	}
	data, err := decodeHex(c.Args().First())
	if err != nil || len(data) != 1 {
		return 0, console.Exit(1, "could not decode data: expected one hex byte")
	}
	return data[0], nil
}

var gpioReadCmd = cli.Command{
	Name: "read",
	Action: func(c *cli.Context) error {
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			if err := exp.InitA(ctx, 0xFF); err != nil {
				return console.Exit(1, "could not initialize gpio: %v", err)
			}
			a, err := exp.ReadA(ctx)
			if err != nil {
				return console.Exit(1, "could not read gpio A: %v", err)
			}
			console.Printf("\nI/O A: %#X\n", a)
			b, err := exp.ReadB(ctx)
			if err != nil {
				return console.Exit(1, "could not read gpio B: %v", err)
			}
			console.Printf("\nI/O B: %#X\n", b)
			return nil
		})
	},
}

var gpioStatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			data, err := exp.ReadSettingsA(ctx)
			if err != nil {
				return console.Exit(1, "could not read settings: %v", err)
			}
			console.Printf("\nIOCON content: %#X\n", data)
			return nil
		})
	},
}

var gpioConfigureCmd = cli.Command{
	Name:      "configure",
	ArgsUsage: "<iocon hex byte>",
	Action: func(c *cli.Context) error {
		value, err := byteArg(c)
		if err != nil {
			return err
		}
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			if err := exp.WriteSettingsA(ctx, value); err != nil {
				return console.Exit(1, "could not write settings: %v", err)
			}
			console.Printf("\nWrote IOCON content: %#X\n", value)
			return nil
		})
	},
}

var gpioPullCmd = cli.Command{
	Name:      "pull",
	ArgsUsage: "<gppu hex byte>",
	Action: func(c *cli.Context) error {
		value, err := byteArg(c)
		if err != nil {
			return err
		}
		return withExpander(c, func(ctx context.Context, exp *gpio.MCP23017) error {
			if err := exp.PullUpA(ctx, value); err != nil {
				return console.Exit(1, "could not write pull up settings: %v", err)
			}
			console.Printf("\nWrote GPPU content: %#X\n", value)
			return nil
		})
	},
}
