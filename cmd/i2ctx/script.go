package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/script"
)

var scriptCmd = cli.Command{
	Name:      "script",
	Usage:     "run a starlark script against the bus",
	ArgsUsage: "<file.star>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		filename := c.Args().First()
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if _, err := script.Run(ctx, bus, filename, nil); err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			return nil
		})
	},
}
