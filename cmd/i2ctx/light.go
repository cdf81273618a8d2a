package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/environment"
)

var lightCmd = cli.Command{
	Name: "light",
	Subcommands: []*cli.Command{
		&lightReadCmd,
	},
}

var lightReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Value: "l",
			Usage: "h or l for the ADDR pin level",
		},
	},
	Action: func(c *cli.Context) error {
		addr := i2ctx.Addr7(environment.BH1750AddrLow)
		if c.String("addr") == "h" {
			addr = environment.BH1750AddrHigh
		}
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			s := environment.NewBH1750(bus, addr)
			lux, err := s.GetLux(ctx)
			if err != nil {
				return console.Exit(1, "error getting light sensor read: %s", console.Red(err))
			}
			console.Printf("%s lux\n", console.White(lux))
			return nil
		})
	},
}
