package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/air"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
)

var airCmd = cli.Command{
	Name: "air",
	Subcommands: []*cli.Command{
		&airReadCmd,
		&airCalibrateCmd,
	},
}

var airCalibrateCmd = cli.Command{
	Name: "calibrate",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			s := air.NewAGS02MA(bus)
			defer s.Close(ctx)
			if err := s.Calibrate(ctx); err != nil {
				return console.Exit(1, "error calibrating: %s", console.Red(err))
			}
			console.Printf("calibrated\n")
			return nil
		})
	},
}

var airReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "register",
			Usage: "select the data register before reading",
		},
		&cli.BoolFlag{
			Name:  "info",
			Usage: "also print firmware version and sensor resistance",
		},
	},
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			s := air.NewAGS02MA(bus)
			defer s.Close(ctx)
			if c.Bool("info") {
				ver, err := s.ReadVersion(ctx)
				if err != nil {
					return console.Exit(1, "error reading version: %s", console.Red(err))
				}
				resistance, err := s.ReadResistance(ctx)
				if err != nil {
					return console.Exit(1, "error reading resistance: %s", console.Red(err))
				}
				console.Printf("resistance: %d\n", resistance)
				console.Printf("version: %d\n", ver)
			}
			read := s.GetTVOCDirectRead
			if c.Bool("register") {
				read = s.GetTVOCWithRegisterWrite
			}
			ppb, err := read(ctx)
			if err != nil {
				return console.Exit(1, "error getting TVOC read: %s", console.Red(err))
			}
			console.Printf("%d ppb\n", ppb)
			return nil
		})
	},
}
