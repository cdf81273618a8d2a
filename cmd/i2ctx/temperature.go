package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/environment"
)

var tempReadCmd = cli.Command{
	Name:    "temperature",
	Aliases: []string{"temp"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "sensor",
			Aliases: []string{"s"},
			Value:   "hih6021",
			Usage:   "tc74, hih6021 or shtc3",
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "tc74 address or configured device name",
		},
	},
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			switch c.String("sensor") {
			case "tc74":
				var opts []environment.TC74ConfigOption
				if c.IsSet("addr") {
					addr, err := addr7(c.String("addr"))
					if err != nil {
						return console.Exit(1, "%v", err)
					}
					opts = append(opts, environment.WithAddress(addr))
				}
				s := environment.NewTC74(bus, opts...)
				temp, err := s.GetTemperature(ctx)
				if err != nil {
					return console.Exit(1, "error getting temperature read: %s", console.Red(err))
				}
				console.Printf("%s %s\n", console.PictoThermometer, console.White(temp))
			case "hih6021":
				s := environment.NewHIH6021(bus)
				temp, hum, err := s.GetTempAndHum(ctx)
				if err != nil {
					return console.Exit(1, "error getting temperature read: %s", console.Red(err))
				}
				console.Printf("%s  %s\n%s %s\n", console.PictoThermometer, console.White(temp), console.PictoHumidity, console.White(hum))
			case "shtc3":
				s := environment.NewSHTC3(bus)
				temp, hum, err := s.GetTempAndHum(ctx)
				if err != nil {
					return console.Exit(1, "error getting temperature read: %s", console.Red(err))
				}
				console.Printf("%s  %s\n%s %s\n", console.PictoThermometer, console.White(temp), console.PictoHumidity, console.White(hum))
			default:
				return console.Exit(1, "unknown sensor %q", c.String("sensor"))
			}
			return nil
		})
	},
}
