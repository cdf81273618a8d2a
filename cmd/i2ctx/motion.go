package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/accel"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
)

var motionCmd = cli.Command{
	Name:  "motion",
	Usage: "BMA220 motion detection",
	Subcommands: []*cli.Command{
		&motionInitCmd,
		&motionCheckCmd,
		&motionResetCmd,
	},
}

var motionInitCmd = cli.Command{
	Name: "init",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			if err := accel.NewBMA220(bus).InitMotionDetection(ctx); err != nil {
				return console.Exit(1, "error initializing BMA220: %s", console.Red(err))
			}
			return nil
		})
	},
}

var motionCheckCmd = cli.Command{
	Name: "check",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			motion, err := accel.NewBMA220(bus).CheckMotionInterrupt(ctx)
			if err != nil {
				return console.Exit(1, "error checking motion detection on BMA220: %s", console.Red(err))
			}
			if motion {
				console.Printf("motion interrupt: %s\n", console.Yellow(motion))
			} else {
				console.Printf("motion interrupt: %s\n", console.Green(motion))
			}
			return nil
		})
	},
}

var motionResetCmd = cli.Command{
	Name: "reset",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			if err := accel.NewBMA220(bus).ResetMotionInterrupt(ctx); err != nil {
				return console.Exit(1, "error resetting motion detection on BMA220: %s", console.Red(err))
			}
			return nil
		})
	},
}
