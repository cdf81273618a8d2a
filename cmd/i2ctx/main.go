package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx/config"
)

var version string
var commit string
var date string

// cfg is loaded before any command runs and adjusted by the global flags.
var cfg = config.Default()

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "i2ctx"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s (%s)", version, date, commit, config.Version)
	app.Usage = "run I2C transactions from the command line"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: []string{"I2CTX_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "bus adapter: periph, gobot or mcp2221",
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Usage:   "bus device (periph bus name or gobot bus number)",
		},
		&cli.UintFlag{
			Name:  "speed",
			Usage: "bus speed in Hz",
		},
		&cli.BoolFlag{
			Name:  "async",
			Usage: "run transactions on the cooperative bus",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if path := ctx.String("config"); path != "" {
			loaded, err := config.Load(path)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			cfg = loaded
		}
		if ctx.IsSet("adapter") {
			cfg.Adapter = ctx.String("adapter")
		}
		if ctx.IsSet("device") {
			cfg.Device = ctx.String("device")
		}
		if ctx.IsSet("speed") {
			cfg.SpeedHz = uint32(ctx.Uint("speed"))
		}
		if ctx.IsSet("async") {
			cfg.Async = ctx.Bool("async")
		}
		if ctx.Bool("verbose") {
			cfg.Verbose = true
		}
		if err := cfg.Validate(); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if cfg.Verbose {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&writeCmd,
		&readCmd,
		&writeReadCmd,
		&txCmd,
		&scanCmd,
		&scriptCmd,
		&eepromCmd,
		&tempReadCmd,
		&lightCmd,
		&airCmd,
		&gpioCmd,
		&motionCmd,
		&potentiometerCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		log.Printf("unexpected error: %v", err)
		return 1
	}
	return 0
}
