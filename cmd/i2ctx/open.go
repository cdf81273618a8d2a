package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/adapter"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/i2c"
	"github.com/mklimuk/i2ctx/logctx"
)

// busContext returns the context commands run in.
func busContext(c *cli.Context) context.Context {
	ctx := logctx.WithLogger(c.Context, slog.Default())
	return logctx.SetVerbose(ctx, cfg.Verbose)
}

// openConn opens the configured adapter. The returned function releases it.
func openConn(ctx context.Context) (i2ctx.Conn, func() error, error) {
	switch cfg.Adapter {
	case "mcp2221":
		a := adapter.NewMCP2221()
		if err := a.Init(ctx); err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if err := a.SetSpeed(ctx, cfg.SpeedHz); err != nil {
			return nil, nil, fmt.Errorf("could not set bus speed: %w", err)
		}
		return a, func() error { return nil }, nil
	case "gobot":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		busNr := -1
		if cfg.Device != "" {
			n, err := strconv.Atoi(cfg.Device)
			if err != nil {
				return nil, nil, fmt.Errorf("gobot bus must be a number: %w", err)
			}
			busNr = n
		}
		bus := i2c.NewGobotBus(npi, busNr)
		return bus, func() error {
			return errors.Join(bus.Close(), npi.I2cBusAdaptor.Finalize())
		}, nil
	default:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if err := bus.SetSpeed(physic.Frequency(cfg.SpeedHz) * physic.Hertz); err != nil {
			slog.Warn("could not set bus speed", "bus", bus.String(), "error", err)
		}
		return bus, bus.Close, nil
	}
}

// withBus opens the configured bus, runs fn and closes the bus again.
func withBus(c *cli.Context, fn func(ctx context.Context, bus i2ctx.Transactor) error) error {
	ctx := busContext(c)
	conn, closeFn, err := openConn(ctx)
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	defer func() {
		if err := closeFn(); err != nil {
			console.Errorf("error closing bus: %s", console.Red(err))
		}
	}()
	var bus i2ctx.Transactor = i2ctx.NewBus(conn)
	if cfg.Async {
		bus = i2ctx.NewAsyncBus(i2c.Async(conn))
	}
	return fn(ctx, bus)
}
