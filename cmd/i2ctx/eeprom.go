package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
	"github.com/mklimuk/i2ctx/eeprom"
)

var eepromFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "part",
		Value: "24c02",
		Usage: "memory part: 24c02, 24c04, 24c08 or 24c16",
	},
	&cli.StringFlag{
		Name:  "addr",
		Value: "0x50",
		Usage: "base address or configured device name",
	},
}

var eepromCmd = cli.Command{
	Name:  "eeprom",
	Usage: "access 24Cxx serial memories",
	Subcommands: []*cli.Command{
		&eepromReadCmd,
		&eepromWriteCmd,
		&eepromDumpCmd,
	},
}

var eepromReadCmd = cli.Command{
	Name:      "read",
	ArgsUsage: "<offset> <length>",
	Flags:     eepromFlags,
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		off, err := strconv.ParseInt(c.Args().Get(0), 0, 64)
		if err != nil {
			return console.Exit(1, "invalid offset: %v", err)
		}
		buf, err := readBuffer(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		return withEEPROM(c, func(ctx context.Context, mem *eeprom.EEPROM24) error {
			n, err := mem.ReadAt(ctx, buf, off)
			if err != nil && !errors.Is(err, io.EOF) {
				return console.Exit(1, "read error: %s", console.Red(err))
			}
			console.Print(hex.Dump(buf[:n]))
			return nil
		})
	},
}

var eepromWriteCmd = cli.Command{
	Name:      "write",
	ArgsUsage: "<offset> <hex bytes>",
	Flags:     append([]cli.Flag{yesFlag}, eepromFlags...),
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		off, err := strconv.ParseInt(c.Args().Get(0), 0, 64)
		if err != nil {
			return console.Exit(1, "invalid offset: %v", err)
		}
		data, err := decodeHex(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		if !c.Bool("yes") && !confirm(fmt.Sprintf("write %d bytes at offset %d?", len(data), off)) {
			return nil
		}
		return withEEPROM(c, func(ctx context.Context, mem *eeprom.EEPROM24) error {
			n, err := mem.WriteAt(ctx, data, off)
			if err != nil {
				return console.Exit(1, "write error after %d bytes: %s", n, console.Red(err))
			}
			console.Infof("wrote %s bytes at offset %s", console.White(n), console.White(off))
			return nil
		})
	},
}

var eepromDumpCmd = cli.Command{
	Name:  "dump",
	Usage: "copy the whole memory to a file or stdout",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output file; hex dump to stdout when empty",
		},
	}, eepromFlags...),
	Action: func(c *cli.Context) error {
		return withEEPROM(c, func(ctx context.Context, mem *eeprom.EEPROM24) error {
			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return console.Exit(1, "could not create output: %v", err)
				}
				defer f.Close()
				return dump(ctx, f, mem)
			}
			dumper := hex.Dumper(os.Stdout)
			defer dumper.Close()
			return dump(ctx, dumper, mem)
		})
	},
}

func dump(ctx context.Context, out io.Writer, mem *eeprom.EEPROM24) error {
	n, err := io.Copy(out, mem.File(ctx))
	if err != nil {
		return console.Exit(1, "dump error after %d bytes: %s", n, console.Red(err))
	}
	return nil
}

func withEEPROM(c *cli.Context, fn func(ctx context.Context, mem *eeprom.EEPROM24) error) error {
	conf, ok := eeprom.Configs[c.String("part")]
	if !ok {
		return console.Exit(1, "unknown part %q", c.String("part"))
	}
	base, err := addr7(c.String("addr"))
	if err != nil {
		return console.Exit(1, "%v", err)
	}
	return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
		mem, err := eeprom.New(bus, base, conf)
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		return fn(ctx, mem)
	})
}

// addr7 resolves s and rejects 10-bit addresses, which the sensor drivers cannot use.
func addr7(s string) (i2ctx.Addr7, error) {
	addr, err := cfg.Address(s)
	if err != nil {
		return 0, err
	}
	a, ok := addr.(i2ctx.Addr7)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a 7-bit address", i2ctx.ErrInvalidAddress, addr)
	}
	return a, nil
}
