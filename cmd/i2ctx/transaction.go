package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2ctx"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
)

var errBadStep = errors.New("invalid transaction step")

var yesFlag = &cli.BoolFlag{
	Name:    "yes",
	Aliases: []string{"y"},
	Usage:   "do not ask for confirmation before writing",
}

var writeCmd = cli.Command{
	Name:      "write",
	Aliases:   []string{"w"},
	Usage:     "write bytes to a target",
	ArgsUsage: "<address> <hex bytes>",
	Flags:     []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		addr, err := cfg.Address(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		data, err := decodeHex(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		if !c.Bool("yes") && !confirm(fmt.Sprintf("write %d bytes to %s?", len(data), addr)) {
			return nil
		}
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			if err := i2ctx.Write(ctx, bus, addr, i2ctx.Bytes(data...)); err != nil {
				return console.Exit(1, "write error: %s", console.Red(err))
			}
			console.Infof("wrote %s bytes to %s", console.White(len(data)), console.White(addr))
			return nil
		})
	},
}

var readCmd = cli.Command{
	Name:      "read",
	Aliases:   []string{"r"},
	Usage:     "read bytes from a target",
	ArgsUsage: "<address> <length>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		addr, err := cfg.Address(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		buf, err := readBuffer(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			if err := i2ctx.ReadInto(ctx, bus, addr, buf); err != nil {
				return console.Exit(1, "read error: %s", console.Red(err))
			}
			console.Print(hex.Dump(buf))
			return nil
		})
	},
}

var writeReadCmd = cli.Command{
	Name:      "wr",
	Usage:     "write bytes then read with a repeated start",
	ArgsUsage: "<address> <hex bytes> <length>",
	Flags:     []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() != 3 {
			return console.Exit(1, "expected 3 arguments, got %d", c.NArg())
		}
		addr, err := cfg.Address(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		data, err := decodeHex(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		buf, err := readBuffer(c.Args().Get(2))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		if !c.Bool("yes") && !confirm(fmt.Sprintf("write %d bytes to %s and read %d?", len(data), addr, len(buf))) {
			return nil
		}
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			if err := i2ctx.WriteRead(ctx, bus, addr, i2ctx.Bytes(data...), buf); err != nil {
				return console.Exit(1, "write-read error: %s", console.Red(err))
			}
			console.Print(hex.Dump(buf))
			return nil
		})
	},
}

var txCmd = cli.Command{
	Name:      "tx",
	Usage:     "run a transaction made of write (w:<hex>) and read (r:<length>) steps",
	ArgsUsage: "<address> <step>...",
	Flags:     []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return console.Exit(1, "expected an address and at least one step")
		}
		addr, err := cfg.Address(c.Args().First())
		if err != nil {
			return console.Exit(1, "could not decode address: %v", err)
		}
		ops, reads, err := parseSteps(c.Args().Tail())
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		if len(reads) < len(ops) && !c.Bool("yes") && !confirm(fmt.Sprintf("run %d steps on %s?", len(ops), addr)) {
			return nil
		}
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			if err := bus.Transaction(ctx, addr, i2ctx.Ops(ops...)); err != nil {
				return console.Exit(1, "transaction error: %s", console.Red(err))
			}
			for i, r := range reads {
				console.Infof("read %d:", i)
				console.Print(hex.Dump(r))
			}
			return nil
		})
	},
}

// parseSteps turns "w:0a0b" and "r:4" arguments into operations. The returned
// buffers back the read steps in order.
func parseSteps(args []string) ([]i2ctx.Operation, [][]byte, error) {
	ops := make([]i2ctx.Operation, 0, len(args))
	var reads [][]byte
	for _, arg := range args {
		kind, value, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", errBadStep, arg)
		}
		switch kind {
		case "w":
			data, err := decodeHex(value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %q: %w", errBadStep, arg, err)
			}
			ops = append(ops, i2ctx.WriteIter{Bytes: i2ctx.Bytes(data...)})
		case "r":
			buf, err := readBuffer(value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %q: %w", errBadStep, arg, err)
			}
			reads = append(reads, buf)
			ops = append(ops, i2ctx.Read{Buf: buf})
		default:
			return nil, nil, fmt.Errorf("%w: %q", errBadStep, arg)
		}
	}
	return ops, reads, nil
}

// decodeHex accepts "0a0b", "0x0a0b" and "0a:0b".
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.NewReplacer(":", "", " ", "").Replace(s)
	return hex.DecodeString(s)
}

func readBuffer(s string) ([]byte, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid read length %q", s)
	}
	return make([]byte, n), nil
}

func confirm(question string) bool {
	answer, err := console.YesOrNo(question)
	if err != nil {
		console.Errorf("could not read answer: %s", console.Red(err))
		return false
	}
	return answer == console.Yes
}

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe every 7-bit address with an empty write",
	Action: func(c *cli.Context) error {
		return withBus(c, func(ctx context.Context, bus i2ctx.Transactor) error {
			found := 0
			for a := i2ctx.Addr7(0x08); a <= 0x77; a++ {
				err := i2ctx.Write(ctx, bus, a, nil)
				switch {
				case err == nil:
					console.Printf("%s\n", console.Green(a))
					found++
				case errors.Is(err, i2ctx.ErrNoAck):
				case ctx.Err() != nil:
					return console.Exit(1, "%s", console.Red(err))
				default:
					console.Warnf("%s: %v", a, err)
				}
			}
			console.Infof("%s devices answered", console.White(found))
			return nil
		})
	},
}
