package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2ctx/adapter"
	"github.com/mklimuk/i2ctx/cmd/i2ctx/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB adapter",
	Subcommands: []*cli.Command{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}

func adapterCall[T any](c *cli.Context, call func(*adapter.MCP2221, context.Context) (T, error)) error {
	v, err := call(adapter.NewMCP2221(), busContext(c))
	if err != nil {
		return console.Exit(1, "adapter communication error: %s", console.Red(err))
	}
	return printYAML(v)
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		return adapterCall(c, (*adapter.MCP2221).Status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name: "release",
	Action: func(c *cli.Context) error {
		return adapterCall(c, (*adapter.MCP2221).ReleaseBus)
	},
}

var mcp2221GPIOCmd = cli.Command{
	Name: "gpio",
	Action: func(c *cli.Context) error {
		return adapterCall(c, func(a *adapter.MCP2221, ctx context.Context) (adapter.MCP2221GPIOValues, error) {
			return a.ReadGPIO(ctx)
		})
	},
}
