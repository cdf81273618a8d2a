// Package config holds the settings of the i2ctx command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2ctx"
)

// Version is injected at build time.
var Version = "dev"

var ErrInvalid = errors.New("invalid configuration")

// Adapters lists the supported bus backends.
var Adapters = []string{"periph", "gobot", "mcp2221"}

type Config struct {
	// Adapter is one of Adapters.
	Adapter string `yaml:"adapter"`
	// Device is the periph bus name ("1", "/dev/i2c-1") or the gobot bus number.
	Device  string `yaml:"device"`
	SpeedHz uint32 `yaml:"speed_hz"`
	// Async runs transactions on the cooperative bus.
	Async   bool              `yaml:"async"`
	Verbose bool              `yaml:"verbose"`
	Devices map[string]Device `yaml:"devices"`
}

// Device names a target so commands can refer to it by name.
type Device struct {
	Address string `yaml:"address"`
	Kind    string `yaml:"kind"`
}

func Default() Config {
	return Config{
		Adapter: "periph",
		Device:  "",
		SpeedHz: 100_000,
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("could not decode config %s: %w", path, err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !slices.Contains(Adapters, c.Adapter) {
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalid, c.Adapter)
	}
	if c.SpeedHz == 0 || c.SpeedHz > 3_400_000 {
		return fmt.Errorf("%w: speed %d Hz", ErrInvalid, c.SpeedHz)
	}
	for name, d := range c.Devices {
		if _, err := i2ctx.ParseAddress(d.Address); err != nil {
			return fmt.Errorf("%w: device %s: %w", ErrInvalid, name, err)
		}
	}
	return nil
}

// Address resolves a device name from Devices or parses s as an address.
func (c Config) Address(s string) (i2ctx.Address, error) {
	if d, ok := c.Devices[s]; ok {
		return i2ctx.ParseAddress(d.Address)
	}
	return i2ctx.ParseAddress(s)
}

func (c Config) Write(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
