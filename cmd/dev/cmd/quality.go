package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// step wraps a devtool quality target. Hardware tests of the bus adapters run in
// the integration target only.
func step(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("running quality step", "step", use)
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return step("test", "Run unit tests against scripted and simulated buses", func() error { return test.Test() })
}

func LintCmd() *cobra.Command {
	return step("lint", "Run linting", func() error { return test.Lint() })
}

func IntegrationTestCmd() *cobra.Command {
	return step("integration-test", "Run tests that need an attached I2C adapter", func() error { return test.Integ() })
}
