package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mklimuk/i2ctx/script"
)

func CheckScriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-scripts [dir]",
		Short: "Parse every .star bus script without touching hardware",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "scripts"
			if len(args) == 1 {
				root = args[0]
			}
			var failed []error
			checked := 0
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() || filepath.Ext(path) != ".star" {
					return err
				}
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				checked++
				if err := script.Check(path, src); err != nil {
					slog.Error("script check failed", "file", path, "error", err)
					failed = append(failed, err)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("could not walk %s: %w", root, err)
			}
			slog.Info("scripts checked", "count", checked, "failed", len(failed))
			return errors.Join(failed...)
		},
	}
	return cmd
}
