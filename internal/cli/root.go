// Package cli команды операторской утилиты notifyctl.
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions общие флаги всех команд.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
}

// ValidFormats допустимые форматы вывода.
var ValidFormats = []string{"text", "json"}

// NewRootCommand создает корневую команду notifyctl.
func NewRootCommand(rt *Runtime) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notifyctl",
		Short: "Operator tool for subscription notifications",
		Long:  "notifyctl runs notification generators for a given day, applies migrations and issues dev tokens.",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.ConfigPath == "" {
				return fmt.Errorf("config path is not set: use --config or CONFIG_PATH")
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewRenewalsCommand(opts, rt))
	cmd.AddCommand(NewTrialsCommand(opts, rt))
	cmd.AddCommand(NewMigrateCommand(opts, rt))
	cmd.AddCommand(NewTokenCommand(opts, rt))

	return cmd
}
