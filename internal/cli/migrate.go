package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand команда применения миграций.
func NewMigrateCommand(rootOpts *RootOptions, rt *Runtime) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rt.LoadConfig(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.MigrationsPath
			}
			if err := rt.Migrate(cfg, path); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrations applied from %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default from config)")
	return cmd
}
