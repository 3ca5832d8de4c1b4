package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/jwt"
)

// NewTokenCommand команда выпуска токена для локальной разработки.
func NewTokenCommand(rootOpts *RootOptions, rt *Runtime) *cobra.Command {
	var (
		userID   string
		username string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for a user (development only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := uuid.Validate(userID); err != nil {
				return fmt.Errorf("invalid --user %q: %w", userID, err)
			}
			cfg, err := rt.LoadConfig(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			if cfg.JWTSecretKey == "" {
				return fmt.Errorf("jwt secret key is not set")
			}
			token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL).GenerateToken(userID, username)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id (uuid)")
	cmd.Flags().StringVar(&username, "username", "", "username claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
