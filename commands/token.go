package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/stratdesk-api/auth"
)

func tokenCmd() *cobra.Command {
	var (
		subject  string
		nickname string
		email    string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.IsDevelopment {
				return fmt.Errorf("token: only available when AUTH0_DOMAIN is unset")
			}
			if subject == "" {
				return fmt.Errorf("token: --sub is required")
			}
			token, err := auth.CreateToken(cfg.JWTSecret, cfg.Issuer(), cfg.Auth0Audience, subject, nickname, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "token subject")
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
