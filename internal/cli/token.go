package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freightledger/freightledger/internal/auth"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the admin API",
		Long: `Signs a token with AUTH_SIGNING_KEY for the admin endpoints of the HTTP
API (emission factor writes and store reset).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return errors.New("--subject is required")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			svc := auth.NewJWTService(auth.JWTConfig{
				SigningKey: cfg.Auth.SigningKey,
				Issuer:     cfg.Auth.Issuer,
				Audience:   cfg.Auth.Audience,
			})
			token, expiresAt, err := svc.GenerateToken(subject, role, ttl)
			if err != nil {
				return err
			}

			if root.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"access_token": token,
					"token_type":   "Bearer",
					"expires_at":   expiresAt.UTC().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, usually an operator email")
	cmd.Flags().StringVar(&role, "role", auth.RoleAdmin, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "token lifetime")

	return cmd
}
