package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/auth"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

func newTokenCmd(env Env) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Config.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set; tokens would not verify against the server")
			}
			issuer, err := auth.NewIssuer(env.Config.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(domain.Identity{UserID: args[0], Email: email})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
