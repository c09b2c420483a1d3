package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

func newSlugCmd(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slug",
		Short: "Normalize and check profile slugs",
	}
	cmd.AddCommand(newSlugNormalizeCmd(), newSlugCheckCmd(env))
	return cmd
}

func newSlugNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>...",
		Short: "Print the slug the onboarding form would derive from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := domain.NormalizeSlug(strings.Join(args, " "))
			if slug == "" {
				return fmt.Errorf("%q has no slug characters", strings.Join(args, " "))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), slug)
			return err
		},
	}
}

func newSlugCheckCmd(env Env) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "check <text>",
		Short: "Report whether a slug is free on the configured backend",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := env.Open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open backend: %w", err)
			}
			defer backend.Shutdown()

			checker := onboarding.NewSlugChecker(backend.Profiles, onboarding.WithSlugLogger(env.Logger))
			defer checker.Close()
			if owner != "" {
				checker.SetOwner(owner)
			}

			status := checker.CheckNow(cmd.Context(), strings.Join(args, " "))
			slug, _ := checker.Status()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", slug, status)
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "user id whose own profile does not count as taking the slug")
	return cmd
}
