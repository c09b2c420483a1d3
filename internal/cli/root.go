// Package cli implements worldmapctl, the operator tool for slugs, pins and tokens.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/app"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/config"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/logging"
)

// Env is what the commands run against.
type Env struct {
	Config config.Config
	Logger *zap.Logger
	// Open connects the configured backend. Callers release it with Shutdown.
	Open func(ctx context.Context) (app.Backend, error)
}

// Execute loads configuration from the process environment and runs the root command.
func Execute(ctx context.Context) error {
	return newRootCmd(wireEnv).ExecuteContext(ctx)
}

func wireEnv() (Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return Env{}, err
	}
	logger, err := logging.New(cfg.Development())
	if err != nil {
		return Env{}, err
	}
	return Env{
		Config: cfg,
		Logger: logger,
		Open: func(ctx context.Context) (app.Backend, error) {
			return app.OpenBackend(ctx, cfg, logger)
		},
	}, nil
}

// NewRootCmd builds the command tree against env.
func NewRootCmd(env Env) *cobra.Command {
	return newRootCmd(func() (Env, error) { return env, nil })
}

func newRootCmd(wire func() (Env, error)) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "worldmapctl",
		Short:         "Operate a worldmap deployment",
		Long:          "worldmapctl inspects profile slugs and pins against the configured backend and mints API tokens for operators.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	env, err := wire()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}

	rootCmd.AddCommand(
		newSlugCmd(env),
		newPinsCmd(env),
		newTokenCmd(env),
	)
	return rootCmd
}
