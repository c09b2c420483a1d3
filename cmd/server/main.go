package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/api"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/app"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/auth"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/config"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/logging"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/metrics"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Development())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	schema, err := onboarding.SchemaByVersion(fmt.Sprintf("v%d", cfg.DraftSchema))
	if err != nil {
		return err
	}

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Shutdown()

	logger.Info("onboarding configured",
		zap.String("draft_schema", schema.Version),
		zap.Int("max_drafts", schema.MaxDrafts))

	tokens, err := auth.NewIssuer(cfg.JWTSecret, 0)
	if err != nil {
		return err
	}

	srv := api.NewServer(api.Config{
		Addr:       cfg.Addr,
		SessionTTL: cfg.SessionTTL,
		MinZoom:    cfg.MinZoom,
	}, api.Deps{
		Backend:      backend.Backend,
		Files:        backend.Files,
		Schema:       schema,
		SlugDebounce: cfg.SlugDebounce,
		Tokens:       tokens,
		Metrics:      metrics.New(),
		Logger:       logger,
	})
	return srv.Run(ctx)
}
