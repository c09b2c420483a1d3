package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/auth"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/mapsync"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/media"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/metrics"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/onboarding"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/platform"
	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/profile"
)

// Config wraps the knobs that impact runtime behavior.
type Config struct {
	Addr       string
	SessionTTL time.Duration
	MinZoom    float64
	// BodyLimit caps request bodies, photo uploads included.
	BodyLimit int
}

// Deps are the collaborators built at the composition root.
type Deps struct {
	Backend platform.Backend
	// Files serves GET /media/*; nil disables the route.
	Files        platform.BlobReader
	Schema       onboarding.DraftSchema
	SlugDebounce time.Duration
	Tokens       *auth.Issuer
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// Server exposes the Fiber application.
type Server struct {
	app      *fiber.App
	cfg      Config
	deps     Deps
	logger   *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	sessions *sessionRegistry
	profiles *profile.Service
}

// NewServer wires handlers and middleware.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.MinZoom <= 0 {
		cfg.MinZoom = mapsync.DefaultMinZoom
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 20 << 20
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	srv := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		validate: validator.New(),
		profiles: profile.NewService(deps.Backend, deps.Logger.Named("profile")),
	}

	uploader := media.NewUploader(deps.Backend.Blobs, media.DefaultConfig(), deps.Logger.Named("media"))
	srv.sessions = newSessionRegistry(cfg.SessionTTL, func() *onboarding.Wizard {
		return onboarding.NewWizard(onboarding.Deps{
			Backend:      deps.Backend,
			Uploader:     uploader,
			Schema:       deps.Schema,
			SlugDebounce: deps.SlugDebounce,
			Logger:       deps.Logger.Named("onboarding"),
			Recorder:     deps.Metrics,
		})
	})
	srv.sessions.onOpen = deps.Metrics.SessionOpened
	srv.sessions.onClose = deps.Metrics.SessionClosed

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          srv.errorHandler,
	})
	app.Use(srv.observe)
	app.Use(recover.New())
	app.Use(cors.New())

	srv.app = app
	srv.registerRoutes()
	return srv
}

// App exposes the underlying Fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Run starts listening for HTTP traffic until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()
	go s.sweepSessions(ctx)

	s.logger.Info("worldmap api listening", zap.String("addr", s.cfg.Addr))
	err := s.app.Listen(s.cfg.Addr)
	s.Close()
	return err
}

// Close discards every open onboarding session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

func (s *Server) sweepSessions(ctx context.Context) {
	interval := s.cfg.SessionTTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.sweep(); n > 0 {
				s.logger.Debug("expired onboarding sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	if s.deps.Files != nil {
		s.app.Get("/media/*", s.handleMedia)
	}

	api := s.app.Group("/api/v1")

	ob := api.Group("/onboarding")
	ob.Post("/", s.handleStartOnboarding)
	ob.Get("/:sid", s.handleOnboardingState)
	ob.Delete("/:sid", s.handleDiscardOnboarding)
	ob.Post("/:sid/account", s.handleAccount)
	ob.Put("/:sid/slug", s.handleSetSlug)
	ob.Get("/:sid/slug", s.handleSlugStatus)
	ob.Post("/:sid/profile", s.handleProfile)
	ob.Post("/:sid/back", s.handleBack)
	ob.Post("/:sid/drafts", s.handleAddDraft)
	ob.Patch("/:sid/drafts/:key", s.handleUpdateDraft)
	ob.Delete("/:sid/drafts/:key", s.handleRemoveDraft)
	ob.Put("/:sid/drafts/:key/photo", s.handleDraftPhoto)
	ob.Post("/:sid/complete", s.handleComplete)

	api.Get("/profiles/:slug", s.handleProfilePage)
	api.Get("/profiles/:slug/places/:placeID/memories", s.handleMemoryCards)
	api.Delete("/memories/:id", s.handleDeleteMemory)

	api.Post("/map/diff", s.handleMapDiff)
}

// observe logs and counts every request. Errors are rendered here so the
// recorded status is the one the client sees.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.errorHandler(c, err); herr != nil {
			return herr
		}
	}

	status := c.Response().StatusCode()
	elapsed := time.Since(start)
	route := c.Route().Path
	s.metrics.ObserveRequest(c.Method(), route, status, elapsed)

	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("latency", elapsed),
	}
	switch {
	case status >= fiber.StatusInternalServerError:
		s.logger.Error("request", fields...)
	case errors.Is(c.UserContext().Err(), context.Canceled):
		s.logger.Warn("request cancelled", fields...)
	default:
		s.logger.Info("request", fields...)
	}
	return nil
}
