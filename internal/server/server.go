// Package server provides the HTTP serving layer over the feature store
// coordinator: health, group and feature metadata listings, online feature
// reads, and ingestion. It is a thin mapping from routes and status codes
// onto registry operations; all policy lives in the registry.
package server

import (
	"context"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skylarkml/skylark/pkg/config"
	"github.com/skylarkml/skylark/pkg/logger"
	"github.com/skylarkml/skylark/pkg/registry"
)

// Server wraps the fiber app serving the feature store API.
type Server struct {
	app *fiber.App
	cfg *config.Config
	reg *registry.Store
	log *zap.Logger
}

// New builds the HTTP server and registers all routes.
func New(cfg *config.Config, reg *registry.Store) *Server {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())

	s := &Server{
		app: app,
		cfg: cfg,
		reg: reg,
		log: logger.WithComponent("server"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app.Get("/groups", s.handleListGroups)
	s.app.Get("/features", s.handleListFeatures)
	s.app.Get("/features/:entity/:feature/metadata", s.handleFeatureMetadata)
	s.app.Get("/features/:group/:entityId", s.handleOnlineFeatures)
	s.app.Post("/ingest/:group/:entityId", s.handleIngest)
}

// App exposes the fiber app, used by tests via app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured host and port until Shutdown.
func (s *Server) Listen() error {
	addr := s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
	s.log.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
