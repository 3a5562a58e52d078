// Package api serves a read-only HTTP view of persisted reconcile runs and
// their decisions, for follow-up work in the originating system.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/handlers"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/api/middleware"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
}

// NewServer creates a new API server.
func NewServer(cfg Config, repo storage.Repository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: gin.New(),
		logger: logger,
		repo:   repo,
	}

	s.setupMiddleware()
	s.setupRoutes()

	// Built here so Shutdown is safe before or during Start
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())

	// CORS
	if len(s.config.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.AllowedOrigins,
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Accept", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Request logging
	s.router.Use(middleware.Logging(s.logger, "/health"))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	var versioner handlers.SchemaVersioner
	if v, ok := s.repo.(handlers.SchemaVersioner); ok {
		versioner = v
	}
	healthHandler := handlers.NewHealthHandler(versioner)
	s.router.GET("/health", healthHandler.Get)

	api := s.router.Group("/api")
	{
		runsHandler := handlers.NewRunsHandler(s.repo)
		resolutionsHandler := handlers.NewResolutionsHandler(s.repo)

		api.GET("/runs", runsHandler.List)
		api.GET("/runs/:id", runsHandler.Get)
		api.GET("/runs/:id/resolutions", resolutionsHandler.ListForRun)
		api.GET("/resolutions", resolutionsHandler.List)
	}
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin engine for testing.
func (s *Server) Router() http.Handler {
	return s.router
}
