package cli

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/api"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/logging"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/infrastructure/storage"
)

// shutdownTimeout bounds how long in-flight requests may finish
const shutdownTimeout = 30 * time.Second

// ServeFlags holds the CLI flags for the review-api command.
type ServeFlags struct {
	ConfigPath string
	Port       int // Zero keeps api.port from config
	Verbose    bool
}

// ParseServeFlags parses command line flags for the review-api command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config.yaml (default: ./config.yaml, then environment)")
	flag.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides api.port)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// RunServe serves decisions recorded by earlier runs until ctx is cancelled,
// then drains in-flight requests.
func RunServe(ctx context.Context, cfg *config.Config, flags *ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	apiCfg := api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}
	if flags.Port != 0 {
		apiCfg.Port = flags.Port
	}
	server := api.NewServer(apiCfg, store, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		// Start only returns early when the listener fails
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return err
	}

	if err := <-errCh; err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
