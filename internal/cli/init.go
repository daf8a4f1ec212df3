// Package cli consolidates the initialization shared by cmd/moneta and
// cmd/moneta-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneta/internal/app"
	"moneta/internal/config"
	"moneta/internal/log"
)

// Bootstrap loads the environment, builds the logger, and validates
// configuration. Exits the process on invalid configuration.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	// .env is for local development; absence is fine.
	_ = godotenv.Load()

	logger := log.Setup(component, os.Getenv("LOG_LEVEL"))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// Startup runs the initialization controller and exits on fatal failures.
// A sync warning is logged and startup proceeds offline.
func Startup(ctx context.Context, cfg *config.Config, logger *log.Logger) *app.Controller {
	ctrl := app.New(cfg)
	if err := ctrl.Run(ctx); err != nil {
		status := ctrl.Status()
		logger.Error("Startup failed", "state", status.State.String(), "error", err)
		os.Exit(1)
	}
	if w := ctrl.Status().SyncWarning; w != "" {
		logger.Warn("Running offline", "warning", w)
	}
	return ctrl
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
