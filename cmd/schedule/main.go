// Package main is the one-shot collector: it runs a single collection,
// writes the report and exits. The exit status is 1 only when configuration
// fails or the report could not be delivered.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkordes/fln-schedule/internal/app"
	"github.com/pkordes/fln-schedule/internal/config"
	"github.com/pkordes/fln-schedule/internal/domain"
)

func main() {
	// SIGINT/SIGTERM cancel in-flight fetches; the run still normalizes and
	// delivers whatever was gathered.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run performs one collection configured from the environment and returns
// the process exit status.
func run(ctx context.Context) int {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet; slog's default writes to stderr.
		slog.Error("configuration error", "error", err)
		return 1
	}

	// --- Logger -----------------------------------------------------------
	logger, closeLog, err := app.NewLogger(cfg)
	if err != nil {
		slog.Error("logger setup failed", "error", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	// --- Wiring -----------------------------------------------------------
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	// --- Run --------------------------------------------------------------
	if _, err := a.Service.Run(ctx); err != nil {
		// Delivery failures are logged by the service.
		if !errors.Is(err, domain.ErrDelivery) {
			logger.Error("run failed", "error", err)
		}
		return 1
	}
	return 0
}
