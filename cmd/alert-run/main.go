// Command alert-run performs a single alert engine run and exits, for use
// from cron or another external scheduler.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-flood-alerts/internal/alert"
	"github.com/mr1hm/go-flood-alerts/internal/app"
	"github.com/mr1hm/go-flood-alerts/internal/config"
	"github.com/mr1hm/go-flood-alerts/internal/logging"
	"github.com/mr1hm/go-flood-alerts/internal/observability"
	"github.com/mr1hm/go-flood-alerts/internal/repository"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Alert.RunTimeout)
	defer cancel()

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		return 1
	}
	defer db.Close()

	stack, err := app.NewAlertStack(ctx, cfg, db, observability.NewMetrics())
	if err != nil {
		slog.Error("failed to build alert engine", "error", err)
		return 1
	}
	defer stack.Close()

	summary, err := stack.Engine.Run(ctx)
	switch {
	case errors.Is(err, alert.ErrRunInProgress):
		slog.Info("another alert run is in progress, nothing to do")
		return 0
	case err != nil:
		slog.Error("alert run failed", "error", err)
		return 1
	case summary.Failed > 0:
		slog.Error("alert run finished with failures", "failed", summary.Failed, "error", summary.Err())
		return 1
	}
	return 0
}
