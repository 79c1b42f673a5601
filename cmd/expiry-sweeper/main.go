package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BekzhanK1/moodlog-backend/internal/app/sweeper"
	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting expiry-sweeper", slog.String("env", cfg.Env), slog.Duration("interval", cfg.SweepInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := sweeper.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize expiry-sweeper", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("expiry-sweeper stopped with error", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("expiry-sweeper stopped")
}
