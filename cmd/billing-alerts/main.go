package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BekzhanK1/moodlog-backend/internal/app/alerts"
	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("starting billing-alerts", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := alerts.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize billing-alerts", sl.Err(err))
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("billing-alerts stopped with error", sl.Err(err))
		os.Exit(1)
	}
}
