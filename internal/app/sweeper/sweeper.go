// Package sweeper периодически переводит истёкшие тарифы в expired.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BekzhanK1/moodlog-backend/internal/cache"
	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
	"github.com/BekzhanK1/moodlog-backend/internal/storage/repository"
)

// Sweeper пакетная проверка сроков тарифов.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// App фоновый процесс проверки сроков.
type App struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
	closers  []func() error
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		if err := repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New подключается к хранилищу и кэшу и создаёт сервис тарифов.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	closers := []func() error{db.Close}

	var planCache ledger.Cache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection, cfg.PlanCacheTTL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		planCache = c
		closers = append(closers, c.Close)
	}

	app := newApp(ledger.NewLedger(db, planCache, logger), cfg.SweepInterval, logger)
	app.closers = closers
	return app, nil
}

func newApp(s Sweeper, interval time.Duration, logger *slog.Logger) *App {
	if interval <= 0 {
		interval = time.Hour
	}
	return &App{sweeper: s, interval: interval, logger: logger}
}

// Run выполняет проверку сразу и далее раз в interval до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down expiry sweeper")
			for _, closeFn := range a.closers {
				if err := closeFn(); err != nil {
					a.logger.Error("failed to close resource", sl.Err(err))
				}
			}
			return nil
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *App) sweep(ctx context.Context) {
	const op = "sweeper.sweep"
	n, err := a.sweeper.SweepExpired(ctx)
	if err != nil {
		a.logger.Error("expiry sweep failed", sl.Op(op), sl.Err(err))
		return
	}
	if n > 0 {
		a.logger.Info("expired lapsed plans", sl.Op(op), slog.Int("count", n))
	}
}
