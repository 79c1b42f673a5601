package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/BekzhanK1/moodlog-backend/internal/cache"
	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/jwt"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/rabbitmq"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/migrations"
	"github.com/BekzhanK1/moodlog-backend/internal/paymentprovider"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
	"github.com/BekzhanK1/moodlog-backend/internal/services/payment"
	"github.com/BekzhanK1/moodlog-backend/internal/services/promo"
	"github.com/BekzhanK1/moodlog-backend/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API биллинга со всеми подключениями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилище, кэш и брокер, собирает сервисы и роутер.
// Redis и RabbitMQ необязательны: без адреса кэш и алерты отключаются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "billing.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{logger: logger, db: db}

	var planCache ledger.Cache
	if cfg.AddressRedis != "" {
		app.cache, err = cache.InitServer(ctx, cfg.RedisConnection, cfg.PlanCacheTTL)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		planCache = app.cache
	} else {
		logger.Warn("redis address is empty, plan cache disabled")
	}

	var alerts payment.AlertPublisher
	if cfg.RabbitMQURL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, rabbitmq.BillingExchange, rabbitmq.GetBillingQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		alerts = rabbitmq.NewPublisher(app.ch, rabbitmq.BillingExchange, rabbitmq.AlertRoutingKey)
	} else {
		logger.Warn("rabbitmq url is empty, plan apply alerts go to the log only")
	}

	if cfg.WebhookSecret == "" {
		logger.Warn("webhook secret is empty, all gateway notifications will be rejected")
	}

	plans := ledger.NewLedger(db, planCache, logger)
	gateway := paymentprovider.NewClient(cfg.Gateway, cfg.Currency, logger)
	payments := payment.NewPaymentService(db, plans, gateway, alerts, cfg.Currency, logger)
	promos := promo.NewPromoService(db, plans, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Plans:           plans,
		Payments:        payments,
		Promos:          promos,
		Tokens:          jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Verifier:        paymentprovider.NewSigner(cfg.WebhookSecret),
		DB:              db.DB,
		Currency:        cfg.Currency,
		RedeemPerMinute: cfg.RedeemPerMinute,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
