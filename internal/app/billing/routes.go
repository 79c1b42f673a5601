// Package billing собирает HTTP API сервиса биллинга.
package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/health"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/payment/paymentlist"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/payment/paymentstatus"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/payment/paymentwebhook"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/promo/promocreate"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/promo/promodelete"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/promo/promolist"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/promo/redeem"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/subscription/current"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/subscription/feature"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/subscription/history"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/subscription/plans"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/subscription/subscribe"
	"github.com/BekzhanK1/moodlog-backend/internal/http/handlers/subscription/trial"
	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
	"github.com/BekzhanK1/moodlog-backend/internal/services/payment"
)

// PlanService операции над тарифом пользователя.
type PlanService interface {
	CurrentStatus(ctx context.Context, userUID string) (*ledger.PlanState, error)
	StartTrial(ctx context.Context, userUID string) (*ledger.PlanState, error)
	History(ctx context.Context, userUID string, limit int) ([]models.HistoryEntry, error)
}

// PaymentService оплата и обработка уведомлений шлюза.
type PaymentService interface {
	Subscribe(ctx context.Context, userUID string, plan models.Plan) (*payment.SubscribeResult, error)
	ProcessNotification(ctx context.Context, raw []byte) (payment.Result, error)
	RefreshStatus(ctx context.Context, userUID, paymentID string) (*models.Payment, error)
	ListPayments(ctx context.Context, userUID string, limit int) ([]*models.Payment, error)
}

// PromoService погашение и администрирование промокодов.
type PromoService interface {
	Redeem(ctx context.Context, userUID, code string) (*ledger.PlanState, error)
	Create(ctx context.Context, adminUID string, plan models.Plan, code string, expiresAt *time.Time) (*models.PromoCode, error)
	List(ctx context.Context, adminUID string, includeUsed bool, limit int) ([]*models.PromoCode, error)
	Delete(ctx context.Context, id string) error
}

// Deps зависимости маршрутов.
type Deps struct {
	Plans           PlanService
	Payments        PaymentService
	Promos          PromoService
	Tokens          middlewarectx.TokenParser
	Verifier        paymentwebhook.Verifier
	DB              health.Pinger
	Currency        string
	RedeemPerMinute int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	redeemLimiter := middlewarectx.NewRateLimiter(deps.RedeemPerMinute)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/subscriptions/plans", plans.New(logger, deps.Currency).ServeHTTP)

		// Webhook шлюза, аутентифицируется подписью тела
		r.Post("/subscriptions/webhook/{gateway}", paymentwebhook.New(logger, deps.Payments, deps.Verifier).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))

			r.Get("/subscriptions/current", current.New(logger, deps.Plans).ServeHTTP)
			r.Get("/subscriptions/features/{feature}", feature.New(logger, deps.Plans).ServeHTTP)
			r.Get("/subscriptions/history", history.New(logger, deps.Plans).ServeHTTP)
			r.Post("/subscriptions/start-trial", trial.New(logger, deps.Plans).ServeHTTP)
			r.Post("/subscriptions/subscribe", subscribe.New(logger, deps.Payments).ServeHTTP)
			r.Get("/subscriptions/payment/{id}/status", paymentstatus.New(logger, deps.Payments).ServeHTTP)
			r.Get("/subscriptions/payments", paymentlist.New(logger, deps.Payments).ServeHTTP)

			r.With(redeemLimiter.Middleware(logger)).
				Post("/promo-codes/redeem", redeem.New(logger, deps.Promos).ServeHTTP)

			r.Route("/admin/promo-codes", func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				r.Post("/", promocreate.New(logger, deps.Promos).ServeHTTP)
				r.Get("/", promolist.New(logger, deps.Promos).ServeHTTP)
				r.Delete("/{id}", promodelete.New(logger, deps.Promos).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, deps.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
