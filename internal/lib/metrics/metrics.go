// Package metrics объявляет prometheus-метрики биллинга.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookNotificationsTotal уведомления шлюза по результату обработки.
	WebhookNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "webhook_notifications_total",
		Help:      "Gateway notifications by processing result.",
	}, []string{"result"})

	// PlanChangesTotal успешные смены тарифа по причине и новому тарифу.
	PlanChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "plan_changes_total",
		Help:      "Committed plan transitions by cause and plan.",
	}, []string{"cause", "plan"})

	// PlanApplyFailuresTotal оплаченные платежи, по которым не удалось применить тариф.
	PlanApplyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "plan_apply_failures_total",
		Help:      "Succeeded payments whose plan could not be applied.",
	})

	// PromoRedemptionsTotal попытки погашения промокодов по результату.
	PromoRedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "promo_redemptions_total",
		Help:      "Promo code redemption attempts by result.",
	}, []string{"result"})

	// GatewayRequestsTotal вызовы платёжного шлюза по операции и результату.
	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "gateway_requests_total",
		Help:      "Payment gateway calls by operation and result.",
	}, []string{"operation", "result"})

	// GatewayRequestDuration задержка вызовов шлюза.
	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "gateway_request_duration_seconds",
		Help:      "Payment gateway call duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// GatewayBreakerState состояние circuit breaker: 0 closed, 1 half-open, 2 open.
	GatewayBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "gateway_breaker_state",
		Help:      "Gateway circuit breaker state (0 closed, 1 half-open, 2 open).",
	})

	// ExpiredPlansTotal тарифы, помеченные expired при чтении или фоновой проверкой.
	ExpiredPlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlog",
		Subsystem: "billing",
		Name:      "expired_plans_total",
		Help:      "Plans persisted as expired, by source.",
	}, []string{"source"})
)
