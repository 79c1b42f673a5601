// Package alerts читает очередь операционных алертов биллинга и пишет их в журнал.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/rabbitmq"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/services/payment"
)

// QueueName очередь алертов.
const QueueName = "billing.alerts"

// App потребитель алертов.
type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// New подключается к брокеру и объявляет очереди биллинга.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.BillingExchange, rabbitmq.GetBillingQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	return &App{conn: conn, ch: ch, logger: logger}, nil
}

// Run потребляет очередь до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, QueueName, Handler(a.logger))
	if err != nil {
		a.logger.Error("failed to start billing.alerts consumer", sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("billing alerts consumer shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}

// Handler возвращает обработчик сообщения очереди. Нечитаемые сообщения
// журналируются и подтверждаются, чтобы не возвращаться в очередь бесконечно.
func Handler(logger *slog.Logger) func([]byte) error {
	return func(body []byte) error {
		const op = "alerts.Handler"
		var alert payment.Alert
		if err := json.Unmarshal(body, &alert); err != nil {
			logger.Error("dropping unreadable alert", sl.Op(op), sl.Err(err), slog.String("body", string(body)))
			return nil
		}
		logger.Error("billing alert",
			sl.Op(op),
			slog.String("kind", alert.Kind),
			slog.String("user_uid", alert.UserUID),
			slog.String("payment_id", alert.PaymentID),
			slog.String("order_id", alert.OrderID),
			slog.String("plan", alert.Plan),
			slog.String("error", alert.Error),
			slog.Time("occurred_at", alert.OccurredAt),
		)
		return nil
	}
}
