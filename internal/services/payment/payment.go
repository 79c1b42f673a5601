// Package payment ведёт платёж от создания сессии в шлюзе до применения тарифа:
// подписка, обработка уведомлений и опрос статуса сходятся в одном
// идемпотентном переходе pending -> терминальный статус.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BekzhanK1/moodlog-backend/internal/lib/metrics"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/paymentprovider"
	"github.com/BekzhanK1/moodlog-backend/internal/services/gate"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
)

// DefaultListLimit сколько платежей возвращается без явного limit.
const DefaultListLimit = 50

// MaxListLimit верхняя граница limit.
const MaxListLimit = 100

// Repository хранилище платежей.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) (*models.Payment, error)
	SetPaymentURL(ctx context.Context, paymentID, url string) error
	ResolvePayment(ctx context.Context, orderID string, status models.PaymentStatus,
		receiptID *string, now time.Time) (*models.Payment, bool, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	ListPayments(ctx context.Context, userUID string, limit int) ([]*models.Payment, error)
	SetReceipt(ctx context.Context, paymentID, receiptID string) error
}

// Ledger часть сервиса тарифов, нужная платежам.
type Ledger interface {
	CurrentStatus(ctx context.Context, userUID string) (*ledger.PlanState, error)
	ApplyPlan(ctx context.Context, userUID string, plan models.Plan, cause models.Cause) (*ledger.PlanState, error)
}

// Gateway операции платёжного шлюза.
type Gateway interface {
	CreateSession(ctx context.Context, req paymentprovider.SessionRequest) (*paymentprovider.Session, error)
	CheckStatus(ctx context.Context, orderID string) (*paymentprovider.StatusResult, error)
	IssueReceipt(ctx context.Context, orderID string, amount int64, email string) (string, error)
}

// AlertPublisher канал операционных алертов.
type AlertPublisher interface {
	Publish(message any) error
}

// AlertPlanApplyFailed оплата прошла, а тариф не применился.
const AlertPlanApplyFailed = "plan_apply_failed"

// Alert сообщение для дежурных.
type Alert struct {
	Kind       string    `json:"kind"`
	UserUID    string    `json:"user_uid"`
	PaymentID  string    `json:"payment_id"`
	OrderID    string    `json:"order_id"`
	Plan       string    `json:"plan"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Result итог обработки уведомления.
type Result string

const (
	ResultProcessed Result = "processed"
	ResultDuplicate Result = "duplicate"
	ResultUnknown   Result = "unknown"
	ResultPending   Result = "pending"
)

// SubscribeResult данные для перехода пользователя на страницу оплаты.
type SubscribeResult struct {
	PaymentID  string
	OrderID    string
	PaymentURL string
	Plan       models.Plan
	Amount     int64
	Currency   string
}

// Service сервис платежей.
type Service struct {
	repo     Repository
	plans    Ledger
	gateway  Gateway
	alerts   AlertPublisher
	currency string
	log      *slog.Logger
	now      func() time.Time
}

// NewPaymentService создаёт сервис. alerts может быть nil, тогда алерты только логируются.
func NewPaymentService(repo Repository, plans Ledger, gateway Gateway, alerts AlertPublisher,
	currency string, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		plans:    plans,
		gateway:  gateway,
		alerts:   alerts,
		currency: currency,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe создаёт платёж в статусе pending и открывает сессию оплаты.
// Если шлюз недоступен, запись остаётся pending и возвращается ошибка шлюза.
func (s *Service) Subscribe(ctx context.Context, userUID string, plan models.Plan) (*SubscribeResult, error) {
	const op = "payment.Subscribe"
	log := s.log.With(sl.Op(op), slog.String("user_uid", userUID), slog.String("plan", string(plan)))

	amount, err := gate.Price(plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state, err := s.plans.CurrentStatus(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if state.Plan.IsPaid() && state.IsActive() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrIneligibleUpgrade)
	}

	p, err := s.repo.CreatePayment(ctx, models.Payment{
		ID:        uuid.NewString(),
		UserUID:   userUID,
		OrderID:   uuid.NewString(),
		Plan:      plan,
		Amount:    amount,
		Currency:  s.currency,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.gateway.CreateSession(ctx, paymentprovider.SessionRequest{
		OrderID: p.OrderID,
		UserUID: userUID,
		Email:   state.Email,
		Plan:    plan,
		Amount:  amount,
	})
	if err != nil {
		log.Error("failed to open payment session", slog.String("payment_id", p.ID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if session.ExternalOrderID != p.OrderID {
		log.Warn("gateway returned a different order id",
			slog.String("order_id", p.OrderID), slog.String("external_order_id", session.ExternalOrderID))
	}

	if err := s.repo.SetPaymentURL(ctx, p.ID, session.PaymentURL); err != nil {
		log.Warn("failed to store payment url", slog.String("payment_id", p.ID), sl.Err(err))
	}

	log.Info("payment session created", slog.String("payment_id", p.ID), slog.String("order_id", p.OrderID))
	return &SubscribeResult{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		PaymentURL: session.PaymentURL,
		Plan:       plan,
		Amount:     amount,
		Currency:   p.Currency,
	}, nil
}

// ProcessNotification обрабатывает уже проверенное по подписи уведомление шлюза.
// Повторная доставка не меняет состояние. Ошибка возвращается только если
// разбор тела или запись в хранилище не удались.
func (s *Service) ProcessNotification(ctx context.Context, raw []byte) (Result, error) {
	const op = "payment.ProcessNotification"

	n, err := paymentprovider.ParseNotification(raw)
	if err != nil {
		metrics.WebhookNotificationsTotal.WithLabelValues("malformed").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !n.Outcome.Terminal() {
		s.log.Info("non-terminal notification acknowledged", sl.Op(op),
			slog.String("order_id", n.ExternalOrderID), slog.String("gateway_status", n.GatewayStatus))
		metrics.WebhookNotificationsTotal.WithLabelValues(string(ResultPending)).Inc()
		return ResultPending, nil
	}

	result, p, err := s.resolve(ctx, n.ExternalOrderID, n.Outcome, n.ReceiptID)
	if err != nil {
		metrics.WebhookNotificationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if p != nil && n.Amount > 0 && n.Amount != p.Amount {
		s.log.Warn("notification amount differs from payment", sl.Op(op),
			slog.String("order_id", p.OrderID), slog.Int64("expected", p.Amount), slog.Int64("got", n.Amount))
	}
	metrics.WebhookNotificationsTotal.WithLabelValues(string(result)).Inc()
	return result, nil
}

// RefreshStatus возвращает платёж пользователя. Если он ещё pending, статус
// запрашивается у шлюза и терминальный исход проводится тем же путём, что и уведомление.
func (s *Service) RefreshStatus(ctx context.Context, userUID, paymentID string) (*models.Payment, error) {
	const op = "payment.RefreshStatus"

	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.UserUID != userUID {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentNotFound)
	}
	if p.Status != models.PaymentPending {
		return p, nil
	}

	status, err := s.gateway.CheckStatus(ctx, p.OrderID)
	if err != nil {
		s.log.Warn("payment status poll failed", sl.Op(op), slog.String("payment_id", p.ID), sl.Err(err))
		return p, nil
	}
	if !status.Outcome.Terminal() {
		return p, nil
	}

	_, resolved, err := s.resolve(ctx, p.OrderID, status.Outcome, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resolved == nil {
		return p, nil
	}
	return resolved, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Service) ListPayments(ctx context.Context, userUID string, limit int) ([]*models.Payment, error) {
	const op = "payment.ListPayments"
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	list, err := s.repo.ListPayments(ctx, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// resolve единственный путь перевода платежа в терминальный статус.
// Тариф применяется только тем вызовом, который выполнил переход.
func (s *Service) resolve(ctx context.Context, orderID string, outcome models.PaymentStatus,
	receiptID *string) (Result, *models.Payment, error) {
	const op = "payment.resolve"
	log := s.log.With(sl.Op(op), slog.String("order_id", orderID))

	p, alreadyResolved, err := s.repo.ResolvePayment(ctx, orderID, outcome, receiptID, s.now())
	if err != nil {
		if errors.Is(err, models.ErrPaymentNotFound) {
			log.Warn("notification for unknown payment", sl.Err(models.ErrUnknownPayment))
			return ResultUnknown, nil, nil
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if alreadyResolved {
		if p.Status != outcome {
			log.Warn("conflicting outcome for resolved payment",
				slog.String("stored", string(p.Status)), slog.String("received", string(outcome)))
		}
		return ResultDuplicate, p, nil
	}

	log.Info("payment resolved", slog.String("payment_id", p.ID), slog.String("status", string(p.Status)))
	if p.Status != models.PaymentSucceeded {
		return ResultProcessed, p, nil
	}

	state, err := s.plans.ApplyPlan(ctx, p.UserUID, p.Plan, models.CausePayment)
	if err != nil {
		s.raiseApplyFailure(p, err)
		return ResultProcessed, p, nil
	}
	log.Info("plan activated by payment", slog.String("user_uid", p.UserUID), slog.String("plan", string(state.Plan)))

	if p.ReceiptID == nil {
		s.issueReceipt(ctx, p)
	}
	return ResultProcessed, p, nil
}

func (s *Service) raiseApplyFailure(p *models.Payment, cause error) {
	metrics.PlanApplyFailuresTotal.Inc()
	s.log.Error("payment succeeded but plan was not applied",
		slog.String("payment_id", p.ID),
		slog.String("order_id", p.OrderID),
		slog.String("user_uid", p.UserUID),
		slog.String("plan", string(p.Plan)),
		sl.Err(cause),
	)
	if s.alerts == nil {
		return
	}
	alert := Alert{
		Kind:       AlertPlanApplyFailed,
		UserUID:    p.UserUID,
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Plan:       string(p.Plan),
		Error:      cause.Error(),
		OccurredAt: s.now(),
	}
	if err := s.alerts.Publish(alert); err != nil {
		s.log.Error("failed to publish alert", slog.String("payment_id", p.ID), sl.Err(err))
	}
}

func (s *Service) issueReceipt(ctx context.Context, p *models.Payment) {
	log := s.log.With(slog.String("payment_id", p.ID), slog.String("order_id", p.OrderID))

	var email string
	if state, err := s.plans.CurrentStatus(ctx, p.UserUID); err == nil {
		email = state.Email
	}
	receiptID, err := s.gateway.IssueReceipt(ctx, p.OrderID, p.Amount, email)
	if err != nil {
		log.Warn("failed to issue receipt", sl.Err(err))
		return
	}
	if err := s.repo.SetReceipt(ctx, p.ID, receiptID); err != nil {
		log.Warn("failed to store receipt", sl.Err(err))
		return
	}
	p.ReceiptID = &receiptID
}
