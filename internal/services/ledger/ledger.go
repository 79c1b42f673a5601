// Package ledger владеет состоянием тарифа пользователя: пробный период,
// применение платного тарифа, ленивое истечение срока и история переходов.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BekzhanK1/moodlog-backend/internal/lib/metrics"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/services/gate"
)

// DefaultHistoryLimit сколько записей истории возвращается по умолчанию.
const DefaultHistoryLimit = 100

// Repository методы хранилища, через которые ledger меняет и читает тариф.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	StartTrial(ctx context.Context, userUID string, change models.PlanChange) (*models.UserPlan, error)
	ApplyPlan(ctx context.Context, userUID string, change models.PlanChange) (*models.UserPlan, error)
	ExpireIfLapsed(ctx context.Context, userUID string, now time.Time) (bool, error)
	ExpireLapsed(ctx context.Context, now time.Time) ([]string, error)
	ListHistory(ctx context.Context, userUID string, limit int) ([]models.HistoryEntry, error)
}

// Cache кэш снимков тарифа. Версия читается до обращения к базе; снимок
// сохраняется, только если за это время не было записи.
type Cache interface {
	GetUser(ctx context.Context, userUID string) (*models.User, bool, error)
	PlanVersion(ctx context.Context, userUID string) (int64, error)
	SetUserIfVersion(ctx context.Context, u *models.User, version int64) (bool, error)
	InvalidateUser(ctx context.Context, userUID string) error
}

// PlanState тариф пользователя с эффективным статусом на момент чтения.
type PlanState struct {
	UserUID   string
	Email     string
	Plan      models.Plan
	Status    models.Status
	StartedAt *time.Time
	ExpiresAt *time.Time
	TrialUsed bool
	Features  gate.Features
}

// IsActive true, если эффективный статус active.
func (s PlanState) IsActive() bool {
	return s.Status == models.StatusActive
}

// Ledger сервис тарифов.
type Ledger struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewLedger создаёт сервис. cache может быть nil.
func NewLedger(repo Repository, cache Cache, log *slog.Logger) *Ledger {
	return &Ledger{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func newState(uid, email string, p models.UserPlan, now time.Time) *PlanState {
	status := p.EffectiveStatus(now)
	return &PlanState{
		UserUID:   uid,
		Email:     email,
		Plan:      p.Plan,
		Status:    status,
		StartedAt: p.StartedAt,
		ExpiresAt: p.ExpiresAt,
		TrialUsed: p.TrialUsed,
		Features:  gate.AllowedFeatures(p.Plan, status),
	}
}

func (l *Ledger) loadUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "ledger.loadUser"

	fill := false
	var version int64
	if l.cache != nil {
		u, found, err := l.cache.GetUser(ctx, userUID)
		if err != nil {
			l.log.Warn("plan cache read failed", sl.Op(op), sl.Err(err))
		}
		if found {
			return u, nil
		}
		version, err = l.cache.PlanVersion(ctx, userUID)
		if err != nil {
			l.log.Warn("plan cache version read failed", sl.Op(op), sl.Err(err))
		} else {
			fill = true
		}
	}

	u, err := l.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if fill {
		stored, err := l.cache.SetUserIfVersion(ctx, u, version)
		if err != nil {
			l.log.Warn("plan cache write failed", sl.Op(op), sl.Err(err))
		} else if !stored {
			l.log.Debug("plan changed during read, snapshot not cached", sl.Op(op), slog.String("user_uid", userUID))
		}
	}
	return u, nil
}

func (l *Ledger) invalidate(ctx context.Context, userUID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.InvalidateUser(ctx, userUID); err != nil {
		l.log.Warn("plan cache invalidation failed",
			slog.String("user_uid", userUID), sl.Err(err))
	}
}

// CurrentStatus возвращает тариф с эффективным статусом. Если срок истёк, а в
// хранилище всё ещё active, исправление сохраняется при первом таком чтении.
func (l *Ledger) CurrentStatus(ctx context.Context, userUID string) (*PlanState, error) {
	const op = "ledger.CurrentStatus"

	u, err := l.loadUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := l.now()
	if u.Lapsed(now) {
		changed, err := l.repo.ExpireIfLapsed(ctx, userUID, now)
		if err != nil {
			l.log.Warn("failed to persist plan expiry", sl.Op(op), slog.String("user_uid", userUID), sl.Err(err))
		} else {
			if changed {
				metrics.ExpiredPlansTotal.WithLabelValues("read").Inc()
				l.log.Info("plan expired", sl.Op(op), slog.String("user_uid", userUID), slog.String("plan", string(u.Plan)))
			}
			l.invalidate(ctx, userUID)
		}
	}
	return newState(u.UUID, u.Email, u.UserPlan, now), nil
}

// StartTrial запускает пробный период на 14 дней. Доступен один раз и только с free.
func (l *Ledger) StartTrial(ctx context.Context, userUID string) (*PlanState, error) {
	const op = "ledger.StartTrial"

	now := l.now()
	change := models.PlanChange{
		Plan:      models.PlanTrial,
		Cause:     models.CauseTrial,
		StartedAt: now,
		ExpiresAt: models.PlanTrial.ExpiresAt(now),
	}
	p, err := l.repo.StartTrial(ctx, userUID, change)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	l.invalidate(ctx, userUID)
	metrics.PlanChangesTotal.WithLabelValues(string(change.Cause), string(change.Plan)).Inc()
	l.log.Info("trial started", sl.Op(op), slog.String("user_uid", userUID))
	return newState(userUID, "", *p, now), nil
}

// ApplyPlan переводит пользователя на платный тариф. Это единственная точка
// изменения тарифа для оплат; промокоды проходят через ApplyPromo.
func (l *Ledger) ApplyPlan(ctx context.Context, userUID string, plan models.Plan, cause models.Cause) (*PlanState, error) {
	return l.apply(ctx, userUID, plan, cause, "")
}

// ApplyPromo погашает промокод и применяет его тариф одной транзакцией.
func (l *Ledger) ApplyPromo(ctx context.Context, userUID string, plan models.Plan, code string) (*PlanState, error) {
	return l.apply(ctx, userUID, plan, models.CausePromo, code)
}

func (l *Ledger) apply(ctx context.Context, userUID string, plan models.Plan, cause models.Cause, code string) (*PlanState, error) {
	const op = "ledger.ApplyPlan"

	if !plan.IsPaid() {
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrInvalidPlan, plan)
	}

	now := l.now()
	change := models.PlanChange{
		Plan:      plan,
		Cause:     cause,
		StartedAt: now,
		ExpiresAt: plan.ExpiresAt(now),
		PromoCode: code,
	}
	p, err := l.repo.ApplyPlan(ctx, userUID, change)
	if err != nil {
		if errors.Is(err, models.ErrIneligibleUpgrade) {
			l.log.Info("upgrade rejected: active paid plan", sl.Op(op),
				slog.String("user_uid", userUID), slog.String("plan", string(plan)))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	l.invalidate(ctx, userUID)
	metrics.PlanChangesTotal.WithLabelValues(string(cause), string(plan)).Inc()
	l.log.Info("plan applied", sl.Op(op),
		slog.String("user_uid", userUID),
		slog.String("plan", string(plan)),
		slog.String("cause", string(cause)),
	)
	return newState(userUID, "", *p, now), nil
}

// History возвращает историю переходов пользователя, новые первыми.
func (l *Ledger) History(ctx context.Context, userUID string, limit int) ([]models.HistoryEntry, error) {
	const op = "ledger.History"
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	entries, err := l.repo.ListHistory(ctx, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

// SweepExpired сохраняет expired для всех истёкших тарифов. Чтение через
// CurrentStatus даёт тот же результат и без этой проверки.
func (l *Ledger) SweepExpired(ctx context.Context) (int, error) {
	const op = "ledger.SweepExpired"

	uids, err := l.repo.ExpireLapsed(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	for _, uid := range uids {
		l.invalidate(ctx, uid)
	}
	if len(uids) > 0 {
		metrics.ExpiredPlansTotal.WithLabelValues("sweep").Add(float64(len(uids)))
	}
	return len(uids), nil
}
