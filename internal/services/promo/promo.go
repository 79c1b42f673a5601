// Package promo погашение и администрирование промокодов.
package promo

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BekzhanK1/moodlog-backend/internal/lib/metrics"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
)

const (
	// CodeAlphabet символы генерируемых кодов, без похожих 0/O и 1/I.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// GeneratedCodeLength длина сгенерированного кода.
	GeneratedCodeLength = 12
	// MaxCodeLength максимальная длина кода, заданного вручную.
	MaxCodeLength = 32

	generateAttempts = 10

	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Repository хранилище промокодов.
type Repository interface {
	CreatePromoCode(ctx context.Context, p models.PromoCode) (*models.PromoCode, error)
	PromoCodeExists(ctx context.Context, code string) (bool, error)
	GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	ListPromoCodes(ctx context.Context, createdBy string, includeUsed bool, limit int) ([]*models.PromoCode, error)
	DeletePromoCode(ctx context.Context, id string) error
}

// Ledger часть сервиса тарифов, через которую применяется тариф промокода.
type Ledger interface {
	CurrentStatus(ctx context.Context, userUID string) (*ledger.PlanState, error)
	ApplyPromo(ctx context.Context, userUID string, plan models.Plan, code string) (*ledger.PlanState, error)
}

// Service сервис промокодов.
type Service struct {
	repo     Repository
	plans    Ledger
	log      *slog.Logger
	now      func() time.Time
	generate func() (string, error)
}

// NewPromoService создаёт сервис.
func NewPromoService(repo Repository, plans Ledger, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		plans:    plans,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		generate: GenerateCode,
	}
}

// GenerateCode возвращает случайный код из CodeAlphabet.
func GenerateCode() (string, error) {
	buf := make([]byte, GeneratedCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// len(CodeAlphabet) == 32, маска не даёт смещения распределения
	for i := range buf {
		buf[i] = CodeAlphabet[buf[i]&31]
	}
	return string(buf), nil
}

// Redeem погашает промокод. Проверки выполняются в порядке: существование,
// использован ли, срок действия, право пользователя. Захват кода и смена тарифа
// происходят в одной транзакции хранилища.
func (s *Service) Redeem(ctx context.Context, userUID, code string) (*ledger.PlanState, error) {
	const op = "promo.Redeem"

	state, err := s.redeem(ctx, userUID, models.NormalizeCode(code))
	if err != nil {
		metrics.PromoRedemptionsTotal.WithLabelValues(redeemResult(err)).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.PromoRedemptionsTotal.WithLabelValues("ok").Inc()
	s.log.Info("promo code redeemed", sl.Op(op),
		slog.String("user_uid", userUID), slog.String("plan", string(state.Plan)))
	return state, nil
}

func (s *Service) redeem(ctx context.Context, userUID, code string) (*ledger.PlanState, error) {
	if code == "" {
		return nil, models.ErrPromoNotFound
	}

	p, err := s.repo.GetPromoCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p.IsUsed {
		return nil, models.ErrPromoAlreadyUsed
	}
	if p.Expired(s.now()) {
		return nil, models.ErrPromoExpired
	}

	current, err := s.plans.CurrentStatus(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if !current.Plan.AcceptsPromo() {
		return nil, models.ErrIneligibleUser
	}

	state, err := s.plans.ApplyPromo(ctx, userUID, p.Plan, code)
	if err != nil {
		if errors.Is(err, models.ErrIneligibleUpgrade) {
			return nil, models.ErrIneligibleUser
		}
		return nil, err
	}
	return state, nil
}

func redeemResult(err error) string {
	switch {
	case errors.Is(err, models.ErrPromoNotFound):
		return "not_found"
	case errors.Is(err, models.ErrPromoAlreadyUsed):
		return "already_used"
	case errors.Is(err, models.ErrPromoExpired):
		return "expired"
	case errors.Is(err, models.ErrIneligibleUser):
		return "ineligible"
	default:
		return "error"
	}
}

// Create выпускает промокод на платный тариф. Пустой code означает генерацию.
func (s *Service) Create(ctx context.Context, adminUID string, plan models.Plan, code string,
	expiresAt *time.Time) (*models.PromoCode, error) {
	const op = "promo.Create"

	if !plan.IsPaid() {
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrInvalidPlan, plan)
	}
	if expiresAt != nil {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	record := models.PromoCode{
		Plan:      plan,
		CreatedBy: adminUID,
		ExpiresAt: expiresAt,
	}

	var (
		created *models.PromoCode
		err     error
	)
	if code = models.NormalizeCode(code); code != "" {
		created, err = s.createCustom(ctx, record, code)
	} else {
		created, err = s.createGenerated(ctx, record)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("promo code created", sl.Op(op),
		slog.String("promo_id", created.ID),
		slog.String("plan", string(plan)),
		slog.String("created_by", adminUID),
	)
	return created, nil
}

func (s *Service) createCustom(ctx context.Context, record models.PromoCode, code string) (*models.PromoCode, error) {
	if len(code) < models.MinPromoCodeLength {
		return nil, models.ErrPromoCodeTooShort
	}
	exists, err := s.repo.PromoCodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrPromoCodeExists
	}
	record.ID = uuid.NewString()
	record.Code = code
	record.CreatedAt = s.now()
	return s.repo.CreatePromoCode(ctx, record)
}

func (s *Service) createGenerated(ctx context.Context, record models.PromoCode) (*models.PromoCode, error) {
	for range generateAttempts {
		code, err := s.generate()
		if err != nil {
			return nil, err
		}
		exists, err := s.repo.PromoCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		record.ID = uuid.NewString()
		record.Code = code
		record.CreatedAt = s.now()
		created, err := s.repo.CreatePromoCode(ctx, record)
		if errors.Is(err, models.ErrPromoCodeExists) {
			continue
		}
		return created, err
	}
	return nil, models.ErrPromoGeneration
}

// List возвращает коды, выпущенные администратором.
func (s *Service) List(ctx context.Context, adminUID string, includeUsed bool, limit int) ([]*models.PromoCode, error) {
	const op = "promo.List"
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	list, err := s.repo.ListPromoCodes(ctx, adminUID, includeUsed, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Delete удаляет неиспользованный код.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "promo.Delete"
	if err := s.repo.DeletePromoCode(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("promo code deleted", sl.Op(op), slog.String("promo_id", id))
	return nil
}
