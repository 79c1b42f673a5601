package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

const userColumns = `uid, email, role, plan, plan_started_at, plan_expires_at, trial_used, subscription_status`

func scanUser(row scanner) (*models.User, error) {
	var (
		u                  models.User
		plan, status       string
		started, expiresAt sql.NullTime
	)
	if err := row.Scan(&u.UUID, &u.Email, &u.Role, &plan, &started, &expiresAt, &u.TrialUsed, &status); err != nil {
		return nil, err
	}
	u.Plan = models.Plan(plan)
	u.Status = models.Status(status)
	u.StartedAt = timePtr(started)
	u.ExpiresAt = timePtr(expiresAt)
	return &u, nil
}

// GetUser возвращает пользователя с состоянием тарифа по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func lockUser(ctx context.Context, tx *sql.Tx, userUID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1 FOR UPDATE`
	u, err := scanUser(tx.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	return u, err
}

func writePlan(ctx context.Context, tx *sql.Tx, prev *models.User, change models.PlanChange, trialUsed bool) (*models.UserPlan, error) {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET plan = $2, plan_started_at = $3, plan_expires_at = $4,
		    trial_used = $5, subscription_status = 'active'
		WHERE uid = $1`,
		prev.UUID, string(change.Plan), change.StartedAt.UTC(), nullTime(change.ExpiresAt), trialUsed)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscription_history (user_uid, previous_plan, new_plan, cause, started_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		prev.UUID, string(prev.Plan), string(change.Plan), string(change.Cause),
		change.StartedAt.UTC(), nullTime(change.ExpiresAt), change.StartedAt.UTC())
	if err != nil {
		return nil, err
	}

	started := change.StartedAt.UTC()
	return &models.UserPlan{
		Plan:      change.Plan,
		StartedAt: &started,
		ExpiresAt: change.ExpiresAt,
		TrialUsed: trialUsed,
		Status:    models.StatusActive,
	}, nil
}

// StartTrial переводит пользователя на пробный период. Проверка права и запись
// выполняются под блокировкой строки пользователя.
func (s *Storage) StartTrial(ctx context.Context, userUID string, change models.PlanChange) (*models.UserPlan, error) {
	const op = "storage.StartTrial"

	var result *models.UserPlan
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		u, err := lockUser(ctx, tx, userUID)
		if err != nil {
			return err
		}
		if err := u.CheckTrial(); err != nil {
			return err
		}
		result, err = writePlan(ctx, tx, u, change, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ApplyPlan единственная точка смены тарифа для оплат и промокодов.
// Если в change указан промокод, он погашается в той же транзакции до проверки
// права пользователя, поэтому отказ по любой причине откатывает и погашение.
func (s *Storage) ApplyPlan(ctx context.Context, userUID string, change models.PlanChange) (*models.UserPlan, error) {
	const op = "storage.ApplyPlan"

	var result *models.UserPlan
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if change.PromoCode != "" {
			if err := claimPromoCode(ctx, tx, change.PromoCode, userUID, change.StartedAt); err != nil {
				return err
			}
		}
		u, err := lockUser(ctx, tx, userUID)
		if err != nil {
			return err
		}
		if change.PromoCode != "" && !u.Plan.AcceptsPromo() {
			return models.ErrIneligibleUser
		}
		if err := u.CheckUpgrade(change.StartedAt); err != nil {
			return err
		}
		result, err = writePlan(ctx, tx, u, change, u.TrialUsed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExpireIfLapsed сохраняет статус expired, если срок тарифа наступил.
// Возвращает true, если запись была изменена этим вызовом.
func (s *Storage) ExpireIfLapsed(ctx context.Context, userUID string, now time.Time) (bool, error) {
	const op = "storage.ExpireIfLapsed"

	res, err := s.DB.ExecContext(ctx, `
		UPDATE users SET subscription_status = 'expired'
		WHERE uid = $1
		  AND subscription_status = 'active'
		  AND plan_expires_at IS NOT NULL
		  AND plan_expires_at <= $2`, userUID, now.UTC())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// ExpireLapsed помечает expired все тарифы, срок которых наступил. Возвращает UID изменённых пользователей.
func (s *Storage) ExpireLapsed(ctx context.Context, now time.Time) ([]string, error) {
	const op = "storage.ExpireLapsed"

	rows, err := s.DB.QueryContext(ctx, `
		UPDATE users SET subscription_status = 'expired'
		WHERE subscription_status = 'active'
		  AND plan_expires_at IS NOT NULL
		  AND plan_expires_at <= $1
		RETURNING uid`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return uids, nil
}

// ListHistory возвращает историю смены тарифов, новые записи первыми.
func (s *Storage) ListHistory(ctx context.Context, userUID string, limit int) ([]models.HistoryEntry, error) {
	const op = "storage.ListHistory"

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_uid, previous_plan, new_plan, cause, started_at, expires_at, created_at
		FROM subscription_history
		WHERE user_uid = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var (
			h                  models.HistoryEntry
			prev, next, cause  string
			started, expiresAt sql.NullTime
		)
		if err := rows.Scan(&h.ID, &h.UserUID, &prev, &next, &cause, &started, &expiresAt, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		h.PreviousPlan = models.Plan(prev)
		h.NewPlan = models.Plan(next)
		h.Cause = models.Cause(cause)
		h.StartedAt = timePtr(started)
		h.ExpiresAt = timePtr(expiresAt)
		h.CreatedAt = h.CreatedAt.UTC()
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
