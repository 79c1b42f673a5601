package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

const promoColumns = `id, code, plan, created_by, is_used, used_by, used_at, expires_at, created_at`

func scanPromo(row scanner) (*models.PromoCode, error) {
	var (
		p                 models.PromoCode
		plan              string
		usedBy            sql.NullString
		usedAt, expiresAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Code, &plan, &p.CreatedBy, &p.IsUsed, &usedBy, &usedAt, &expiresAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Plan = models.Plan(plan)
	p.UsedBy = stringPtr(usedBy)
	p.UsedAt = timePtr(usedAt)
	p.ExpiresAt = timePtr(expiresAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// CreatePromoCode сохраняет новый промокод. Код должен быть уже нормализован.
func (s *Storage) CreatePromoCode(ctx context.Context, p models.PromoCode) (*models.PromoCode, error) {
	const op = "storage.CreatePromoCode"

	query := `INSERT INTO promo_codes (id, code, plan, created_by, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + promoColumns
	created, err := scanPromo(s.DB.QueryRowContext(ctx, query,
		p.ID, p.Code, string(p.Plan), p.CreatedBy, nullTime(p.ExpiresAt), p.CreatedAt.UTC()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrPromoCodeExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// PromoCodeExists проверяет, занят ли код.
func (s *Storage) PromoCodeExists(ctx context.Context, code string) (bool, error) {
	const op = "storage.PromoCodeExists"

	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM promo_codes WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GetPromoCode ищет промокод по нормализованному значению.
func (s *Storage) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	const op = "storage.GetPromoCode"

	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`
	p, err := scanPromo(s.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrPromoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPromoCodes возвращает коды, созданные администратором, новые первыми.
func (s *Storage) ListPromoCodes(ctx context.Context, createdBy string, includeUsed bool, limit int) ([]*models.PromoCode, error) {
	const op = "storage.ListPromoCodes"

	query := `SELECT ` + promoColumns + `
			  FROM promo_codes
			  WHERE created_by = $1 AND ($2 OR is_used = FALSE)
			  ORDER BY created_at DESC
			  LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, createdBy, includeUsed, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.PromoCode, 0)
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeletePromoCode удаляет неиспользованный код. Погашенные коды остаются как след перехода.
func (s *Storage) DeletePromoCode(ctx context.Context, id string) error {
	const op = "storage.DeletePromoCode"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM promo_codes WHERE id = $1 AND is_used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM promo_codes WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return fmt.Errorf("%s: %w", op, models.ErrPromoCodeInUse)
	}
	return fmt.Errorf("%s: %w", op, models.ErrPromoNotFound)
}

// claimPromoCode погашает код условной записью: успешен ровно один из конкурентных вызовов.
func claimPromoCode(ctx context.Context, tx *sql.Tx, code, userUID string, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE promo_codes
		SET is_used = TRUE, used_by = $2, used_at = $3
		WHERE code = $1
		  AND is_used = FALSE
		  AND (expires_at IS NULL OR expires_at > $3)`,
		code, userUID, now.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var (
		isUsed    bool
		expiresAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx, `SELECT is_used, expires_at FROM promo_codes WHERE code = $1`, code).
		Scan(&isUsed, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ErrPromoNotFound
	case err != nil:
		return err
	case isUsed:
		return models.ErrPromoAlreadyUsed
	default:
		return models.ErrPromoExpired
	}
}
