package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

const paymentColumns = `id, user_uid, order_id, plan, amount, currency, status, payment_url, receipt_id, created_at, resolved_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p            models.Payment
		plan, status string
		receipt      sql.NullString
		resolved     sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserUID, &p.OrderID, &plan, &p.Amount, &p.Currency,
		&status, &p.PaymentURL, &receipt, &p.CreatedAt, &resolved)
	if err != nil {
		return nil, err
	}
	p.Plan = models.Plan(plan)
	p.Status = models.PaymentStatus(status)
	p.ReceiptID = stringPtr(receipt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.ResolvedAt = timePtr(resolved)
	return &p, nil
}

// CreatePayment сохраняет новый платёж в статусе pending.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (*models.Payment, error) {
	const op = "storage.CreatePayment"

	query := `INSERT INTO payments (id, user_uid, order_id, plan, amount, currency, status, payment_url, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8)
			  RETURNING ` + paymentColumns
	created, err := scanPayment(s.DB.QueryRowContext(ctx, query,
		p.ID, p.UserUID, p.OrderID, string(p.Plan), p.Amount, p.Currency, p.PaymentURL, p.CreatedAt.UTC()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// SetPaymentURL сохраняет ссылку на оплату, выданную шлюзом.
func (s *Storage) SetPaymentURL(ctx context.Context, paymentID, url string) error {
	const op = "storage.SetPaymentURL"

	res, err := s.DB.ExecContext(ctx, `UPDATE payments SET payment_url = $2 WHERE id = $1`, paymentID, url)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrPaymentNotFound)
	}
	return nil
}

// ResolvePayment переводит платёж из pending в терминальный статус.
// Переход выполняется условным UPDATE; если платёж уже завершён, он возвращается
// без изменений с alreadyResolved=true.
func (s *Storage) ResolvePayment(ctx context.Context, orderID string, status models.PaymentStatus,
	receiptID *string, now time.Time) (payment *models.Payment, alreadyResolved bool, err error) {
	const op = "storage.ResolvePayment"

	if !status.Terminal() {
		return nil, false, fmt.Errorf("%s: status %q is not terminal", op, status)
	}

	query := `UPDATE payments
			  SET status = $2, resolved_at = $3, receipt_id = COALESCE($4, receipt_id)
			  WHERE order_id = $1 AND status = 'pending'
			  RETURNING ` + paymentColumns
	payment, err = scanPayment(s.DB.QueryRowContext(ctx, query, orderID, string(status), now.UTC(), nullString(receiptID)))
	if err == nil {
		return payment, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	payment, err = s.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return payment, true, nil
}

// GetPayment возвращает платёж по идентификатору.
func (s *Storage) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	const op = "storage.GetPayment"

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPaymentByOrderID возвращает платёж по идентификатору заказа во внешнем шлюзе.
func (s *Storage) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	const op = "storage.GetPaymentByOrderID"

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userUID string, limit int) ([]*models.Payment, error) {
	const op = "storage.ListPayments"

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
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

// SetReceipt сохраняет номер фискального чека, если он ещё не записан.
func (s *Storage) SetReceipt(ctx context.Context, paymentID, receiptID string) error {
	const op = "storage.SetReceipt"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE payments SET receipt_id = $2 WHERE id = $1 AND receipt_id IS NULL`, paymentID, receiptID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
