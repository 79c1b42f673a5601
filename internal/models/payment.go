package models

import "time"

// PaymentStatus состояние платежа: pending переходит ровно один раз в одно из терминальных.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Terminal true для succeeded, failed и cancelled.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed || s == PaymentCancelled
}

// Payment запись об инициированной оплате.
type Payment struct {
	ID         string        `json:"id"`
	UserUID    string        `json:"-"`
	OrderID    string        `json:"order_id"`
	Plan       Plan          `json:"plan"`
	Amount     int64         `json:"amount"`
	Currency   string        `json:"currency"`
	Status     PaymentStatus `json:"status"`
	PaymentURL string        `json:"payment_url,omitempty"`
	ReceiptID  *string       `json:"receipt_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}
