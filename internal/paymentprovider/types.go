package paymentprovider

import (
	"encoding/json"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// SessionRequest данные для открытия платёжной сессии.
type SessionRequest struct {
	OrderID string
	UserUID string
	Email   string
	Plan    models.Plan
	Amount  int64
}

// Session результат открытия платёжной сессии.
type Session struct {
	PaymentURL      string
	ExternalOrderID string
}

// Notification нормализованное уведомление шлюза.
// Outcome равен PaymentPending для промежуточных статусов, которые только подтверждаются.
type Notification struct {
	ExternalOrderID string
	Outcome         models.PaymentStatus
	GatewayStatus   string
	Amount          int64
	ReceiptID       *string
}

// StatusResult ответ шлюза на запрос статуса заказа.
type StatusResult struct {
	Outcome       models.PaymentStatus
	GatewayStatus string
}

type createOrderRequest struct {
	CashboxID     string `json:"cashbox_id"`
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	CustomerEmail string `json:"customer_email"`
	ReturnURL     string `json:"return_url"`
	CancelURL     string `json:"cancel_url"`
}

type createOrderResponse struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

type orderStatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type issueReceiptRequest struct {
	CashboxID     string `json:"cashbox_id"`
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	CustomerEmail string `json:"customer_email"`
}

type issueReceiptResponse struct {
	ReceiptID string `json:"receipt_id"`
}

type notificationPayload struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Amount    *json.Number    `json:"amount"`
	ReceiptID *string         `json:"receipt_id"`
	Metadata  json.RawMessage `json:"metadata"`
}
