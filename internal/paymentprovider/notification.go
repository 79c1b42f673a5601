package paymentprovider

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// SignatureHeader заголовок, в котором Webkassa передаёт подпись тела уведомления.
const SignatureHeader = "X-Webkassa-Signature"

// ParseNotification разбирает тело уведомления. Пустой order_id, неизвестный
// статус или некорректная сумма дают ErrMalformedNotification.
func ParseNotification(raw []byte) (*Notification, error) {
	const op = "paymentprovider.ParseNotification"

	var payload notificationPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrMalformedNotification, err)
	}

	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		return nil, fmt.Errorf("%s: %w: missing order_id", op, models.ErrMalformedNotification)
	}
	outcome, ok := mapStatus(payload.Status)
	if !ok {
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, models.ErrMalformedNotification, payload.Status)
	}

	n := &Notification{
		ExternalOrderID: orderID,
		Outcome:         outcome,
		GatewayStatus:   payload.Status,
		ReceiptID:       payload.ReceiptID,
	}
	if payload.Amount != nil {
		amount, err := payload.Amount.Float64()
		if err != nil || amount < 0 || math.IsInf(amount, 0) || amount >= math.MaxInt64 {
			return nil, fmt.Errorf("%s: %w: bad amount", op, models.ErrMalformedNotification)
		}
		n.Amount = int64(math.Round(amount))
	}
	return n, nil
}

// Signer проверяет и формирует подписи уведомлений общим секретом.
type Signer struct {
	secret []byte
}

// NewSigner создаёт Signer. С пустым секретом любая подпись отклоняется.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign возвращает base64(HMAC-SHA256(secret, body)).
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature сравнивает подпись с ожидаемой за постоянное время.
func (s *Signer) VerifySignature(body []byte, signature string) error {
	if len(s.secret) == 0 || signature == "" {
		return models.ErrInvalidSignature
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return models.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return models.ErrInvalidSignature
	}
	return nil
}
