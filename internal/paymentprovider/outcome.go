package paymentprovider

import (
	"strings"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// mapStatus переводит строковый статус Webkassa в статус платежа.
func mapStatus(s string) (models.PaymentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "succeeded", "paid", "completed":
		return models.PaymentSucceeded, true
	case "failed", "fail", "error", "declined", "rejected":
		return models.PaymentFailed, true
	case "cancelled", "canceled", "cancel", "expired":
		return models.PaymentCancelled, true
	case "pending", "new", "created", "processing", "in_progress":
		return models.PaymentPending, true
	}
	return "", false
}
