package models

import (
	"strings"
	"time"
)

// MinPromoCodeLength минимальная длина кода, заданного администратором.
const MinPromoCodeLength = 6

// PromoCode одноразовый код на платный тариф.
type PromoCode struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Plan      Plan       `json:"plan"`
	CreatedBy string     `json:"created_by"`
	IsUsed    bool       `json:"is_used"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired true, если срок действия кода наступил; граница включается.
func (p PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// NormalizeCode приводит введённый код к виду, в котором он хранится.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
