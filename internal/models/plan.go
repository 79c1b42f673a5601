// Package models содержит доменные типы биллинга: тарифы, состояние тарифа
// пользователя, платежи, историю переходов и промокоды.
package models

import (
	"fmt"
	"time"
)

// Plan тариф пользователя.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanTrial    Plan = "trial"
	PlanProMonth Plan = "pro_month"
	PlanProYear  Plan = "pro_year"
)

// TrialDuration длительность пробного периода.
const TrialDuration = 14 * 24 * time.Hour

// ParsePlan разбирает строковое имя тарифа.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, s)
	}
	return p, nil
}

// Valid сообщает, известен ли тариф.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanTrial, PlanProMonth, PlanProYear:
		return true
	}
	return false
}

// IsPaid true для тарифов, которые покупаются через шлюз или промокод.
func (p Plan) IsPaid() bool {
	return p == PlanProMonth || p == PlanProYear
}

// AcceptsPromo true для тарифов, с которых можно погасить промокод.
// Платный тариф, даже истёкший, промокодом не продлевается.
func (p Plan) AcceptsPromo() bool {
	return p == PlanFree || p == PlanTrial
}

// ExpiresAt возвращает момент окончания тарифа, начатого в from.
// Для free срок не ограничен.
func (p Plan) ExpiresAt(from time.Time) *time.Time {
	var t time.Time
	switch p {
	case PlanTrial:
		t = from.Add(TrialDuration)
	case PlanProMonth:
		t = from.AddDate(0, 1, 0)
	case PlanProYear:
		t = from.AddDate(1, 0, 0)
	default:
		return nil
	}
	return &t
}

// Status статус текущего срока тарифа.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Cause причина перехода между тарифами, фиксируется в истории.
type Cause string

const (
	CauseTrial   Cause = "trial"
	CausePayment Cause = "payment"
	CausePromo   Cause = "promo"
)
