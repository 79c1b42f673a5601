package models

import "time"

// User пользователь с встроенным состоянием тарифа.
type User struct {
	UUID  string
	Email string
	Role  string
	UserPlan
}

// UserPlan состояние тарифа пользователя в том виде, в каком оно хранится.
type UserPlan struct {
	Plan      Plan
	StartedAt *time.Time
	ExpiresAt *time.Time
	TrialUsed bool
	Status    Status
}

// EffectiveStatus вычисляет статус на момент now: истёкший срок даёт expired
// независимо от сохранённого значения.
func (u UserPlan) EffectiveStatus(now time.Time) Status {
	if u.ExpiresAt != nil && !u.ExpiresAt.After(now) {
		return StatusExpired
	}
	if u.Status == "" {
		return StatusActive
	}
	return u.Status
}

// Lapsed true, если сохранённый статус active уже не соответствует сроку.
func (u UserPlan) Lapsed(now time.Time) bool {
	return u.Status == StatusActive && u.EffectiveStatus(now) == StatusExpired
}

// HasActivePaidPlan true для pro_month/pro_year с действующим сроком.
func (u UserPlan) HasActivePaidPlan(now time.Time) bool {
	return u.Plan.IsPaid() && u.EffectiveStatus(now) == StatusActive
}

// CheckTrial проверяет, можно ли запустить пробный период.
func (u UserPlan) CheckTrial() error {
	if u.TrialUsed {
		return ErrTrialAlreadyUsed
	}
	if u.Plan != PlanFree {
		return ErrNotEligible
	}
	return nil
}

// CheckUpgrade проверяет, можно ли перевести пользователя на платный тариф.
// Пока действует оплаченный тариф, новый не накладывается.
func (u UserPlan) CheckUpgrade(now time.Time) error {
	if u.HasActivePaidPlan(now) {
		return ErrIneligibleUpgrade
	}
	return nil
}

// PlanChange описывает переход на новый тариф.
// Если задан PromoCode, код погашается в той же транзакции.
type PlanChange struct {
	Plan      Plan
	Cause     Cause
	StartedAt time.Time
	ExpiresAt *time.Time
	PromoCode string
}

// HistoryEntry неизменяемая запись о смене тарифа.
type HistoryEntry struct {
	ID           string     `json:"id"`
	UserUID      string     `json:"-"`
	PreviousPlan Plan       `json:"previous_plan"`
	NewPlan      Plan       `json:"plan"`
	Cause        Cause      `json:"cause"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
