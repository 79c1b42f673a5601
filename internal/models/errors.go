package models

import "errors"

// Ошибки тарифа.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPlan       = errors.New("invalid plan")
	ErrTrialAlreadyUsed  = errors.New("trial already used")
	ErrNotEligible       = errors.New("trial is only available on the free plan")
	ErrIneligibleUpgrade = errors.New("an active paid plan is already in place")
)

// Ошибки платежей и шлюза.
var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentExists         = errors.New("payment with this order id already exists")
	ErrUnknownPayment        = errors.New("notification references an unknown payment")
	ErrGatewayUnavailable    = errors.New("payment gateway unavailable")
	ErrGatewayRejected       = errors.New("payment gateway rejected the request")
	ErrMalformedNotification = errors.New("malformed gateway notification")
	ErrInvalidSignature      = errors.New("invalid notification signature")
	ErrUnknownGateway        = errors.New("unknown payment gateway")
)

// Ошибки промокодов.
var (
	ErrPromoNotFound     = errors.New("promo code not found")
	ErrPromoAlreadyUsed  = errors.New("promo code already used")
	ErrPromoExpired      = errors.New("promo code expired")
	ErrIneligibleUser    = errors.New("user is not eligible for this promo code")
	ErrPromoCodeExists   = errors.New("promo code already exists")
	ErrPromoCodeTooShort = errors.New("promo code is too short")
	ErrPromoCodeInUse    = errors.New("used promo codes cannot be deleted")
	ErrPromoGeneration   = errors.New("failed to generate a unique promo code")
)
