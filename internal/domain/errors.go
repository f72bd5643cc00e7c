package domain

import "errors"

var (
	ErrRecordNotFound      = errors.New("astrology record not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrTranslationNotFound = errors.New("translation pair not found")
	ErrConfigNotFound      = errors.New("site config key not found")

	// ErrOrderAlreadyProcessed signals a duplicate Shopify order id. Webhook
	// delivery is at-least-once, so this is an expected outcome, not a failure.
	ErrOrderAlreadyProcessed = errors.New("order already processed")

	ErrCodeExpired     = errors.New("verification code has expired or does not exist")
	ErrCodeInvalid     = errors.New("invalid verification code")
	ErrSendRateLimited = errors.New("verification emails rate limited for this address")

	ErrInvalidCredentials = errors.New("invalid credentials")
)
