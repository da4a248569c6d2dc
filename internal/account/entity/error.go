package entity

import "errors"

var (
	ErrAlreadyRegistered     = errors.New("account already registered")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("account not found")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired recovery token")
	ErrStoreUnavailable      = errors.New("account store unavailable")
	ErrDeliveryFailed        = errors.New("delivery failed")
)
