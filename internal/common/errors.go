// Package common defines shared constants and sentinel errors used across
// the server layers of jwtkeeper. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrDuplicateTokenID means a token id is already held by a different
	// owner. A correct issuer never produces it; treat it as an alert.
	ErrDuplicateTokenID = errors.New("duplicate token id")

	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrUpstreamUnavailable wraps failures of the billing provider.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Validation errors.
	ErrorValidation           = errors.New("validation error")
	ErrWeakPassword           = errors.New("password is too weak")
	ErrBillingCustomerMissing = errors.New("billing customer missing")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
