// Package common defines shared constants and sentinel errors used across
// pinmail components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")

	// PIN challenge errors. ErrDecryptFailed never leaves the verifier,
	// it is folded into ErrIncorrectPin.
	ErrIncorrectPin    = errors.New("incorrect pin")
	ErrDecryptFailed   = errors.New("decrypt failed")
	ErrTooManyAttempts = errors.New("too many pin attempts")
	ErrPinLocked       = errors.New("message pin not entered")

	// Message lifecycle errors.
	ErrStoreFailure      = errors.New("store failure")
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
