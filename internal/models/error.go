package models

import (
	"errors"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrInvalidToken covers every token verification failure: bad signature,
	// wrong issuer or audience, expiry, malformed structure. Callers get one
	// error kind regardless of which check failed.
	ErrInvalidToken = errors.New("invalid token")

	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrCsrfRejected = errors.New("csrf token rejected")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrAccountLocked    = errors.New("account is temporarily locked")
)

// AccountLockedError carries the lock expiry so the boundary can surface a
// retry hint. It matches ErrAccountLocked under errors.Is; the failure count
// is deliberately not part of it.
type AccountLockedError struct {
	LockedUntil time.Time
}

func (e *AccountLockedError) Error() string {
	return "account is temporarily locked"
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
