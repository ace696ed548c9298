package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrStoreUnavailable marks a failure reaching the shared key-value store.
	// The cache layer swallows it; admission control and verification surface it.
	ErrStoreUnavailable     = errors.New("store unavailable")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrRateLimited          = errors.New("rate limited")
)
