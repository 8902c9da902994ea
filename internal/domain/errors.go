package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("too many requests")
	ErrExternal     = errors.New("external service failure")

	// ErrRefCodeTaken is returned by entrant stores when the generated referral
	// code collides with an existing one. Callers regenerate and retry.
	ErrRefCodeTaken = errors.New("referral code already taken")
)

// AlreadyVerifiedError is returned when a verified email signs up again.
// RefCode is safe to return to the caller: it is meant to be shared.
type AlreadyVerifiedError struct {
	RefCode string
}

func (e *AlreadyVerifiedError) Error() string { return "email already verified" }

func (e *AlreadyVerifiedError) Unwrap() error { return ErrConflict }
