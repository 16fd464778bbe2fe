package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	ErrInvalidLink    = errors.New("verification link does not belong to campaign")
	ErrSessionUsed    = errors.New("verification session already used")
	ErrSessionExpired = errors.New("verification session expired")

	// ErrProviderUnavailable signals that the veteran-records service could not
	// be reached or answered with an unreadable body. Callers fall back to
	// direct verification when they see it.
	ErrProviderUnavailable = errors.New("verification provider unavailable")
)

// FieldError reports a single invalid or missing form field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes FieldError match ErrBadRequest.
func (e *FieldError) Is(target error) bool { return target == ErrBadRequest }

// RateLimitError is returned when a client exhausted its verification window.
type RateLimitError struct {
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}
