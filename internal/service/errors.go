package service

import (
	"errors"
	"fmt"
	"time"
)

// Kind clasifica los errores que devuelven los servicios para que los
// handlers respondan sin comparar strings.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindExpired
	KindRateLimited
	KindConflict
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindRateLimited:
		return "rate_limited"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	}
	return "internal"
}

var (
	ErrInvalidFields      = errors.New("invalid fields")
	ErrEmailNotFound      = errors.New("email not found")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token has expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailInUse         = errors.New("email already in use")
	ErrRateLimited        = errors.New("rate limited")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")
	ErrEmailSendFailure   = errors.New("email send failed")
)

// RateLimitedError indica que el flujo supero su techo para ese email.
type RateLimitedError struct {
	Flow       string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited on %s flow, retry after %s", e.Flow, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryMinutes redondea hacia abajo la espera en minutos enteros.
func (e *RateLimitedError) RetryMinutes() int {
	return int(e.RetryAfter / time.Minute)
}

// KindOf devuelve la clase de un error de servicio.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidFields):
		return KindValidation
	case errors.Is(err, ErrEmailNotFound),
		errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrTokenExpired):
		return KindExpired
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrEmailInUse):
		return KindConflict
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrLimiterUnavailable),
		errors.Is(err, ErrEmailSendFailure):
		return KindDependency
	}
	return KindInternal
}

func storeError(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
