// Package retry holds the backoff policy and error classification shared by the
// outbox dispatcher and the download executor.
package retry

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"
	"transferhub/internal/core/domain"
)

// Policy is an exponential backoff bounded by MaxAttempts
type Policy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxAttempts     int
}

// Delay returns min(InitialInterval * Multiplier^attempt, MaxInterval). attempt starts at 0.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	delay := float64(p.InitialInterval) * math.Pow(multiplier, float64(attempt))
	if p.MaxInterval > 0 && delay > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Exhausted reports whether attempts already made consume the whole budget
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Class is the outcome of classifying an error
type Class int

const (
	// Retryable errors are retried per the policy
	Retryable Class = iota
	// Permanent errors fail immediately without consuming further retries
	Permanent
	// Interrupted errors mean the caller gave up; the attempt is left unsettled
	Interrupted
)

func (c Class) String() string {
	switch c {
	case Permanent:
		return "permanent"
	case Interrupted:
		return "interrupted"
	default:
		return "retryable"
	}
}

// Classify tells transient failures from permanent ones. Unknown errors are retried.
func Classify(err error) Class {
	switch {
	case err == nil:
		return Permanent
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, domain.ErrPermanentProvider),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrRetriesExhausted):
		return Permanent
	case errors.Is(err, domain.ErrTransientProvider),
		errors.Is(err, context.DeadlineExceeded):
		return Retryable
	}
	return Retryable
}

// IsRetryable is a shortcut for Classify(err) == Retryable
func IsRetryable(err error) bool {
	return err != nil && Classify(err) == Retryable
}

// FromHTTPStatus maps a provider status code onto the error taxonomy: 408, 429 and 5xx are transient,
// any other 4xx is permanent. Other codes return nil.
func FromHTTPStatus(code int) error {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
		return domain.ErrTransientProvider
	case code >= 400:
		return domain.ErrPermanentProvider
	default:
		return nil
	}
}

// IsInterrupted is a shortcut for Classify(err) == Interrupted
func IsInterrupted(err error) bool {
	return err != nil && Classify(err) == Interrupted
}
