package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/retry"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay(t *testing.T) {
	p := retry.Policy{
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxInterval:     10 * time.Second,
		MaxAttempts:     5,
	}

	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
	assert.Equal(t, 10*time.Second, p.Delay(4))
	assert.Equal(t, 10*time.Second, p.Delay(60))
	assert.Equal(t, time.Second, p.Delay(-1))
}

func TestPolicy_Exhausted(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3}

	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(4))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Class
	}{
		{"transient provider", fmt.Errorf("put: %w", domain.ErrTransientProvider), retry.Retryable},
		{"permanent provider", fmt.Errorf("put: %w", domain.ErrPermanentProvider), retry.Permanent},
		{"validation", domain.ErrMismatchETag, retry.Permanent},
		{"not found", domain.ErrSessionNotFound, retry.Permanent},
		{"deadline", context.DeadlineExceeded, retry.Retryable},
		{"canceled", context.Canceled, retry.Interrupted},
		{"wrapped cancel", fmt.Errorf("publish: %w", context.Canceled), retry.Interrupted},
		{"network", timeoutErr{}, retry.Retryable},
		{"unknown", errors.New("boom"), retry.Retryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retry.Classify(tt.err))
		})
	}
}

func TestIsInterrupted(t *testing.T) {
	assert.True(t, retry.IsInterrupted(fmt.Errorf("fetch: %w", context.Canceled)))
	assert.False(t, retry.IsInterrupted(context.DeadlineExceeded))
	assert.False(t, retry.IsRetryable(context.Canceled))
	assert.False(t, retry.IsInterrupted(nil))
}

func TestFromHTTPStatus(t *testing.T) {
	assert.ErrorIs(t, retry.FromHTTPStatus(http.StatusInternalServerError), domain.ErrTransientProvider)
	assert.ErrorIs(t, retry.FromHTTPStatus(http.StatusServiceUnavailable), domain.ErrTransientProvider)
	assert.ErrorIs(t, retry.FromHTTPStatus(http.StatusTooManyRequests), domain.ErrTransientProvider)
	assert.ErrorIs(t, retry.FromHTTPStatus(http.StatusRequestTimeout), domain.ErrTransientProvider)
	assert.ErrorIs(t, retry.FromHTTPStatus(http.StatusBadRequest), domain.ErrPermanentProvider)
	assert.ErrorIs(t, retry.FromHTTPStatus(http.StatusForbidden), domain.ErrPermanentProvider)
	assert.NoError(t, retry.FromHTTPStatus(http.StatusOK))
}
