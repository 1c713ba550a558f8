package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/retry"
)

// HTTPSender posts webhook payloads to tenant callback urls
type HTTPSender struct {
	client *http.Client
	config config.WebhookConfig
	logger *slog.Logger
}

// NewHTTPSender creates a new HTTPSender
func NewHTTPSender(cfg config.WebhookConfig, logger *slog.Logger) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
}

// Send posts payload as JSON. idempotencyKey travels in the Idempotency-Key header so receivers can drop
// redeliveries. Any 2xx is a success.
func (s *HTTPSender) Send(ctx context.Context, url string, idempotencyKey string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build webhook request: %w", domain.ErrPermanentProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: webhook %s: %w", domain.ErrTransientProvider, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if providerErr := retry.FromHTTPStatus(resp.StatusCode); providerErr != nil {
		return fmt.Errorf("%w: webhook %s returned %d", providerErr, url, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook %s returned %d", domain.ErrPermanentProvider, url, resp.StatusCode)
	}

	s.logger.Debug("webhook delivered", "url", url, "idempotency_key", idempotencyKey, "status", resp.StatusCode)
	return nil
}
