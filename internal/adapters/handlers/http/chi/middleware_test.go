package chi_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	http2 "net/http"
	"net/http/httptest"
	"testing"
	"transferhub/internal/adapters/handlers/http/chi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, req *http2.Request) []map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := chi.AccessLogMiddleware(logger)(http2.HandlerFunc(func(w http2.ResponseWriter, r *http2.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), req)

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		lines = append(lines, line)
	}
	return lines
}

func TestAccessLogMiddleware(t *testing.T) {
	t.Run("logs tenant and idempotency key", func(t *testing.T) {
		// Arrange
		req := httptest.NewRequest(http2.MethodPost, "/api/v1/sessions/single", nil)
		req.Header.Set("X-Tenant-ID", "tenant-a")
		req.Header.Set("Idempotency-Key", "key-1")

		// Act
		lines := serve(t, http2.StatusCreated, req)

		// Assert
		require.Len(t, lines, 1)
		assert.Equal(t, "INFO", lines[0]["level"])
		assert.Equal(t, "http_request", lines[0]["msg"])
		assert.Equal(t, "tenant-a", lines[0]["tenant_id"])
		assert.Equal(t, "key-1", lines[0]["idempotency_key"])
		assert.Equal(t, float64(http2.StatusCreated), lines[0]["status"])
		assert.Equal(t, float64(2), lines[0]["bytes"])
	})

	t.Run("omits an absent idempotency key", func(t *testing.T) {
		req := httptest.NewRequest(http2.MethodGet, "/api/v1/sessions", nil)
		req.Header.Set("X-Tenant-ID", "tenant-a")

		lines := serve(t, http2.StatusOK, req)

		require.Len(t, lines, 1)
		assert.NotContains(t, lines[0], "idempotency_key")
	})

	t.Run("level follows the status", func(t *testing.T) {
		clientErr := serve(t, http2.StatusConflict, httptest.NewRequest(http2.MethodPost, "/api/v1/sessions/x/complete", nil))
		serverErr := serve(t, http2.StatusServiceUnavailable, httptest.NewRequest(http2.MethodPost, "/api/v1/sessions/x/complete", nil))

		require.Len(t, clientErr, 1)
		require.Len(t, serverErr, 1)
		assert.Equal(t, "WARN", clientErr[0]["level"])
		assert.Equal(t, "ERROR", serverErr[0]["level"])
	})

	t.Run("health checks are not logged", func(t *testing.T) {
		lines := serve(t, http2.StatusOK, httptest.NewRequest(http2.MethodGet, "/health", nil))

		assert.Empty(t, lines)
	})
}
