package fetcher_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"transferhub/internal/adapters/fetcher"
	"transferhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestHTTPFetcher_Fetch(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("announced content type", func(t *testing.T) {
		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "transferhub-test", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			_, _ = w.Write([]byte("a,b\n1,2\n"))
		}))
		defer server.Close()
		f := fetcher.NewHTTPFetcher("transferhub-test", logger)

		// Act
		obj, err := f.Fetch(ctx, server.URL+"/report.csv")

		// Assert
		require.NoError(t, err)
		defer obj.Body.Close()
		body, err := io.ReadAll(obj.Body)
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(body))
		assert.Equal(t, int64(8), obj.Size)
		assert.Equal(t, "text/csv; charset=utf-8", obj.ContentType)
	})

	t.Run("sniffed content type keeps the whole body", func(t *testing.T) {
		// Arrange
		content := append(append([]byte{}, pngHeader...), []byte(strings.Repeat("x", 5000))...)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(content)
		}))
		defer server.Close()

		// Act
		obj, err := fetcher.NewHTTPFetcher("", logger).Fetch(ctx, server.URL)

		// Assert
		require.NoError(t, err)
		defer obj.Body.Close()
		assert.Equal(t, "image/png", obj.ContentType)
		body, err := io.ReadAll(obj.Body)
		require.NoError(t, err)
		assert.Equal(t, content, body)
	})

	t.Run("unknown length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			flusher := w.(http.Flusher)
			_, _ = w.Write([]byte("chunk-1 "))
			flusher.Flush()
			_, _ = w.Write([]byte("chunk-2"))
		}))
		defer server.Close()

		obj, err := fetcher.NewHTTPFetcher("", logger).Fetch(ctx, server.URL)

		require.NoError(t, err)
		defer obj.Body.Close()
		assert.Equal(t, int64(-1), obj.Size)
	})

	statusCases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found is permanent", http.StatusNotFound, domain.ErrPermanentProvider},
		{"forbidden is permanent", http.StatusForbidden, domain.ErrPermanentProvider},
		{"unavailable is transient", http.StatusServiceUnavailable, domain.ErrTransientProvider},
		{"throttled is transient", http.StatusTooManyRequests, domain.ErrTransientProvider},
	}
	for _, tc := range statusCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			_, err := fetcher.NewHTTPFetcher("", logger).Fetch(ctx, server.URL)

			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("connection refused is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := fetcher.NewHTTPFetcher("", logger).Fetch(ctx, url)

		assert.ErrorIs(t, err, domain.ErrTransientProvider)
	})
}
