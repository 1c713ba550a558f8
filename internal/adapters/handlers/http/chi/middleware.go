package chi

import (
	"log/slog"
	"net/http"
	"time"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AccessLogMiddleware logs one line per request with the caller's tenant and idempotency key.
// Server errors log at error level and client errors at warn level.
func AccessLogMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				attrs := []any{
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"route", routePattern(r),
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"tenant_id", r.Header.Get(api.HeaderTenantID),
				}
				if key := r.Header.Get(api.HeaderIdempotencyKey); key != "" {
					attrs = append(attrs, "idempotency_key", key)
				}

				switch {
				case status >= http.StatusInternalServerError:
					l.Error("http_request", attrs...)
				case status >= http.StatusBadRequest:
					l.Warn("http_request", attrs...)
				default:
					l.Info("http_request", attrs...)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
