// Package api holds what the v1 handlers share: caller identity, error mapping and JSON responses.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"transferhub/internal/core/domain"
)

const (
	HeaderTenantID       = "X-Tenant-ID"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// ErrMissingTenant is returned when a request carries no tenant header
var ErrMissingTenant = fmt.Errorf("%w: %s header is required", domain.ErrValidation, HeaderTenantID)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// Owner reads the caller identity set by the gateway in front of the service
func Owner(r *http.Request) (domain.Owner, error) {
	owner := domain.Owner{
		TenantID:       r.Header.Get(HeaderTenantID),
		OrganizationID: r.Header.Get(HeaderOrganizationID),
		UserID:         r.Header.Get(HeaderUserID),
	}
	if owner.TenantID == "" {
		return domain.Owner{}, ErrMissingTenant
	}
	return owner, nil
}

// StatusFor maps the error taxonomy onto http status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPermanentProvider):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// WriteError replies with the status matching err. Messages of server side failures are not exposed.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "status", status)
		message = http.StatusText(status)
	}
	WriteJSON(w, logger, status, ErrorResponse{Error: message})
}

// WriteJSON encodes v with status
func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("error encoding response", "error", err)
	}
}
