package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// HandlerV1 is the handler for v1 session routes
type HandlerV1 struct {
	sessionService port.SessionService
	logger         *slog.Logger
}

// NewSessionHandlerV1 creates HandlerV1
func NewSessionHandlerV1(service port.SessionService, logger *slog.Logger) *HandlerV1 {
	return &HandlerV1{
		sessionService: service,
		logger:         logger,
	}
}

// Routes exposes handler routes
func (h *HandlerV1) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/single", h.CreateSingleV1)
	router.Post("/multipart", h.CreateMultipartV1)
	router.Get("/", h.ListSessionsV1)
	router.Get("/{sessionID}", h.GetSessionV1)
	router.Get("/{sessionID}/download-url", h.DownloadURLV1)
	router.Post("/{sessionID}/start", h.StartV1)
	router.Post("/{sessionID}/complete", h.CompleteV1)
	router.Post("/{sessionID}/fail", h.FailV1)
	router.Post("/{sessionID}/abort", h.AbortV1)
	router.Post("/{sessionID}/parts/{partNumber}/presign", h.PresignPartV1)
	router.Put("/{sessionID}/parts/{partNumber}", h.AddPartV1)
	router.Post("/{sessionID}/multipart/complete", h.CompleteMultipartV1)

	return router
}

// ownedSession loads the session named in the path. Sessions of another tenant are reported as not found.
func (h *HandlerV1) ownedSession(w http.ResponseWriter, r *http.Request) (*domain.TransferSession, bool) {
	owner, err := api.Owner(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return nil, false
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.WriteError(w, h.logger, fmt.Errorf("%w: invalid session id", domain.ErrValidation))
		return nil, false
	}

	session, err := h.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return nil, false
	}
	if session.Owner.TenantID != owner.TenantID {
		api.WriteError(w, h.logger, domain.ErrSessionNotFound)
		return nil, false
	}
	return session, true
}
