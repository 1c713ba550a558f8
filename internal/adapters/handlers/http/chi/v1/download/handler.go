package download

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// HandlerV1 is the handler for v1 download routes
type HandlerV1 struct {
	downloadService port.DownloadService
	logger          *slog.Logger
}

// NewDownloadHandlerV1 creates HandlerV1
func NewDownloadHandlerV1(service port.DownloadService, logger *slog.Logger) *HandlerV1 {
	return &HandlerV1{
		downloadService: service,
		logger:          logger,
	}
}

// Routes exposes handler routes
func (h *HandlerV1) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", h.RequestDownloadV1)
	router.Get("/{taskID}", h.GetDownloadV1)

	return router
}

// V1DownloadRequest asks for an external url to be copied into storage
type V1DownloadRequest struct {
	SourceURL   string `json:"source_url"`
	CallbackURL string `json:"callback_url,omitempty"`
	MaxRetries  *int   `json:"max_retries,omitempty"`
}

// V1DownloadResponse is the representation of a download task
type V1DownloadResponse struct {
	TaskID        uuid.UUID `json:"task_id"`
	Status        string    `json:"status"`
	SourceURL     string    `json:"source_url"`
	CallbackURL   string    `json:"callback_url,omitempty"`
	Bucket        string    `json:"bucket"`
	ObjectKey     string    `json:"object_key"`
	RetryCount    int       `json:"retry_count"`
	MaxRetries    int       `json:"max_retries"`
	LastError     string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	ContentType   string    `json:"content_type,omitempty"`
	SizeBytes     int64     `json:"size_bytes,omitempty"`
	ETag          string    `json:"etag,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toDownloadResponse(t *domain.DownloadTask) V1DownloadResponse {
	return V1DownloadResponse{
		TaskID:        t.ID,
		Status:        string(t.Status),
		SourceURL:     t.SourceURL,
		CallbackURL:   t.CallbackURL,
		Bucket:        t.Bucket,
		ObjectKey:     t.ObjectKey,
		RetryCount:    t.RetryCount,
		MaxRetries:    t.MaxRetries,
		LastError:     t.LastError,
		NextAttemptAt: t.NextAttemptAt,
		ContentType:   t.ContentType,
		SizeBytes:     t.Size,
		ETag:          t.ETag,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// RequestDownloadV1 queues a download task. The copy runs in the worker.
func (h *HandlerV1) RequestDownloadV1(w http.ResponseWriter, r *http.Request) {
	owner, err := api.Owner(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	var req V1DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("error decoding download request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.SourceURL == "" {
		http.Error(w, "source_url is required", http.StatusBadRequest)
		return
	}

	task, err := h.downloadService.Request(r.Context(), owner, domain.DownloadRequest{
		SourceURL:   req.SourceURL,
		CallbackURL: req.CallbackURL,
		MaxRetries:  req.MaxRetries,
	})
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusAccepted, toDownloadResponse(task))
}

// GetDownloadV1 returns a download task of the caller's tenant
func (h *HandlerV1) GetDownloadV1(w http.ResponseWriter, r *http.Request) {
	owner, err := api.Owner(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		api.WriteError(w, h.logger, fmt.Errorf("%w: invalid task id", domain.ErrValidation))
		return
	}

	task, err := h.downloadService.Get(r.Context(), taskID)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	if task.Owner.TenantID != owner.TenantID {
		api.WriteError(w, h.logger, domain.ErrDownloadTaskNotFound)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toDownloadResponse(task))
}
