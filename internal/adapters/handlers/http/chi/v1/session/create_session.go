package session

import (
	"encoding/json"
	"net/http"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"
	"transferhub/internal/core/domain"
)

// V1CreateSessionRequest is the request to open a session
type V1CreateSessionRequest struct {
	FileName    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	PartSize    int64  `json:"part_size,omitempty"`
}

// V1CreateSessionResponse is the response to open a session. Upload is only set for single sessions.
type V1CreateSessionResponse struct {
	Session V1SessionResponse `json:"session"`
	Upload  *V1PresignedURL   `json:"upload,omitempty"`
}

// CreateSingleV1 opens a single upload session
func (h *HandlerV1) CreateSingleV1(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.SessionKindSingle)
}

// CreateMultipartV1 opens a multipart upload session
func (h *HandlerV1) CreateMultipartV1(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.SessionKindMultipart)
}

func (h *HandlerV1) create(w http.ResponseWriter, r *http.Request, kind domain.SessionKind) {
	owner, err := api.Owner(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	idempotencyKey := r.Header.Get(api.HeaderIdempotencyKey)
	if idempotencyKey == "" {
		http.Error(w, api.HeaderIdempotencyKey+" header is required", http.StatusBadRequest)
		return
	}

	var req V1CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("error decoding create session request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, upload, err := h.sessionService.Create(r.Context(), owner, domain.SessionRequest{
		Kind:        kind,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.SizeBytes,
		PartSize:    req.PartSize,
	}, idempotencyKey)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	api.WriteJSON(w, h.logger, http.StatusCreated, V1CreateSessionResponse{
		Session: toSessionResponse(session),
		Upload:  toPresignedURL(upload),
	})
}
