package session

import (
	"encoding/json"
	"net/http"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"
	"transferhub/internal/core/domain"
)

// V1CompleteRequest is what the client reports once the object is stored
type V1CompleteRequest struct {
	ETag      string `json:"etag"`
	SizeBytes int64  `json:"size_bytes"`
}

// V1FailRequest carries the reason a client gives up on a session
type V1FailRequest struct {
	Reason string `json:"reason"`
}

// GetSessionV1 returns a session with its parts
func (h *HandlerV1) GetSessionV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(session))
}

// DownloadURLV1 returns a presigned url for the object of a completed session
func (h *HandlerV1) DownloadURLV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	url, err := h.sessionService.PresignDownload(r.Context(), session.ID)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toPresignedURL(url))
}

// StartV1 moves a pending session to IN_PROGRESS
func (h *HandlerV1) StartV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	started, err := h.sessionService.Start(r.Context(), session.ID)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(started))
}

// CompleteV1 confirms a single upload. Repeating the call with the same etag returns the completed session.
func (h *HandlerV1) CompleteV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req V1CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("error decoding complete request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	completed, err := h.sessionService.Complete(r.Context(), session.ID, domain.UploadConfirmation{ETag: req.ETag, Size: req.SizeBytes})
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(completed))
}

// FailV1 marks a session as failed
func (h *HandlerV1) FailV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req V1FailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("error decoding fail request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		http.Error(w, "reason is required", http.StatusBadRequest)
		return
	}

	failed, err := h.sessionService.Fail(r.Context(), session.ID, req.Reason)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(failed))
}

// AbortV1 cancels a session and releases its multipart upload
func (h *HandlerV1) AbortV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	aborted, err := h.sessionService.Abort(r.Context(), session.ID)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(aborted))
}
