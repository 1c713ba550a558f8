package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"
	"transferhub/internal/core/domain"

	"github.com/go-chi/chi/v5"
)

// V1AddPartRequest is what the client reports after uploading a part
type V1AddPartRequest struct {
	ETag      string `json:"etag"`
	SizeBytes int64  `json:"size_bytes"`
}

func partNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "partNumber"))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid part number", domain.ErrValidation)
	}
	return n, nil
}

// PresignPartV1 returns the upload url of one part
func (h *HandlerV1) PresignPartV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	number, err := partNumber(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	url, err := h.sessionService.PresignPart(r.Context(), session.ID, number)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toPresignedURL(url))
}

// AddPartV1 records an uploaded part. Re-sending the same etag is accepted.
func (h *HandlerV1) AddPartV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	number, err := partNumber(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	var req V1AddPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("error decoding add part request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.sessionService.AddPart(r.Context(), session.ID, domain.CompletedPart{
		PartNumber: number,
		ETag:       req.ETag,
		Size:       req.SizeBytes,
	})
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(updated))
}

// CompleteMultipartV1 merges the parts once every part is recorded
func (h *HandlerV1) CompleteMultipartV1(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	completed, err := h.sessionService.CompleteMultipart(r.Context(), session.ID)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, toSessionResponse(completed))
}
