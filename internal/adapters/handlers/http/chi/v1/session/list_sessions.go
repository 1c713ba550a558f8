package session

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"transferhub/internal/adapters/handlers/http/chi/v1/api"
	"transferhub/internal/core/domain"
)

// V1ListSessionsResponse is the response to list sessions
type V1ListSessionsResponse struct {
	Sessions []V1SessionResponse `json:"sessions"`
}

// ListSessionsV1 lists the sessions of the caller's tenant.
// Query: status (comma separated), kind, created_after, created_before (RFC 3339), limit, offset.
func (h *HandlerV1) ListSessionsV1(w http.ResponseWriter, r *http.Request) {
	owner, err := api.Owner(r)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}
	filter.TenantID = owner.TenantID

	sessions, err := h.sessionService.List(r.Context(), filter)
	if err != nil {
		api.WriteError(w, h.logger, err)
		return
	}

	resp := V1ListSessionsResponse{Sessions: make([]V1SessionResponse, 0, len(sessions))}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(&sessions[i]))
	}
	api.WriteJSON(w, h.logger, http.StatusOK, resp)
}

func parseFilter(q url.Values) (domain.SessionFilter, error) {
	var filter domain.SessionFilter

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := domain.SessionStatus(strings.ToUpper(strings.TrimSpace(s)))
			switch status {
			case domain.SessionStatusPending, domain.SessionStatusInProgress, domain.SessionStatusCompleted,
				domain.SessionStatusFailed, domain.SessionStatusAborted:
				filter.Statuses = append(filter.Statuses, status)
			default:
				return filter, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, s)
			}
		}
	}

	if raw := q.Get("kind"); raw != "" {
		kind := domain.SessionKind(raw)
		if kind != domain.SessionKindSingle && kind != domain.SessionKindMultipart {
			return filter, fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, raw)
		}
		filter.Kind = kind
	}

	var err error
	if filter.CreatedAfter, err = parseTime(q, "created_after"); err != nil {
		return filter, err
	}
	if filter.CreatedBefore, err = parseTime(q, "created_before"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseInt(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseInt(q, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseTime(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339", domain.ErrValidation, name)
	}
	return &t, nil
}

func parseInt(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, name)
	}
	return n, nil
}
