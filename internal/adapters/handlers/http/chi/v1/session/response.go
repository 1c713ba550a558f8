package session

import (
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// V1PresignedURL is a url the client uploads to or downloads from directly
type V1PresignedURL struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// V1Part is a confirmed part of a multipart session
type V1Part struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
	SizeBytes  int64  `json:"size_bytes"`
}

// V1SessionResponse is the representation of a session
type V1SessionResponse struct {
	SessionID     uuid.UUID  `json:"session_id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	Bucket        string     `json:"bucket"`
	ObjectKey     string     `json:"object_key"`
	FileName      string     `json:"filename"`
	ContentType   string     `json:"content_type"`
	SizeBytes     int64      `json:"size_bytes"`
	ETag          string     `json:"etag,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	TotalParts    int        `json:"total_parts,omitempty"`
	PartSize      int64      `json:"part_size,omitempty"`
	Parts         []V1Part   `json:"parts,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toPresignedURL(url *domain.PresignedURL) *V1PresignedURL {
	if url == nil {
		return nil
	}
	return &V1PresignedURL{
		URL:       url.URL,
		Method:    url.Method,
		Headers:   url.Headers,
		ExpiresAt: url.ExpiresAt,
	}
}

func toSessionResponse(s *domain.TransferSession) V1SessionResponse {
	resp := V1SessionResponse{
		SessionID:     s.ID,
		Kind:          string(s.Kind),
		Status:        string(s.Status),
		Bucket:        s.Bucket,
		ObjectKey:     s.ObjectKey,
		FileName:      s.FileName,
		ContentType:   s.ContentType,
		SizeBytes:     s.DeclaredSize,
		ETag:          s.ETag,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ExpiresAt:     s.ExpiresAt,
		CompletedAt:   s.CompletedAt,
	}
	if s.Multipart != nil {
		resp.TotalParts = s.Multipart.TotalParts
		resp.PartSize = s.Multipart.PartSize
		for _, p := range s.Multipart.Parts {
			resp.Parts = append(resp.Parts, V1Part{PartNumber: p.PartNumber, ETag: p.ETag, SizeBytes: p.Size})
		}
	}
	return resp
}
