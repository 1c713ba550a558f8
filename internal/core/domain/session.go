package domain

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionKind tells a single-shot session from a multipart one
type SessionKind string

const (
	SessionKindSingle    SessionKind = "single"
	SessionKindMultipart SessionKind = "multipart"
)

// SessionStatus represents the status of a transfer session
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "PENDING"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusFailed     SessionStatus = "FAILED"
	SessionStatusAborted    SessionStatus = "ABORTED"
)

// IsTerminal reports whether no further transition is allowed
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusAborted
}

// Owner carries the opaque identifiers of the caller
type Owner struct {
	TenantID       string
	OrganizationID string
	UserID         string
}

// TransferSession represents an upload tracked from request to completion
type TransferSession struct {
	ID             uuid.UUID
	IdempotencyKey string
	Kind           SessionKind
	Owner          Owner
	Bucket         string
	ObjectKey      string
	FileName       string
	DeclaredSize   int64
	ContentType    string
	Status         SessionStatus
	FailureReason  string
	ETag           string
	Multipart      *MultipartUpload
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
	CompletedAt    *time.Time
	Version        int64
}

// MultipartUpload holds the multipart specific state of a session
type MultipartUpload struct {
	TotalParts       int
	PartSize         int64
	ProviderUploadID string
	Parts            []CompletedPart
}

// CompletedPart is a part confirmed by the storage provider
type CompletedPart struct {
	PartNumber int
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// UploadConfirmation is what the provider (or the client on its behalf) reports for a stored object
type UploadConfirmation struct {
	ETag string
	Size int64
}

// NewTransferSession builds a PENDING session; ExpiresAt is fixed here and never changes
func NewTransferSession(id uuid.UUID, kind SessionKind, owner Owner, idempotencyKey, bucket, fileName, contentType string, size int64, ttl time.Duration, now time.Time) TransferSession {
	return TransferSession{
		ID:             id,
		IdempotencyKey: idempotencyKey,
		Kind:           kind,
		Owner:          owner,
		Bucket:         bucket,
		ObjectKey:      ObjectKeyFor(owner.TenantID, id, fileName),
		FileName:       fileName,
		DeclaredSize:   size,
		ContentType:    contentType,
		Status:         SessionStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// IsMultipart reports whether the session is a multipart one
func (s *TransferSession) IsMultipart() bool {
	return s.Kind == SessionKindMultipart && s.Multipart != nil
}

// IsExpired reports whether the session can be failed by the reaper
func (s *TransferSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt) && !s.Status.IsTerminal()
}

// Start moves a PENDING session to IN_PROGRESS. It returns false when the session was already started.
func (s *TransferSession) Start(now time.Time) (bool, error) {
	switch s.Status {
	case SessionStatusPending:
		s.Status = SessionStatusInProgress
		s.UpdatedAt = now
		return true, nil
	case SessionStatusInProgress:
		return false, nil
	default:
		return false, fmt.Errorf("%w: start from %s", ErrInvalidStateTransition, s.Status)
	}
}

// ValidateConfirmation checks the provider confirmation against what the client declared
func (s *TransferSession) ValidateConfirmation(c UploadConfirmation) error {
	if NormalizeETag(c.ETag) == "" {
		return ErrMismatchETag
	}
	if s.DeclaredSize > 0 && c.Size > 0 && c.Size != s.DeclaredSize {
		return fmt.Errorf("%w: declared %d, stored %d", ErrSizeMismatch, s.DeclaredSize, c.Size)
	}
	return nil
}

// IsCompletedWith reports whether the session already completed with this confirmation
func (s *TransferSession) IsCompletedWith(c UploadConfirmation) bool {
	return s.Status == SessionStatusCompleted && s.ETag == NormalizeETag(c.ETag)
}

// Complete moves the session to COMPLETED. PENDING sessions are started implicitly since a provider
// notification may arrive before the client calls start.
func (s *TransferSession) Complete(etag string, now time.Time) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: complete from %s", ErrInvalidStateTransition, s.Status)
	}
	s.Status = SessionStatusCompleted
	s.ETag = NormalizeETag(etag)
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// Fail moves any non-terminal session to FAILED. It returns false when the session was already terminal.
func (s *TransferSession) Fail(reason string, now time.Time) bool {
	if s.Status.IsTerminal() {
		return false
	}
	s.Status = SessionStatusFailed
	s.FailureReason = reason
	s.UpdatedAt = now
	return true
}

// Abort moves an IN_PROGRESS multipart session to ABORTED
func (s *TransferSession) Abort(now time.Time) error {
	if !s.IsMultipart() {
		return ErrNotMultipart
	}
	if s.Status != SessionStatusInProgress {
		return fmt.Errorf("%w: abort from %s", ErrInvalidStateTransition, s.Status)
	}
	s.Status = SessionStatusAborted
	s.UpdatedAt = now
	return nil
}

// CheckPartNumber validates a part number against the session layout
func (s *TransferSession) CheckPartNumber(partNumber int) error {
	if !s.IsMultipart() {
		return ErrNotMultipart
	}
	if partNumber < 1 || partNumber > s.Multipart.TotalParts {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrPartOutOfRange, partNumber, s.Multipart.TotalParts)
	}
	return nil
}

// AddPart records a provider-confirmed part. Re-submitting the same part with the same ETag
// returns false and no error; a different ETag for a known part number is ErrDuplicatePart.
func (s *TransferSession) AddPart(part CompletedPart) (bool, error) {
	if err := s.CheckPartNumber(part.PartNumber); err != nil {
		return false, err
	}
	if s.Status.IsTerminal() {
		return false, fmt.Errorf("%w: add part to %s session", ErrInvalidStateTransition, s.Status)
	}
	part.ETag = NormalizeETag(part.ETag)
	if part.ETag == "" {
		return false, ErrMismatchETag
	}
	for _, p := range s.Multipart.Parts {
		if p.PartNumber != part.PartNumber {
			continue
		}
		if p.ETag == part.ETag {
			return false, nil
		}
		return false, fmt.Errorf("%w: part %d", ErrDuplicatePart, part.PartNumber)
	}
	s.Multipart.Parts = append(s.Multipart.Parts, part)
	return true, nil
}

// MergeRequest returns the parts in ascending order, provided they cover 1..TotalParts without gaps
func (s *TransferSession) MergeRequest() ([]CompletedPart, error) {
	if !s.IsMultipart() {
		return nil, ErrNotMultipart
	}
	if len(s.Multipart.Parts) != s.Multipart.TotalParts {
		return nil, fmt.Errorf("%w: have %d of %d", ErrIncompleteParts, len(s.Multipart.Parts), s.Multipart.TotalParts)
	}
	parts := make([]CompletedPart, len(s.Multipart.Parts))
	copy(parts, s.Multipart.Parts)
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].PartNumber < parts[j].PartNumber
	})
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return nil, fmt.Errorf("%w: missing part %d", ErrIncompleteParts, i+1)
		}
	}
	return parts, nil
}

// NormalizeETag strips the quotes providers wrap ETags in
func NormalizeETag(etag string) string {
	return strings.Trim(strings.TrimSpace(etag), "\"")
}

// ObjectKeyFor builds the storage key of a session: uploads/{tenant}/{session}/{file}.
// The tenant is path escaped so the key always has exactly four segments.
func ObjectKeyFor(tenantID string, sessionID uuid.UUID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s/%s", url.PathEscape(tenantID), sessionID, path.Base("/"+fileName))
}

// SessionIDFromKey extracts the session id from a key built by ObjectKeyFor.
// Bucket notifications may deliver the key query escaped, separators included.
func SessionIDFromKey(key string) (uuid.UUID, error) {
	raw := strings.TrimPrefix(key, "/")
	if !strings.Contains(raw, "/") {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrSessionMatching, key)
		}
		raw = strings.TrimPrefix(decoded, "/")
	}
	segments := strings.SplitN(raw, "/", 4)
	if len(segments) < 4 || segments[0] != "uploads" {
		return uuid.Nil, fmt.Errorf("%w: unexpected key layout %q", ErrSessionMatching, key)
	}
	id, err := uuid.Parse(segments[2])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a session id", ErrSessionMatching, segments[2])
	}
	return id, nil
}
