package port

import (
	"context"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// SessionRepository is an interface to interact with transfer session repositories.
// Update is version checked: it fails with domain.ErrVersionConflict when the stored version
// differs from session.Version, and bumps session.Version on success.
type SessionRepository interface {
	Create(ctx context.Context, session domain.TransferSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error)
	FindByIdempotencyKey(ctx context.Context, tenantID string, key string) (*domain.TransferSession, error)
	Update(ctx context.Context, session *domain.TransferSession) error
	List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error)
}

// PartRepository stores the completed parts of multipart sessions.
// Add fails with domain.ErrDuplicatePart when the part number is already recorded.
type PartRepository interface {
	Add(ctx context.Context, sessionID uuid.UUID, part domain.CompletedPart) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.CompletedPart, error)
}

// SessionService is the session state machine and multipart coordinator
type SessionService interface {
	Create(ctx context.Context, owner domain.Owner, req domain.SessionRequest, idempotencyKey string) (*domain.TransferSession, *domain.PresignedURL, error)
	Start(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error)
	Complete(ctx context.Context, id uuid.UUID, confirmation domain.UploadConfirmation) (*domain.TransferSession, error)
	Fail(ctx context.Context, id uuid.UUID, reason string) (*domain.TransferSession, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error)
	List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error)
	PresignPart(ctx context.Context, id uuid.UUID, partNumber int) (*domain.PresignedURL, error)
	AddPart(ctx context.Context, id uuid.UUID, part domain.CompletedPart) (*domain.TransferSession, error)
	CompleteMultipart(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error)
	Abort(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error)
	PresignDownload(ctx context.Context, id uuid.UUID) (*domain.PresignedURL, error)
}
