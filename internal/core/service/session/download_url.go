package session

import (
	"context"
	"fmt"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// PresignDownload returns a time-limited url serving the stored object of a COMPLETED session
func (s *sessionService) PresignDownload(ctx context.Context, id uuid.UUID) (*domain.PresignedURL, error) {
	session, err := loadSession(ctx, s.uow, id)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusCompleted {
		return nil, fmt.Errorf("%w: download from %s", domain.ErrInvalidStateTransition, session.Status)
	}

	url, err := s.storage.PresignGetObject(ctx, session.ObjectKey, session.FileName)
	if err != nil {
		return nil, fmt.Errorf("could not presign download: %w", err)
	}
	s.logger.Debug("download url issued", "session_id", id, "expires_at", url.ExpiresAt)
	return url, nil
}
