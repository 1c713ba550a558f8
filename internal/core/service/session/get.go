package session

import (
	"context"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// Get returns a session with its parts
func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	return loadSession(ctx, s.uow, id)
}

// List returns the sessions matching filter, newest first
func (s *sessionService) List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error) {
	return s.uow.SessionRepo().List(ctx, filter)
}
