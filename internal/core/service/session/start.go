package session

import (
	"context"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

// Start moves a PENDING session to IN_PROGRESS. Starting an IN_PROGRESS session is a no-op.
func (s *sessionService) Start(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	var result *domain.TransferSession

	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		session, err := loadSession(ctx, uow, id)
		if err != nil {
			return err
		}
		changed, err := session.Start(s.now())
		if err != nil {
			return err
		}
		if changed {
			if err := uow.SessionRepo().Update(ctx, session); err != nil {
				return err
			}
		}
		result = session
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}
