package session

import (
	"context"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

// Abort cancels an IN_PROGRESS multipart session at the provider and moves it to ABORTED
func (s *sessionService) Abort(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	session, err := s.uow.SessionRepo().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	check := *session
	if err := check.Abort(s.now()); err != nil {
		return nil, err
	}

	if err := s.storage.AbortMultipartUpload(ctx, session.ObjectKey, session.Multipart.ProviderUploadID); err != nil {
		return nil, err
	}

	var result *domain.TransferSession
	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		current, err := loadSession(ctx, uow, id)
		if err != nil {
			return err
		}
		if err := current.Abort(s.now()); err != nil {
			return err
		}
		if err := s.transition(ctx, uow, current, domain.EventSessionAborted); err != nil {
			return err
		}
		result = current
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify()
	s.logger.Info("multipart session aborted", "session_id", id)
	return result, nil
}
