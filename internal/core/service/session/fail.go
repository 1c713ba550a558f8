package session

import (
	"context"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

// Fail moves a non-terminal session to FAILED and writes the session.failed outbox event.
// Failing a terminal session is a no-op and returns it unchanged.
func (s *sessionService) Fail(ctx context.Context, id uuid.UUID, reason string) (*domain.TransferSession, error) {
	var result *domain.TransferSession
	changed := false

	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		session, err := loadSession(ctx, uow, id)
		if err != nil {
			return err
		}
		result = session
		if !session.Fail(reason, s.now()) {
			return nil
		}
		changed = true
		return s.transition(ctx, uow, session, domain.EventSessionFailed)
	})
	if txErr != nil {
		return nil, txErr
	}

	if changed {
		s.notify()
		s.logger.Info("session failed", "session_id", id, "reason", reason)
	}
	return result, nil
}
