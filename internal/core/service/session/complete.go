package session

import (
	"context"
	"fmt"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

// Complete validates the provider confirmation and moves the session to COMPLETED, writing the
// session.completed outbox event in the same transaction. A session already completed with the
// same ETag is returned as is. A multipart session completes only once every part is recorded and
// the merged object exists. Version conflicts are surfaced; only the notification boundary
// treats them as duplicates.
func (s *sessionService) Complete(ctx context.Context, id uuid.UUID, confirmation domain.UploadConfirmation) (*domain.TransferSession, error) {
	current, err := loadSession(ctx, s.uow, id)
	if err != nil {
		return nil, err
	}
	if current.IsCompletedWith(confirmation) {
		return current, nil
	}
	if current.Status.IsTerminal() {
		return nil, domain.ErrInvalidStateTransition
	}

	if current.IsMultipart() {
		if _, err := current.MergeRequest(); err != nil {
			return nil, err
		}
	}

	if current.IsMultipart() || (confirmation.Size == 0 && current.DeclaredSize > 0) {
		info, headErr := s.storage.HeadObject(ctx, current.ObjectKey)
		if headErr != nil {
			return nil, headErr
		}
		if confirmation.Size == 0 {
			confirmation.Size = info.Size
		}
		if confirmation.ETag == "" {
			confirmation.ETag = info.ETag
		}
		if current.IsMultipart() && domain.NormalizeETag(confirmation.ETag) != domain.NormalizeETag(info.ETag) {
			return nil, fmt.Errorf("%w: merged object has %s", domain.ErrMismatchETag, info.ETag)
		}
	}

	var result *domain.TransferSession
	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		session, err := loadSession(ctx, uow, id)
		if err != nil {
			return err
		}
		if session.IsCompletedWith(confirmation) {
			result = session
			return nil
		}
		if session.IsMultipart() {
			if _, err := session.MergeRequest(); err != nil {
				return err
			}
		}
		if err := session.ValidateConfirmation(confirmation); err != nil {
			return err
		}
		if err := session.Complete(confirmation.ETag, s.now()); err != nil {
			return err
		}
		if err := s.transition(ctx, uow, session, domain.EventSessionCompleted); err != nil {
			return err
		}
		result = session
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify()
	s.logger.Info("session completed", "session_id", id, "etag", result.ETag)
	return result, nil
}
