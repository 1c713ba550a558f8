package session

import (
	"context"
	"errors"
	"fmt"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"
	"transferhub/internal/core/retry"

	"github.com/google/uuid"
)

// CompleteMultipart merges the recorded parts at the provider and completes the session.
// Transient provider errors leave the session IN_PROGRESS. A permanent error fails it unless the
// merged object is already in storage, in which case the session completes with that object's ETag.
func (s *sessionService) CompleteMultipart(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	session, err := loadSession(ctx, s.uow, id)
	if err != nil {
		return nil, err
	}
	if !session.IsMultipart() {
		return nil, domain.ErrNotMultipart
	}
	if session.Status == domain.SessionStatusCompleted {
		return session, nil
	}
	if session.Status != domain.SessionStatusInProgress {
		return nil, fmt.Errorf("%w: complete from %s", domain.ErrInvalidStateTransition, session.Status)
	}

	parts, err := session.MergeRequest()
	if err != nil {
		return nil, err
	}

	etag, err := s.storage.CompleteMultipartUpload(ctx, session.ObjectKey, session.Multipart.ProviderUploadID, parts)
	if err != nil {
		if retry.Classify(err) != retry.Permanent {
			return nil, fmt.Errorf("could not complete multipart upload: %w", err)
		}
		// a retry after a lost commit sees NoSuchUpload although the merge went through
		merged, found, headErr := s.mergedObject(ctx, session)
		if headErr != nil {
			return nil, fmt.Errorf("could not complete multipart upload: %w", err)
		}
		if !found {
			s.logger.Error("provider rejected multipart completion", "error", err, "session_id", id)
			if _, failErr := s.Fail(ctx, id, "provider rejected completion: "+err.Error()); failErr != nil {
				s.logger.Error("failed to fail session", "error", failErr, "session_id", id)
			}
			return nil, fmt.Errorf("could not complete multipart upload: %w", err)
		}
		s.logger.Warn("multipart upload already merged", "error", err, "session_id", id, "etag", merged.ETag)
		etag = merged.ETag
	}

	var result *domain.TransferSession
	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		current, err := loadSession(ctx, uow, id)
		if err != nil {
			return err
		}
		if current.IsCompletedWith(domain.UploadConfirmation{ETag: etag}) {
			result = current
			return nil
		}
		if err := current.Complete(etag, s.now()); err != nil {
			return err
		}
		if err := s.transition(ctx, uow, current, domain.EventSessionCompleted); err != nil {
			return err
		}
		result = current
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.notify()
	s.logger.Info("multipart session completed", "session_id", id, "parts", len(parts), "etag", result.ETag)
	return result, nil
}

// mergedObject looks up the object a previous completion may have merged
func (s *sessionService) mergedObject(ctx context.Context, session *domain.TransferSession) (*domain.ObjectInfo, bool, error) {
	info, err := s.storage.HeadObject(ctx, session.ObjectKey)
	switch {
	case err == nil:
		return info, true, nil
	case errors.Is(err, domain.ErrObjectNotFound):
		return nil, false, nil
	default:
		s.logger.Warn("could not check for a merged object", "error", err, "session_id", session.ID)
		return nil, false, err
	}
}
