package session

import (
	"context"
	"errors"
	"fmt"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

// PresignPart returns an upload url for one part. The first presign starts a PENDING session.
func (s *sessionService) PresignPart(ctx context.Context, id uuid.UUID, partNumber int) (*domain.PresignedURL, error) {
	var session *domain.TransferSession

	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		var err error
		session, err = uow.SessionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := session.CheckPartNumber(partNumber); err != nil {
			return err
		}
		changed, err := session.Start(s.now())
		if err != nil {
			return err
		}
		if changed {
			return uow.SessionRepo().Update(ctx, session)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	url, err := s.storage.PresignUploadPart(ctx, session.ObjectKey, session.Multipart.ProviderUploadID, partNumber)
	if err != nil {
		return nil, fmt.Errorf("could not presign part %d: %w", partNumber, err)
	}
	return url, nil
}

// AddPart records a part confirmed by the provider. The same part with the same ETag is a no-op,
// a different ETag for a recorded part number is domain.ErrDuplicatePart.
func (s *sessionService) AddPart(ctx context.Context, id uuid.UUID, part domain.CompletedPart) (*domain.TransferSession, error) {
	if part.UploadedAt.IsZero() {
		part.UploadedAt = s.now()
	}

	var result *domain.TransferSession
	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		session, err := loadSession(ctx, uow, id)
		if err != nil {
			return err
		}
		if session.Status == domain.SessionStatusPending {
			if _, err := session.Start(s.now()); err != nil {
				return err
			}
			if err := uow.SessionRepo().Update(ctx, session); err != nil {
				return err
			}
		}

		added, err := session.AddPart(part)
		if err != nil {
			return err
		}
		result = session
		if !added {
			return nil
		}

		addErr := uow.PartRepo().Add(ctx, id, part)
		if errors.Is(addErr, domain.ErrDuplicatePart) {
			// recorded concurrently: same ETag means the same fact
			return s.samePart(ctx, uow, id, part)
		}
		return addErr
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

func (s *sessionService) samePart(ctx context.Context, uow port.UnitOfWork, id uuid.UUID, part domain.CompletedPart) error {
	parts, err := uow.PartRepo().ListBySession(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if p.PartNumber == part.PartNumber && p.ETag == domain.NormalizeETag(part.ETag) {
			return nil
		}
	}
	return fmt.Errorf("%w: part %d", domain.ErrDuplicatePart, part.PartNumber)
}
