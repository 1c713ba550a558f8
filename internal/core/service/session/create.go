package session

import (
	"context"
	"errors"
	"fmt"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// Create opens a transfer session or returns the one already bound to idempotencyKey.
// Single sessions come back with a presigned PUT url; replays get a fresh url for the same key.
func (s *sessionService) Create(ctx context.Context, owner domain.Owner, req domain.SessionRequest, idempotencyKey string) (*domain.TransferSession, *domain.PresignedURL, error) {
	if err := s.validateRequest(owner, req, idempotencyKey); err != nil {
		return nil, nil, err
	}

	existing, err := s.findExisting(ctx, owner.TenantID, idempotencyKey)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		s.logger.Info("idempotent session replay", "session_id", existing.ID, "idempotency_key", idempotencyKey)
		return s.withUploadURL(ctx, existing)
	}

	now := s.now()
	session := domain.NewTransferSession(uuid.New(), req.Kind, owner, idempotencyKey, s.storage.Bucket(), req.FileName, req.ContentType, req.Size, s.uploadCfg.PresignedURLTTL, now)

	if req.Kind == domain.SessionKindMultipart {
		partSize := s.partSize(req)
		uploadID, initErr := s.storage.InitiateMultipartUpload(ctx, session.ObjectKey, req.ContentType)
		if initErr != nil {
			return nil, nil, fmt.Errorf("could not start multipart upload: %w", initErr)
		}
		session.Multipart = &domain.MultipartUpload{
			TotalParts:       totalParts(req.Size, partSize),
			PartSize:         partSize,
			ProviderUploadID: uploadID,
		}
	}

	createErr := s.uow.SessionRepo().Create(ctx, session)
	if errors.Is(createErr, domain.ErrIdempotencyKeyExists) {
		// another request with the same key won the insert
		s.releaseProviderUpload(ctx, &session)
		winner, findErr := s.uow.SessionRepo().FindByIdempotencyKey(ctx, owner.TenantID, idempotencyKey)
		if findErr != nil {
			return nil, nil, findErr
		}
		return s.withUploadURL(ctx, s.withParts(ctx, winner))
	}
	if createErr != nil {
		s.releaseProviderUpload(ctx, &session)
		return nil, nil, createErr
	}

	s.remember(ctx, owner.TenantID, idempotencyKey, session.ID)
	s.logger.Info("session created", "session_id", session.ID, "kind", session.Kind, "object_key", session.ObjectKey)
	return s.withUploadURL(ctx, &session)
}

// findExisting resolves an idempotency key, trying the cache before the database
func (s *sessionService) findExisting(ctx context.Context, tenantID, key string) (*domain.TransferSession, error) {
	if s.cache != nil {
		id, ok, err := s.cache.Get(ctx, tenantID, key)
		if err != nil {
			s.logger.Warn("idempotency cache unavailable", "error", err)
		}
		if ok {
			session, loadErr := loadSession(ctx, s.uow, id)
			if loadErr == nil {
				return session, nil
			}
			if !errors.Is(loadErr, domain.ErrSessionNotFound) {
				return nil, loadErr
			}
		}
	}

	session, err := s.uow.SessionRepo().FindByIdempotencyKey(ctx, tenantID, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.remember(ctx, tenantID, key, session.ID)
	return s.withParts(ctx, session), nil
}

func (s *sessionService) remember(ctx context.Context, tenantID, key string, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, tenantID, key, id); err != nil {
		s.logger.Warn("failed to cache idempotency key", "error", err, "session_id", id)
	}
}

func (s *sessionService) withParts(ctx context.Context, session *domain.TransferSession) *domain.TransferSession {
	if !session.IsMultipart() {
		return session
	}
	parts, err := s.uow.PartRepo().ListBySession(ctx, session.ID)
	if err != nil {
		s.logger.Warn("failed to load parts", "error", err, "session_id", session.ID)
		return session
	}
	session.Multipart.Parts = parts
	return session
}

func (s *sessionService) withUploadURL(ctx context.Context, session *domain.TransferSession) (*domain.TransferSession, *domain.PresignedURL, error) {
	if session.Kind != domain.SessionKindSingle || session.Status.IsTerminal() {
		return session, nil, nil
	}
	url, err := s.storage.PresignPutObject(ctx, session.ObjectKey, session.ContentType)
	if err != nil {
		return nil, nil, fmt.Errorf("could not presign upload: %w", err)
	}
	return session, url, nil
}

// releaseProviderUpload aborts a multipart upload that will never be referenced by a session
func (s *sessionService) releaseProviderUpload(ctx context.Context, session *domain.TransferSession) {
	if !session.IsMultipart() {
		return
	}
	if err := s.storage.AbortMultipartUpload(ctx, session.ObjectKey, session.Multipart.ProviderUploadID); err != nil {
		s.logger.Warn("failed to abort orphan multipart upload", "error", err, "object_key", session.ObjectKey)
	}
}
