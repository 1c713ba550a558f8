package session

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
)

type sessionService struct {
	uow         port.UnitOfWork
	storage     port.ObjectStorage
	cache       port.IdempotencyCache
	notifier    port.Notifier
	uploadCfg   config.FileUploadConfig
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewSessionService creates the session service. cache and notifier may be nil.
func NewSessionService(uow port.UnitOfWork, storage port.ObjectStorage, cache port.IdempotencyCache, notifier port.Notifier, uploadCfg config.FileUploadConfig, outboxMaxAttempts int, logger *slog.Logger) port.SessionService {
	return &sessionService{
		uow:         uow,
		storage:     storage,
		cache:       cache,
		notifier:    notifier,
		uploadCfg:   uploadCfg,
		maxAttempts: outboxMaxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// loadSession reads a session and, for multipart ones, its recorded parts
func loadSession(ctx context.Context, uow port.UnitOfWork, id uuid.UUID) (*domain.TransferSession, error) {
	session, err := uow.SessionRepo().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsMultipart() {
		parts, err := uow.PartRepo().ListBySession(ctx, id)
		if err != nil {
			return nil, err
		}
		session.Multipart.Parts = parts
	}
	return session, nil
}

// transition persists a session change together with the outbox event announcing it
func (s *sessionService) transition(ctx context.Context, uow port.UnitOfWork, session *domain.TransferSession, eventType string) error {
	if err := uow.SessionRepo().Update(ctx, session); err != nil {
		return err
	}
	entry, err := domain.NewSessionEventEntry(*session, eventType, s.maxAttempts, s.now())
	if err != nil {
		return err
	}
	return uow.OutboxRepo().Create(ctx, entry)
}

func (s *sessionService) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}

func (s *sessionService) validateRequest(owner domain.Owner, req domain.SessionRequest, idempotencyKey string) error {
	if strings.TrimSpace(owner.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return fmt.Errorf("%w: idempotency key is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return fmt.Errorf("%w: file name is required", domain.ErrValidation)
	}
	if req.ContentType != "" && extractMimeType(req.ContentType) == "" {
		return fmt.Errorf("%w: invalid content type %q", domain.ErrValidation, req.ContentType)
	}
	if req.Size <= 0 {
		return domain.ErrFileSizeTooSmall
	}

	switch req.Kind {
	case domain.SessionKindSingle:
		if req.Size > s.uploadCfg.SingleUploadMaxSize {
			return domain.ErrFileSizeTooBig
		}
	case domain.SessionKindMultipart:
		if req.Size > s.uploadCfg.MultipartUploadMaxSize {
			return domain.ErrFileSizeTooBig
		}
		partSize := s.partSize(req)
		if partSize < s.uploadCfg.MinPartSize {
			return fmt.Errorf("%w: part size %d below minimum %d", domain.ErrValidation, partSize, s.uploadCfg.MinPartSize)
		}
		if s.uploadCfg.MaxParts > 0 && totalParts(req.Size, partSize) > s.uploadCfg.MaxParts {
			return fmt.Errorf("%w: more than %d parts", domain.ErrValidation, s.uploadCfg.MaxParts)
		}
	default:
		return fmt.Errorf("%w: unknown session kind %q", domain.ErrValidation, req.Kind)
	}
	return nil
}

func (s *sessionService) partSize(req domain.SessionRequest) int64 {
	if req.PartSize > 0 {
		return req.PartSize
	}
	return s.uploadCfg.PartSize
}

func totalParts(size, partSize int64) int {
	return int((size + partSize - 1) / partSize)
}

func extractMimeType(contentType string) string {
	mimeType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mimeType
}
