package download

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"
	"transferhub/internal/core/retry"

	"github.com/google/uuid"
)

type downloadService struct {
	uow         port.UnitOfWork
	storage     port.ObjectStorage
	fetcher     port.SourceFetcher
	notifier    port.Notifier
	cfg         config.DownloadConfig
	policy      retry.Policy
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewDownloadService creates the download service. notifier may be nil.
func NewDownloadService(uow port.UnitOfWork, storage port.ObjectStorage, fetcher port.SourceFetcher, notifier port.Notifier, cfg config.DownloadConfig, outboxMaxAttempts int, logger *slog.Logger) port.DownloadService {
	return &downloadService{
		uow:      uow,
		storage:  storage,
		fetcher:  fetcher,
		notifier: notifier,
		cfg:      cfg,
		policy: retry.Policy{
			InitialInterval: cfg.InitialInterval,
			Multiplier:      cfg.Multiplier,
			MaxInterval:     cfg.MaxInterval,
			MaxAttempts:     cfg.MaxRetries,
		},
		maxAttempts: outboxMaxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// Request queues a download of req.SourceURL into storage
func (s *downloadService) Request(ctx context.Context, owner domain.Owner, req domain.DownloadRequest) (*domain.DownloadTask, error) {
	if strings.TrimSpace(owner.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	maxRetries := s.cfg.MaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	task, err := domain.NewDownloadTask(uuid.New(), owner, req.SourceURL, req.CallbackURL, s.storage.Bucket(), maxRetries, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.uow.DownloadTaskRepo().Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to queue download: %w", err)
	}

	s.logger.Info("download queued", "task_id", task.ID, "source_url", task.SourceURL, "max_retries", task.MaxRetries)
	return &task, nil
}

func (s *downloadService) Get(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	return s.uow.DownloadTaskRepo().FindByID(ctx, id)
}

func (s *downloadService) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}
