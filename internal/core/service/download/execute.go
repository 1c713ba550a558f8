package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"
	"transferhub/internal/core/retry"

	"github.com/google/uuid"
)

// Execute runs one attempt of a QUEUED task. A finished attempt is recorded on the task: success
// completes it, a retryable failure requeues it while retries remain, anything else fails it.
// An attempt cut short by cancellation is not recorded. Terminal tasks are returned unchanged.
func (s *downloadService) Execute(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	task, err := s.claim(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return task, nil
	}

	s.logger.Info("download started", "task_id", task.ID, "attempt", task.RetryCount+1, "source_url", task.SourceURL)
	info, attemptErr := s.attempt(ctx, task)
	if attemptErr != nil && (ctx.Err() != nil || retry.IsInterrupted(attemptErr)) {
		// stays DOWNLOADING; stale recovery requeues it
		s.logger.Warn("download attempt interrupted", "task_id", task.ID, "error", attemptErr)
		return nil, fmt.Errorf("download %s interrupted: %w", task.ID, attemptErr)
	}

	if err := s.settle(ctx, task, info, attemptErr); err != nil {
		return nil, err
	}
	return task, nil
}

// claim moves the task to DOWNLOADING; the version check lets only one worker win
func (s *downloadService) claim(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	var task *domain.DownloadTask
	err := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		var err error
		task, err = uow.DownloadTaskRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if task.Status.IsTerminal() {
			return nil
		}
		if err := task.Begin(s.now()); err != nil {
			return err
		}
		return uow.DownloadTaskRepo().Update(ctx, task)
	})
	return task, err
}

func (s *downloadService) attempt(ctx context.Context, task *domain.DownloadTask) (*domain.ObjectInfo, error) {
	if s.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()
	}

	fetched, err := s.fetcher.Fetch(ctx, task.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", task.SourceURL, err)
	}
	defer fetched.Body.Close()

	if s.cfg.MaxSize > 0 && fetched.Size > s.cfg.MaxSize {
		return nil, fmt.Errorf("%w: source is %d bytes", domain.ErrFileSizeTooBig, fetched.Size)
	}

	body := io.Reader(fetched.Body)
	if s.cfg.MaxSize > 0 && fetched.Size < 0 {
		body = io.LimitReader(fetched.Body, s.cfg.MaxSize+1)
	}

	info, err := s.storage.PutObject(ctx, task.ObjectKey, body, fetched.Size, fetched.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", task.ObjectKey, err)
	}
	if s.cfg.MaxSize > 0 && info.Size > s.cfg.MaxSize {
		if delErr := s.storage.DeleteObject(ctx, task.ObjectKey); delErr != nil {
			s.logger.Warn("failed to delete oversized download", "error", delErr, "object_key", task.ObjectKey)
		}
		return nil, fmt.Errorf("%w: source exceeds %d bytes", domain.ErrFileSizeTooBig, s.cfg.MaxSize)
	}
	if info.ContentType == "" {
		info.ContentType = fetched.ContentType
	}
	return info, nil
}

// settle records the outcome of an attempt. Terminal outcomes write their outbox entries in the
// same transaction.
func (s *downloadService) settle(ctx context.Context, task *domain.DownloadTask, info *domain.ObjectInfo, cause error) error {
	now := s.now()

	txErr := s.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		switch {
		case cause == nil:
			if err := task.Succeed(info.ETag, info.ContentType, info.Size, now); err != nil {
				return err
			}
		case retry.IsRetryable(cause) && task.CanRetry():
			next := now.Add(s.policy.Delay(task.RetryCount))
			if err := task.Requeue(cause, next, now); err != nil {
				return err
			}
			return uow.DownloadTaskRepo().Update(ctx, task)
		default:
			if retry.IsRetryable(cause) {
				cause = fmt.Errorf("%w after %d retries: %v", domain.ErrRetriesExhausted, task.RetryCount, cause)
			}
			task.Fail(cause, now)
		}

		if err := uow.DownloadTaskRepo().Update(ctx, task); err != nil {
			return err
		}
		return s.announce(ctx, uow, task, now)
	})
	if errors.Is(txErr, domain.ErrVersionConflict) {
		s.logger.Warn("download task changed during attempt", "task_id", task.ID)
		return txErr
	}
	if txErr != nil {
		return fmt.Errorf("failed to record download outcome: %w", txErr)
	}

	switch task.Status {
	case domain.DownloadStatusCompleted:
		s.notify()
		s.logger.Info("download completed", "task_id", task.ID, "size", task.Size, "etag", task.ETag)
	case domain.DownloadStatusFailed:
		s.notify()
		s.logger.Error("download failed", "task_id", task.ID, "retries", task.RetryCount, "error", task.LastError)
	default:
		s.logger.Warn("download retry scheduled", "task_id", task.ID, "retries", task.RetryCount, "next_attempt_at", task.NextAttemptAt, "error", task.LastError)
	}
	return nil
}

// announce writes the event and, when a callback url is set, the webhook for a terminal task
func (s *downloadService) announce(ctx context.Context, uow port.UnitOfWork, task *domain.DownloadTask, now time.Time) error {
	eventType := domain.EventDownloadCompleted
	if task.Status == domain.DownloadStatusFailed {
		eventType = domain.EventDownloadFailed
	}
	event, err := domain.NewDownloadEventEntry(*task, eventType, s.maxAttempts, now)
	if err != nil {
		return err
	}
	if err := uow.OutboxRepo().Create(ctx, event); err != nil {
		return err
	}
	if task.CallbackURL == "" {
		return nil
	}
	hook, err := domain.NewWebhookEntry(*task, s.maxAttempts, now)
	if err != nil {
		return err
	}
	return uow.OutboxRepo().Create(ctx, hook)
}
