package download

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"transferhub/internal/core/domain"

	"golang.org/x/sync/errgroup"
)

// ProcessDue executes the tasks runnable at now on a bounded pool and returns how many attempts
// were recorded
func (s *downloadService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	tasks, err := s.uow.DownloadTaskRepo().FindRunnable(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load runnable downloads: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var processed atomic.Int64
	var g errgroup.Group
	g.SetLimit(workers)
	for _, task := range tasks {
		id := task.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := s.Execute(ctx, id)
			switch {
			case err == nil:
				processed.Add(1)
			case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrInvalidStateTransition):
				s.logger.Debug("download claimed elsewhere", "task_id", id)
			case errors.Is(err, context.Canceled):
				s.logger.Debug("download interrupted by shutdown", "task_id", id)
			default:
				s.logger.Error("download attempt failed", "error", err, "task_id", id)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(processed.Load()), ctx.Err()
}

// RecoverStale settles tasks left DOWNLOADING since before updatedBefore, usually by a worker that
// died mid-attempt. The interrupted attempt counts as a retryable failure.
func (s *downloadService) RecoverStale(ctx context.Context, updatedBefore time.Time) (int, error) {
	stale, err := s.uow.DownloadTaskRepo().FindStale(ctx, updatedBefore, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load stale downloads: %w", err)
	}

	recovered := 0
	for _, candidate := range stale {
		task, err := s.uow.DownloadTaskRepo().FindByID(ctx, candidate.ID)
		if err != nil {
			s.logger.Error("failed to reload stale download", "error", err, "task_id", candidate.ID)
			continue
		}
		if task.Status != domain.DownloadStatusDownloading {
			continue
		}
		cause := fmt.Errorf("%w: download attempt interrupted", domain.ErrTransientProvider)
		if err := s.settle(ctx, task, nil, cause); err != nil {
			s.logger.Error("failed to recover stale download", "error", err, "task_id", task.ID)
			continue
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("stale downloads recovered", "count", recovered)
	}
	return recovered, nil
}
