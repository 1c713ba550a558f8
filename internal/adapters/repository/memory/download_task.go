package memory

import (
	"context"
	"sort"
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

type downloadTaskRepository struct {
	uow *unitOfWork
}

func (r *downloadTaskRepository) Create(ctx context.Context, task domain.DownloadTask) error {
	return r.uow.run(func(st *state) error {
		task.Version = 0
		st.tasks[task.ID] = task
		return nil
	})
}

func (r *downloadTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	var out *domain.DownloadTask
	err := r.uow.run(func(st *state) error {
		t, ok := st.tasks[id]
		if !ok {
			return domain.ErrDownloadTaskNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *downloadTaskRepository) Update(ctx context.Context, task *domain.DownloadTask) error {
	return r.uow.run(func(st *state) error {
		stored, ok := st.tasks[task.ID]
		if !ok {
			return domain.ErrDownloadTaskNotFound
		}
		if stored.Version != task.Version {
			return domain.ErrVersionConflict
		}
		task.Version++
		st.tasks[task.ID] = *task
		return nil
	})
}

func (r *downloadTaskRepository) FindRunnable(ctx context.Context, now time.Time, limit int) ([]domain.DownloadTask, error) {
	return r.find(func(t domain.DownloadTask) bool {
		return t.Status == domain.DownloadStatusQueued && !t.NextAttemptAt.After(now)
	}, limit)
}

func (r *downloadTaskRepository) FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.DownloadTask, error) {
	return r.find(func(t domain.DownloadTask) bool {
		return t.Status == domain.DownloadStatusDownloading && t.UpdatedAt.Before(updatedBefore)
	}, limit)
}

func (r *downloadTaskRepository) find(match func(domain.DownloadTask) bool, limit int) ([]domain.DownloadTask, error) {
	var out []domain.DownloadTask
	err := r.uow.run(func(st *state) error {
		for _, t := range st.tasks {
			if match(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
