package port

import (
	"context"
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// DownloadTaskRepository is an interface to interact with download task repositories
type DownloadTaskRepository interface {
	Create(ctx context.Context, task domain.DownloadTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error)
	Update(ctx context.Context, task *domain.DownloadTask) error
	FindRunnable(ctx context.Context, now time.Time, limit int) ([]domain.DownloadTask, error)
	FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.DownloadTask, error)
}

// DownloadService runs download tasks
type DownloadService interface {
	Request(ctx context.Context, owner domain.Owner, req domain.DownloadRequest) (*domain.DownloadTask, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error)
	Execute(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error)
	ProcessDue(ctx context.Context, now time.Time) (int, error)
	RecoverStale(ctx context.Context, updatedBefore time.Time) (int, error)
}

// SourceFetcher streams a remote url
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.FetchedObject, error)
}
