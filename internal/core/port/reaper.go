package port

import (
	"context"
	"time"
	"transferhub/internal/core/domain"
)

// ReaperService fails sessions that never completed in time
type ReaperService interface {
	Reap(ctx context.Context, now time.Time) (domain.ReapReport, error)
}
