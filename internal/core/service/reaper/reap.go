package reaper

import (
	"context"
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// Reap fails PENDING sessions past their expiry or the pending threshold and IN_PROGRESS sessions
// past the in-progress threshold, then recovers downloads stuck in DOWNLOADING.
// Per-session failures are logged and counted; they never stop the run.
func (r *reaperService) Reap(ctx context.Context, now time.Time) (domain.ReapReport, error) {
	var report domain.ReapReport

	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx, lockName, r.cfg.LeaseTTL)
		if err != nil {
			r.logger.Warn("reaper lease unavailable, running without it", "error", err)
		} else if !ok {
			r.logger.Debug("reaper lease held by another instance")
			return report, nil
		} else {
			defer release()
		}
	}

	candidates, err := r.candidates(ctx, now)
	if err != nil {
		return report, err
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		r.expire(ctx, candidate, &report)
	}

	if r.downloads != nil {
		recovered, err := r.downloads.RecoverStale(ctx, now.Add(-r.cfg.StaleDownloadAfter))
		if err != nil {
			r.logger.Error("failed to recover stale downloads", "error", err)
			report.Errors++
		}
		report.RecoveredDownloads = recovered
	}

	r.logger.Info("reaper run completed", "expired", report.Expired, "skipped", report.Skipped, "errors", report.Errors, "recovered_downloads", report.RecoveredDownloads)
	return report, nil
}

// candidates merges the three reaper queries, dropping duplicates
func (r *reaperService) candidates(ctx context.Context, now time.Time) ([]domain.TransferSession, error) {
	pendingBefore := now.Add(-r.cfg.PendingThreshold)
	inProgressBefore := now.Add(-r.cfg.InProgressThreshold)

	filters := []domain.SessionFilter{
		{Statuses: []domain.SessionStatus{domain.SessionStatusPending}, ExpiresBefore: &now, Limit: r.cfg.BatchSize},
		{Statuses: []domain.SessionStatus{domain.SessionStatusPending}, CreatedBefore: &pendingBefore, Limit: r.cfg.BatchSize},
		{Statuses: []domain.SessionStatus{domain.SessionStatusInProgress}, CreatedBefore: &inProgressBefore, Limit: r.cfg.BatchSize},
	}

	seen := make(map[uuid.UUID]struct{})
	var out []domain.TransferSession
	for _, filter := range filters {
		sessions, err := r.uow.SessionRepo().List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *reaperService) expire(ctx context.Context, candidate domain.TransferSession, report *domain.ReapReport) {
	failed, err := r.sessions.Fail(ctx, candidate.ID, expiredReason)
	if err != nil {
		r.logger.Error("failed to expire session", "error", err, "session_id", candidate.ID)
		report.Errors++
		return
	}
	if failed.Status != domain.SessionStatusFailed {
		// completed or aborted since it was listed
		report.Skipped++
		return
	}
	report.Expired++

	if candidate.IsMultipart() && candidate.Multipart.ProviderUploadID != "" {
		if err := r.storage.AbortMultipartUpload(ctx, candidate.ObjectKey, candidate.Multipart.ProviderUploadID); err != nil {
			r.logger.Warn("failed to abort expired multipart upload", "error", err, "session_id", candidate.ID)
		}
	}
}
