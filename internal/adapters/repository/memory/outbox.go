package memory

import (
	"context"
	"sort"
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

type outboxRepository struct {
	uow *unitOfWork
}

func (r *outboxRepository) Create(ctx context.Context, entry domain.OutboxEntry) error {
	return r.uow.run(func(st *state) error {
		entry.Version = 0
		st.outbox[entry.ID] = entry
		return nil
	})
}

func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error) {
	var out []domain.OutboxEntry
	err := r.uow.run(func(st *state) error {
		for _, e := range st.outbox {
			if e.Status == domain.OutboxStatusPending && !e.NextAttemptAt.After(now) {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		for i := range out {
			out[i].NextAttemptAt = leaseUntil
			out[i].Version++
			st.outbox[out[i].ID] = out[i]
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	return r.uow.run(func(st *state) error {
		stored, ok := st.outbox[entry.ID]
		if !ok {
			return domain.ErrOutboxEntryNotFound
		}
		if stored.Version != entry.Version {
			return domain.ErrVersionConflict
		}
		entry.Version++
		st.outbox[entry.ID] = *entry
		return nil
	})
}

func (r *outboxRepository) ListByRelatedID(ctx context.Context, relatedID uuid.UUID) ([]domain.OutboxEntry, error) {
	var out []domain.OutboxEntry
	err := r.uow.run(func(st *state) error {
		for _, e := range st.outbox {
			if e.RelatedID == relatedID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}
