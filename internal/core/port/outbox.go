package port

import (
	"context"
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// OutboxRepository is an interface to interact with the outbox table.
// ClaimDue leases up to limit PENDING entries due at now by moving their next attempt to leaseUntil
// and bumping their version. It must run inside UnitOfWork.Execute; rows locked by another claim
// are skipped.
type OutboxRepository interface {
	Create(ctx context.Context, entry domain.OutboxEntry) error
	ClaimDue(ctx context.Context, now time.Time, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error)
	Update(ctx context.Context, entry *domain.OutboxEntry) error
	ListByRelatedID(ctx context.Context, relatedID uuid.UUID) ([]domain.OutboxEntry, error)
}

// OutboxDispatcher drains the outbox
type OutboxDispatcher interface {
	DispatchBatch(ctx context.Context, now time.Time) (domain.DispatchReport, error)
	Run(ctx context.Context, every time.Duration)
}

// Notifier wakes the dispatcher after a commit wrote outbox entries
type Notifier interface {
	Notify()
}

// EventPublisher delivers outbox events to internal consumers
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, msgID string, payload []byte) error
}

// WebhookSender delivers outbox webhooks to tenant callback urls
type WebhookSender interface {
	Send(ctx context.Context, url string, idempotencyKey string, payload []byte) error
}
