package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"
	"transferhub/internal/core/retry"
)

const (
	lockName          = "outbox-dispatcher"
	defaultClaimLease = 30 * time.Second
)

type dispatcher struct {
	uow            port.UnitOfWork
	publisher      port.EventPublisher
	webhook        port.WebhookSender
	locker         port.Locker
	signal         *Signal
	policy         retry.Policy
	batchSize      int
	attemptTimeout time.Duration
	leaseTTL       time.Duration
	logger         *slog.Logger
}

// NewDispatcher creates the outbox dispatcher. locker and signal may be nil.
func NewDispatcher(uow port.UnitOfWork, publisher port.EventPublisher, webhook port.WebhookSender, locker port.Locker, signal *Signal, cfg config.OutboxConfig, logger *slog.Logger) port.OutboxDispatcher {
	return &dispatcher{
		uow:       uow,
		publisher: publisher,
		webhook:   webhook,
		locker:    locker,
		signal:    signal,
		policy: retry.Policy{
			InitialInterval: cfg.InitialInterval,
			Multiplier:      cfg.Multiplier,
			MaxInterval:     cfg.MaxInterval,
			MaxAttempts:     cfg.MaxAttempts,
		},
		batchSize:      cfg.BatchSize,
		attemptTimeout: cfg.AttemptTimeout,
		leaseTTL:       cfg.LeaseTTL,
		logger:         logger,
	}
}

// DispatchBatch delivers the entries due at now. An entry is marked SENT on success, rescheduled
// with backoff on a retryable failure, and marked FAILED on a permanent failure or once its
// attempts are spent. Delivery is at least once: consumers dedupe on the entry id.
func (d *dispatcher) DispatchBatch(ctx context.Context, now time.Time) (domain.DispatchReport, error) {
	var report domain.DispatchReport

	if d.locker != nil {
		release, ok, err := d.locker.TryLock(ctx, lockName, d.leaseTTL)
		if err != nil {
			d.logger.Warn("outbox lease unavailable, dispatching without it", "error", err)
		} else if !ok {
			d.logger.Debug("outbox lease held by another instance")
			return report, nil
		} else {
			defer release()
		}
	}

	entries, err := d.claim(ctx, now)
	if err != nil {
		return report, fmt.Errorf("failed to claim due outbox entries: %w", err)
	}

	for i := range entries {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		entry := entries[i]
		d.dispatch(ctx, &entry, now, &report)
	}

	if len(entries) > 0 {
		d.logger.Info("outbox batch dispatched", "sent", report.Sent, "retried", report.Retried, "failed", report.Failed, "conflict", report.Conflict)
	}
	return report, nil
}

// claim leases the due entries in one transaction so concurrent dispatchers get disjoint batches.
// An entry whose dispatcher dies becomes due again once the lease runs out.
func (d *dispatcher) claim(ctx context.Context, now time.Time) ([]domain.OutboxEntry, error) {
	lease := d.leaseTTL
	if lease <= 0 {
		lease = defaultClaimLease
	}

	var entries []domain.OutboxEntry
	err := d.uow.Execute(ctx, func(uow port.UnitOfWork) error {
		var err error
		entries, err = uow.OutboxRepo().ClaimDue(ctx, now, now.Add(lease), d.batchSize)
		return err
	})
	return entries, err
}

func (d *dispatcher) dispatch(ctx context.Context, entry *domain.OutboxEntry, now time.Time, report *domain.DispatchReport) {
	deliverErr := d.deliver(ctx, entry)
	if deliverErr != nil && (ctx.Err() != nil || retry.IsInterrupted(deliverErr)) {
		// left to the claim lease; shutdown is not a delivery failure
		d.logger.Warn("outbox delivery interrupted", "entry_id", entry.ID, "error", deliverErr)
		return
	}

	switch {
	case deliverErr == nil:
		entry.MarkSent(now)
	case retry.Classify(deliverErr) == retry.Permanent:
		entry.MarkFailed(deliverErr)
	case !entry.AttemptsLeft():
		entry.MarkFailed(fmt.Errorf("%w after %d attempts: %v", domain.ErrRetriesExhausted, entry.Attempts+1, deliverErr))
	default:
		entry.ScheduleRetry(deliverErr, now.Add(d.policy.Delay(entry.Attempts)))
	}

	err := d.uow.OutboxRepo().Update(ctx, entry)
	if errors.Is(err, domain.ErrVersionConflict) {
		// another dispatcher handled the entry first
		report.Conflict++
		return
	}
	if err != nil {
		d.logger.Error("failed to record outbox delivery", "error", err, "entry_id", entry.ID)
		return
	}

	switch entry.Status {
	case domain.OutboxStatusSent:
		report.Sent++
	case domain.OutboxStatusFailed:
		report.Failed++
		d.logger.Error("outbox entry failed", "entry_id", entry.ID, "event_type", entry.EventType, "attempts", entry.Attempts, "error", entry.LastError)
	default:
		report.Retried++
		d.logger.Warn("outbox delivery retry scheduled", "entry_id", entry.ID, "attempts", entry.Attempts, "next_attempt_at", entry.NextAttemptAt, "error", entry.LastError)
	}
}

func (d *dispatcher) deliver(ctx context.Context, entry *domain.OutboxEntry) error {
	if d.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.attemptTimeout)
		defer cancel()
	}

	switch entry.Kind {
	case domain.OutboxKindEvent:
		return d.publisher.Publish(ctx, entry.EventType, entry.ID.String(), entry.Payload)
	case domain.OutboxKindWebhook:
		return d.webhook.Send(ctx, entry.Destination, entry.ID.String(), entry.Payload)
	default:
		return fmt.Errorf("%w: unknown outbox kind %q", domain.ErrValidation, entry.Kind)
	}
}

// Run dispatches every interval and whenever the signal fires, until ctx is done.
// A full batch is followed immediately by another one.
func (d *dispatcher) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var wake <-chan struct{}
	if d.signal != nil {
		wake = d.signal.C()
	}

	d.logger.Info("outbox dispatcher started", "every", every)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
		case <-wake:
		}

		for {
			report, err := d.DispatchBatch(ctx, time.Now())
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					d.logger.Error("outbox dispatch failed", "error", err)
				}
				break
			}
			if report.Total() < d.batchSize {
				break
			}
		}
	}
}
