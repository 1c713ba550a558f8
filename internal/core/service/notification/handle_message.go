package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
)

// HandleMessage completes the sessions the notification reports as stored. Notifications are
// delivered at least once, so a replay of an already applied record is acknowledged without effect.
// Records that cannot be matched to a session are logged and acknowledged; only errors worth a
// redelivery are returned.
func (n *notificationService) HandleMessage(ctx context.Context, data []byte) error {
	var event domain.BucketNotification
	if err := json.Unmarshal(data, &event); err != nil {
		n.logger.Error("dropping malformed bucket notification", "error", err)
		return nil
	}

	records := event.ObjectCreatedRecords()
	if len(records) == 0 {
		n.logger.Warn("bucket notification without records", "event_name", event.EventName, "key", event.Key)
		return nil
	}

	var errs []error
	for _, record := range records {
		if err := n.handleRecord(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *notificationService) handleRecord(ctx context.Context, record domain.ObjectCreated) error {
	if record.EventType == domain.EventTypeUnknown {
		n.logger.Debug("ignoring bucket event", "event_name", record.EventName, "key", record.Key)
		return nil
	}

	sessionID, err := domain.SessionIDFromKey(record.Key)
	if err != nil {
		n.logger.Warn("unmatched object key", "error", err, "key", record.Key)
		return nil
	}

	n.logger.Info("handling object created", "event_type", record.EventType, "key", record.Key, "session_id", sessionID)

	_, err = n.sessions.Complete(ctx, sessionID, domain.UploadConfirmation{ETag: record.ETag, Size: record.Size})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSessionNotFound):
		n.logger.Warn("unmatched object key", "error", fmt.Errorf("%w: %w", domain.ErrSessionMatching, err), "key", record.Key)
		return nil
	case errors.Is(err, domain.ErrVersionConflict):
		return n.resolveConflict(ctx, sessionID, err)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		n.logger.Warn("notification for a closed session", "session_id", sessionID, "error", err)
		return nil
	case errors.Is(err, domain.ErrIncompleteParts):
		n.logger.Warn("merge notification before every part is recorded", "session_id", sessionID, "error", err)
		return nil
	case errors.Is(err, domain.ErrValidation):
		// the stored object does not match what the session declared
		if _, failErr := n.sessions.Fail(ctx, sessionID, err.Error()); failErr != nil {
			return fmt.Errorf("could not fail session %s: %w", sessionID, failErr)
		}
		n.logger.Warn("stored object rejected", "session_id", sessionID, "error", err)
		return nil
	default:
		return fmt.Errorf("could not complete session %s: %w", sessionID, err)
	}
}

// resolveConflict treats a lost completion race as a duplicate once the winner made the session terminal
func (n *notificationService) resolveConflict(ctx context.Context, sessionID uuid.UUID, cause error) error {
	current, err := n.sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("could not reload session %s: %w", sessionID, err)
	}
	if current.Status.IsTerminal() {
		n.logger.Info("duplicate completion notification", "session_id", sessionID, "status", current.Status)
		return nil
	}
	return cause
}
