package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxKind tells which sink delivers an entry
type OutboxKind string

const (
	OutboxKindEvent   OutboxKind = "event"
	OutboxKindWebhook OutboxKind = "webhook"
)

// OutboxStatus represents the delivery status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

// AggregateType names the aggregate an outbox entry is about
type AggregateType string

const (
	AggregateSession  AggregateType = "session"
	AggregateDownload AggregateType = "download"
)

// Event types written to the outbox
const (
	EventSessionCompleted  = "session.completed"
	EventSessionFailed     = "session.failed"
	EventSessionAborted    = "session.aborted"
	EventDownloadCompleted = "download.completed"
	EventDownloadFailed    = "download.failed"
	EventDownloadWebhook   = "download.webhook"
)

// OutboxEntry is a pending notification written in the same transaction as the transition it announces
type OutboxEntry struct {
	ID            uuid.UUID
	Kind          OutboxKind
	AggregateType AggregateType
	RelatedID     uuid.UUID
	EventType     string
	Destination   string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Version       int64
}

// SessionEvent is the payload of session outbox events
type SessionEvent struct {
	SessionID  uuid.UUID     `json:"sessionId"`
	TenantID   string        `json:"tenantId"`
	Kind       SessionKind   `json:"kind"`
	Status     SessionStatus `json:"status"`
	Bucket     string        `json:"bucket"`
	ObjectKey  string        `json:"objectKey"`
	ETag       string        `json:"etag,omitempty"`
	Size       int64         `json:"size,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// DownloadEvent is the payload of download outbox events
type DownloadEvent struct {
	TaskID     uuid.UUID      `json:"taskId"`
	TenantID   string         `json:"tenantId"`
	Status     DownloadStatus `json:"status"`
	Bucket     string         `json:"bucket"`
	ObjectKey  string         `json:"objectKey"`
	ETag       string         `json:"etag,omitempty"`
	Size       int64          `json:"size,omitempty"`
	Error      string         `json:"error,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// WebhookPayload is the body POSTed to a tenant callback url
type WebhookPayload struct {
	TaskID    uuid.UUID `json:"taskId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSessionEventEntry builds the outbox event announcing a session transition
func NewSessionEventEntry(session TransferSession, eventType string, maxAttempts int, now time.Time) (OutboxEntry, error) {
	payload, err := json.Marshal(SessionEvent{
		SessionID:  session.ID,
		TenantID:   session.Owner.TenantID,
		Kind:       session.Kind,
		Status:     session.Status,
		Bucket:     session.Bucket,
		ObjectKey:  session.ObjectKey,
		ETag:       session.ETag,
		Size:       session.DeclaredSize,
		Reason:     session.FailureReason,
		OccurredAt: now,
	})
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("failed to marshal session event: %w", err)
	}
	return newEntry(OutboxKindEvent, AggregateSession, session.ID, eventType, "", payload, maxAttempts, now), nil
}

// NewDownloadEventEntry builds the outbox event announcing a download transition
func NewDownloadEventEntry(task DownloadTask, eventType string, maxAttempts int, now time.Time) (OutboxEntry, error) {
	payload, err := json.Marshal(DownloadEvent{
		TaskID:     task.ID,
		TenantID:   task.Owner.TenantID,
		Status:     task.Status,
		Bucket:     task.Bucket,
		ObjectKey:  task.ObjectKey,
		ETag:       task.ETag,
		Size:       task.Size,
		Error:      task.LastError,
		OccurredAt: now,
	})
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("failed to marshal download event: %w", err)
	}
	return newEntry(OutboxKindEvent, AggregateDownload, task.ID, eventType, "", payload, maxAttempts, now), nil
}

// NewWebhookEntry builds the callback entry of a terminal download task
func NewWebhookEntry(task DownloadTask, maxAttempts int, now time.Time) (OutboxEntry, error) {
	if task.CallbackURL == "" {
		return OutboxEntry{}, fmt.Errorf("%w: task %s has no callback url", ErrValidation, task.ID)
	}
	payload, err := json.Marshal(WebhookPayload{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Timestamp: now,
	})
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	return newEntry(OutboxKindWebhook, AggregateDownload, task.ID, EventDownloadWebhook, task.CallbackURL, payload, maxAttempts, now), nil
}

func newEntry(kind OutboxKind, aggregate AggregateType, relatedID uuid.UUID, eventType, destination string, payload []byte, maxAttempts int, now time.Time) OutboxEntry {
	return OutboxEntry{
		ID:            uuid.New(),
		Kind:          kind,
		AggregateType: aggregate,
		RelatedID:     relatedID,
		EventType:     eventType,
		Destination:   destination,
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

// MarkSent records a successful delivery
func (o *OutboxEntry) MarkSent(now time.Time) {
	o.Attempts++
	o.Status = OutboxStatusSent
	o.LastError = ""
	o.PublishedAt = &now
}

// ScheduleRetry records a failed attempt and the time of the next one
func (o *OutboxEntry) ScheduleRetry(cause error, next time.Time) {
	o.Attempts++
	o.LastError = cause.Error()
	o.NextAttemptAt = next
}

// MarkFailed records the final failure of the entry
func (o *OutboxEntry) MarkFailed(cause error) {
	o.Attempts++
	o.Status = OutboxStatusFailed
	o.LastError = cause.Error()
}

// AttemptsLeft reports whether another attempt fits in the budget after the current one
func (o *OutboxEntry) AttemptsLeft() bool {
	return o.Attempts+1 < o.MaxAttempts
}
