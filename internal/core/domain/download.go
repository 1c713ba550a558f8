package domain

import (
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the status of a download task
type DownloadStatus string

const (
	DownloadStatusQueued      DownloadStatus = "QUEUED"
	DownloadStatusDownloading DownloadStatus = "DOWNLOADING"
	DownloadStatusCompleted   DownloadStatus = "COMPLETED"
	DownloadStatusFailed      DownloadStatus = "FAILED"
)

// IsTerminal reports whether the task can no longer change
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadStatusCompleted || s == DownloadStatusFailed
}

// DownloadTask fetches an external URL into storage
type DownloadTask struct {
	ID            uuid.UUID
	Owner         Owner
	SourceURL     string
	Bucket        string
	ObjectKey     string
	CallbackURL   string
	Status        DownloadStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextAttemptAt time.Time
	ContentType   string
	Size          int64
	ETag          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}

// NewDownloadTask validates the source and builds a QUEUED task
func NewDownloadTask(id uuid.UUID, owner Owner, sourceURL, callbackURL, bucket string, maxRetries int, now time.Time) (DownloadTask, error) {
	src, err := url.Parse(sourceURL)
	if err != nil || (src.Scheme != "http" && src.Scheme != "https") || src.Host == "" {
		return DownloadTask{}, fmt.Errorf("%w: %q", ErrInvalidSourceURL, sourceURL)
	}
	if callbackURL != "" {
		cb, err := url.Parse(callbackURL)
		if err != nil || (cb.Scheme != "http" && cb.Scheme != "https") || cb.Host == "" {
			return DownloadTask{}, fmt.Errorf("%w: invalid callback url %q", ErrValidation, callbackURL)
		}
	}
	if maxRetries < 0 {
		return DownloadTask{}, fmt.Errorf("%w: max retries must not be negative", ErrValidation)
	}
	name := path.Base(src.Path)
	if name == "/" || name == "." {
		name = "index"
	}
	return DownloadTask{
		ID:            id,
		Owner:         owner,
		SourceURL:     sourceURL,
		Bucket:        bucket,
		ObjectKey:     fmt.Sprintf("downloads/%s/%s/%s", owner.TenantID, id, name),
		CallbackURL:   callbackURL,
		Status:        DownloadStatusQueued,
		MaxRetries:    maxRetries,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Begin moves a QUEUED task to DOWNLOADING
func (d *DownloadTask) Begin(now time.Time) error {
	if d.Status != DownloadStatusQueued {
		return fmt.Errorf("%w: begin download from %s", ErrInvalidStateTransition, d.Status)
	}
	d.Status = DownloadStatusDownloading
	d.UpdatedAt = now
	return nil
}

// Succeed records the stored object and completes the task
func (d *DownloadTask) Succeed(etag, contentType string, size int64, now time.Time) error {
	if d.Status != DownloadStatusDownloading {
		return fmt.Errorf("%w: complete download from %s", ErrInvalidStateTransition, d.Status)
	}
	d.Status = DownloadStatusCompleted
	d.ETag = NormalizeETag(etag)
	d.ContentType = contentType
	d.Size = size
	d.LastError = ""
	d.UpdatedAt = now
	return nil
}

// CanRetry reports whether the retry budget allows one more attempt
func (d *DownloadTask) CanRetry() bool {
	return d.RetryCount < d.MaxRetries
}

// Requeue schedules another attempt after a transient failure
func (d *DownloadTask) Requeue(cause error, nextAttempt time.Time, now time.Time) error {
	if d.Status.IsTerminal() {
		return fmt.Errorf("%w: requeue from %s", ErrInvalidStateTransition, d.Status)
	}
	if !d.CanRetry() {
		return fmt.Errorf("%w: %d of %d", ErrRetriesExhausted, d.RetryCount, d.MaxRetries)
	}
	d.Status = DownloadStatusQueued
	d.RetryCount++
	d.LastError = cause.Error()
	d.NextAttemptAt = nextAttempt
	d.UpdatedAt = now
	return nil
}

// Fail marks the task FAILED. It returns false when the task was already terminal.
func (d *DownloadTask) Fail(cause error, now time.Time) bool {
	if d.Status.IsTerminal() {
		return false
	}
	d.Status = DownloadStatusFailed
	d.LastError = cause.Error()
	d.UpdatedAt = now
	return true
}
