package domain

import (
	"io"
	"time"
)

// SessionRequest is a client request to open a transfer session
type SessionRequest struct {
	Kind        SessionKind
	FileName    string
	ContentType string
	Size        int64
	PartSize    int64
}

// DownloadRequest is a client request to fetch an external url into storage
type DownloadRequest struct {
	SourceURL   string
	CallbackURL string
	MaxRetries  *int
}

// PresignedURL is a time-bounded url granting direct access to an object
type PresignedURL struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresAt time.Time
}

// ObjectInfo is what the storage reports about a stored object
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// FetchedObject is a remote body being streamed into storage
type FetchedObject struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// ReapReport summarizes one reaper run
type ReapReport struct {
	Expired            int
	Skipped            int
	Errors             int
	RecoveredDownloads int
}

// DispatchReport summarizes one outbox batch
type DispatchReport struct {
	Sent     int
	Retried  int
	Failed   int
	Conflict int
}

// Total counts the entries the batch handled
func (r DispatchReport) Total() int {
	return r.Sent + r.Retried + r.Failed + r.Conflict
}
