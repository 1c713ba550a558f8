package port

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyCache remembers which session an idempotency key resolved to.
// It is a fast path only: the database constraint stays authoritative.
type IdempotencyCache interface {
	Get(ctx context.Context, tenantID string, key string) (uuid.UUID, bool, error)
	Put(ctx context.Context, tenantID string, key string, sessionID uuid.UUID) error
}

// Locker hands out short leases so only one instance runs a periodic batch at a time
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}
