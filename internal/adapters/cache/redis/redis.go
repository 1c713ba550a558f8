package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"transferhub/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes a lease only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Cache wraps Redis client for the idempotency fast path and the batch leases
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a new cache instance. ttl bounds how long an idempotency key is remembered.
func NewCache(cfg config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

func idempotencyKey(tenantID string, key string) string {
	return "idem:" + tenantID + ":" + key
}

// Get returns the session an idempotency key resolved to
func (c *Cache) Get(ctx context.Context, tenantID string, key string) (uuid.UUID, bool, error) {
	value, err := c.client.Get(ctx, idempotencyKey(tenantID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		c.logger.Warn("dropping corrupt idempotency entry", "tenant_id", tenantID, "key", key, "error", err)
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// Put remembers the session an idempotency key resolved to
func (c *Cache) Put(ctx context.Context, tenantID string, key string, sessionID uuid.UUID) error {
	if err := c.client.Set(ctx, idempotencyKey(tenantID, key), sessionID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set idempotency key: %w", err)
	}
	return nil
}

// TryLock takes the lease name for ttl. The returned release only drops the lease while this caller
// still owns it.
func (c *Cache) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := "lease:" + name
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, c.client, []string{key}, token).Err(); err != nil {
			c.logger.Warn("failed to release lease", "lease", name, "error", err)
		}
	}
	return release, true, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
