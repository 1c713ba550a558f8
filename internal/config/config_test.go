package config_test

import (
	"os"
	"testing"
	"time"
	"transferhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_STREAM_NAME", "STORAGE")
	t.Setenv("NATS_CONSUMER_NAME", "transferhub")
	t.Setenv("NATS_SUBJECT", "storage.events")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "transferhub")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "transferhub")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		// Arrange
		setRequired(t)

		// Act
		cfg, err := config.Load()

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "minio", cfg.Storage.Backend)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, int64(100<<20), cfg.Upload.SingleUploadMaxSize)
		assert.Equal(t, int64(5<<20), cfg.Upload.MinPartSize)
		assert.Equal(t, 10000, cfg.Upload.MaxParts)
		assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
		assert.Equal(t, 30*time.Minute, cfg.Reaper.PendingThreshold)
		assert.Equal(t, 24*time.Hour, cfg.Reaper.InProgressThreshold)
		assert.Equal(t, 3, cfg.Download.MaxRetries)
		assert.Equal(t, 5, cfg.NATS.MaxDeliver)
		assert.Empty(t, cfg.Redis.Addr)
	})

	t.Run("overrides", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORAGE_BACKEND", "s3")
		t.Setenv("OUTBOX_POLL_EVERY", "250ms")
		t.Setenv("OUTBOX_MULTIPLIER", "1.5")
		t.Setenv("REDIS_ADDR", "localhost:6379")

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, "s3", cfg.Storage.Backend)
		assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollEvery)
		assert.Equal(t, 1.5, cfg.Outbox.Multiplier)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	})

	t.Run("missing required variable", func(t *testing.T) {
		setRequired(t)
		require.NoError(t, os.Unsetenv("DB_HOST"))

		_, err := config.Load()

		assert.Error(t, err)
	})

	t.Run("malformed duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("REAPER_EVERY", "often")

		_, err := config.Load()

		assert.Error(t, err)
	})
}
