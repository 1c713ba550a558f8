package storage

import (
	"context"
	"fmt"
	"log/slog"
	"transferhub/internal/adapters/storage/minio"
	"transferhub/internal/adapters/storage/s3"
	"transferhub/internal/config"
	"transferhub/internal/core/port"
)

const (
	BackendMinio = "minio"
	BackendS3    = "s3"
)

// New builds the object storage selected by cfg.Storage.Backend
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case BackendMinio, "":
		return minio.NewAdapter(ctx, cfg.Minio, logger)
	case BackendS3:
		return s3.NewAdapter(ctx, cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
