package port

import (
	"context"
	"io"
	"transferhub/internal/core/domain"
)

// ObjectStorage is an interface to define object storage interactions.
// Adapters wrap provider failures with domain.ErrTransientProvider or domain.ErrPermanentProvider.
type ObjectStorage interface {
	Bucket() string
	PresignPutObject(ctx context.Context, key string, contentType string) (*domain.PresignedURL, error)
	InitiateMultipartUpload(ctx context.Context, key string, contentType string) (string, error)
	PresignUploadPart(ctx context.Context, key string, uploadID string, partNumber int) (*domain.PresignedURL, error)
	PresignGetObject(ctx context.Context, key string, fileName string) (*domain.PresignedURL, error)
	CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []domain.CompletedPart) (string, error)
	AbortMultipartUpload(ctx context.Context, key string, uploadID string) error
	HeadObject(ctx context.Context, key string) (*domain.ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*domain.ObjectInfo, error)
}
