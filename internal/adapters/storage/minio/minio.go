package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/retry"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Adapter is an adapter for minio
type Adapter struct {
	client *minio.Client
	core   *minio.Core
	config config.MinioConfig
	logger *slog.Logger
}

// NewAdapter returns Adapter
func NewAdapter(ctx context.Context, cfg config.MinioConfig, logger *slog.Logger) (*Adapter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	core := minio.Core{Client: client}
	return &Adapter{client: client, config: cfg, core: &core, logger: logger}, nil
}

// Bucket returns the bucket every key lives in
func (a *Adapter) Bucket() string {
	return a.config.BucketName
}

// PresignPutObject generates a presigned url for a single upload
func (a *Adapter) PresignPutObject(ctx context.Context, key string, contentType string) (*domain.PresignedURL, error) {
	requestHeaders := make(http.Header)
	if contentType != "" {
		requestHeaders.Set("Content-Type", contentType)
	}

	presignedURL, err := a.client.PresignHeader(ctx, http.MethodPut, a.config.BucketName, key, a.config.SimplePresignedDuration, nil, requestHeaders)
	if err != nil {
		return nil, classify("failed to generate pre-signed URL", err)
	}

	return &domain.PresignedURL{
		URL:       presignedURL.String(),
		Method:    http.MethodPut,
		Headers:   headerToMap(requestHeaders),
		ExpiresAt: time.Now().Add(a.config.SimplePresignedDuration),
	}, nil
}

// InitiateMultipartUpload inits a multi part upload
func (a *Adapter) InitiateMultipartUpload(ctx context.Context, key string, contentType string) (string, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	uploadID, err := a.core.NewMultipartUpload(ctx, a.config.BucketName, key, opts)
	if err != nil {
		return "", classify("failed to init multipart upload", err)
	}
	return uploadID, nil
}

// PresignUploadPart generates presigned url for a part
func (a *Adapter) PresignUploadPart(ctx context.Context, key string, uploadID string, partNumber int) (*domain.PresignedURL, error) {
	reqParams := make(url.Values)
	reqParams.Set("partNumber", strconv.Itoa(partNumber))
	reqParams.Set("uploadId", uploadID)

	presignedURL, err := a.core.Presign(ctx, http.MethodPut, a.config.BucketName, key, a.config.MultiPartPresignedDuration, reqParams)
	if err != nil {
		return nil, classify("failed to generate presigned URL for part", err)
	}

	return &domain.PresignedURL{
		URL:       presignedURL.String(),
		Method:    http.MethodPut,
		Headers:   map[string]string{},
		ExpiresAt: time.Now().Add(a.config.MultiPartPresignedDuration),
	}, nil
}

// PresignGetObject generates a presigned url downloading the object as an attachment named fileName
func (a *Adapter) PresignGetObject(ctx context.Context, key string, fileName string) (*domain.PresignedURL, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))

	presignedURL, err := a.client.PresignedGetObject(ctx, a.config.BucketName, key, a.config.SimplePresignedDuration, reqParams)
	if err != nil {
		return nil, classify("failed to generate download URL", err)
	}

	return &domain.PresignedURL{
		URL:       presignedURL.String(),
		Method:    http.MethodGet,
		Headers:   map[string]string{},
		ExpiresAt: time.Now().Add(a.config.SimplePresignedDuration),
	}, nil
}

// CompleteMultipartUpload merges the parts in ascending order and returns the object etag
func (a *Adapter) CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []domain.CompletedPart) (string, error) {
	sorted := make([]domain.CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})

	completeParts := make([]minio.CompletePart, 0, len(sorted))
	for _, part := range sorted {
		completeParts = append(completeParts, minio.CompletePart{
			PartNumber: part.PartNumber,
			ETag:       strings.Trim(part.ETag, "\""),
		})
	}

	info, err := a.core.CompleteMultipartUpload(ctx, a.config.BucketName, key, uploadID, completeParts, minio.PutObjectOptions{})
	if err != nil {
		return "", classify("failed to complete multipart upload", err)
	}

	return strings.Trim(info.ETag, "\""), nil
}

// AbortMultipartUpload drops the provider upload and its parts
func (a *Adapter) AbortMultipartUpload(ctx context.Context, key string, uploadID string) error {
	err := a.core.AbortMultipartUpload(ctx, a.config.BucketName, key, uploadID)
	if err != nil {
		return classify("failed to abort multipart upload", err)
	}

	a.logger.Info("multipart upload aborted",
		slog.String("key", key),
		slog.String("uploadID", uploadID))

	return nil
}

// HeadObject retrieves obj info
func (a *Adapter) HeadObject(ctx context.Context, key string) (*domain.ObjectInfo, error) {
	info, err := a.client.StatObject(ctx, a.config.BucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, classify("failed to get object info", err)
	}
	return &domain.ObjectInfo{
		Key:         key,
		Size:        info.Size,
		ETag:        strings.Trim(info.ETag, "\""),
		ContentType: info.ContentType,
	}, nil
}

// DeleteObject deletes an object from storage
func (a *Adapter) DeleteObject(ctx context.Context, key string) error {
	err := a.client.RemoveObject(ctx, a.config.BucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return classify("failed to delete object", err)
	}

	a.logger.Info("object deleted",
		slog.String("key", key),
		slog.String("bucket", a.config.BucketName))

	return nil
}

// PutObject streams body into key. A negative size uploads in chunks until EOF.
func (a *Adapter) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*domain.ObjectInfo, error) {
	info, err := a.client.PutObject(ctx, a.config.BucketName, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, classify("failed to put object", err)
	}
	return &domain.ObjectInfo{
		Key:         key,
		Size:        info.Size,
		ETag:        strings.Trim(info.ETag, "\""),
		ContentType: contentType,
	}, nil
}

// classify wraps a minio failure with the provider error matching its status code
func classify(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return fmt.Errorf("%s: %w", msg, domain.ErrObjectNotFound)
	case "NoSuchUpload":
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrPermanentProvider, err)
	}

	if providerErr := retry.FromHTTPStatus(resp.StatusCode); providerErr != nil {
		return fmt.Errorf("%s: %w: %w", msg, providerErr, err)
	}
	// no status code means the request never got an answer
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrTransientProvider, err)
}

func headerToMap(headers http.Header) map[string]string {
	result := make(map[string]string)
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return result
}
