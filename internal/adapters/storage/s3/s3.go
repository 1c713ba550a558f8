// Package s3 stores transfers in Amazon S3 or any S3 compatible endpoint through aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"sort"
	"strings"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/retry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// chunkSize is the part size used when streaming a body of unknown length
const chunkSize = 8 * 1024 * 1024

// Adapter is an adapter for S3
type Adapter struct {
	client  *s3.Client
	presign *s3.PresignClient
	config  config.S3Config
	logger  *slog.Logger
}

// NewAdapter returns Adapter and creates the bucket when it is missing
func NewAdapter(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (*Adapter, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	adapter := &Adapter{
		client:  client,
		presign: s3.NewPresignClient(client),
		config:  cfg,
		logger:  logger,
	}
	if err := adapter.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (a *Adapter) ensureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.config.BucketName)})
	if err == nil {
		return nil
	}
	if statusCode(err) != 404 {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(a.config.BucketName)}
	if a.config.Region != "" && a.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.config.Region),
		}
	}
	if _, err := a.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket every key lives in
func (a *Adapter) Bucket() string {
	return a.config.BucketName
}

// PresignPutObject generates a presigned url for a single upload
func (a *Adapter) PresignPutObject(ctx context.Context, key string, contentType string) (*domain.PresignedURL, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.config.BucketName),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := a.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(a.config.PresignedDuration))
	if err != nil {
		return nil, classify("failed to generate pre-signed URL", err)
	}

	headers := make(map[string]string)
	for name, values := range req.SignedHeader {
		if len(values) > 0 && !strings.EqualFold(name, "Host") {
			headers[name] = values[0]
		}
	}

	return &domain.PresignedURL{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: time.Now().Add(a.config.PresignedDuration),
	}, nil
}

// InitiateMultipartUpload inits a multi part upload
func (a *Adapter) InitiateMultipartUpload(ctx context.Context, key string, contentType string) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(a.config.BucketName),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := a.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", classify("failed to init multipart upload", err)
	}
	return aws.ToString(out.UploadId), nil
}

// PresignUploadPart generates presigned url for a part
func (a *Adapter) PresignUploadPart(ctx context.Context, key string, uploadID string, partNumber int) (*domain.PresignedURL, error) {
	req, err := a.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(a.config.BucketName),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(partNumber)),
	}, s3.WithPresignExpires(a.config.PresignedDuration))
	if err != nil {
		return nil, classify("failed to generate presigned URL for part", err)
	}

	return &domain.PresignedURL{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   map[string]string{},
		ExpiresAt: time.Now().Add(a.config.PresignedDuration),
	}, nil
}

// PresignGetObject generates a presigned url downloading the object as an attachment named fileName
func (a *Adapter) PresignGetObject(ctx context.Context, key string, fileName string) (*domain.PresignedURL, error) {
	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(a.config.BucketName),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": fileName})),
	}, s3.WithPresignExpires(a.config.PresignedDuration))
	if err != nil {
		return nil, classify("failed to generate download URL", err)
	}

	return &domain.PresignedURL{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   map[string]string{},
		ExpiresAt: time.Now().Add(a.config.PresignedDuration),
	}, nil
}

// CompleteMultipartUpload merges the parts in ascending order and returns the object etag
func (a *Adapter) CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []domain.CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(int32(part.PartNumber)),
			ETag:       aws.String(strings.Trim(part.ETag, "\"")),
		})
	}
	sort.Slice(completed, func(i, j int) bool {
		return aws.ToInt32(completed[i].PartNumber) < aws.ToInt32(completed[j].PartNumber)
	})

	out, err := a.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(a.config.BucketName),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return "", classify("failed to complete multipart upload", err)
	}
	return strings.Trim(aws.ToString(out.ETag), "\""), nil
}

// AbortMultipartUpload drops the provider upload and its parts
func (a *Adapter) AbortMultipartUpload(ctx context.Context, key string, uploadID string) error {
	_, err := a.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(a.config.BucketName),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
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
	out, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("failed to get object info", err)
	}
	return &domain.ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        strings.Trim(aws.ToString(out.ETag), "\""),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// DeleteObject deletes an object from storage
func (a *Adapter) DeleteObject(ctx context.Context, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify("failed to delete object", err)
	}

	a.logger.Info("object deleted",
		slog.String("key", key),
		slog.String("bucket", a.config.BucketName))

	return nil
}

// PutObject streams body into key. Bodies that fit in one chunk go through a plain PUT,
// larger ones through a multipart upload so the length does not need to be known.
func (a *Adapter) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*domain.ObjectInfo, error) {
	buf := make([]byte, chunkSize)
	n, err := io.ReadFull(body, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if n < chunkSize {
		return a.putSingle(ctx, key, buf[:n], contentType)
	}
	return a.putMultipart(ctx, key, body, buf, contentType)
}

func (a *Adapter) putSingle(ctx context.Context, key string, data []byte, contentType string) (*domain.ObjectInfo, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := a.client.PutObject(ctx, input)
	if err != nil {
		return nil, classify("failed to put object", err)
	}
	return &domain.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ETag:        strings.Trim(aws.ToString(out.ETag), "\""),
		ContentType: contentType,
	}, nil
}

func (a *Adapter) putMultipart(ctx context.Context, key string, body io.Reader, first []byte, contentType string) (*domain.ObjectInfo, error) {
	uploadID, err := a.InitiateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	var parts []domain.CompletedPart
	var total int64
	chunk := first
	for partNumber := 1; len(chunk) > 0; partNumber++ {
		out, err := a.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(a.config.BucketName),
			Key:           aws.String(key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int32(int32(partNumber)),
			Body:          bytes.NewReader(chunk),
			ContentLength: aws.Int64(int64(len(chunk))),
		})
		if err != nil {
			a.abortQuietly(key, uploadID)
			return nil, classify("failed to upload part", err)
		}
		parts = append(parts, domain.CompletedPart{PartNumber: partNumber, ETag: aws.ToString(out.ETag), Size: int64(len(chunk))})
		total += int64(len(chunk))

		next := make([]byte, chunkSize)
		n, readErr := io.ReadFull(body, next)
		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) && !errors.Is(readErr, io.EOF) {
			a.abortQuietly(key, uploadID)
			return nil, fmt.Errorf("failed to read body: %w", readErr)
		}
		chunk = next[:n]
	}

	etag, err := a.CompleteMultipartUpload(ctx, key, uploadID, parts)
	if err != nil {
		a.abortQuietly(key, uploadID)
		return nil, err
	}
	return &domain.ObjectInfo{Key: key, Size: total, ETag: etag, ContentType: contentType}, nil
}

func (a *Adapter) abortQuietly(key string, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		a.logger.Warn("failed to abort multipart upload", "key", key, "error", err)
	}
}

// classify wraps an sdk failure with the provider error matching its status code
func classify(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%s: %w", msg, domain.ErrObjectNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchUpload" {
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrPermanentProvider, err)
	}

	if providerErr := retry.FromHTTPStatus(statusCode(err)); providerErr != nil {
		return fmt.Errorf("%s: %w: %w", msg, providerErr, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrTransientProvider, err)
}

func statusCode(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
