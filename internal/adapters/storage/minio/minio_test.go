package minio_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
	"transferhub/internal/adapters/storage/minio"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
	testBucket    = "test-bucket"
)

func setupContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     testAccessKey,
			"MINIO_ROOT_PASSWORD": testSecretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000"),
	}
	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := minioContainer.Host(ctx)
	require.NoError(t, err)

	port, err := minioContainer.MappedPort(ctx, "9000")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	cleanup := func() {
		if err := minioContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	time.Sleep(500 * time.Millisecond) // wait for container to be up
	return endpoint, cleanup
}

func createAdapter(t *testing.T, endpoint string, ctx context.Context) *minio.Adapter {
	t.Helper()
	cfg := config.MinioConfig{
		Endpoint:                   endpoint,
		AccessKey:                  testAccessKey,
		SecretKey:                  testSecretKey,
		BucketName:                 testBucket,
		UseSSL:                     false,
		SimplePresignedDuration:    15 * time.Minute,
		MultiPartPresignedDuration: 15 * time.Minute,
	}

	discardLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	adapter, err := minio.NewAdapter(ctx, cfg, discardLogger)

	require.NoError(t, err)
	require.NotNil(t, adapter)

	return adapter
}

func validatePresignedURL(t *testing.T, presigned *domain.PresignedURL) {
	t.Helper()

	u, err := url.Parse(presigned.URL)
	require.NoError(t, err)

	queryParams := u.Query()
	assert.Equal(t, "AWS4-HMAC-SHA256", queryParams.Get("X-Amz-Algorithm"))
	assert.NotEmpty(t, queryParams.Get("X-Amz-Signature"))
	assert.Contains(t, queryParams.Get("X-Amz-SignedHeaders"), "host")
	assert.Equal(t, http.MethodPut, presigned.Method)
	assert.True(t, presigned.ExpiresAt.After(time.Now()))
}

func upload(t *testing.T, presigned *domain.PresignedURL, content string) string {
	t.Helper()

	req, err := http.NewRequest(presigned.Method, presigned.URL, strings.NewReader(content))
	require.NoError(t, err)
	for key, value := range presigned.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return resp.Header.Get("ETag")
}

func TestSimpleUpload(t *testing.T) {
	// Arrange
	endpoint, cleanup := setupContainer(t)
	defer cleanup()
	ctx := context.Background()
	adapter := createAdapter(t, endpoint, ctx)

	key := "uploads/tenant-a/simple-upload.txt"
	content := "Hello, MinIO!"

	// Act
	presigned, err := adapter.PresignPutObject(ctx, key, "text/plain")

	// Assert
	require.NoError(t, err)
	validatePresignedURL(t, presigned)
	assert.Equal(t, "text/plain", presigned.Headers["Content-Type"])

	// Act
	etag := upload(t, presigned, content)
	info, err := adapter.HeadObject(ctx, key)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, strings.Trim(etag, "\""), info.ETag)
	assert.Equal(t, "text/plain", info.ContentType)
	assert.Equal(t, testBucket, adapter.Bucket())

	// Act
	download, err := adapter.PresignGetObject(ctx, key, "greeting.txt")
	require.NoError(t, err)
	resp, err := http.Get(download.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, download.Method)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, string(body))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename=greeting.txt`)
}

func TestMultipartUpload(t *testing.T) {
	// Arrange
	endpoint, cleanup := setupContainer(t)
	defer cleanup()

	ctx := context.Background()
	adapter := createAdapter(t, endpoint, ctx)

	key := "uploads/tenant-a/multipart-upload.txt"
	const minPartSize = 5 * 1024 * 1024

	parts := []struct {
		content string
		number  int
	}{
		{content: strings.Repeat("a", minPartSize), number: 1},
		{content: strings.Repeat("b", minPartSize), number: 2},
		{content: "Final small part", number: 3},
	}

	// Act
	uploadID, err := adapter.InitiateMultipartUpload(ctx, key, "text/plain")

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, uploadID)

	// Act
	completedParts := make([]domain.CompletedPart, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		presigned, presignErr := adapter.PresignUploadPart(ctx, key, uploadID, part.number)
		require.NoError(t, presignErr)
		validatePresignedURL(t, presigned)
		assert.Equal(t, fmt.Sprint(part.number), mustQuery(t, presigned.URL).Get("partNumber"))

		etag := upload(t, presigned, part.content)
		completedParts = append(completedParts, domain.CompletedPart{
			PartNumber: part.number,
			ETag:       etag,
			Size:       int64(len(part.content)),
		})
	}

	etag, err := adapter.CompleteMultipartUpload(ctx, key, uploadID, completedParts)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, etag)
	assert.NotContains(t, etag, "\"")
	assert.Equal(t, 3, completedParts[0].PartNumber, "caller slice is left untouched")

	info, err := adapter.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(minPartSize*2+len("Final small part")), info.Size)
	assert.Equal(t, etag, info.ETag)
}

func TestAbortMultipartUpload(t *testing.T) {
	// Arrange
	endpoint, cleanup := setupContainer(t)
	defer cleanup()

	ctx := context.Background()
	adapter := createAdapter(t, endpoint, ctx)
	key := "uploads/tenant-a/aborted.bin"

	uploadID, err := adapter.InitiateMultipartUpload(ctx, key, "")
	require.NoError(t, err)

	// Act
	err = adapter.AbortMultipartUpload(ctx, key, uploadID)

	// Assert
	require.NoError(t, err)

	_, err = adapter.CompleteMultipartUpload(ctx, key, uploadID, []domain.CompletedPart{{PartNumber: 1, ETag: "x"}})
	assert.ErrorIs(t, err, domain.ErrPermanentProvider)
}

func TestPutHeadDeleteObject(t *testing.T) {
	// Arrange
	endpoint, cleanup := setupContainer(t)
	defer cleanup()

	ctx := context.Background()
	adapter := createAdapter(t, endpoint, ctx)
	key := "downloads/tenant-a/report.csv"
	content := "a,b,c\n1,2,3\n"

	t.Run("put with known size", func(t *testing.T) {
		// Act
		info, err := adapter.PutObject(ctx, key, strings.NewReader(content), int64(len(content)), "text/csv")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.NotEmpty(t, info.ETag)
	})

	t.Run("put with unknown size", func(t *testing.T) {
		info, err := adapter.PutObject(ctx, key+".stream", strings.NewReader(content), -1, "text/csv")

		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), info.Size)
	})

	t.Run("delete then head reports not found", func(t *testing.T) {
		// Act
		err := adapter.DeleteObject(ctx, key)
		require.NoError(t, err)
		_, err = adapter.HeadObject(ctx, key)

		// Assert
		assert.ErrorIs(t, err, domain.ErrObjectNotFound)
	})
}

func TestSimpleUpload_ExpiredURL_ShouldFail(t *testing.T) {
	// Arrange
	endpoint, cleanup := setupContainer(t)
	defer cleanup()

	cfg := config.MinioConfig{
		Endpoint:                endpoint,
		AccessKey:               testAccessKey,
		SecretKey:               testSecretKey,
		BucketName:              testBucket,
		UseSSL:                  false,
		SimplePresignedDuration: 1 * time.Second,
	}
	ctx := context.Background()

	adapter, err := minio.NewAdapter(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// Act
	presigned, err := adapter.PresignPutObject(ctx, "uploads/tenant-a/expired.txt", "text/plain")
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	req, err := http.NewRequest(http.MethodPut, presigned.URL, strings.NewReader("Expired content"))
	require.NoError(t, err)
	for key, value := range presigned.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert
	assert.True(t, resp.StatusCode >= 400)
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}
