package session_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
	"transferhub/internal/adapters/repository/memory"
	"transferhub/internal/adapters/storage"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"
	"transferhub/internal/core/service/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const mb = int64(1 << 20)

var defaultCfg = config.FileUploadConfig{
	SingleUploadMaxSize:    10 * mb,
	MultipartUploadMaxSize: 5 * 1024 * mb,
	MinPartSize:            5 * mb,
	PartSize:               5 * mb,
	MaxParts:               10000,
	PresignedURLTTL:        15 * time.Minute,
}

var owner = domain.Owner{TenantID: "tenant-a", OrganizationID: "org-1", UserID: "user-1"}

type fixture struct {
	service port.SessionService
	uow     port.UnitOfWork
	storage *storage.MockStorage
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	discardLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uow := memory.NewUnitOfWork(memory.NewStore())
	mockStorage := storage.NewMockStorage()
	mockStorage.On("Bucket").Return("transfers").Maybe()
	mockStorage.On("PresignPutObject", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.PresignedURL{URL: "https://storage/put", Method: "PUT", ExpiresAt: time.Now().Add(15 * time.Minute)}, nil).Maybe()
	return fixture{
		service: session.NewSessionService(uow, mockStorage, nil, nil, defaultCfg, 5, discardLogger),
		uow:     uow,
		storage: mockStorage,
	}
}

func singleRequest() domain.SessionRequest {
	return domain.SessionRequest{Kind: domain.SessionKindSingle, FileName: "report.pdf", ContentType: "application/pdf", Size: 1024}
}

func outboxFor(t *testing.T, uow port.UnitOfWork, id uuid.UUID) []domain.OutboxEntry {
	t.Helper()
	entries, err := uow.OutboxRepo().ListByRelatedID(context.Background(), id)
	require.NoError(t, err)
	return entries
}

func TestSessionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("nominal single", func(t *testing.T) {
		// Arrange
		f := newFixture(t)

		// Act
		s, url, err := f.service.Create(ctx, owner, singleRequest(), "key-1")

		// Assert
		require.NoError(t, err)
		require.NotNil(t, url)
		assert.Equal(t, domain.SessionStatusPending, s.Status)
		assert.Equal(t, "transfers", s.Bucket)
		assert.Equal(t, s.CreatedAt.Add(15*time.Minute), s.ExpiresAt)
		assert.Equal(t, "https://storage/put", url.URL)
	})

	t.Run("same idempotency key returns the same session", func(t *testing.T) {
		f := newFixture(t)

		first, _, err := f.service.Create(ctx, owner, singleRequest(), "key-1")
		require.NoError(t, err)
		second, _, err := f.service.Create(ctx, owner, singleRequest(), "key-1")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		all, err := f.uow.SessionRepo().List(ctx, domain.SessionFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("concurrent creates with the same key persist one session", func(t *testing.T) {
		f := newFixture(t)
		const n = 20
		ids := make([]uuid.UUID, n)
		errs := make([]error, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s, _, err := f.service.Create(ctx, owner, singleRequest(), "same-key")
				errs[i] = err
				if s != nil {
					ids[i] = s.ID
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}
		all, err := f.uow.SessionRepo().List(ctx, domain.SessionFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("multipart computes the part layout", func(t *testing.T) {
		f := newFixture(t)
		f.storage.On("InitiateMultipartUpload", mock.Anything, mock.Anything, "video/mp4").Return("upload-42", nil).Once()

		s, url, err := f.service.Create(ctx, owner, domain.SessionRequest{Kind: domain.SessionKindMultipart, FileName: "movie.mp4", ContentType: "video/mp4", Size: 12 * mb}, "mp-1")

		require.NoError(t, err)
		assert.Nil(t, url)
		require.True(t, s.IsMultipart())
		assert.Equal(t, 3, s.Multipart.TotalParts)
		assert.Equal(t, 5*mb, s.Multipart.PartSize)
		assert.Equal(t, "upload-42", s.Multipart.ProviderUploadID)
		f.storage.AssertExpectations(t)
	})

	t.Run("validation errors", func(t *testing.T) {
		f := newFixture(t)
		tooBig := singleRequest()
		tooBig.Size = 11 * mb
		noName := singleRequest()
		noName.FileName = ""
		badType := singleRequest()
		badType.ContentType = "not a type;;"

		_, _, errKey := f.service.Create(ctx, owner, singleRequest(), "")
		_, _, errTenant := f.service.Create(ctx, domain.Owner{}, singleRequest(), "k")
		_, _, errSize := f.service.Create(ctx, owner, tooBig, "k")
		_, _, errName := f.service.Create(ctx, owner, noName, "k")
		_, _, errType := f.service.Create(ctx, owner, badType, "k")

		assert.ErrorIs(t, errKey, domain.ErrValidation)
		assert.ErrorIs(t, errTenant, domain.ErrValidation)
		assert.ErrorIs(t, errSize, domain.ErrFileSizeTooBig)
		assert.ErrorIs(t, errName, domain.ErrValidation)
		assert.ErrorIs(t, errType, domain.ErrValidation)
	})
}

func TestSessionService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("nominal writes one outbox event", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		s, _, err := f.service.Create(ctx, owner, singleRequest(), "key-1")
		require.NoError(t, err)
		_, err = f.service.Start(ctx, s.ID)
		require.NoError(t, err)

		// Act
		done, err := f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "\"etag-1\"", Size: 1024})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, done.Status)
		assert.Equal(t, "etag-1", done.ETag)
		entries := outboxFor(t, f.uow, s.ID)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.EventSessionCompleted, entries[0].EventType)
		assert.Equal(t, domain.OutboxStatusPending, entries[0].Status)
	})

	t.Run("concurrent duplicate completions transition once", func(t *testing.T) {
		f := newFixture(t)
		s, _, err := f.service.Create(ctx, owner, singleRequest(), "key-1")
		require.NoError(t, err)
		_, err = f.service.Start(ctx, s.ID)
		require.NoError(t, err)

		const n = 10
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "etag-1", Size: 1024})
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		got, err := f.service.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, got.Status)
		assert.Len(t, outboxFor(t, f.uow, s.ID), 1)
	})

	t.Run("size mismatch is rejected", func(t *testing.T) {
		f := newFixture(t)
		s, _, _ := f.service.Create(ctx, owner, singleRequest(), "key-1")

		_, err := f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "etag", Size: 99})

		assert.ErrorIs(t, err, domain.ErrSizeMismatch)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusPending, got.Status)
		assert.Empty(t, outboxFor(t, f.uow, s.ID))
	})

	t.Run("missing size is read from storage", func(t *testing.T) {
		f := newFixture(t)
		s, _, _ := f.service.Create(ctx, owner, singleRequest(), "key-1")
		f.storage.On("HeadObject", mock.Anything, s.ObjectKey).Return(&domain.ObjectInfo{Key: s.ObjectKey, Size: 1024, ETag: "from-head"}, nil).Once()

		done, err := f.service.Complete(ctx, s.ID, domain.UploadConfirmation{})

		require.NoError(t, err)
		assert.Equal(t, "from-head", done.ETag)
		f.storage.AssertExpectations(t)
	})

	t.Run("different etag on a completed session is a conflict", func(t *testing.T) {
		f := newFixture(t)
		s, _, _ := f.service.Create(ctx, owner, singleRequest(), "key-1")
		_, err := f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "a", Size: 1024})
		require.NoError(t, err)

		_, err = f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "b", Size: 1024})

		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("multipart session needs every part", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 3)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)

		_, err = f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "bogus", Size: 15 * mb})

		assert.ErrorIs(t, err, domain.ErrIncompleteParts)
		assert.ErrorIs(t, err, domain.ErrValidation)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusInProgress, got.Status)
		assert.Empty(t, outboxFor(t, f.uow, s.ID))
		f.storage.AssertNotCalled(t, "HeadObject", mock.Anything, mock.Anything)
	})

	t.Run("multipart session completes with the merged object etag only", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("HeadObject", mock.Anything, s.ObjectKey).
			Return(&domain.ObjectInfo{Key: s.ObjectKey, Size: 5 * mb, ETag: "merged-1"}, nil).Twice()

		_, err = f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "bogus", Size: 5 * mb})
		require.ErrorIs(t, err, domain.ErrMismatchETag)
		done, err := f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "merged-1", Size: 5 * mb})

		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, done.Status)
		assert.Len(t, outboxFor(t, f.uow, s.ID), 1)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Complete(ctx, uuid.New(), domain.UploadConfirmation{ETag: "a"})

		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestSessionService_Fail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _, _ := f.service.Create(ctx, owner, singleRequest(), "key-1")

	failed, err := f.service.Fail(ctx, s.ID, "expired")
	require.NoError(t, err)
	again, err := f.service.Fail(ctx, s.ID, "expired again")
	require.NoError(t, err)

	assert.Equal(t, domain.SessionStatusFailed, failed.Status)
	assert.Equal(t, "expired", again.FailureReason)
	entries := outboxFor(t, f.uow, s.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventSessionFailed, entries[0].EventType)

	_, err = f.service.Start(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func newMultipart(t *testing.T, f fixture, parts int) *domain.TransferSession {
	t.Helper()
	f.storage.On("InitiateMultipartUpload", mock.Anything, mock.Anything, mock.Anything).Return("upload-1", nil).Once()
	s, _, err := f.service.Create(context.Background(), owner, domain.SessionRequest{
		Kind: domain.SessionKindMultipart, FileName: "movie.mp4", ContentType: "video/mp4", Size: int64(parts) * 5 * mb,
	}, fmt.Sprintf("mp-%d", parts))
	require.NoError(t, err)
	require.Equal(t, parts, s.Multipart.TotalParts)
	return s
}

func TestSessionService_Multipart(t *testing.T) {
	ctx := context.Background()

	t.Run("part out of range is rejected", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 2)

		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 3, ETag: "e3", Size: 5 * mb})

		assert.ErrorIs(t, err, domain.ErrPartOutOfRange)
	})

	t.Run("presign part starts the session", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 2)
		f.storage.On("PresignUploadPart", mock.Anything, s.ObjectKey, "upload-1", 1).Return(&domain.PresignedURL{URL: "https://storage/part/1"}, nil).Once()

		url, err := f.service.PresignPart(ctx, s.ID, 1)

		require.NoError(t, err)
		assert.Equal(t, "https://storage/part/1", url.URL)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusInProgress, got.Status)
		_, err = f.service.PresignPart(ctx, s.ID, 9)
		assert.ErrorIs(t, err, domain.ErrPartOutOfRange)
	})

	t.Run("duplicate parts", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 2)

		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		_, err = f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		assert.NoError(t, err)
		_, err = f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "other"})
		assert.ErrorIs(t, err, domain.ErrDuplicatePart)

		got, _ := f.service.Get(ctx, s.ID)
		assert.Len(t, got.Multipart.Parts, 1)
	})

	t.Run("complete requires every part", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 2)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 2, ETag: "e2"})
		require.NoError(t, err)

		_, err = f.service.CompleteMultipart(ctx, s.ID)

		assert.ErrorIs(t, err, domain.ErrIncompleteParts)
		f.storage.AssertNotCalled(t, "CompleteMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("complete merges parts in order", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 3)
		for _, n := range []int{3, 1, 2} {
			_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: n, ETag: fmt.Sprintf("e%d", n)})
			require.NoError(t, err)
		}
		f.storage.On("CompleteMultipartUpload", mock.Anything, s.ObjectKey, "upload-1", mock.MatchedBy(func(parts []domain.CompletedPart) bool {
			return len(parts) == 3 && parts[0].PartNumber == 1 && parts[1].PartNumber == 2 && parts[2].PartNumber == 3
		})).Return("merged-3", nil).Once()

		done, err := f.service.CompleteMultipart(ctx, s.ID)
		require.NoError(t, err)
		again, err := f.service.CompleteMultipart(ctx, s.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.SessionStatusCompleted, done.Status)
		assert.Equal(t, "merged-3", done.ETag)
		assert.Equal(t, done.ID, again.ID)
		assert.Len(t, outboxFor(t, f.uow, s.ID), 1)
		f.storage.AssertExpectations(t)
	})

	t.Run("transient provider error keeps the session in progress", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("CompleteMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("503: %w", domain.ErrTransientProvider)).Once()

		_, err = f.service.CompleteMultipart(ctx, s.ID)

		assert.ErrorIs(t, err, domain.ErrTransientProvider)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusInProgress, got.Status)
	})

	t.Run("cancelled completion keeps the session in progress", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("CompleteMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("complete: %w", context.Canceled)).Once()

		_, err = f.service.CompleteMultipart(ctx, s.ID)

		assert.ErrorIs(t, err, context.Canceled)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusInProgress, got.Status)
		f.storage.AssertNotCalled(t, "HeadObject", mock.Anything, mock.Anything)
	})

	t.Run("permanent provider error fails the session", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("CompleteMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("InvalidPart: %w", domain.ErrPermanentProvider)).Once()
		f.storage.On("HeadObject", mock.Anything, s.ObjectKey).Return((*domain.ObjectInfo)(nil), domain.ErrObjectNotFound).Once()

		_, err = f.service.CompleteMultipart(ctx, s.ID)

		assert.ErrorIs(t, err, domain.ErrPermanentProvider)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusFailed, got.Status)
	})

	t.Run("retry after a lost commit completes from the merged object", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("CompleteMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("NoSuchUpload: %w", domain.ErrPermanentProvider)).Once()
		f.storage.On("HeadObject", mock.Anything, s.ObjectKey).
			Return(&domain.ObjectInfo{Key: s.ObjectKey, Size: 5 * mb, ETag: "\"merged-1\""}, nil).Once()

		done, err := f.service.CompleteMultipart(ctx, s.ID)

		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, done.Status)
		assert.Equal(t, "merged-1", done.ETag)
		entries := outboxFor(t, f.uow, s.ID)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.EventSessionCompleted, entries[0].EventType)
	})

	t.Run("unknown merge state keeps the session in progress", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, err := f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("CompleteMultipartUpload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", fmt.Errorf("NoSuchUpload: %w", domain.ErrPermanentProvider)).Once()
		f.storage.On("HeadObject", mock.Anything, s.ObjectKey).
			Return((*domain.ObjectInfo)(nil), fmt.Errorf("503: %w", domain.ErrTransientProvider)).Once()

		_, err = f.service.CompleteMultipart(ctx, s.ID)

		assert.ErrorIs(t, err, domain.ErrPermanentProvider)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusInProgress, got.Status)
	})

	t.Run("abort", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 2)

		_, err := f.service.Abort(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

		_, err = f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		require.NoError(t, err)
		f.storage.On("AbortMultipartUpload", mock.Anything, s.ObjectKey, "upload-1").Return(nil).Once()

		aborted, err := f.service.Abort(ctx, s.ID)

		require.NoError(t, err)
		assert.Equal(t, domain.SessionStatusAborted, aborted.Status)
		_, err = f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 2, ETag: "e2"})
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		_, err = f.service.CompleteMultipart(ctx, s.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		entries := outboxFor(t, f.uow, s.ID)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.EventSessionAborted, entries[0].EventType)
	})

	t.Run("provider abort failure keeps the session", func(t *testing.T) {
		f := newFixture(t)
		s := newMultipart(t, f, 1)
		_, _ = f.service.AddPart(ctx, s.ID, domain.CompletedPart{PartNumber: 1, ETag: "e1"})
		f.storage.On("AbortMultipartUpload", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("network down")).Once()

		_, err := f.service.Abort(ctx, s.ID)

		assert.Error(t, err)
		got, _ := f.service.Get(ctx, s.ID)
		assert.Equal(t, domain.SessionStatusInProgress, got.Status)
	})
}

func TestSessionService_PresignDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("completed session", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		s, _, err := f.service.Create(ctx, owner, singleRequest(), "dl-1")
		require.NoError(t, err)
		_, err = f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "etag-1", Size: 1024})
		require.NoError(t, err)
		f.storage.On("PresignGetObject", mock.Anything, s.ObjectKey, "report.pdf").
			Return(&domain.PresignedURL{URL: "https://storage/get", Method: "GET"}, nil).Once()

		// Act
		url, err := f.service.PresignDownload(ctx, s.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "https://storage/get", url.URL)
		f.storage.AssertExpectations(t)
	})

	t.Run("open session has nothing to download", func(t *testing.T) {
		f := newFixture(t)
		s, _, err := f.service.Create(ctx, owner, singleRequest(), "dl-2")
		require.NoError(t, err)

		_, err = f.service.PresignDownload(ctx, s.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		f.storage.AssertNotCalled(t, "PresignGetObject", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newFixture(t)
		s, _, err := f.service.Create(ctx, owner, singleRequest(), "dl-3")
		require.NoError(t, err)
		_, err = f.service.Complete(ctx, s.ID, domain.UploadConfirmation{ETag: "etag-1", Size: 1024})
		require.NoError(t, err)
		f.storage.On("PresignGetObject", mock.Anything, mock.Anything, mock.Anything).
			Return((*domain.PresignedURL)(nil), fmt.Errorf("503: %w", domain.ErrTransientProvider)).Once()

		_, err = f.service.PresignDownload(ctx, s.ID)

		assert.ErrorIs(t, err, domain.ErrTransientProvider)
	})
}
