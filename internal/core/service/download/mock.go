package download

import (
	"context"
	"time"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockDownloadService struct {
	mock.Mock
}

func NewMockDownloadService() *MockDownloadService {
	return &MockDownloadService{}
}

func (m *MockDownloadService) Request(ctx context.Context, owner domain.Owner, req domain.DownloadRequest) (*domain.DownloadTask, error) {
	args := m.Called(ctx, owner, req)
	return args.Get(0).(*domain.DownloadTask), args.Error(1)
}

func (m *MockDownloadService) Get(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.DownloadTask), args.Error(1)
}

func (m *MockDownloadService) Execute(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.DownloadTask), args.Error(1)
}

func (m *MockDownloadService) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockDownloadService) RecoverStale(ctx context.Context, updatedBefore time.Time) (int, error) {
	args := m.Called(ctx, updatedBefore)
	return args.Int(0), args.Error(1)
}
