package session

import (
	"context"
	"transferhub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSessionService is a mock implementation of SessionService
type MockSessionService struct {
	mock.Mock
}

// NewMockSessionService creates a new MockSessionService
func NewMockSessionService() *MockSessionService {
	return &MockSessionService{}
}

func (m *MockSessionService) Create(ctx context.Context, owner domain.Owner, req domain.SessionRequest, idempotencyKey string) (*domain.TransferSession, *domain.PresignedURL, error) {
	args := m.Called(ctx, owner, req, idempotencyKey)
	return args.Get(0).(*domain.TransferSession), args.Get(1).(*domain.PresignedURL), args.Error(2)
}

func (m *MockSessionService) Start(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) Complete(ctx context.Context, id uuid.UUID, confirmation domain.UploadConfirmation) (*domain.TransferSession, error) {
	args := m.Called(ctx, id, confirmation)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) Fail(ctx context.Context, id uuid.UUID, reason string) (*domain.TransferSession, error) {
	args := m.Called(ctx, id, reason)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) Get(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) PresignPart(ctx context.Context, id uuid.UUID, partNumber int) (*domain.PresignedURL, error) {
	args := m.Called(ctx, id, partNumber)
	return args.Get(0).(*domain.PresignedURL), args.Error(1)
}

func (m *MockSessionService) AddPart(ctx context.Context, id uuid.UUID, part domain.CompletedPart) (*domain.TransferSession, error) {
	args := m.Called(ctx, id, part)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) CompleteMultipart(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) Abort(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionService) PresignDownload(ctx context.Context, id uuid.UUID) (*domain.PresignedURL, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.PresignedURL), args.Error(1)
}
