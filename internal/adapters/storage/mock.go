package storage

import (
	"context"
	"io"
	"transferhub/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

func (m *MockStorage) Bucket() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStorage) PresignPutObject(ctx context.Context, key string, contentType string) (*domain.PresignedURL, error) {
	args := m.Called(ctx, key, contentType)
	return args.Get(0).(*domain.PresignedURL), args.Error(1)
}

func (m *MockStorage) InitiateMultipartUpload(ctx context.Context, key string, contentType string) (string, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) PresignUploadPart(ctx context.Context, key string, uploadID string, partNumber int) (*domain.PresignedURL, error) {
	args := m.Called(ctx, key, uploadID, partNumber)
	return args.Get(0).(*domain.PresignedURL), args.Error(1)
}

func (m *MockStorage) PresignGetObject(ctx context.Context, key string, fileName string) (*domain.PresignedURL, error) {
	args := m.Called(ctx, key, fileName)
	return args.Get(0).(*domain.PresignedURL), args.Error(1)
}

func (m *MockStorage) CompleteMultipartUpload(ctx context.Context, key string, uploadID string, parts []domain.CompletedPart) (string, error) {
	args := m.Called(ctx, key, uploadID, parts)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) AbortMultipartUpload(ctx context.Context, key string, uploadID string) error {
	args := m.Called(ctx, key, uploadID)
	return args.Error(0)
}

func (m *MockStorage) HeadObject(ctx context.Context, key string) (*domain.ObjectInfo, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(*domain.ObjectInfo), args.Error(1)
}

func (m *MockStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*domain.ObjectInfo, error) {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Get(0).(*domain.ObjectInfo), args.Error(1)
}
