package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLocker struct {
	mock.Mock
}

func NewMockLocker() *MockLocker {
	return &MockLocker{}
}

func (m *MockLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, name, ttl)
	release, _ := args.Get(0).(func())
	if release == nil {
		release = func() {}
	}
	return release, args.Bool(1), args.Error(2)
}

type MockIdempotencyCache struct {
	mock.Mock
}

func NewMockIdempotencyCache() *MockIdempotencyCache {
	return &MockIdempotencyCache{}
}

func (m *MockIdempotencyCache) Get(ctx context.Context, tenantID string, key string) (uuid.UUID, bool, error) {
	args := m.Called(ctx, tenantID, key)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyCache) Put(ctx context.Context, tenantID string, key string, sessionID uuid.UUID) error {
	args := m.Called(ctx, tenantID, key, sessionID)
	return args.Error(0)
}
