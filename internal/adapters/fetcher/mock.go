package fetcher

import (
	"context"
	"transferhub/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

type MockFetcher struct {
	mock.Mock
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*domain.FetchedObject, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(*domain.FetchedObject), args.Error(1)
}
