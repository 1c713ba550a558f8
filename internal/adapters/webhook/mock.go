package webhook

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, url string, idempotencyKey string, payload []byte) error {
	args := m.Called(ctx, url, idempotencyKey, payload)
	return args.Error(0)
}
