package eventbroker

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockEventPublisher struct {
	mock.Mock
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, eventType string, msgID string, payload []byte) error {
	args := m.Called(ctx, eventType, msgID, payload)
	return args.Error(0)
}
