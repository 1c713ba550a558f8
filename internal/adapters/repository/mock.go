package repository

import (
	"context"
	"time"
	"transferhub/internal/core/domain"
	"transferhub/internal/core/port"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSessionRepository struct {
	mock.Mock
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

func (m *MockSessionRepository) Create(ctx context.Context, session domain.TransferSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.TransferSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionRepository) FindByIdempotencyKey(ctx context.Context, tenantID string, key string) (*domain.TransferSession, error) {
	args := m.Called(ctx, tenantID, key)
	return args.Get(0).(*domain.TransferSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *domain.TransferSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) List(ctx context.Context, filter domain.SessionFilter) ([]domain.TransferSession, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.TransferSession), args.Error(1)
}

type MockPartRepository struct {
	mock.Mock
}

func NewMockPartRepository() *MockPartRepository {
	return &MockPartRepository{}
}

func (m *MockPartRepository) Add(ctx context.Context, sessionID uuid.UUID, part domain.CompletedPart) error {
	args := m.Called(ctx, sessionID, part)
	return args.Error(0)
}

func (m *MockPartRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.CompletedPart, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.CompletedPart), args.Error(1)
}

type MockDownloadTaskRepository struct {
	mock.Mock
}

func NewMockDownloadTaskRepository() *MockDownloadTaskRepository {
	return &MockDownloadTaskRepository{}
}

func (m *MockDownloadTaskRepository) Create(ctx context.Context, task domain.DownloadTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockDownloadTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.DownloadTask), args.Error(1)
}

func (m *MockDownloadTaskRepository) Update(ctx context.Context, task *domain.DownloadTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockDownloadTaskRepository) FindRunnable(ctx context.Context, now time.Time, limit int) ([]domain.DownloadTask, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]domain.DownloadTask), args.Error(1)
}

func (m *MockDownloadTaskRepository) FindStale(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.DownloadTask, error) {
	args := m.Called(ctx, updatedBefore, limit)
	return args.Get(0).([]domain.DownloadTask), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, entry domain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) ClaimDue(ctx context.Context, now time.Time, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error) {
	args := m.Called(ctx, now, leaseUntil, limit)
	return args.Get(0).([]domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *domain.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) ListByRelatedID(ctx context.Context, relatedID uuid.UUID) ([]domain.OutboxEntry, error) {
	args := m.Called(ctx, relatedID)
	return args.Get(0).([]domain.OutboxEntry), args.Error(1)
}

type MockUnitOfWork struct {
	mock.Mock
	sessionRepo  *MockSessionRepository
	partRepo     *MockPartRepository
	downloadRepo *MockDownloadTaskRepository
	outboxRepo   *MockOutboxRepository
}

func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		sessionRepo:  &MockSessionRepository{},
		partRepo:     &MockPartRepository{},
		downloadRepo: &MockDownloadTaskRepository{},
		outboxRepo:   &MockOutboxRepository{},
	}
}

func (m *MockUnitOfWork) SessionRepo() port.SessionRepository {
	return m.sessionRepo
}

func (m *MockUnitOfWork) PartRepo() port.PartRepository {
	return m.partRepo
}

func (m *MockUnitOfWork) DownloadTaskRepo() port.DownloadTaskRepository {
	return m.downloadRepo
}

func (m *MockUnitOfWork) OutboxRepo() port.OutboxRepository {
	return m.outboxRepo
}

func (m *MockUnitOfWork) Execute(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	args := m.Called(ctx, fn)

	if err := fn(m); err != nil {
		return err
	}

	return args.Error(0)
}

func (m *MockUnitOfWork) GetSessionRepoMock() *MockSessionRepository {
	return m.sessionRepo
}

func (m *MockUnitOfWork) GetPartRepoMock() *MockPartRepository {
	return m.partRepo
}

func (m *MockUnitOfWork) GetDownloadTaskRepoMock() *MockDownloadTaskRepository {
	return m.downloadRepo
}

func (m *MockUnitOfWork) GetOutboxRepoMock() *MockOutboxRepository {
	return m.outboxRepo
}
