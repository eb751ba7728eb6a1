package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/events"
	"github.com/phrazzld/card-service/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCardStore mocks the store.CardStore interface
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) Create(ctx context.Context, card *domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardStore) FindAll(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Card), args.Error(1)
}

func (m *MockCardStore) Modify(ctx context.Context, id uuid.UUID, fn store.ModifyFn) (*domain.Card, error) {
	args := m.Called(ctx, id, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSagaStore mocks the store.SagaStore interface
type MockSagaStore struct {
	mock.Mock
}

func (m *MockSagaStore) Create(ctx context.Context, saga *domain.PaymentSaga) error {
	args := m.Called(ctx, saga)
	return args.Error(0)
}

func (m *MockSagaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentSaga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSaga), args.Error(1)
}

func (m *MockSagaStore) UpdateState(ctx context.Context, saga *domain.PaymentSaga, from domain.SagaState) error {
	args := m.Called(ctx, saga, from)
	return args.Error(0)
}

func (m *MockSagaStore) FindStale(
	ctx context.Context,
	states []domain.SagaState,
	olderThan time.Time,
) ([]*domain.PaymentSaga, error) {
	args := m.Called(ctx, states, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentSaga), args.Error(1)
}

// MockAccountLedger mocks the AccountLedger interface
type MockAccountLedger struct {
	mock.Mock
}

func (m *MockAccountLedger) GetBalance(ctx context.Context, accountID string) (domain.Balance, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(domain.Balance), args.Error(1)
}

func (m *MockAccountLedger) Reduce(
	ctx context.Context,
	accountID string,
	amount decimal.Decimal,
) (domain.Balance, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(domain.Balance), args.Error(1)
}

// MockTransactionLedger mocks the TransactionLedger interface
type MockTransactionLedger struct {
	mock.Mock
}

func (m *MockTransactionLedger) List(
	ctx context.Context,
	cardID string,
	page, size int,
) ([]domain.Transaction, error) {
	args := m.Called(ctx, cardID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionLedger) Register(
	ctx context.Context,
	req domain.TransactionRequest,
) (domain.Transaction, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Transaction), args.Error(1)
}

// MockEventPublisher mocks the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *events.Event) <-chan error {
	m.Called(ctx, event)
	done := make(chan error, 1)
	done <- nil
	return done
}
