package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	execFn   func(ctx context.Context) error
}

func (m *mockTask) ID() uuid.UUID {
	return m.id
}

func (m *mockTask) Type() string {
	return m.taskType
}

func (m *mockTask) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockTask() *mockTask {
	return &mockTask{id: uuid.New(), taskType: "mock"}
}

// fakeRegistrar records registrations and can be told to fail.
type fakeRegistrar struct {
	mu       sync.Mutex
	requests []domain.TransactionRequest
	err      error
}

func (f *fakeRegistrar) Register(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Transaction{}, f.err
	}
	f.requests = append(f.requests, req)
	return domain.Transaction{ID: uuid.NewString(), CardID: req.CardID}, nil
}

func (f *fakeRegistrar) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// recordingEmitter collects emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (e *recordingEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

var sagaTime = time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)

// debitedSaga returns a saga for a 40.00 payment from acc-2 quoted at 100.00.
func debitedSaga(t *testing.T) *domain.PaymentSaga {
	t.Helper()
	card := &domain.Card{ID: uuid.New(), ClientID: "client-1"}
	saga := domain.NewPaymentSaga(card,
		domain.Balance{AccountID: "acc-2", AccountBalance: decimal.NewFromInt(100)},
		domain.PaymentRequest{Amount: decimal.NewFromInt(40), Type: domain.OperationPayment},
		sagaTime)
	require.NoError(t, saga.Advance(domain.SagaDebited, "", sagaTime))
	return saga
}
