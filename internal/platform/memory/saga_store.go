package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/store"
)

// SagaStore keeps payment sagas in a map guarded by a mutex.
type SagaStore struct {
	mutex sync.RWMutex
	sagas map[uuid.UUID]domain.PaymentSaga
}

// NewSagaStore creates an empty SagaStore.
func NewSagaStore() *SagaStore {
	return &SagaStore{sagas: make(map[uuid.UUID]domain.PaymentSaga)}
}

var _ store.SagaStore = (*SagaStore)(nil)

// Create implements store.SagaStore.Create
func (s *SagaStore) Create(ctx context.Context, saga *domain.PaymentSaga) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sagas[saga.ID]; exists {
		return store.ErrDuplicate
	}
	s.sagas[saga.ID] = *saga
	return nil
}

// GetByID implements store.SagaStore.GetByID
func (s *SagaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentSaga, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	saga, ok := s.sagas[id]
	if !ok {
		return nil, store.ErrSagaNotFound
	}
	return &saga, nil
}

// UpdateState implements store.SagaStore.UpdateState
func (s *SagaStore) UpdateState(ctx context.Context, saga *domain.PaymentSaga, from domain.SagaState) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored, ok := s.sagas[saga.ID]
	if !ok {
		return store.ErrSagaNotFound
	}
	if stored.State != from {
		return store.ErrSagaStateConflict
	}

	stored.State = saga.State
	stored.LastError = saga.LastError
	stored.UpdatedAt = saga.UpdatedAt
	s.sagas[saga.ID] = stored
	return nil
}

// FindStale implements store.SagaStore.FindStale
func (s *SagaStore) FindStale(
	ctx context.Context,
	states []domain.SagaState,
	olderThan time.Time,
) ([]*domain.PaymentSaga, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	wanted := make(map[domain.SagaState]bool, len(states))
	for _, state := range states {
		wanted[state] = true
	}

	sagas := make([]*domain.PaymentSaga, 0)
	for _, saga := range s.sagas {
		if wanted[saga.State] && saga.UpdatedAt.Before(olderThan) {
			saga := saga
			sagas = append(sagas, &saga)
		}
	}
	sort.Slice(sagas, func(i, j int) bool {
		return sagas[i].UpdatedAt.Before(sagas[j].UpdatedAt)
	})
	return sagas, nil
}
