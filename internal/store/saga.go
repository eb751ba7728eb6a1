package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
)

// SagaStore persists payment saga records.
type SagaStore interface {
	// Create saves a new saga record.
	Create(ctx context.Context, saga *domain.PaymentSaga) error

	// GetByID retrieves a saga by ID.
	// Returns ErrSagaNotFound if the saga does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentSaga, error)

	// UpdateState writes saga's state, last error and update time, provided
	// the stored state is still from.
	// Returns ErrSagaNotFound if the saga does not exist and
	// ErrSagaStateConflict if another writer moved it first.
	UpdateState(ctx context.Context, saga *domain.PaymentSaga, from domain.SagaState) error

	// FindStale returns sagas in any of states whose last update is before
	// olderThan, oldest first.
	FindStale(ctx context.Context, states []domain.SagaState, olderThan time.Time) ([]*domain.PaymentSaga, error)
}
