package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
)

// ModifyFn mutates a card loaded by CardStore.Modify. Returning an error
// aborts the modification and leaves the stored card untouched.
type ModifyFn func(card *domain.Card) error

// CardStore defines the interface for card data persistence.
type CardStore interface {
	// Create saves a new card.
	// Returns ErrCardNumberExists if another card already uses the number.
	Create(ctx context.Context, card *domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// FindAll returns the cards matching filter in creation order.
	// Filter criteria are combined with OR; an empty filter returns every card.
	FindAll(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error)

	// Modify loads a card, applies fn and saves the result atomically.
	// Concurrent modifications of the same card are serialized, so two
	// callers appending accounts cannot lose each other's writes.
	// Returns ErrCardNotFound if the card does not exist, or fn's error unchanged.
	Modify(ctx context.Context, id uuid.UUID, fn ModifyFn) (*domain.Card, error)

	// Delete removes a card by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
