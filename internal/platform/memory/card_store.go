package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/store"
)

// CardStore keeps cards in a map guarded by a mutex.
type CardStore struct {
	mutex   sync.RWMutex
	cards   map[uuid.UUID]*domain.Card
	numbers map[string]uuid.UUID
}

// NewCardStore creates an empty CardStore.
func NewCardStore() *CardStore {
	return &CardStore{
		cards:   make(map[uuid.UUID]*domain.Card),
		numbers: make(map[string]uuid.UUID),
	}
}

var _ store.CardStore = (*CardStore)(nil)

// Create implements store.CardStore.Create
func (s *CardStore) Create(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.numbers[card.CardNumber]; exists {
		return store.ErrCardNumberExists
	}
	if _, exists := s.cards[card.ID]; exists {
		return store.ErrDuplicate
	}

	s.cards[card.ID] = cloneCard(card)
	s.numbers[card.CardNumber] = card.ID
	return nil
}

// GetByID implements store.CardStore.GetByID
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return cloneCard(card), nil
}

// FindAll implements store.CardStore.FindAll
func (s *CardStore) FindAll(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cards := make([]*domain.Card, 0, len(s.cards))
	for _, card := range s.cards {
		if filter.Matches(card) {
			cards = append(cards, cloneCard(card))
		}
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].ID.String() < cards[j].ID.String()
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
	return cards, nil
}

// Modify implements store.CardStore.Modify
// The write lock is held while fn runs.
func (s *CardStore) Modify(ctx context.Context, id uuid.UUID, fn store.ModifyFn) (*domain.Card, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}

	card := cloneCard(current)
	if err := fn(card); err != nil {
		return nil, err
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	// id and number are immutable once issued
	card.ID = current.ID
	card.CardNumber = current.CardNumber
	s.cards[id] = card
	return cloneCard(card), nil
}

// Delete implements store.CardStore.Delete
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	card, ok := s.cards[id]
	if !ok {
		return store.ErrCardNotFound
	}
	delete(s.numbers, card.CardNumber)
	delete(s.cards, id)
	return nil
}

func cloneCard(card *domain.Card) *domain.Card {
	c := *card
	c.AssociatedAccountIDs = append([]string{}, card.AssociatedAccountIDs...)
	return &c
}
