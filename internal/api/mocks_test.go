package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCardService struct {
	mock.Mock
}

func (m *MockCardService) CreateCard(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	args := m.Called(ctx, input)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *MockCardService) GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, cardID)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *MockCardService) ListCards(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	args := m.Called(ctx, filter)
	cards, _ := args.Get(0).([]*domain.Card)
	return cards, args.Error(1)
}

func (m *MockCardService) UpdateCard(
	ctx context.Context,
	cardID uuid.UUID,
	input domain.CardInput,
) (*domain.Card, error) {
	args := m.Called(ctx, cardID, input)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *MockCardService) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	return m.Called(ctx, cardID).Error(0)
}

func (m *MockCardService) AssociateAccount(
	ctx context.Context,
	cardID uuid.UUID,
	accountID string,
) (*domain.Card, error) {
	args := m.Called(ctx, cardID, accountID)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func (m *MockCardService) GetPrimaryAccountBalance(ctx context.Context, cardID uuid.UUID) (domain.Balance, error) {
	args := m.Called(ctx, cardID)
	return args.Get(0).(domain.Balance), args.Error(1)
}

func (m *MockCardService) GetLastTransactions(
	ctx context.Context,
	cardID uuid.UUID,
	page, size int,
) ([]domain.Transaction, error) {
	args := m.Called(ctx, cardID, page, size)
	txs, _ := args.Get(0).([]domain.Transaction)
	return txs, args.Error(1)
}

func (m *MockCardService) PublishBalance(ctx context.Context, cardID uuid.UUID) error {
	return m.Called(ctx, cardID).Error(0)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) ProcessPaymentOrWithdrawal(
	ctx context.Context,
	cardID uuid.UUID,
	req domain.PaymentRequest,
) error {
	return m.Called(ctx, cardID, req).Error(0)
}
