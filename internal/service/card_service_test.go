package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/events"
	"github.com/phrazzld/card-service/internal/platform/memory"
	"github.com/phrazzld/card-service/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

var testSettings = CardSettings{
	BIN:                 "454545",
	CreditValidityYears: 3,
	DebitValidityYears:  5,
	NumberRetries:       3,
	BalanceTopic:        "card-balance",
}

type cardServiceFixture struct {
	svc          *cardServiceImpl
	accounts     *MockAccountLedger
	transactions *MockTransactionLedger
	publisher    *MockEventPublisher
}

func newCardServiceFixture(t *testing.T, cards store.CardStore) *cardServiceFixture {
	t.Helper()
	f := &cardServiceFixture{
		accounts:     &MockAccountLedger{},
		transactions: &MockTransactionLedger{},
		publisher:    &MockEventPublisher{},
	}
	svc, err := NewCardService(cards, f.accounts, f.transactions, f.publisher, testSettings, nil)
	require.NoError(t, err)
	f.svc = svc.(*cardServiceImpl)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func debitInput() domain.CardInput {
	return domain.CardInput{
		Type:                 domain.CardTypeDebit,
		MainAccountID:        "acc-main",
		AssociatedAccountIDs: []string{"acc-1", "acc-2"},
		ClientID:             "client-1",
	}
}

func TestNewCardServiceRequiresDependencies(t *testing.T) {
	cards := memory.NewCardStore()
	accounts := &MockAccountLedger{}
	transactions := &MockTransactionLedger{}
	publisher := &MockEventPublisher{}

	tests := []struct {
		name string
		fn   func() (CardService, error)
	}{
		{"nil cards", func() (CardService, error) {
			return NewCardService(nil, accounts, transactions, publisher, testSettings, nil)
		}},
		{"nil accounts", func() (CardService, error) {
			return NewCardService(cards, nil, transactions, publisher, testSettings, nil)
		}},
		{"nil transactions", func() (CardService, error) {
			return NewCardService(cards, accounts, nil, publisher, testSettings, nil)
		}},
		{"nil publisher", func() (CardService, error) {
			return NewCardService(cards, accounts, transactions, nil, testSettings, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.fn()
			assert.Nil(t, svc)
			assert.ErrorIs(t, err, ErrMissingDependency)
		})
	}
}

func TestCreateCard(t *testing.T) {
	t.Run("issues debit card", func(t *testing.T) {
		cards := memory.NewCardStore()
		f := newCardServiceFixture(t, cards)

		card, err := f.svc.CreateCard(context.Background(), debitInput())
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(card.CardNumber, "454545"))
		assert.NoError(t, domain.ValidateCardNumber(card.CardNumber))
		assert.Equal(t, domain.ExpirationFor(testNow, 5), card.ExpirationDate)
		assert.Equal(t, []string{"acc-1", "acc-2"}, card.AssociatedAccountIDs)

		stored, err := cards.GetByID(context.Background(), card.ID)
		require.NoError(t, err)
		assert.Equal(t, card.CardNumber, stored.CardNumber)
	})

	t.Run("credit cards use credit validity", func(t *testing.T) {
		f := newCardServiceFixture(t, memory.NewCardStore())
		input := debitInput()
		input.Type = domain.CardTypeCredit

		card, err := f.svc.CreateCard(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, domain.ExpirationFor(testNow, 3), card.ExpirationDate)
	})

	t.Run("rejects malformed input without touching the store", func(t *testing.T) {
		cards := &MockCardStore{}
		f := newCardServiceFixture(t, cards)
		input := debitInput()
		input.ClientID = " "

		card, err := f.svc.CreateCard(context.Background(), input)
		assert.Nil(t, card)
		assert.ErrorIs(t, err, domain.ErrMalformedCardData)
		cards.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("retries number collisions", func(t *testing.T) {
		cards := &MockCardStore{}
		cards.On("Create", mock.Anything, mock.AnythingOfType("*domain.Card")).
			Return(store.ErrCardNumberExists).Twice()
		cards.On("Create", mock.Anything, mock.AnythingOfType("*domain.Card")).
			Return(nil).Once()
		f := newCardServiceFixture(t, cards)

		card, err := f.svc.CreateCard(context.Background(), debitInput())
		require.NoError(t, err)
		require.NotNil(t, card)
		cards.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("gives up after the configured retries", func(t *testing.T) {
		cards := &MockCardStore{}
		cards.On("Create", mock.Anything, mock.Anything).Return(store.ErrCardNumberExists)
		f := newCardServiceFixture(t, cards)

		card, err := f.svc.CreateCard(context.Background(), debitInput())
		assert.Nil(t, card)
		assert.ErrorIs(t, err, domain.ErrDuplicateCardNumber)
		cards.AssertNumberOfCalls(t, "Create", testSettings.NumberRetries)
	})

	t.Run("store failure is an operation failure", func(t *testing.T) {
		cards := &MockCardStore{}
		cards.On("Create", mock.Anything, mock.Anything).
			Return(store.NewStoreError("card", "create", "failed to insert card", errors.New("connection reset")))
		f := newCardServiceFixture(t, cards)

		_, err := f.svc.CreateCard(context.Background(), debitInput())
		assert.ErrorIs(t, err, domain.ErrOperationFailed)

		var svcErr *CardServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "create_card", svcErr.Operation)
	})
}

func TestGetCard(t *testing.T) {
	cards := memory.NewCardStore()
	f := newCardServiceFixture(t, cards)
	created, err := f.svc.CreateCard(context.Background(), debitInput())
	require.NoError(t, err)

	card, err := f.svc.GetCard(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, card.ID)

	_, err = f.svc.GetCard(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	assert.NotErrorIs(t, err, domain.ErrOperationFailed)
}

func TestListCardsCombinesCriteriaWithOr(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()

	first, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	other := debitInput()
	other.ClientID = "client-2"
	other.Type = domain.CardTypeCredit
	second, err := f.svc.CreateCard(ctx, other)
	require.NoError(t, err)

	all, err := f.svc.ListCards(ctx, domain.CardFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	credit := domain.CardTypeCredit
	clientOne := "client-1"
	both, err := f.svc.ListCards(ctx, domain.CardFilter{Type: &credit, ClientID: &clientOne})
	require.NoError(t, err)
	require.Len(t, both, 2)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{both[0].ID, both[1].ID})

	missing := "client-9"
	none, err := f.svc.ListCards(ctx, domain.CardFilter{ClientID: &missing})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateCard(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()
	created, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	input := domain.CardInput{
		Type:                 domain.CardTypeCredit,
		MainAccountID:        "acc-new",
		AssociatedAccountIDs: []string{"acc-3"},
		ClientID:             "client-1",
	}
	updated, err := f.svc.UpdateCard(ctx, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, created.CardNumber, updated.CardNumber)
	assert.Equal(t, created.ExpirationDate, updated.ExpirationDate)
	assert.Equal(t, domain.CardTypeCredit, updated.Type)
	assert.Equal(t, []string{"acc-3"}, updated.AssociatedAccountIDs)

	input.MainAccountID = ""
	_, err = f.svc.UpdateCard(ctx, created.ID, input)
	assert.ErrorIs(t, err, domain.ErrMalformedCardData)

	_, err = f.svc.UpdateCard(ctx, uuid.New(), debitInput())
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
}

func TestDeleteCard(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()
	created, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCard(ctx, created.ID))

	_, err = f.svc.GetCard(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	assert.ErrorIs(t, f.svc.DeleteCard(ctx, created.ID), domain.ErrCardNotFound)
}

func TestAssociateAccount(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()
	created, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	card, err := f.svc.AssociateAccount(ctx, created.ID, "acc-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1", "acc-2", "acc-3"}, card.AssociatedAccountIDs)

	_, err = f.svc.AssociateAccount(ctx, created.ID, "acc-1")
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyAssociated)

	_, err = f.svc.AssociateAccount(ctx, created.ID, "")
	assert.ErrorIs(t, err, domain.ErrMalformedCardData)

	_, err = f.svc.AssociateAccount(ctx, uuid.New(), "acc-4")
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	stored, err := f.svc.GetCard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1", "acc-2", "acc-3"}, stored.AssociatedAccountIDs)
}

func TestGetPrimaryAccountBalance(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()
	created, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	want := domain.Balance{AccountID: "acc-main", AccountBalance: decimal.NewFromInt(250)}
	f.accounts.On("GetBalance", mock.Anything, "acc-main").Return(want, nil).Once()

	balance, err := f.svc.GetPrimaryAccountBalance(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, balance.AccountBalance.Equal(decimal.NewFromInt(250)))

	f.accounts.On("GetBalance", mock.Anything, "acc-main").
		Return(domain.Balance{}, fmt.Errorf("%w: account-service unavailable", domain.ErrOperationFailed)).Once()
	_, err = f.svc.GetPrimaryAccountBalance(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrOperationFailed)

	_, err = f.svc.GetPrimaryAccountBalance(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCardNotFound)
	f.accounts.AssertExpectations(t)
}

func TestGetLastTransactions(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()
	created, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	t.Run("rejects invalid pagination", func(t *testing.T) {
		for _, p := range [][2]int{{-1, 10}, {0, 0}, {0, MaxPageSize + 1}} {
			_, err := f.svc.GetLastTransactions(ctx, created.ID, p[0], p[1])
			assert.ErrorIs(t, err, domain.ErrMalformedCardData, "page=%d size=%d", p[0], p[1])
		}
		f.transactions.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lists the card's transactions", func(t *testing.T) {
		txs := []domain.Transaction{{ID: "tx-1", CardID: created.ID.String(), Amount: decimal.NewFromInt(5)}}
		f.transactions.On("List", mock.Anything, created.ID.String(), 2, 20).Return(txs, nil).Once()

		got, err := f.svc.GetLastTransactions(ctx, created.ID, 2, 20)
		require.NoError(t, err)
		assert.Equal(t, txs, got)
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := f.svc.GetLastTransactions(ctx, uuid.New(), 0, 10)
		assert.ErrorIs(t, err, domain.ErrCardNotFound)
	})
}

func TestPublishBalance(t *testing.T) {
	f := newCardServiceFixture(t, memory.NewCardStore())
	ctx := context.Background()
	created, err := f.svc.CreateCard(ctx, debitInput())
	require.NoError(t, err)

	f.accounts.On("GetBalance", mock.Anything, "acc-main").
		Return(domain.Balance{AccountID: "acc-main", AccountBalance: decimal.NewFromInt(75)}, nil)

	var published *events.Event
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*events.Event")).
		Run(func(args mock.Arguments) { published = args.Get(1).(*events.Event) }).
		Once()

	require.NoError(t, f.svc.PublishBalance(ctx, created.ID))
	require.NotNil(t, published)
	assert.Equal(t, "card-balance", published.Topic)
	assert.Equal(t, events.TypeBalance, published.Type)

	var payload domain.BalanceEvent
	require.NoError(t, published.UnmarshalPayload(&payload))
	assert.Equal(t, created.ID.String(), payload.CardID)
	assert.Equal(t, "acc-main", payload.AccountID)
	assert.Equal(t, "client-1", payload.ClientID)
	assert.True(t, payload.AccountBalance.Equal(decimal.NewFromInt(75)))

	assert.ErrorIs(t, f.svc.PublishBalance(ctx, uuid.New()), domain.ErrCardNotFound)
	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"store not found", store.ErrCardNotFound, domain.ErrCardNotFound},
		{"domain kind kept", domain.ErrClientIDEmpty, domain.ErrMalformedCardData},
		{"wrapped kind kept", fmt.Errorf("probe: %w", domain.ErrInsufficientBalance), domain.ErrInsufficientBalance},
		{"unknown", errors.New("disk full"), domain.ErrOperationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}
	assert.NoError(t, classify(nil))
}
