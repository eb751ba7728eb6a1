package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/events"
	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/phrazzld/card-service/internal/store"
	"github.com/shopspring/decimal"
)

// Pagination bounds for transaction listings.
const (
	MaxPageSize     = 100
	DefaultPageSize = 10
)

// AccountLedger reads and debits account balances.
type AccountLedger interface {
	GetBalance(ctx context.Context, accountID string) (domain.Balance, error)
	Reduce(ctx context.Context, accountID string, amount decimal.Decimal) (domain.Balance, error)
}

// TransactionLedger lists ledger entries recorded for a card.
type TransactionLedger interface {
	List(ctx context.Context, cardID string, page, size int) ([]domain.Transaction, error)
}

// EventPublisher hands events to the event channel without blocking the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) <-chan error
}

// CardSettings controls number generation and card validity.
type CardSettings struct {
	BIN                 string
	CreditValidityYears int
	DebitValidityYears  int
	// NumberRetries is how many generated numbers are tried before giving up.
	NumberRetries int
	// BalanceTopic is where PublishBalance writes balance events.
	BalanceTopic string
}

func (s CardSettings) validityFor(t domain.CardType) int {
	if t == domain.CardTypeCredit {
		return s.CreditValidityYears
	}
	return s.DebitValidityYears
}

// CardService provides card-related operations
type CardService interface {
	// CreateCard issues a new card with a generated number
	CreateCard(ctx context.Context, input domain.CardInput) (*domain.Card, error)

	// GetCard retrieves a card by its ID
	GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)

	// ListCards returns every card matching any set field of filter
	ListCards(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error)

	// UpdateCard replaces the client-supplied fields of a card
	UpdateCard(ctx context.Context, cardID uuid.UUID, input domain.CardInput) (*domain.Card, error)

	// DeleteCard removes a card
	DeleteCard(ctx context.Context, cardID uuid.UUID) error

	// AssociateAccount appends an account to the card's associated accounts
	AssociateAccount(ctx context.Context, cardID uuid.UUID, accountID string) (*domain.Card, error)

	// GetPrimaryAccountBalance returns the balance of the card's main account
	GetPrimaryAccountBalance(ctx context.Context, cardID uuid.UUID) (domain.Balance, error)

	// GetLastTransactions pages through the card's ledger entries
	GetLastTransactions(ctx context.Context, cardID uuid.UUID, page, size int) ([]domain.Transaction, error)

	// PublishBalance emits the main account balance on the balance topic
	PublishBalance(ctx context.Context, cardID uuid.UUID) error
}

// cardServiceImpl implements the CardService interface
type cardServiceImpl struct {
	cards        store.CardStore
	accounts     AccountLedger
	transactions TransactionLedger
	publisher    EventPublisher
	settings     CardSettings
	logger       *slog.Logger
	now          func() time.Time
}

var _ events.BalancePublisher = (*cardServiceImpl)(nil)

// NewCardService creates a new CardService
// It returns an error if any of the required dependencies are nil.
func NewCardService(
	cards store.CardStore,
	accounts AccountLedger,
	transactions TransactionLedger,
	publisher EventPublisher,
	settings CardSettings,
	logger *slog.Logger,
) (CardService, error) {
	switch {
	case cards == nil:
		return nil, NewCardServiceError("init", "cards cannot be nil", ErrMissingDependency)
	case accounts == nil:
		return nil, NewCardServiceError("init", "accounts cannot be nil", ErrMissingDependency)
	case transactions == nil:
		return nil, NewCardServiceError("init", "transactions cannot be nil", ErrMissingDependency)
	case publisher == nil:
		return nil, NewCardServiceError("init", "publisher cannot be nil", ErrMissingDependency)
	}
	if settings.NumberRetries < 1 {
		settings.NumberRetries = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &cardServiceImpl{
		cards:        cards,
		accounts:     accounts,
		transactions: transactions,
		publisher:    publisher,
		settings:     settings,
		logger:       logger.With(slog.String("component", "card_service")),
		now:          time.Now,
	}, nil
}

// CreateCard implements CardService.CreateCard
// A number collision is retried with a fresh number; once the retries are
// used up the error is domain.ErrDuplicateCardNumber.
func (s *cardServiceImpl) CreateCard(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for attempt := 1; attempt <= s.settings.NumberRetries; attempt++ {
		number, err := domain.GenerateCardNumber(s.settings.BIN)
		if err != nil {
			log.Error("failed to generate card number", slog.String("error", err.Error()))
			return nil, NewCardServiceError("create_card", "failed to generate card number", err)
		}

		card, err := domain.NewCard(input, number, s.now(), s.settings.validityFor(input.Type))
		if err != nil {
			log.Debug("card input rejected", slog.String("error", err.Error()))
			return nil, NewCardServiceError("create_card", "invalid card data", err)
		}

		err = s.cards.Create(ctx, card)
		if err == nil {
			log.Info("card issued",
				slog.String("card_id", card.ID.String()),
				slog.String("card_number", domain.MaskCardNumber(card.CardNumber)),
				slog.String("type", string(card.Type)))
			return card, nil
		}
		if !errors.Is(err, store.ErrCardNumberExists) {
			log.Error("failed to save card", slog.String("error", err.Error()))
			return nil, NewCardServiceError("create_card", "failed to save card", err)
		}

		log.Warn("generated card number already in use",
			slog.Int("attempt", attempt),
			slog.String("card_number", domain.MaskCardNumber(number)))
	}

	return nil, NewCardServiceError("create_card", "could not assign a unique card number", domain.ErrDuplicateCardNumber)
}

// GetCard implements CardService.GetCard
// It retrieves a card by its ID
func (s *cardServiceImpl) GetCard(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving card", slog.String("card_id", cardID.String()))

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewCardServiceError("get_card", "card not found", err)
		}
		log.Error("failed to retrieve card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return nil, NewCardServiceError("get_card", "failed to retrieve card", err)
	}

	return card, nil
}

// ListCards implements CardService.ListCards
func (s *cardServiceImpl) ListCards(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	cards, err := s.cards.FindAll(ctx, filter)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list cards",
			slog.String("error", err.Error()))
		return nil, NewCardServiceError("list_cards", "failed to list cards", err)
	}
	return cards, nil
}

// UpdateCard implements CardService.UpdateCard
func (s *cardServiceImpl) UpdateCard(
	ctx context.Context,
	cardID uuid.UUID,
	input domain.CardInput,
) (*domain.Card, error) {
	card, err := s.cards.Modify(ctx, cardID, func(card *domain.Card) error {
		return card.Replace(input, s.now())
	})
	if err != nil {
		s.logFailure(ctx, "failed to update card", cardID, err)
		return nil, NewCardServiceError("update_card", "failed to update card", err)
	}
	return card, nil
}

// DeleteCard implements CardService.DeleteCard
func (s *cardServiceImpl) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	if err := s.cards.Delete(ctx, cardID); err != nil {
		s.logFailure(ctx, "failed to delete card", cardID, err)
		return NewCardServiceError("delete_card", "failed to delete card", err)
	}
	return nil
}

// AssociateAccount implements CardService.AssociateAccount
// The read and write happen under the store's per-card lock, so two
// concurrent associations of the same account cannot both succeed.
func (s *cardServiceImpl) AssociateAccount(
	ctx context.Context,
	cardID uuid.UUID,
	accountID string,
) (*domain.Card, error) {
	card, err := s.cards.Modify(ctx, cardID, func(card *domain.Card) error {
		return card.AssociateAccount(accountID, s.now())
	})
	if err != nil {
		s.logFailure(ctx, "failed to associate account", cardID, err)
		return nil, NewCardServiceError("associate_account", "failed to associate account", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("account associated with card",
		slog.String("card_id", cardID.String()),
		slog.String("account_id", accountID),
		slog.Int("associated_accounts", len(card.AssociatedAccountIDs)))
	return card, nil
}

// GetPrimaryAccountBalance implements CardService.GetPrimaryAccountBalance
func (s *cardServiceImpl) GetPrimaryAccountBalance(ctx context.Context, cardID uuid.UUID) (domain.Balance, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return domain.Balance{}, err
	}

	balance, err := s.accounts.GetBalance(ctx, card.MainAccountID)
	if err != nil {
		return domain.Balance{}, NewCardServiceError("get_balance", "failed to fetch main account balance", err)
	}
	return balance, nil
}

// GetLastTransactions implements CardService.GetLastTransactions
func (s *cardServiceImpl) GetLastTransactions(
	ctx context.Context,
	cardID uuid.UUID,
	page, size int,
) ([]domain.Transaction, error) {
	if page < 0 || size < 1 || size > MaxPageSize {
		return nil, NewCardServiceError("get_transactions", "invalid pagination", domain.ErrInvalidPaginationParam)
	}

	if _, err := s.GetCard(ctx, cardID); err != nil {
		return nil, err
	}

	txs, err := s.transactions.List(ctx, cardID.String(), page, size)
	if err != nil {
		return nil, NewCardServiceError("get_transactions", "failed to list transactions", err)
	}
	return txs, nil
}

// PublishBalance implements CardService.PublishBalance
// The event is handed to the publisher and the call returns without waiting
// for the channel to accept it.
func (s *cardServiceImpl) PublishBalance(ctx context.Context, cardID uuid.UUID) error {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return err
	}

	balance, err := s.accounts.GetBalance(ctx, card.MainAccountID)
	if err != nil {
		return NewCardServiceError("publish_balance", "failed to fetch main account balance", err)
	}

	event, err := events.NewEvent(s.settings.BalanceTopic, events.TypeBalance, domain.NewBalanceEvent(card, balance))
	if err != nil {
		return NewCardServiceError("publish_balance", "failed to build balance event", err)
	}
	s.publisher.Publish(ctx, event)

	logger.FromContextOrDefault(ctx, s.logger).Debug("balance event dispatched",
		slog.String("card_id", cardID.String()),
		slog.String("event_id", event.ID.String()))
	return nil
}

// logFailure logs unexpected store failures. Validation and not-found
// outcomes are expected and stay at debug.
func (s *cardServiceImpl) logFailure(ctx context.Context, msg string, cardID uuid.UUID, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	level := slog.LevelError
	if store.IsNotFoundError(err) ||
		errors.Is(err, domain.ErrMalformedCardData) ||
		errors.Is(err, domain.ErrAccountAlreadyAssociated) {
		level = slog.LevelDebug
	}
	log.Log(ctx, level, msg,
		slog.String("error", err.Error()),
		slog.String("card_id", cardID.String()))
}
