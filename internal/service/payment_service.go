package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/phrazzld/card-service/internal/store"
	"github.com/phrazzld/card-service/internal/task"
)

// PostCommitTaskFactory builds the task that finishes a debited saga.
type PostCommitTaskFactory interface {
	CreateTask(saga *domain.PaymentSaga) *task.PostCommitTask
}

// TaskSubmitter accepts background work.
type TaskSubmitter interface {
	Enqueue(t task.Task) error
}

// PaymentService debits a card's accounts.
type PaymentService interface {
	// ProcessPaymentOrWithdrawal debits req.Amount from the first associated
	// account whose balance covers it. A nil error means the debit is
	// committed; registration and publication follow in the background.
	ProcessPaymentOrWithdrawal(ctx context.Context, cardID uuid.UUID, req domain.PaymentRequest) error
}

type paymentServiceImpl struct {
	cards    store.CardStore
	sagas    store.SagaStore
	accounts AccountLedger
	factory  PostCommitTaskFactory
	queue    TaskSubmitter
	logger   *slog.Logger
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService
// It returns an error if any of the required dependencies are nil.
func NewPaymentService(
	cards store.CardStore,
	sagas store.SagaStore,
	accounts AccountLedger,
	factory PostCommitTaskFactory,
	queue TaskSubmitter,
	logger *slog.Logger,
) (PaymentService, error) {
	switch {
	case cards == nil:
		return nil, NewCardServiceError("init", "cards cannot be nil", ErrMissingDependency)
	case sagas == nil:
		return nil, NewCardServiceError("init", "sagas cannot be nil", ErrMissingDependency)
	case accounts == nil:
		return nil, NewCardServiceError("init", "accounts cannot be nil", ErrMissingDependency)
	case factory == nil:
		return nil, NewCardServiceError("init", "factory cannot be nil", ErrMissingDependency)
	case queue == nil:
		return nil, NewCardServiceError("init", "queue cannot be nil", ErrMissingDependency)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &paymentServiceImpl{
		cards:    cards,
		sagas:    sagas,
		accounts: accounts,
		factory:  factory,
		queue:    queue,
		logger:   logger.With(slog.String("component", "payment_service")),
		now:      time.Now,
	}, nil
}

// ProcessPaymentOrWithdrawal implements PaymentService.ProcessPaymentOrWithdrawal
func (s *paymentServiceImpl) ProcessPaymentOrWithdrawal(
	ctx context.Context,
	cardID uuid.UUID,
	req domain.PaymentRequest,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("card_id", cardID.String()),
		slog.String("operation", string(req.Type)))

	if err := req.Validate(); err != nil {
		return NewCardServiceError("process_payment", "invalid payment request", err)
	}

	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to load card", slog.String("error", err.Error()))
		}
		return NewCardServiceError("process_payment", "failed to load card", err)
	}

	quoted, err := s.findCoveringAccount(ctx, card, req)
	if err != nil {
		return err
	}

	saga := domain.NewPaymentSaga(card, quoted, req, s.now())
	log = log.With(
		slog.String("saga_id", saga.ID.String()),
		slog.String("account_id", saga.AccountID))

	if err := s.sagas.Create(ctx, saga); err != nil {
		log.Error("failed to record payment saga", slog.String("error", err.Error()))
		return NewCardServiceError("process_payment", "failed to record payment", err)
	}

	after, debitErr := s.accounts.Reduce(ctx, saga.AccountID, saga.Amount)

	// The saga record must be written even if the caller has gone away.
	recordCtx := context.WithoutCancel(ctx)

	if debitErr != nil {
		log.Warn("debit failed", slog.String("error", debitErr.Error()))
		if err := saga.Advance(domain.SagaFailed, debitErr.Error(), s.now()); err == nil {
			if err := s.sagas.UpdateState(recordCtx, saga, domain.SagaPending); err != nil {
				log.Error("failed to record failed payment saga", slog.String("error", err.Error()))
			}
		}
		return NewCardServiceError("process_payment", "debit failed", debitErr)
	}

	if err := saga.Advance(domain.SagaDebited, "", s.now()); err != nil {
		return NewCardServiceError("process_payment", "invalid saga state", err)
	}
	if err := s.sagas.UpdateState(recordCtx, saga, domain.SagaPending); err != nil {
		// The money has moved; only the bookkeeping is missing.
		log.Error("debit succeeded but saga state was not recorded; reconcile manually",
			slog.String("error", err.Error()))
		return nil
	}

	expected := saga.QuotedBalance.Sub(saga.Amount)
	if (after.AccountID != "" || !after.AccountBalance.IsZero()) && !after.AccountBalance.Equal(expected) {
		log.Warn("post-debit balance differs from quote",
			slog.String("expected", expected.String()),
			slog.String("actual", after.AccountBalance.String()))
	}

	if err := s.queue.Enqueue(s.factory.CreateTask(saga)); err != nil {
		log.Warn("post-commit work deferred to sweeper", slog.String("error", err.Error()))
	}

	log.Info("payment debited", slog.String("amount", saga.Amount.String()))
	return nil
}

// findCoveringAccount probes the associated accounts in order and returns
// the first balance that covers the amount. Any probe failure stops the walk.
func (s *paymentServiceImpl) findCoveringAccount(
	ctx context.Context,
	card *domain.Card,
	req domain.PaymentRequest,
) (domain.Balance, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, accountID := range card.AssociatedAccountIDs {
		balance, err := s.accounts.GetBalance(ctx, accountID)
		if err != nil {
			log.Warn("balance probe failed",
				slog.String("card_id", card.ID.String()),
				slog.String("account_id", accountID),
				slog.String("error", err.Error()))
			return domain.Balance{}, NewCardServiceError("process_payment", "balance probe failed", err)
		}
		if balance.Covers(req.Amount) {
			balance.AccountID = accountID
			return balance, nil
		}
	}

	log.Info("no associated account covers amount",
		slog.String("card_id", card.ID.String()),
		slog.Int("accounts_checked", len(card.AssociatedAccountIDs)),
		slog.String("amount", req.Amount.String()))
	return domain.Balance{}, NewCardServiceError("process_payment", "no account covers the amount", domain.ErrInsufficientBalance)
}
