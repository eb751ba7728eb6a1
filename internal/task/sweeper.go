package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/store"
)

// unknownDebitOutcome is recorded on sagas abandoned before the debit
// response was persisted.
const unknownDebitOutcome = "debit outcome unknown"

// SagaSweeperConfig holds configuration for the saga sweeper
type SagaSweeperConfig struct {
	// StuckAge is how long a saga may sit in a non-terminal state before the
	// sweeper acts on it
	StuckAge time.Duration

	// Interval defines how often to sweep
	// If zero, defaults to 5 minutes
	Interval time.Duration
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Requeued  int
	Abandoned int
}

// SagaSweeper periodically finishes or flags payment sagas that stopped
// short of a terminal state.
//
// Debited and registered sagas are requeued. A pending saga means the
// process stopped between recording the intent and recording the debit
// response; the ledger may or may not have applied the debit, so the saga
// is marked failed and logged for manual reconciliation. No compensation
// is attempted.
type SagaSweeper struct {
	sagas   store.SagaStore
	factory *PostCommitTaskFactory
	queue   TaskQueueWriter
	config  SagaSweeperConfig
	logger  *slog.Logger
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSagaSweeper creates a sweeper.
// If logger is nil, a default logger will be used.
func NewSagaSweeper(
	sagas store.SagaStore,
	factory *PostCommitTaskFactory,
	queue TaskQueueWriter,
	config SagaSweeperConfig,
	logger *slog.Logger,
) *SagaSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	return &SagaSweeper{
		sagas:   sagas,
		factory: factory,
		queue:   queue,
		config:  config,
		logger:  logger.With("component", "saga_sweeper"),
		now:     time.Now,
	}
}

// Start sweeps once immediately, to pick up sagas left by a previous run,
// and then every Interval until Stop is called.
func (s *SagaSweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		for {
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("saga sweep failed", "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the sweep loop and waits for a running sweep to finish.
func (s *SagaSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Sweep runs one pass over stale sagas.
func (s *SagaSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := s.now().Add(-s.config.StuckAge)

	unfinished, err := s.sagas.FindStale(ctx,
		[]domain.SagaState{domain.SagaDebited, domain.SagaRegistered}, cutoff)
	if err != nil {
		return result, err
	}
	for _, saga := range unfinished {
		task := s.factory.CreateTask(saga)
		if err := s.queue.Enqueue(task); err != nil {
			s.logger.Error("failed to requeue stuck payment saga",
				"saga_id", saga.ID,
				"state", saga.State,
				"error", err)
			if errors.Is(err, ErrQueueClosed) {
				return result, err
			}
			continue
		}
		result.Requeued++
		s.logger.Info("requeued stuck payment saga",
			"saga_id", saga.ID,
			"state", saga.State,
			"task_id", task.ID())
	}

	pending, err := s.sagas.FindStale(ctx, []domain.SagaState{domain.SagaPending}, cutoff)
	if err != nil {
		return result, err
	}
	for _, saga := range pending {
		if err := s.abandon(ctx, saga); err != nil {
			if errors.Is(err, store.ErrSagaStateConflict) {
				continue
			}
			s.logger.Error("failed to mark stuck payment saga as failed",
				"saga_id", saga.ID,
				"error", err)
			continue
		}
		result.Abandoned++
	}

	if result.Requeued > 0 || result.Abandoned > 0 {
		s.logger.Info("saga sweep finished",
			"requeued", result.Requeued,
			"abandoned", result.Abandoned)
	}
	return result, nil
}

func (s *SagaSweeper) abandon(ctx context.Context, saga *domain.PaymentSaga) error {
	if err := saga.Advance(domain.SagaFailed, unknownDebitOutcome, s.now()); err != nil {
		return err
	}
	if err := s.sagas.UpdateState(ctx, saga, domain.SagaPending); err != nil {
		return err
	}

	s.logger.Error("payment saga abandoned with unknown debit outcome; reconcile manually",
		"saga_id", saga.ID,
		"card_id", saga.CardID,
		"account_id", saga.AccountID,
		"client_id", saga.ClientID,
		"type", saga.Type,
		"amount", saga.Amount.String(),
		"created_at", saga.CreatedAt)
	return nil
}
