package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/events"
	"github.com/phrazzld/card-service/internal/store"
)

// TransactionRegistrar records completed debits with the transaction ledger.
type TransactionRegistrar interface {
	Register(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error)
}

// PostCommitTaskFactory builds PostCommitTasks that share the same
// collaborators.
type PostCommitTaskFactory struct {
	sagas     store.SagaStore
	registrar TransactionRegistrar
	emitter   events.EventEmitter
	topic     string
	logger    *slog.Logger
	now       func() time.Time
}

// NewPostCommitTaskFactory creates a factory publishing on topic.
// If logger is nil, a default logger will be used.
func NewPostCommitTaskFactory(
	sagas store.SagaStore,
	registrar TransactionRegistrar,
	emitter events.EventEmitter,
	topic string,
	logger *slog.Logger,
) *PostCommitTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostCommitTaskFactory{
		sagas:     sagas,
		registrar: registrar,
		emitter:   emitter,
		topic:     topic,
		logger:    logger.With("component", "post_commit_task"),
		now:       time.Now,
	}
}

// CreateTask returns the task that finishes saga.
func (f *PostCommitTaskFactory) CreateTask(saga *domain.PaymentSaga) *PostCommitTask {
	snapshot := *saga
	return &PostCommitTask{
		id:      uuid.New(),
		saga:    &snapshot,
		factory: f,
	}
}

// PostCommitTask moves one debited saga through registration and
// publication. Each step is recorded before the next starts, so a retried
// task resumes where the last attempt stopped.
type PostCommitTask struct {
	id      uuid.UUID
	saga    *domain.PaymentSaga
	factory *PostCommitTaskFactory
}

// ID returns the task's unique identifier
func (t *PostCommitTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *PostCommitTask) Type() string {
	return TaskTypePostCommit
}

// SagaID returns the saga the task finishes.
func (t *PostCommitTask) SagaID() uuid.UUID {
	return t.saga.ID
}

// Execute runs the remaining steps of the saga. A step that loses a race
// with another writer ends the task without error.
func (t *PostCommitTask) Execute(ctx context.Context) error {
	f := t.factory
	log := f.logger.With(
		slog.String("saga_id", t.saga.ID.String()),
		slog.String("card_id", t.saga.CardID.String()),
		slog.String("task_id", t.id.String()))

	for !t.saga.State.Terminal() {
		var err error
		switch t.saga.State {
		case domain.SagaDebited:
			err = t.register(ctx)
		case domain.SagaRegistered:
			err = t.publish(ctx)
		default:
			return fmt.Errorf("saga %s is %s; post-commit work needs a debited saga", t.saga.ID, t.saga.State)
		}

		if errors.Is(err, store.ErrSagaStateConflict) {
			log.Info("payment saga advanced elsewhere, stopping", slog.String("state", string(t.saga.State)))
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("payment saga advanced", slog.String("state", string(t.saga.State)))
	}
	return nil
}

func (t *PostCommitTask) register(ctx context.Context) error {
	f := t.factory
	if _, err := f.registrar.Register(ctx, t.saga.Event().ToTransactionRequest()); err != nil {
		return fmt.Errorf("failed to register transaction for saga %s: %w", t.saga.ID, err)
	}
	return t.advance(ctx, domain.SagaRegistered)
}

func (t *PostCommitTask) publish(ctx context.Context) error {
	f := t.factory
	event, err := events.NewEvent(f.topic, events.TypeOrchestratorEvent, t.saga.Event())
	if err != nil {
		return fmt.Errorf("failed to build orchestrator event for saga %s: %w", t.saga.ID, err)
	}
	// Consumers can deduplicate republished events by saga.
	event.ID = t.saga.ID

	if err := f.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to publish orchestrator event for saga %s: %w", t.saga.ID, err)
	}
	return t.advance(ctx, domain.SagaPublished)
}

func (t *PostCommitTask) advance(ctx context.Context, next domain.SagaState) error {
	from := t.saga.State
	if err := t.saga.Advance(next, "", t.factory.now()); err != nil {
		return err
	}
	if err := t.factory.sagas.UpdateState(ctx, t.saga, from); err != nil {
		if errors.Is(err, store.ErrSagaStateConflict) {
			return err
		}
		return fmt.Errorf("failed to record saga %s as %s: %w", t.saga.ID, next, err)
	}
	return nil
}
