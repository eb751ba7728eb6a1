package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/phrazzld/card-service/internal/store"
)

const sagaColumns = `id, card_id, account_id, client_id, type, amount, quoted_balance,
		state, last_error, created_at, updated_at`

// PostgresSagaStore implements store.SagaStore on PostgreSQL.
type PostgresSagaStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSagaStore creates a saga store backed by db.
// If logger is nil, a default logger will be used.
func NewPostgresSagaStore(db store.DBTX, logger *slog.Logger) *PostgresSagaStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSagaStore{
		db:     db,
		logger: logger.With(slog.String("component", "saga_store")),
	}
}

var _ store.SagaStore = (*PostgresSagaStore)(nil)

// Create implements store.SagaStore.Create
func (s *PostgresSagaStore) Create(ctx context.Context, saga *domain.PaymentSaga) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO payment_sagas (id, card_id, account_id, client_id, type, amount,
			quoted_balance, state, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		saga.ID,
		saga.CardID,
		saga.AccountID,
		saga.ClientID,
		string(saga.Type),
		saga.Amount,
		saga.QuotedBalance,
		string(saga.State),
		saga.LastError,
		saga.CreatedAt,
		saga.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create payment saga",
			slog.String("error", err.Error()),
			slog.String("saga_id", saga.ID.String()),
			slog.String("card_id", saga.CardID.String()))
		if IsCheckConstraintViolation(err) || IsNumericOutOfRange(err) {
			return store.NewStoreError("payment_saga", "create", "saga values rejected",
				fmt.Errorf("%w: %w", domain.ErrMalformedCardData, MapError(err)))
		}
		return store.NewStoreError("payment_saga", "create", "failed to insert saga", MapError(err))
	}

	log.Debug("payment saga created",
		slog.String("saga_id", saga.ID.String()),
		slog.String("state", string(saga.State)))
	return nil
}

// GetByID implements store.SagaStore.GetByID
func (s *PostgresSagaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentSaga, error) {
	query := `SELECT ` + sagaColumns + ` FROM payment_sagas WHERE id = $1`
	saga, err := scanSaga(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSagaNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get payment saga",
			slog.String("error", err.Error()),
			slog.String("saga_id", id.String()))
		return nil, store.NewStoreError("payment_saga", "get", "failed to query saga", MapError(err))
	}
	return saga, nil
}

// UpdateState implements store.SagaStore.UpdateState
// The update only applies while the stored state equals from.
func (s *PostgresSagaStore) UpdateState(ctx context.Context, saga *domain.PaymentSaga, from domain.SagaState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE payment_sagas
		SET state = $1, last_error = $2, updated_at = $3
		WHERE id = $4 AND state = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		string(saga.State),
		saga.LastError,
		saga.UpdatedAt,
		saga.ID,
		string(from),
	)
	if err != nil {
		log.Error("failed to update payment saga state",
			slog.String("error", err.Error()),
			slog.String("saga_id", saga.ID.String()),
			slog.String("from", string(from)),
			slog.String("to", string(saga.State)))
		return store.NewStoreError("payment_saga", "update", "failed to update saga state", MapError(err))
	}

	if err := CheckRowsAffected(result, "payment saga"); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// Either the saga is gone or another writer moved it.
		if _, getErr := s.GetByID(ctx, saga.ID); getErr != nil {
			return getErr
		}
		log.Warn("payment saga state changed concurrently",
			slog.String("saga_id", saga.ID.String()),
			slog.String("expected", string(from)))
		return store.ErrSagaStateConflict
	}

	log.Debug("payment saga state updated",
		slog.String("saga_id", saga.ID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(saga.State)))
	return nil
}

// FindStale implements store.SagaStore.FindStale
func (s *PostgresSagaStore) FindStale(
	ctx context.Context,
	states []domain.SagaState,
	olderThan time.Time,
) ([]*domain.PaymentSaga, error) {
	if len(states) == 0 {
		return []*domain.PaymentSaga{}, nil
	}

	args := []any{olderThan}
	placeholders := make([]string, 0, len(states))
	for _, state := range states {
		args = append(args, string(state))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := `SELECT ` + sagaColumns + ` FROM payment_sagas
		WHERE updated_at < $1 AND state IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY updated_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("payment_saga", "find_stale", "failed to query sagas", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	sagas := make([]*domain.PaymentSaga, 0)
	for rows.Next() {
		saga, err := scanSaga(rows)
		if err != nil {
			return nil, store.NewStoreError("payment_saga", "find_stale", "failed to scan saga", err)
		}
		sagas = append(sagas, saga)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("payment_saga", "find_stale", "failed to iterate sagas", MapError(err))
	}
	return sagas, nil
}

func scanSaga(row rowScanner) (*domain.PaymentSaga, error) {
	var saga domain.PaymentSaga
	var opType, state string

	err := row.Scan(
		&saga.ID,
		&saga.CardID,
		&saga.AccountID,
		&saga.ClientID,
		&opType,
		&saga.Amount,
		&saga.QuotedBalance,
		&state,
		&saga.LastError,
		&saga.CreatedAt,
		&saga.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	saga.Type = domain.OperationType(opType)
	saga.State = domain.SagaState(state)
	return &saga, nil
}
