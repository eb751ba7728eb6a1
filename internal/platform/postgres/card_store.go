package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/phrazzld/card-service/internal/store"
)

const cardNumberConstraint = "cards_card_number_key"

const cardColumns = `id, card_number, expiration_date, type, main_account_id,
		associated_account_ids, client_id, created_at, updated_at`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) *PostgresCardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

// Create implements store.CardStore.Create
// Returns store.ErrCardNumberExists when the number violates the unique constraint.
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	accounts, err := encodeAccountIDs(card.AssociatedAccountIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO cards (id, card_number, expiration_date, type, main_account_id,
			associated_account_ids, client_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		card.ID,
		card.CardNumber,
		card.ExpirationDate,
		string(card.Type),
		card.MainAccountID,
		accounts,
		card.ClientID,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			constraint := ConstraintName(err)
			log.Warn("unique violation during card create",
				slog.String("card_id", card.ID.String()),
				slog.String("constraint", constraint),
				slog.String("card_number", domain.MaskCardNumber(card.CardNumber)))
			if constraint == cardNumberConstraint {
				return MapUniqueViolation(err, "card", constraint, store.ErrCardNumberExists)
			}
			return MapUniqueViolation(err, "card", constraint, nil)
		}

		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return store.NewStoreError("card", "create", "failed to insert card", MapError(err))
	}

	log.Info("card created successfully",
		slog.String("card_id", card.ID.String()),
		slog.String("client_id", card.ClientID),
		slog.String("type", string(card.Type)))
	return nil
}

// GetByID implements store.CardStore.GetByID
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving card by ID", slog.String("card_id", id.String()))

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, store.NewStoreError("card", "get", "failed to query card", MapError(err))
	}

	return card, nil
}

// FindAll implements store.CardStore.FindAll
// Set filter fields are combined with OR.
func (s *PostgresCardStore) FindAll(ctx context.Context, filter domain.CardFilter) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args := buildFindAllQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query cards",
			slog.String("error", err.Error()),
			slog.Int("criteria", len(args)))
		return nil, store.NewStoreError("card", "find_all", "failed to query cards", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	cards := make([]*domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("card", "find_all", "failed to scan card", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "find_all", "failed to iterate cards", MapError(err))
	}

	log.Debug("cards retrieved", slog.Int("count", len(cards)), slog.Int("criteria", len(args)))
	return cards, nil
}

// buildFindAllQuery turns a filter into a query whose set criteria are ORed.
func buildFindAllQuery(filter domain.CardFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.ID != nil {
		args = append(args, *filter.ID)
		conditions = append(conditions, fmt.Sprintf("id = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}

	query := `SELECT ` + cardColumns + ` FROM cards`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " OR ")
	}
	query += ` ORDER BY created_at, id`
	return query, args
}

// Modify implements store.CardStore.Modify
// The row is locked with SELECT ... FOR UPDATE for the duration of fn.
// When the store is already bound to a transaction, that transaction is used.
func (s *PostgresCardStore) Modify(ctx context.Context, id uuid.UUID, fn store.ModifyFn) (*domain.Card, error) {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return s.modify(ctx, s.db, id, fn)
	}

	var modified *domain.Card
	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		card, err := s.modify(ctx, tx, id, fn)
		modified = card
		return err
	})
	if err != nil {
		return nil, err
	}
	return modified, nil
}

func (s *PostgresCardStore) modify(ctx context.Context, db store.DBTX, id uuid.UUID, fn store.ModifyFn) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`
	card, err := scanCard(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to lock card for update",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, store.NewStoreError("card", "modify", "failed to lock card", MapError(err))
	}

	if err := fn(card); err != nil {
		return nil, err
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	accounts, err := encodeAccountIDs(card.AssociatedAccountIDs)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE cards
		SET type = $1, main_account_id = $2, associated_account_ids = $3::jsonb,
			client_id = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := db.ExecContext(ctx, update,
		string(card.Type),
		card.MainAccountID,
		accounts,
		card.ClientID,
		card.UpdatedAt,
		card.ID,
	)
	if err != nil {
		log.Error("failed to update card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, store.NewStoreError("card", "modify", "failed to update card", MapError(err))
	}
	if err := CheckRowsAffected(result, "card"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrCardNotFound
		}
		return nil, err
	}

	log.Info("card updated successfully",
		slog.String("card_id", id.String()),
		slog.Int("associated_accounts", len(card.AssociatedAccountIDs)))
	return card, nil
}

// Delete implements store.CardStore.Delete
// Returns store.ErrCardNotFound if the card does not exist.
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return store.NewStoreError("card", "delete", "failed to delete card", MapError(err))
	}

	if err := CheckRowsAffected(result, "card"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("card not found for deletion", slog.String("card_id", id.String()))
			return store.ErrCardNotFound
		}
		return err
	}

	log.Info("card deleted successfully", slog.String("card_id", id.String()))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var cardType string
	var accounts []byte

	err := row.Scan(
		&card.ID,
		&card.CardNumber,
		&card.ExpirationDate,
		&cardType,
		&card.MainAccountID,
		&accounts,
		&card.ClientID,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.Type = domain.CardType(cardType)
	card.AssociatedAccountIDs = []string{}
	if len(accounts) > 0 {
		if err := json.Unmarshal(accounts, &card.AssociatedAccountIDs); err != nil {
			return nil, fmt.Errorf("failed to decode associated account ids: %w", err)
		}
	}
	return &card, nil
}

func encodeAccountIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode associated account ids: %w", err)
	}
	return string(b), nil
}
