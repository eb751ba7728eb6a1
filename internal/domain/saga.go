package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SagaState is the progress of one payment or withdrawal.
type SagaState string

const (
	// SagaPending is recorded before the debit call; the outcome is unknown.
	SagaPending SagaState = "pending"
	// SagaDebited means the account ledger accepted the debit. This is the
	// commit point: the caller has been told the payment succeeded.
	SagaDebited SagaState = "debited"
	// SagaRegistered means the transaction ledger has the entry.
	SagaRegistered SagaState = "registered"
	// SagaPublished means the orchestrator event was written to the channel.
	SagaPublished SagaState = "published"
	// SagaFailed means the debit was refused or its outcome was abandoned.
	SagaFailed SagaState = "failed"
)

var sagaTransitions = map[SagaState][]SagaState{
	SagaPending:    {SagaDebited, SagaFailed},
	SagaDebited:    {SagaRegistered},
	SagaRegistered: {SagaPublished},
}

// Terminal reports whether no further transition is possible.
func (s SagaState) Terminal() bool {
	return len(sagaTransitions[s]) == 0
}

// CanAdvanceTo reports whether s may move to next.
func (s SagaState) CanAdvanceTo(next SagaState) bool {
	for _, allowed := range sagaTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentSaga is the persisted record of one payment or withdrawal. It is
// written before each remote step so an interrupted saga can be found and
// finished or flagged.
type PaymentSaga struct {
	ID        uuid.UUID
	CardID    uuid.UUID
	AccountID string
	ClientID  string
	Type      OperationType
	Amount    decimal.Decimal
	// QuotedBalance is the account balance returned by the probe before the debit.
	QuotedBalance decimal.Decimal
	State         SagaState
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPaymentSaga records the intent to debit quoted.AccountID.
func NewPaymentSaga(card *Card, quoted Balance, payment PaymentRequest, now time.Time) *PaymentSaga {
	now = now.UTC()
	return &PaymentSaga{
		ID:            uuid.New(),
		CardID:        card.ID,
		AccountID:     quoted.AccountID,
		ClientID:      card.ClientID,
		Type:          payment.Type,
		Amount:        payment.Amount,
		QuotedBalance: quoted.AccountBalance,
		State:         SagaPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Advance moves the saga to next, recording lastError.
func (s *PaymentSaga) Advance(next SagaState, lastError string, now time.Time) error {
	if !s.State.CanAdvanceTo(next) {
		return ErrInvalidSagaTransition
	}
	s.State = next
	s.LastError = lastError
	s.UpdatedAt = now.UTC()
	return nil
}

// Event rebuilds the orchestrator event from the persisted record.
func (s *PaymentSaga) Event() OrchestratorEvent {
	return OrchestratorEvent{
		Type:      s.Type,
		ClientID:  s.ClientID,
		CardID:    s.CardID.String(),
		AccountID: s.AccountID,
		Amount:    s.Amount,
		Balance:   s.QuotedBalance.Sub(s.Amount),
	}
}
