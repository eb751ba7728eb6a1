package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// The ledgers exchange amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// OperationType is the kind of debit a caller requests.
type OperationType string

const (
	OperationPayment    OperationType = "payment"
	OperationWithdrawal OperationType = "withdrawal"
)

// Valid reports whether t is a known operation type.
func (t OperationType) Valid() bool {
	return t == OperationPayment || t == OperationWithdrawal
}

// Amounts are stored as NUMERIC(19, 4); anything the column would round or
// overflow is rejected up front.
const AmountScale = 4

var maxAmount = decimal.New(1, 15)

// PaymentRequest asks for Amount to be debited from one of a card's accounts.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Type   OperationType   `json:"type"`
}

// Validate checks that the amount is positive, fits the stored precision
// and that the type is known.
func (r PaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrAmountNotPositive
	}
	if !r.Amount.Equal(r.Amount.Round(AmountScale)) {
		return ErrAmountScale
	}
	if r.Amount.GreaterThanOrEqual(maxAmount) {
		return ErrAmountTooLarge
	}
	if !r.Type.Valid() {
		return ErrOperationTypeInvalid
	}
	return nil
}

// Balance is the account ledger's view of one account.
type Balance struct {
	AccountID      string          `json:"accountId"`
	AccountBalance decimal.Decimal `json:"accountBalance"`
	CardBalance    decimal.Decimal `json:"cardBalance"`
}

// Covers reports whether the account balance is at least amount.
func (b Balance) Covers(amount decimal.Decimal) bool {
	return b.AccountBalance.GreaterThanOrEqual(amount)
}

// DebitRequest is the body sent to the account ledger to reduce a balance.
type DebitRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransactionRequest registers a completed debit with the transaction ledger.
type TransactionRequest struct {
	CardID    string          `json:"cardId"`
	ProductID string          `json:"productId"`
	Type      OperationType   `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
}

// Transaction is a ledger entry as returned by the transaction ledger.
type Transaction struct {
	ID        string          `json:"id"`
	CardID    string          `json:"cardId"`
	ProductID string          `json:"productId"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

// OrchestratorEvent announces a committed debit to downstream consumers.
type OrchestratorEvent struct {
	Type      OperationType   `json:"type"`
	ClientID  string          `json:"clientId"`
	CardID    string          `json:"cardId"`
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	// Balance is the account balance after the debit, computed from the
	// balance quoted by the probe.
	Balance decimal.Decimal `json:"balance"`
}

// ToOrchestratorEvent builds the event for a debit of payment.Amount against
// the account described by quoted.
func ToOrchestratorEvent(card *Card, quoted Balance, payment PaymentRequest) OrchestratorEvent {
	return OrchestratorEvent{
		Type:      payment.Type,
		ClientID:  card.ClientID,
		CardID:    card.ID.String(),
		AccountID: quoted.AccountID,
		Amount:    payment.Amount,
		Balance:   quoted.AccountBalance.Sub(payment.Amount),
	}
}

// ToTransactionRequest builds the ledger registration for the same debit.
func (e OrchestratorEvent) ToTransactionRequest() TransactionRequest {
	return TransactionRequest{
		CardID:    e.CardID,
		ProductID: e.AccountID,
		Type:      e.Type,
		Amount:    e.Amount,
		Balance:   e.Balance,
	}
}

// BalanceEvent reports the main account balance of a card.
type BalanceEvent struct {
	CardID         string          `json:"cardId"`
	AccountID      string          `json:"accountId"`
	ClientID       string          `json:"clientId"`
	AccountBalance decimal.Decimal `json:"accountBalance"`
}

// NewBalanceEvent combines a card with its main account balance.
func NewBalanceEvent(card *Card, balance Balance) BalanceEvent {
	return BalanceEvent{
		CardID:         card.ID.String(),
		AccountID:      card.MainAccountID,
		ClientID:       card.ClientID,
		AccountBalance: balance.AccountBalance,
	}
}

// BalanceTrigger asks the service to publish the current balance of a card.
type BalanceTrigger struct {
	CardID uuid.UUID `json:"cardId"`
}

// OrchestratorResult is the downstream outcome of a published debit.
type OrchestratorResult struct {
	CardID  string `json:"cardId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
