package api

import (
	"time"

	"github.com/phrazzld/card-service/internal/domain"
	"github.com/shopspring/decimal"
)

// CardRequest defines the payload for creating or replacing a card.
type CardRequest struct {
	Type          string `json:"type"          validate:"required,oneof=debit credit"`
	MainAccountID string `json:"mainAccountId" validate:"required"`
	// AssociatedAccountIDs is the ordered list payments draw from.
	AssociatedAccountIDs []string `json:"associatedAccountIds" validate:"omitempty,unique,dive,required"`
	ClientID             string   `json:"clientId"             validate:"required"`
}

// ToInput converts the request into domain input.
func (r CardRequest) ToInput() domain.CardInput {
	return domain.CardInput{
		Type:                 domain.CardType(r.Type),
		MainAccountID:        r.MainAccountID,
		AssociatedAccountIDs: r.AssociatedAccountIDs,
		ClientID:             r.ClientID,
	}
}

// AssociateAccountRequest defines the payload for linking an account to a card.
type AssociateAccountRequest struct {
	AccountID string `json:"accountId" validate:"required"`
}

// PaymentRequest defines the payload for a payment or withdrawal.
// The amount's sign is checked by the domain.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"   validate:"required,oneof=payment withdrawal"`
}

// ToDomain converts the request into a domain payment request.
func (r PaymentRequest) ToDomain() domain.PaymentRequest {
	return domain.PaymentRequest{
		Amount: r.Amount,
		Type:   domain.OperationType(r.Type),
	}
}

// CardResponse represents the response data for a card
type CardResponse struct {
	ID                   string    `json:"id"`
	CardNumber           string    `json:"cardNumber"`
	ExpirationDate       time.Time `json:"expirationDate"`
	Type                 string    `json:"type"`
	MainAccountID        string    `json:"mainAccountId"`
	AssociatedAccountIDs []string  `json:"associatedAccountIds"`
	ClientID             string    `json:"clientId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func cardToResponse(card *domain.Card) CardResponse {
	accounts := card.AssociatedAccountIDs
	if accounts == nil {
		accounts = []string{}
	}
	return CardResponse{
		ID:                   card.ID.String(),
		CardNumber:           card.CardNumber,
		ExpirationDate:       card.ExpirationDate,
		Type:                 string(card.Type),
		MainAccountID:        card.MainAccountID,
		AssociatedAccountIDs: accounts,
		ClientID:             card.ClientID,
		CreatedAt:            card.CreatedAt,
		UpdatedAt:            card.UpdatedAt,
	}
}

func cardsToResponse(cards []*domain.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, cardToResponse(card))
	}
	return out
}

// BalanceResponse reports the balance of the card's main account.
type BalanceResponse struct {
	AccountID      string          `json:"accountId"`
	AccountBalance decimal.Decimal `json:"accountBalance"`
	CardBalance    decimal.Decimal `json:"cardBalance"`
}

// TransactionListResponse is one page of ledger entries.
type TransactionListResponse struct {
	Page         int                  `json:"page"`
	Size         int                  `json:"size"`
	Transactions []domain.Transaction `json:"transactions"`
}
