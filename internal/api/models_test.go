package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardRequest(t *testing.T) {
	body := `{"type":"credit","mainAccountId":"acc-1","associatedAccountIds":["acc-1","acc-2"],"clientId":"client-7"}`

	var req CardRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	input := req.ToInput()
	assert.Equal(t, domain.CardTypeCredit, input.Type)
	assert.Equal(t, "acc-1", input.MainAccountID)
	assert.Equal(t, []string{"acc-1", "acc-2"}, input.AssociatedAccountIDs)
	assert.Equal(t, "client-7", input.ClientID)
}

func TestPaymentRequest(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		amount string
	}{
		{"numeric amount", `{"amount":40.25,"type":"payment"}`, "40.25"},
		{"string amount", `{"amount":"40.25","type":"payment"}`, "40.25"},
		{"integer amount", `{"amount":100,"type":"withdrawal"}`, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req PaymentRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			dom := req.ToDomain()
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(dom.Amount))
			assert.NoError(t, dom.Validate())
		})
	}
}

func TestCardToResponse(t *testing.T) {
	id := uuid.New()
	exp := time.Date(2031, 3, 14, 0, 0, 0, 0, time.UTC)
	card := &domain.Card{
		ID:             id,
		CardNumber:     "4000123412341234",
		ExpirationDate: exp,
		Type:           domain.CardTypeDebit,
		MainAccountID:  "acc-1",
		ClientID:       "client-7",
	}

	resp := cardToResponse(card)
	assert.Equal(t, id.String(), resp.ID)
	assert.Equal(t, "debit", resp.Type)
	assert.Equal(t, exp, resp.ExpirationDate)
	assert.NotNil(t, resp.AssociatedAccountIDs, "accounts render as [] rather than null")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"id", "cardNumber", "expirationDate", "type", "mainAccountId",
		"associatedAccountIds", "clientId", "createdAt", "updatedAt",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "2031-03-14T00:00:00Z", fields["expirationDate"])
}

func TestCardsToResponse_Empty(t *testing.T) {
	raw, err := json.Marshal(cardsToResponse(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestBalanceResponse_NumbersWithoutQuotes(t *testing.T) {
	raw, err := json.Marshal(BalanceResponse(domain.Balance{
		AccountID:      "acc-1",
		AccountBalance: decimal.RequireFromString("150.5"),
		CardBalance:    decimal.RequireFromString("20"),
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"accountId":"acc-1","accountBalance":150.5,"cardBalance":20}`, string(raw))
}
