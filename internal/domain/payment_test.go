package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  PaymentRequest
		want error
	}{
		{"valid payment", PaymentRequest{Amount: decimal.NewFromInt(10), Type: OperationPayment}, nil},
		{"valid withdrawal", PaymentRequest{Amount: decimal.RequireFromString("0.01"), Type: OperationWithdrawal}, nil},
		{"zero amount", PaymentRequest{Amount: decimal.Zero, Type: OperationPayment}, ErrAmountNotPositive},
		{"negative amount", PaymentRequest{Amount: decimal.NewFromInt(-5), Type: OperationPayment}, ErrAmountNotPositive},
		{"unknown type", PaymentRequest{Amount: decimal.NewFromInt(5), Type: "refund"}, ErrOperationTypeInvalid},
		{"four decimals", PaymentRequest{Amount: decimal.RequireFromString("10.1234"), Type: OperationPayment}, nil},
		{"trailing zeros beyond scale", PaymentRequest{Amount: decimal.RequireFromString("10.10000"), Type: OperationPayment}, nil},
		{"smallest unit", PaymentRequest{Amount: decimal.RequireFromString("0.0001"), Type: OperationPayment}, nil},
		{"below smallest unit", PaymentRequest{Amount: decimal.RequireFromString("0.00001"), Type: OperationPayment}, ErrAmountScale},
		{"five decimals", PaymentRequest{Amount: decimal.RequireFromString("10.12345"), Type: OperationWithdrawal}, ErrAmountScale},
		{"largest storable", PaymentRequest{Amount: decimal.RequireFromString("999999999999999.9999"), Type: OperationPayment}, nil},
		{"column overflow", PaymentRequest{Amount: decimal.New(1, 15), Type: OperationPayment}, ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrMalformedCardData)
		})
	}
}

func TestBalanceCovers(t *testing.T) {
	b := Balance{AccountID: "a", AccountBalance: decimal.NewFromInt(100)}
	assert.True(t, b.Covers(decimal.NewFromInt(100)), "equal balance covers the amount")
	assert.True(t, b.Covers(decimal.RequireFromString("99.99")))
	assert.False(t, b.Covers(decimal.RequireFromString("100.01")))
}

func TestToOrchestratorEvent(t *testing.T) {
	card := &Card{ID: uuid.New(), ClientID: "client-1"}
	quoted := Balance{AccountID: "acc-2", AccountBalance: decimal.RequireFromString("250.75")}
	payment := PaymentRequest{Amount: decimal.RequireFromString("50.25"), Type: OperationWithdrawal}

	event := ToOrchestratorEvent(card, quoted, payment)

	assert.Equal(t, OperationWithdrawal, event.Type)
	assert.Equal(t, "client-1", event.ClientID)
	assert.Equal(t, card.ID.String(), event.CardID)
	assert.Equal(t, "acc-2", event.AccountID)
	assert.True(t, decimal.RequireFromString("200.50").Equal(event.Balance))

	tx := event.ToTransactionRequest()
	assert.Equal(t, "acc-2", tx.ProductID)
	assert.True(t, payment.Amount.Equal(tx.Amount))
	assert.True(t, event.Balance.Equal(tx.Balance))
}

func TestAmountsEncodeAsJSONNumbers(t *testing.T) {
	body, err := json.Marshal(DebitRequest{Amount: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 12.5}`, string(body))

	var b Balance
	require.NoError(t, json.Unmarshal([]byte(`{"accountId":"a","accountBalance":"30.10","cardBalance":5}`), &b))
	assert.True(t, decimal.RequireFromString("30.10").Equal(b.AccountBalance))
	assert.True(t, decimal.NewFromInt(5).Equal(b.CardBalance))
}

func TestNewBalanceEvent(t *testing.T) {
	card := &Card{ID: uuid.New(), ClientID: "client-1", MainAccountID: "acc-main"}
	event := NewBalanceEvent(card, Balance{AccountID: "acc-main", AccountBalance: decimal.NewFromInt(42)})

	assert.Equal(t, card.ID.String(), event.CardID)
	assert.Equal(t, "acc-main", event.AccountID)
	assert.Equal(t, "client-1", event.ClientID)
	assert.True(t, decimal.NewFromInt(42).Equal(event.AccountBalance))
}
