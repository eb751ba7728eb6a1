package gateway

import (
	"context"
	"strconv"

	"github.com/phrazzld/card-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Logical targets, one breaker each.
const (
	TargetAccountService     = "account-service"
	TargetTransactionService = "transaction-service"
)

// AccountClient talks to the account ledger.
type AccountClient struct {
	gateway *Gateway
	baseURL string
}

// NewAccountClient creates a client for the account ledger at baseURL.
func NewAccountClient(g *Gateway, baseURL string) *AccountClient {
	return &AccountClient{gateway: g, baseURL: baseURL}
}

// GetBalance returns the balance of accountID.
func (c *AccountClient) GetBalance(ctx context.Context, accountID string) (domain.Balance, error) {
	url := Expand(c.baseURL, "/v1/accounts/{accountId}/balances", map[string]string{"accountId": accountID})
	balance, err := FetchOne[domain.Balance](ctx, c.gateway, TargetAccountService, url)
	if err != nil {
		return domain.Balance{}, err
	}
	if balance.AccountID == "" {
		balance.AccountID = accountID
	}
	return balance, nil
}

// Reduce debits amount from accountID and returns the ledger's balance after
// the debit.
func (c *AccountClient) Reduce(ctx context.Context, accountID string, amount decimal.Decimal) (domain.Balance, error) {
	url := Expand(c.baseURL, "/accounts/{accountId}/reduce", map[string]string{"accountId": accountID})
	return Post[domain.Balance](ctx, c.gateway, TargetAccountService, url, domain.DebitRequest{Amount: amount})
}

// TransactionClient talks to the transaction ledger.
type TransactionClient struct {
	gateway *Gateway
	baseURL string
}

// NewTransactionClient creates a client for the transaction ledger at baseURL.
func NewTransactionClient(g *Gateway, baseURL string) *TransactionClient {
	return &TransactionClient{gateway: g, baseURL: baseURL}
}

// Register records a completed debit.
func (c *TransactionClient) Register(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error) {
	url := Expand(c.baseURL, "/v1/transactions", nil)
	return Post[domain.Transaction](ctx, c.gateway, TargetTransactionService, url, req)
}

// List returns one page of a card's transactions.
func (c *TransactionClient) List(ctx context.Context, cardID string, page, size int) ([]domain.Transaction, error) {
	url := WithQuery(Expand(c.baseURL, "/v1/transactions", nil), map[string]string{
		"cardId": cardID,
		"page":   strconv.Itoa(page),
		"size":   strconv.Itoa(size),
	})
	return FetchMany[domain.Transaction](ctx, c.gateway, TargetTransactionService, url)
}
