package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardType distinguishes debit from credit cards.
type CardType string

const (
	CardTypeDebit  CardType = "debit"
	CardTypeCredit CardType = "credit"
)

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool {
	return t == CardTypeDebit || t == CardTypeCredit
}

// Card links a client to a main account and an ordered list of associated
// accounts that payments may draw from.
type Card struct {
	ID             uuid.UUID `json:"id"`
	CardNumber     string    `json:"cardNumber"`
	ExpirationDate time.Time `json:"expirationDate"`
	Type           CardType  `json:"type"`
	MainAccountID  string    `json:"mainAccountId"`
	// AssociatedAccountIDs is ordered and duplicate-free. The payment probe
	// walks it front to back.
	AssociatedAccountIDs []string  `json:"associatedAccountIds"`
	ClientID             string    `json:"clientId"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// CardInput carries the client-supplied fields of a card.
type CardInput struct {
	Type                 CardType
	MainAccountID        string
	AssociatedAccountIDs []string
	ClientID             string
}

// NewCard creates a card from input with a fresh id, the given number and an
// expiration validityYears after now (end of month, UTC).
func NewCard(input CardInput, number string, now time.Time, validityYears int) (*Card, error) {
	now = now.UTC()
	card := &Card{
		ID:             uuid.New(),
		CardNumber:     number,
		ExpirationDate: ExpirationFor(now, validityYears),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	card.apply(input)

	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// Replace overwrites every client-supplied field with input. The id, number
// and expiration date are kept.
func (c *Card) Replace(input CardInput, now time.Time) error {
	updated := *c
	updated.apply(input)
	updated.UpdatedAt = now.UTC()
	if err := updated.Validate(); err != nil {
		return err
	}
	*c = updated
	return nil
}

func (c *Card) apply(input CardInput) {
	c.Type = input.Type
	c.MainAccountID = strings.TrimSpace(input.MainAccountID)
	c.ClientID = strings.TrimSpace(input.ClientID)
	c.AssociatedAccountIDs = make([]string, 0, len(input.AssociatedAccountIDs))
	for _, id := range input.AssociatedAccountIDs {
		c.AssociatedAccountIDs = append(c.AssociatedAccountIDs, strings.TrimSpace(id))
	}
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if !c.Type.Valid() {
		return ErrCardTypeInvalid
	}
	if c.ClientID == "" {
		return ErrClientIDEmpty
	}
	if c.MainAccountID == "" {
		return ErrMainAccountIDEmpty
	}
	if c.CardNumber != "" {
		if err := ValidateCardNumber(c.CardNumber); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(c.AssociatedAccountIDs))
	for _, id := range c.AssociatedAccountIDs {
		if id == "" {
			return ErrAccountIDEmpty
		}
		if _, dup := seen[id]; dup {
			return ErrDuplicateAccountIDs
		}
		seen[id] = struct{}{}
	}
	return nil
}

// HasAccount reports whether accountID is already associated with the card.
func (c *Card) HasAccount(accountID string) bool {
	for _, id := range c.AssociatedAccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// AssociateAccount appends accountID to the associated accounts.
// The card is left unchanged when the id is empty or already present.
func (c *Card) AssociateAccount(accountID string, now time.Time) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrAccountIDEmpty
	}
	if c.HasAccount(accountID) {
		return ErrAccountAlreadyAssociated
	}
	c.AssociatedAccountIDs = append(c.AssociatedAccountIDs, accountID)
	c.UpdatedAt = now.UTC()
	return nil
}

// ExpirationFor returns the last instant of the month validityYears after issue.
func ExpirationFor(issue time.Time, validityYears int) time.Time {
	t := issue.UTC()
	firstOfNext := time.Date(t.Year()+validityYears, t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Second)
}

// CardFilter selects cards by id, type or client. Set fields are combined
// with OR; an empty filter selects every card.
type CardFilter struct {
	ID       *uuid.UUID
	Type     *CardType
	ClientID *string
}

// IsEmpty reports whether no criterion is set.
func (f CardFilter) IsEmpty() bool {
	return f.ID == nil && f.Type == nil && f.ClientID == nil
}

// Matches reports whether card satisfies at least one set criterion.
func (f CardFilter) Matches(card *Card) bool {
	if f.IsEmpty() {
		return true
	}
	if f.ID != nil && card.ID == *f.ID {
		return true
	}
	if f.Type != nil && card.Type == *f.Type {
		return true
	}
	if f.ClientID != nil && card.ClientID == *f.ClientID {
		return true
	}
	return false
}
