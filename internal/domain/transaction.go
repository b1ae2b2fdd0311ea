package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a posting.
type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "CREDIT"
	TransactionKindDebit  TransactionKind = "DEBIT"
)

// IsValid reports whether k is one of the two known kinds.
func (k TransactionKind) IsValid() bool {
	return k == TransactionKindCredit || k == TransactionKindDebit
}

// ParseTransactionKind parses a kind case-insensitively.
func ParseTransactionKind(s string) (TransactionKind, error) {
	k := TransactionKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Transaction is a single immutable posting against an account.
// Amount is always positive; the sign is carried by Kind.
type Transaction struct {
	CreatedAt   time.Time
	Description *string
	ID          string
	AccountID   string
	Kind        TransactionKind
	Amount      decimal.Decimal
}

// Signed returns the amount with the sign implied by the kind.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Kind == TransactionKindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// TransactionFilter selects postings of one account.
// From and To are inclusive bounds on CreatedAt.
type TransactionFilter struct {
	From      *time.Time
	To        *time.Time
	Kind      *TransactionKind
	AccountID string
	Limit     int
	Offset    int
}
