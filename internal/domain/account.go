package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a money-tracking account owned by a single user.
type Account struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// Apply validates and applies a posting of the given kind, returning the new balance.
// The account itself is not mutated.
func (a *Account) Apply(kind TransactionKind, amount decimal.Decimal) (decimal.Decimal, error) {
	switch kind {
	case TransactionKindCredit:
		return a.ApplyCredit(amount), nil
	case TransactionKindDebit:
		if err := a.ValidateDebit(amount); err != nil {
			return a.Balance, err
		}
		return a.ApplyDebit(amount), nil
	default:
		return a.Balance, ErrInvalidKind
	}
}
