package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

// PostTransactionRequest is the body of a credit or debit request.
// Amount accepts a JSON string ("50.00") or number.
type PostTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PostTransactionRequest) ToUseCaseInput(accountID string, kind domain.TransactionKind) usecase.PostInput {
	return usecase.PostInput{
		AccountID:   accountID,
		Kind:        kind,
		Amount:      r.Amount,
		Description: r.Description,
	}
}
