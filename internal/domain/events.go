package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeTransactionPosted = "transaction.posted"
)

// TransactionPostedEvent is emitted after a posting has been committed.
type TransactionPostedEvent struct {
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	Balance       string    `json:"balance"`
	Description   *string   `json:"description,omitempty"`
	EventAt       time.Time `json:"event_at"`
}

// NewTransactionPostedEvent builds the event for a committed posting.
func NewTransactionPostedEvent(tx *Transaction, balance decimal.Decimal) *TransactionPostedEvent {
	return &TransactionPostedEvent{
		EventType:     EventTypeTransactionPosted,
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		Kind:          string(tx.Kind),
		Amount:        tx.Amount.String(),
		Balance:       balance.String(),
		Description:   tx.Description,
		EventAt:       tx.CreatedAt,
	}
}
