package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the derived aggregate for one account. It is never authoritative.
type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
}

// BalanceHistoryPoint is the running balance right after one posting.
type BalanceHistoryPoint struct {
	CreatedAt      time.Time
	TransactionID  string
	Kind           TransactionKind
	Amount         decimal.Decimal
	RunningBalance decimal.Decimal
}

// BuildBalanceHistory walks postings in the given (chronological) order and
// returns one point per posting with the cumulative signed sum starting at 0.
func BuildBalanceHistory(txs []*Transaction) []BalanceHistoryPoint {
	points := make([]BalanceHistoryPoint, 0, len(txs))
	running := decimal.Zero

	for _, tx := range txs {
		running = running.Add(tx.Signed())
		points = append(points, BalanceHistoryPoint{
			TransactionID:  tx.ID,
			Kind:           tx.Kind,
			Amount:         tx.Amount,
			RunningBalance: running,
			CreatedAt:      tx.CreatedAt,
		})
	}

	return points
}
