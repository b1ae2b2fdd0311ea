package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create buffers the posting until the transaction commits.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, transaction *domain.Transaction) error {
	memTx, err := asTx(tx)
	if err != nil {
		return err
	}

	if !memTx.holds(transaction.AccountID) {
		return fmt.Errorf("%w: %s", errNotLocked, transaction.AccountID)
	}

	copied := *transaction

	memTx.mu.Lock()
	defer memTx.mu.Unlock()

	if memTx.closed {
		return ErrTxClosed
	}
	memTx.inserts = append(memTx.inserts, &copied)

	return nil
}

// List returns one page of matching postings, newest first, and the filtered total.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int64, error) {
	matched := make([]*domain.Transaction, 0)
	for _, tx := range r.snapshot(filter.AccountID) {
		if matches(tx, filter) {
			matched = append(matched, tx)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))

	start := max(0, min(filter.Offset, len(matched)))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}

	return matched[start:end], total, nil
}

// ListAllByAccount returns every posting of the account, oldest first.
func (r *TransactionRepository) ListAllByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	all := r.snapshot(accountID)

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return all, nil
}

// Summarize reads the account balance and its totals under one read lock, so a
// commit can never land between them.
func (r *TransactionRepository) Summarize(ctx context.Context, accountID string) (*domain.Summary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	account, ok := r.store.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	summary := &domain.Summary{
		Balance:      account.Balance,
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
	}
	for _, tx := range r.store.transactions[accountID] {
		switch tx.Kind {
		case domain.TransactionKindCredit:
			summary.TotalCredits = summary.TotalCredits.Add(tx.Amount)
		case domain.TransactionKindDebit:
			summary.TotalDebits = summary.TotalDebits.Add(tx.Amount)
		}
	}

	return summary, nil
}

func (r *TransactionRepository) snapshot(accountID string) []*domain.Transaction {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stored := r.store.transactions[accountID]
	out := make([]*domain.Transaction, 0, len(stored))
	for _, tx := range stored {
		copied := *tx
		out = append(out, &copied)
	}

	return out
}

func matches(tx *domain.Transaction, filter domain.TransactionFilter) bool {
	if filter.Kind != nil && tx.Kind != *filter.Kind {
		return false
	}
	if filter.From != nil && tx.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && tx.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}
