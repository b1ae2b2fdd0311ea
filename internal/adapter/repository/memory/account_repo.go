package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

var (
	errDuplicateAccount = errors.New("memory: account already exists")
	errNotLocked        = errors.New("memory: account is not locked by this transaction")
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.accounts[account.ID]; exists {
		return fmt.Errorf("%w: %s", errDuplicateAccount, account.ID)
	}

	copied := *account
	r.store.accounts[account.ID] = &copied
	r.store.userAccounts[account.UserID] = append(r.store.userAccounts[account.UserID], account.ID)

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := r.store.account(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// GetByIDForUpdate locks the account for the lifetime of tx and returns its current state.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Account, error) {
	memTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	if _, ok := r.store.account(id); !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := memTx.acquire(ctx, id); err != nil {
		return nil, err
	}

	memTx.mu.Lock()
	pending, ok := memTx.balances[id]
	memTx.mu.Unlock()
	if ok {
		copied := *pending
		return &copied, nil
	}

	account, ok := r.store.account(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// UpdateBalance buffers the new balance until the transaction commits.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Tx, id string, balance decimal.Decimal, updatedAt time.Time) error {
	memTx, err := asTx(tx)
	if err != nil {
		return err
	}

	if !memTx.holds(id) {
		return fmt.Errorf("%w: %s", errNotLocked, id)
	}

	account, ok := r.store.account(id)
	if !ok {
		return domain.ErrAccountNotFound
	}

	account.Balance = balance
	account.UpdatedAt = updatedAt

	memTx.mu.Lock()
	defer memTx.mu.Unlock()

	if memTx.closed {
		return ErrTxClosed
	}
	memTx.balances[id] = account

	return nil
}

// CountByUser returns how many accounts userID owns.
func (r *AccountRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return len(r.store.userAccounts[userID]), nil
}

// ListByUser lists the accounts owned by userID, oldest first.
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := r.store.userAccounts[userID]
	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		copied := *r.store.accounts[id]
		accounts = append(accounts, &copied)
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})

	return accounts, nil
}
