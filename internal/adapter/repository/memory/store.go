// Package memory provides in-process account and posting stores.
//
// The per-account pessimistic lock is a weighted semaphore of size one, so a
// waiter honours context cancellation and deadlines. Writes made inside a
// transaction are buffered and applied atomically on Commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/iho/moneyledger/internal/domain"
)

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("memory: transaction already closed")

// Store holds accounts and postings for the memory backend.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	userAccounts map[string][]string
	transactions map[string][]*domain.Transaction

	locksMu sync.Mutex
	locks   map[string]*semaphore.Weighted
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		userAccounts: make(map[string][]string),
		transactions: make(map[string][]*domain.Transaction),
		locks:        make(map[string]*semaphore.Weighted),
	}
}

func (s *Store) lockFor(accountID string) *semaphore.Weighted {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	sem, ok := s.locks[accountID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.locks[accountID] = sem
	}

	return sem
}

func (s *Store) account(id string) (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, false
	}

	copied := *acc
	return &copied, true
}

// Tx buffers writes until Commit and holds the account locks it acquired.
type Tx struct {
	store    *Store
	mu       sync.Mutex
	held     map[string]*semaphore.Weighted
	balances map[string]*domain.Account
	inserts  []*domain.Transaction
	closed   bool
}

func (t *Tx) acquire(ctx context.Context, accountID string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTxClosed
	}
	if _, ok := t.held[accountID]; ok {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	sem := t.store.lockFor(accountID)
	if err := sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
		}
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		sem.Release(1)
		return ErrTxClosed
	}
	t.held[accountID] = sem

	return nil
}

func (t *Tx) holds(accountID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.held[accountID]
	return ok
}

// Commit applies buffered writes and releases every held lock.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTxClosed
	}

	t.store.mu.Lock()
	for id, account := range t.balances {
		t.store.accounts[id] = account
	}
	for _, posting := range t.inserts {
		t.store.transactions[posting.AccountID] = append(t.store.transactions[posting.AccountID], posting)
	}
	t.store.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards buffered writes and releases every held lock.
// Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.release()
	return nil
}

func (t *Tx) release() {
	for _, sem := range t.held {
		sem.Release(1)
	}
	t.held = nil
	t.balances = nil
	t.inserts = nil
	t.closed = true
}

func asTx(tx any) (*Tx, error) {
	memTx, ok := tx.(*Tx)
	if !ok || memTx == nil {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}
	return memTx, nil
}
