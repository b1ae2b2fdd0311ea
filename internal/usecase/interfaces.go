package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDForUpdate takes the exclusive per-account lock held until tx ends.
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Tx, id string, balance decimal.Decimal, updatedAt time.Time) error
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Account, error)
}

// TransactionRepository defines data access for postings.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, transaction *domain.Transaction) error
	// List returns one page ordered by created_at descending and the filtered total.
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int64, error)
	// ListAllByAccount returns every posting of the account in ascending order.
	ListAllByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error)
	// Summarize reads the stored balance and both per-kind totals from one
	// consistent snapshot. A missing account yields domain.ErrAccountNotFound.
	Summarize(ctx context.Context, accountID string) (*domain.Summary, error)
}

// Tx represents a database transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// EventPublisher delivers posting notifications to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.TransactionPostedEvent) error
}
