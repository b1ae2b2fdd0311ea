package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/infrastructure/metrics"
)

// LedgerUseCase posts credits and debits against single accounts.
type LedgerUseCase struct {
	txManager       TransactionManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
	summaryCache    *SummaryCache
	publisher       EventPublisher
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	lockTimeout     time.Duration
}

// LedgerOption configures a LedgerUseCase.
type LedgerOption func(*LedgerUseCase)

// WithEventPublisher sets the publisher notified after each committed posting.
func WithEventPublisher(publisher EventPublisher) LedgerOption {
	return func(uc *LedgerUseCase) {
		uc.publisher = publisher
	}
}

// WithLedgerMetrics sets the metrics sink.
func WithLedgerMetrics(m *metrics.Metrics) LedgerOption {
	return func(uc *LedgerUseCase) {
		uc.metrics = m
	}
}

// WithLedgerLogger sets the logger used for post-commit degradations.
func WithLedgerLogger(logger zerolog.Logger) LedgerOption {
	return func(uc *LedgerUseCase) {
		uc.logger = logger
	}
}

// WithLockTimeout bounds the wait for the account lock. Non-positive values are ignored.
func WithLockTimeout(timeout time.Duration) LedgerOption {
	return func(uc *LedgerUseCase) {
		if timeout > 0 {
			uc.lockTimeout = timeout
		}
	}
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
	summaryCache *SummaryCache,
	opts ...LedgerOption,
) *LedgerUseCase {
	uc := &LedgerUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
		summaryCache:    summaryCache,
		logger:          zerolog.Nop(),
		lockTimeout:     DefaultLockTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// PostInput represents input for a single posting.
type PostInput struct {
	Description *string
	AccountID   string
	Kind        domain.TransactionKind
	Amount      decimal.Decimal
}

// Credit posts a credit of amount to accountID.
func (uc *LedgerUseCase) Credit(ctx context.Context, accountID string, amount decimal.Decimal, description *string) (*domain.Transaction, error) {
	return uc.Post(ctx, PostInput{
		AccountID:   accountID,
		Kind:        domain.TransactionKindCredit,
		Amount:      amount,
		Description: description,
	})
}

// Debit posts a debit of amount to accountID.
func (uc *LedgerUseCase) Debit(ctx context.Context, accountID string, amount decimal.Decimal, description *string) (*domain.Transaction, error) {
	return uc.Post(ctx, PostInput{
		AccountID:   accountID,
		Kind:        domain.TransactionKindDebit,
		Amount:      amount,
		Description: description,
	})
}

// Post applies one posting atomically: the account row is locked, the balance
// is checked and rewritten, and the posting is appended, all in one database
// transaction. The summary cache is invalidated after commit.
func (uc *LedgerUseCase) Post(ctx context.Context, input PostInput) (*domain.Transaction, error) {
	start := time.Now()

	transaction, balance, err := uc.post(ctx, input)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.PostingErrors.WithLabelValues(string(domain.ErrorKind(err))).Inc()
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PostingsTotal.WithLabelValues(string(transaction.Kind)).Inc()
		uc.metrics.PostingAmount.WithLabelValues(string(transaction.Kind)).Observe(transaction.Amount.InexactFloat64())
		uc.metrics.PostingDuration.Observe(time.Since(start).Seconds())
	}

	uc.invalidateSummary(ctx, transaction.AccountID)
	uc.publish(ctx, transaction, balance)

	return transaction, nil
}

func (uc *LedgerUseCase) post(ctx context.Context, input PostInput) (*domain.Transaction, decimal.Decimal, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, decimal.Zero, err
	}

	if !input.Kind.IsValid() {
		return nil, decimal.Zero, domain.ErrInvalidKind
	}

	txCtx, cancel := context.WithTimeout(ctx, uc.lockTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, decimal.Zero, uc.lockError(ctx, err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock account before reading its balance
	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, input.AccountID)
	if err != nil {
		return nil, decimal.Zero, uc.lockError(ctx, err)
	}

	newBalance, err := account.Apply(input.Kind, input.Amount)
	if err != nil {
		return nil, decimal.Zero, err
	}

	now := time.Now().UTC()

	if err := uc.accountRepo.UpdateBalance(txCtx, tx, account.ID, newBalance, now); err != nil {
		return nil, decimal.Zero, err
	}

	transaction := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		AccountID:   account.ID,
		Kind:        input.Kind,
		Amount:      input.Amount,
		Description: input.Description,
		CreatedAt:   now,
	}

	if err := uc.transactionRepo.Create(txCtx, tx, transaction); err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, decimal.Zero, err
	}

	return transaction, newBalance, nil
}

// lockError reports an expired posting deadline as a lock timeout unless the
// caller's own context is what ran out.
func (uc *LedgerUseCase) lockError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && !errors.Is(err, domain.ErrLockTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	}
	return err
}

func (uc *LedgerUseCase) invalidateSummary(ctx context.Context, accountID string) {
	if uc.summaryCache == nil {
		return
	}

	// The posting is committed, so the eviction must run even if the caller
	// has gone away.
	evictCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), InvalidateTimeout)
	defer cancel()

	status := "ok"
	if err := uc.summaryCache.Invalidate(evictCtx, accountID); err != nil {
		status = "error"
		uc.logger.Warn().
			Err(err).
			Str("account_id", accountID).
			Msg("failed to invalidate summary cache")
	}

	if uc.metrics != nil {
		uc.metrics.SummaryCacheInvalidations.WithLabelValues(status).Inc()
	}
}

func (uc *LedgerUseCase) publish(ctx context.Context, transaction *domain.Transaction, balance decimal.Decimal) {
	if uc.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()

	status := "ok"
	if err := uc.publisher.Publish(pubCtx, domain.NewTransactionPostedEvent(transaction, balance)); err != nil {
		status = "error"
		uc.logger.Warn().
			Err(err).
			Str("account_id", transaction.AccountID).
			Str("transaction_id", transaction.ID).
			Msg("failed to publish posting event")
	}

	if uc.metrics != nil {
		uc.metrics.EventsPublished.WithLabelValues(status).Inc()
	}
}
