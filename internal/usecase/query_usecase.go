package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/infrastructure/metrics"
)

// QueryUseCase serves the read side: listings, summaries and balance history.
// It never takes the account lock.
type QueryUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	summaryCache    *SummaryCache
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	summaryCache *SummaryCache,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *QueryUseCase {
	return &QueryUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		summaryCache:    summaryCache,
		metrics:         metrics,
		logger:          logger,
	}
}

// ListTransactionsInput represents input for listing postings.
type ListTransactionsInput struct {
	Kind      *domain.TransactionKind
	From      *time.Time
	To        *time.Time
	AccountID string
	Limit     int
	Offset    int
}

// TransactionPage is one page of postings plus the filtered total.
type TransactionPage struct {
	Data   []*domain.Transaction
	Total  int64
	Limit  int
	Offset int
}

// ListTransactions lists postings of one account, newest first.
func (uc *QueryUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) (*TransactionPage, error) {
	if input.Kind != nil && !input.Kind.IsValid() {
		return nil, domain.ErrInvalidKind
	}

	if err := domain.ValidateDateRange(input.From, input.To); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	transactions, total, err := uc.transactionRepo.List(ctx, domain.TransactionFilter{
		AccountID: input.AccountID,
		Kind:      input.Kind,
		From:      input.From,
		To:        input.To,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}

	if transactions == nil {
		transactions = []*domain.Transaction{}
	}

	return &TransactionPage{
		Data:   transactions,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// AccountSummary returns balance, total credits and total debits of an account.
// Cache failures degrade to a recomputation.
func (uc *QueryUseCase) AccountSummary(ctx context.Context, accountID string) (*domain.Summary, error) {
	if uc.summaryCache != nil {
		summary, ok, err := uc.summaryCache.Get(ctx, accountID)
		if err != nil {
			uc.logger.Warn().Err(err).Str("account_id", accountID).Msg("summary cache read failed")
		}
		if ok {
			uc.recordCache(true)
			return summary, nil
		}
		uc.recordCache(false)
	}

	summary, err := uc.transactionRepo.Summarize(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if uc.summaryCache != nil {
		if err := uc.summaryCache.Set(ctx, accountID, summary); err != nil {
			uc.logger.Warn().Err(err).Str("account_id", accountID).Msg("summary cache write failed")
		}
	}

	return summary, nil
}

// BalanceHistory reconstructs the running balance after each posting, oldest first.
func (uc *QueryUseCase) BalanceHistory(ctx context.Context, accountID string) ([]domain.BalanceHistoryPoint, error) {
	transactions, err := uc.transactionRepo.ListAllByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return domain.BuildBalanceHistory(transactions), nil
}

func (uc *QueryUseCase) recordCache(hit bool) {
	if uc.metrics == nil {
		return
	}

	if hit {
		uc.metrics.SummaryCacheHits.Inc()
		return
	}
	uc.metrics.SummaryCacheMisses.Inc()
}
