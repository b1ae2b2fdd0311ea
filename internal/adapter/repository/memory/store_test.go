package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceIDs) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return time.Unix(0, int64(s.n)).UTC().Format("20060102150405.000000000")
}

type ledgerHarness struct {
	store    *Store
	accounts *AccountRepository
	postings *TransactionRepository
	cache    *Cache
	ledger   *usecase.LedgerUseCase
	query    *usecase.QueryUseCase
	recon    *usecase.ReconciliationUseCase
}

func newLedgerHarness(t *testing.T) *ledgerHarness {
	t.Helper()

	store := NewStore()
	accounts := NewAccountRepository(store)
	postings := NewTransactionRepository(store)
	cache, err := NewCache(128)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	summaries := usecase.NewSummaryCache(cache, usecase.SummaryCacheTTL)

	return &ledgerHarness{
		store:    store,
		accounts: accounts,
		postings: postings,
		cache:    cache,
		ledger:   usecase.NewLedgerUseCase(NewTxManager(store), accounts, postings, &sequenceIDs{}, summaries),
		query:    usecase.NewQueryUseCase(accounts, postings, summaries, nil, zerolog.Nop()),
		recon:    usecase.NewReconciliationUseCase(accounts, postings),
	}
}

func (h *ledgerHarness) createAccount(t *testing.T, id string, balance decimal.Decimal) {
	t.Helper()

	now := time.Now().UTC()
	if err := h.accounts.Create(context.Background(), &domain.Account{
		ID:        id,
		UserID:    "user-1",
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	if balance.IsPositive() {
		if _, err := h.ledger.Credit(context.Background(), id, balance, nil); err != nil {
			t.Fatalf("failed to fund account: %v", err)
		}
	}
}

func TestLedger_ConcurrentPostingsOnOneAccount(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "acc1", decimal.NewFromInt(1000))

	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers * 2)

	for range workers {
		go func() {
			defer wg.Done()
			if _, err := h.ledger.Credit(ctx, "acc1", decimal.RequireFromString("2.50"), nil); err != nil {
				t.Errorf("credit failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := h.ledger.Debit(ctx, "acc1", decimal.RequireFromString("1.25"), nil); err != nil {
				t.Errorf("debit failed: %v", err)
			}
		}()
	}

	wg.Wait()

	account, err := h.accounts.GetByID(ctx, "acc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1000 + 50*2.50 - 50*1.25
	expected := decimal.RequireFromString("1062.50")
	if !account.Balance.Equal(expected) {
		t.Fatalf("expected balance %s, got %s", expected, account.Balance)
	}

	result, err := h.recon.ReconcileAccount(ctx, "acc1")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected stored balance to equal posting sum, difference %s", result.Difference)
	}
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "acc1", decimal.NewFromInt(100))

	const workers = 20

	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		rejectCount  atomic.Int32
	)
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			_, err := h.ledger.Debit(ctx, "acc1", decimal.NewFromInt(10), nil)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejectCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 10 || rejectCount.Load() != 10 {
		t.Fatalf("expected 10 successes and 10 rejections, got %d and %d", successCount.Load(), rejectCount.Load())
	}

	account, _ := h.accounts.GetByID(ctx, "acc1")
	if !account.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", account.Balance)
	}
}

func TestLedger_DifferentAccountsDoNotContend(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "a", decimal.Zero)
	h.createAccount(t, "b", decimal.Zero)

	// Hold the lock on "a" and post to "b" with a short deadline.
	holder, err := NewTxManager(h.store).Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer func() { _ = holder.Rollback(ctx) }()

	if _, err := h.accounts.GetByIDForUpdate(ctx, holder, "a"); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	fast := usecase.NewLedgerUseCase(
		NewTxManager(h.store), h.accounts, h.postings, &sequenceIDs{}, nil,
		usecase.WithLockTimeout(100*time.Millisecond),
	)

	if _, err := fast.Credit(ctx, "b", decimal.NewFromInt(1), nil); err != nil {
		t.Fatalf("posting to unlocked account failed: %v", err)
	}

	_, err = fast.Credit(ctx, "a", decimal.NewFromInt(1), nil)
	if !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout on locked account, got %v", err)
	}
}

func TestLedger_FailedPostingLeavesNoTrace(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "acc1", decimal.NewFromInt(30))

	if _, err := h.ledger.Debit(ctx, "acc1", decimal.NewFromInt(50), nil); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	account, _ := h.accounts.GetByID(ctx, "acc1")
	if !account.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected balance to stay 30, got %s", account.Balance)
	}

	all, _ := h.postings.ListAllByAccount(ctx, "acc1")
	if len(all) != 1 {
		t.Fatalf("expected only the funding posting, got %d", len(all))
	}

	// The lock must have been released.
	if _, err := h.ledger.Debit(ctx, "acc1", decimal.NewFromInt(30), nil); err != nil {
		t.Fatalf("follow-up debit failed: %v", err)
	}
}

func TestLedger_SummaryCacheInvalidatedOnPost(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "acc1", decimal.NewFromInt(300))

	if _, err := h.ledger.Debit(ctx, "acc1", decimal.NewFromInt(100), nil); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	summary, err := h.query.AccountSummary(ctx, "acc1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !summary.Balance.Equal(decimal.NewFromInt(200)) ||
		!summary.TotalCredits.Equal(decimal.NewFromInt(300)) ||
		!summary.TotalDebits.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if _, err := h.cache.Get(ctx, usecase.SummaryCacheKey("acc1")); err != nil {
		t.Fatalf("expected summary to be cached, got %v", err)
	}

	if _, err := h.ledger.Credit(ctx, "acc1", decimal.NewFromInt(5), nil); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	if _, err := h.cache.Get(ctx, usecase.SummaryCacheKey("acc1")); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected cache miss after posting, got %v", err)
	}

	summary, err = h.query.AccountSummary(ctx, "acc1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if !summary.Balance.Equal(decimal.NewFromInt(205)) {
		t.Fatalf("expected fresh balance 205, got %s", summary.Balance)
	}
}

func TestTx_RollbackAfterCommitIsNoop(t *testing.T) {
	store := NewStore()
	tx, err := NewTxManager(store).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback after commit should be a no-op, got %v", err)
	}
	if err := tx.Commit(context.Background()); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed on second commit, got %v", err)
	}
}

func TestAccountRepository_UpdateRequiresLock(t *testing.T) {
	store := NewStore()
	repo := NewAccountRepository(store)
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.Account{ID: "acc1", UserID: "u"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tx, _ := NewTxManager(store).Begin(ctx)
	defer func() { _ = tx.Rollback(ctx) }()

	err := repo.UpdateBalance(ctx, tx, "acc1", decimal.NewFromInt(10), time.Now())
	if !errors.Is(err, errNotLocked) {
		t.Fatalf("expected errNotLocked, got %v", err)
	}
}

// postingDuringSummary lands a credit on the account right before the
// summary is read, as a concurrent writer would.
type postingDuringSummary struct {
	*TransactionRepository
	post func()
}

func (p *postingDuringSummary) Summarize(ctx context.Context, accountID string) (*domain.Summary, error) {
	p.post()
	return p.TransactionRepository.Summarize(ctx, accountID)
}

func TestReconcile_PostingDuringReconciliationIsNotDrift(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "acc1", decimal.NewFromInt(100))

	racing := &postingDuringSummary{
		TransactionRepository: h.postings,
		post: func() {
			if _, err := h.ledger.Credit(ctx, "acc1", decimal.NewFromInt(7), nil); err != nil {
				t.Errorf("credit failed: %v", err)
			}
		},
	}

	result, err := usecase.NewReconciliationUseCase(h.accounts, racing).ReconcileAccount(ctx, "acc1")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("consistent ledger reported as drifted: recorded %s calculated %s",
			result.RecordedBalance, result.CalculatedBalance)
	}
	if !result.RecordedBalance.Equal(decimal.NewFromInt(107)) {
		t.Fatalf("expected recorded balance 107, got %s", result.RecordedBalance)
	}
}

func TestReconcile_NoFalseDriftUnderLiveTraffic(t *testing.T) {
	h := newLedgerHarness(t)
	ctx := context.Background()
	h.createAccount(t, "acc1", decimal.NewFromInt(1000))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			kind := domain.TransactionKindCredit
			if i%2 == 1 {
				kind = domain.TransactionKindDebit
			}
			_, _ = h.ledger.Post(ctx, usecase.PostInput{AccountID: "acc1", Kind: kind, Amount: decimal.NewFromInt(3)})
		}
	}()

	for range 200 {
		result, err := h.recon.ReconcileAccount(ctx, "acc1")
		if err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if !result.IsReconciled {
			t.Fatalf("false drift: recorded %s calculated %s", result.RecordedBalance, result.CalculatedBalance)
		}
	}

	close(done)
	wg.Wait()
}
