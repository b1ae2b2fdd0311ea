package integration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

func TestConcurrentPostings(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	t.Run("100 concurrent debits from same account no overdraft", func(t *testing.T) {
		f.db.TruncateAll(ctx)

		account := f.db.CreateTestAccount(ctx, "user-1")
		if _, err := f.ledgerUC.Credit(ctx, account.ID, decimal.NewFromInt(500), nil); err != nil {
			t.Fatalf("seed credit failed: %v", err)
		}

		numDebits := 100
		debitAmount := decimal.NewFromInt(10)

		var (
			wg           sync.WaitGroup
			successCount atomic.Int32
			fundsErrors  atomic.Int32
			otherErrors  atomic.Int32
		)

		wg.Add(numDebits)

		for range numDebits {
			go func() {
				defer wg.Done()

				_, err := f.ledgerUC.Debit(ctx, account.ID, debitAmount, nil)
				switch {
				case err == nil:
					successCount.Add(1)
				case errors.Is(err, domain.ErrInsufficientFunds):
					fundsErrors.Add(1)
				default:
					otherErrors.Add(1)
				}
			}()
		}

		wg.Wait()

		// Exactly 50 fit into 500
		if successCount.Load() != 50 {
			t.Errorf("expected 50 successful debits, got %d (insufficient: %d, other: %d)",
				successCount.Load(), fundsErrors.Load(), otherErrors.Load())
		}
		if otherErrors.Load() != 0 {
			t.Errorf("unexpected errors: %d", otherErrors.Load())
		}

		stored, _ := f.accountRepo.GetByID(ctx, account.ID)
		if !stored.Balance.IsZero() {
			t.Errorf("expected zero balance, got %s", stored.Balance)
		}

		result, err := f.reconUC.ReconcileAccount(ctx, account.ID)
		if err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if !result.IsReconciled {
			t.Errorf("account drifted: recorded %s calculated %s", result.RecordedBalance, result.CalculatedBalance)
		}
	})

	t.Run("concurrent credits and debits keep history consistent", func(t *testing.T) {
		f.db.TruncateAll(ctx)

		account := f.db.CreateTestAccount(ctx, "user-1")
		if _, err := f.ledgerUC.Credit(ctx, account.ID, decimal.NewFromInt(100), nil); err != nil {
			t.Fatalf("seed credit failed: %v", err)
		}

		var wg sync.WaitGroup

		wg.Add(100)

		for i := range 100 {
			go func() {
				defer wg.Done()

				kind := domain.TransactionKindCredit
				if i%2 == 1 {
					kind = domain.TransactionKindDebit
				}
				_, _ = f.ledgerUC.Post(ctx, usecase.PostInput{AccountID: account.ID, Kind: kind, Amount: decimal.NewFromInt(3)})
			}()
		}

		wg.Wait()

		points, err := f.queryUC.BalanceHistory(ctx, account.ID)
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		for _, p := range points {
			if p.RunningBalance.IsNegative() {
				t.Fatalf("running balance went negative at %s", p.TransactionID)
			}
		}

		stored, _ := f.accountRepo.GetByID(ctx, account.ID)
		last := points[len(points)-1].RunningBalance
		if !stored.Balance.Equal(last) {
			t.Errorf("stored balance %s does not match history %s", stored.Balance, last)
		}
	})

	t.Run("postings on different accounts do not block each other", func(t *testing.T) {
		f.db.TruncateAll(ctx)

		accounts := make([]*domain.Account, 10)
		for i := range accounts {
			accounts[i] = f.db.CreateTestAccount(ctx, "user-1")
		}

		var (
			wg     sync.WaitGroup
			failed atomic.Int32
		)

		wg.Add(len(accounts) * 10)

		for _, acc := range accounts {
			for range 10 {
				go func() {
					defer wg.Done()

					if _, err := f.ledgerUC.Credit(ctx, acc.ID, decimal.NewFromInt(1), nil); err != nil {
						failed.Add(1)
					}
				}()
			}
		}

		wg.Wait()

		if failed.Load() != 0 {
			t.Fatalf("%d credits failed", failed.Load())
		}

		report, err := f.reconUC.ReconcileUserAccounts(ctx, "user-1")
		if err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if report.ReconciledAccounts != len(accounts) {
			t.Errorf("expected %d reconciled accounts, got %d", len(accounts), report.ReconciledAccounts)
		}
	})
}
