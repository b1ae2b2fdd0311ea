package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
)

// ReconciliationUseCase checks stored balances against the posting log.
type ReconciliationUseCase struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(accountRepo AccountRepository, transactionRepo TransactionRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LastChecked       time.Time
	AccountID         string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	TotalCredits      decimal.Decimal
	TotalDebits       decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
}

// ReconcileAccount recomputes credits minus debits and compares it with the stored balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	snapshot, err := uc.transactionRepo.Summarize(ctx, accountID)
	if err != nil {
		return nil, err
	}

	credits, debits := snapshot.TotalCredits, snapshot.TotalDebits
	calculated := credits.Sub(debits)
	difference := snapshot.Balance.Sub(calculated)

	return &ReconciliationResult{
		AccountID:         accountID,
		RecordedBalance:   snapshot.Balance,
		CalculatedBalance: calculated,
		TotalCredits:      credits,
		TotalDebits:       debits,
		Difference:        difference,
		IsReconciled:      difference.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	CheckedAt          time.Time
	Discrepancies      []*ReconciliationResult
	TotalAccounts      int
	ReconciledAccounts int
}

// ReconcileAccounts reconciles each account in ids and collects the discrepancies.
func (uc *ReconciliationUseCase) ReconcileAccounts(ctx context.Context, ids []string) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		TotalAccounts: len(ids),
		Discrepancies: make([]*ReconciliationResult, 0),
	}

	for _, id := range ids {
		result, err := uc.ReconcileAccount(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile account %s: %w", id, err)
		}

		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	report.CheckedAt = time.Now().UTC()

	return report, nil
}

// ReconcileUserAccounts reconciles every account owned by userID.
func (uc *ReconciliationUseCase) ReconcileUserAccounts(ctx context.Context, userID string) (*ReconciliationReport, error) {
	accounts, err := uc.accountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}

	return uc.ReconcileAccounts(ctx, ids)
}
