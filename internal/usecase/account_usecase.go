package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/infrastructure/metrics"
)

// AccountUseCase handles account ownership and creation.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator, metrics *metrics.Metrics) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
		metrics:     metrics,
	}
}

// CreateAccount opens a new zero-balance account for userID.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, userID string) (*domain.Account, error) {
	count, err := uc.accountRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if count >= domain.MaxAccountsPerUser {
		return nil, domain.ErrAccountLimitReached
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccountsCreated.Inc()
	}

	return account, nil
}

// GetAccountForUser returns the account only when userID owns it.
func (uc *AccountUseCase) GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.UserID != userID {
		return nil, domain.ErrAccountNotFound
	}

	return account, nil
}

// ListAccountsByUser lists the accounts owned by userID.
func (uc *AccountUseCase) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if accounts == nil {
		accounts = []*domain.Account{}
	}

	return accounts, nil
}
