package integration

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/moneyledger/internal/adapter/repository/memory"
	"github.com/iho/moneyledger/internal/adapter/repository/postgres"
	"github.com/iho/moneyledger/internal/usecase"
	"github.com/iho/moneyledger/tests/testutil"
)

type ledgerFixture struct {
	db          *testutil.TestDB
	accountRepo *postgres.AccountRepository
	txRepo      *postgres.TransactionRepository
	summaries   *usecase.SummaryCache
	accountUC   *usecase.AccountUseCase
	ledgerUC    *usecase.LedgerUseCase
	queryUC     *usecase.QueryUseCase
	reconUC     *usecase.ReconciliationUseCase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.NewTestDB(t)
	t.Cleanup(db.Cleanup)

	cache, err := memory.NewCache(1024)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	accountRepo := postgres.NewAccountRepository(db.Pool)
	txRepo := postgres.NewTransactionRepository(db.Pool)
	txManager := postgres.NewTxManager(db.Pool, 5*time.Second)
	idGen := postgres.NewULIDGenerator()
	summaries := usecase.NewSummaryCache(cache, 30*time.Second)

	return &ledgerFixture{
		db:          db,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		summaries:   summaries,
		accountUC:   usecase.NewAccountUseCase(accountRepo, idGen, nil),
		ledgerUC:    usecase.NewLedgerUseCase(txManager, accountRepo, txRepo, idGen, summaries, usecase.WithLockTimeout(5*time.Second)),
		queryUC:     usecase.NewQueryUseCase(accountRepo, txRepo, summaries, nil, zerolog.Nop()),
		reconUC:     usecase.NewReconciliationUseCase(accountRepo, txRepo),
	}
}

func redisURL() string {
	return os.Getenv("REDIS_URL")
}
