package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/infrastructure/postgres"
	"github.com/iho/moneyledger/internal/infrastructure/postgres/generated"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

// NewTestDB connects to DATABASE_URL and applies migrations. The test is
// skipped when no database is configured.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	if err := postgres.RunMigrations(dbURL, migrationsPath(), zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{DatabaseURL: dbURL, MaxConns: 50})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
}

// migrationsPath finds the migrations directory from the project root or a
// package directory below it.
func migrationsPath() string {
	for _, p := range []string{
		"internal/infrastructure/postgres/migrations",
		"../../internal/infrastructure/postgres/migrations",
		"../../../internal/infrastructure/postgres/migrations",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "internal/infrastructure/postgres/migrations"
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE transactions CASCADE;
		TRUNCATE TABLE accounts CASCADE;
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateTestAccount creates an empty account owned by userID.
func (db *TestDB) CreateTestAccount(ctx context.Context, userID string) *domain.Account {
	db.t.Helper()
	return db.CreateTestAccountWithBalance(ctx, userID, decimal.Zero)
}

// CreateTestAccountWithBalance creates an account with a stored balance and no
// postings behind it. Such an account does not reconcile unless balance is zero.
func (db *TestDB) CreateTestAccountWithBalance(ctx context.Context, userID string, balance decimal.Decimal) *domain.Account {
	db.t.Helper()

	now := time.Now().UTC()
	id := ulid.Make().String()

	var numericBalance pgtype.Numeric

	_ = numericBalance.Scan(balance.String())

	ts := pgtype.Timestamptz{Time: now, Valid: true}

	err := db.Queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:        id,
		UserID:    userID,
		Balance:   numericBalance,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	if err != nil {
		db.t.Fatalf("failed to create test account: %v", err)
	}

	return &domain.Account{
		ID:        id,
		UserID:    userID,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetBalance overwrites the stored balance without posting, simulating drift.
func (db *TestDB) SetBalance(ctx context.Context, accountID string, balance decimal.Decimal) {
	db.t.Helper()

	if _, err := db.Pool.Exec(ctx, `UPDATE accounts SET balance = $1::numeric WHERE id = $2`, balance.String(), accountID); err != nil {
		db.t.Fatalf("failed to set balance: %v", err)
	}
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}
