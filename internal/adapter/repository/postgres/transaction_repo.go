package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/infrastructure/postgres/generated"
	"github.com/iho/moneyledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// Create appends a posting inside tx.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, transaction *domain.Transaction) error {
	ptx, err := pgxTx(tx)
	if err != nil {
		return err
	}

	err = r.queries.WithTx(ptx).CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:          transaction.ID,
		AccountID:   transaction.AccountID,
		Kind:        string(transaction.Kind),
		Amount:      decimalToNumeric(transaction.Amount),
		Description: optionalText(transaction.Description),
		CreatedAt:   timeToPgTimestamptz(transaction.CreatedAt),
	})

	return mapError(err)
}

// List returns one page of postings and the total matching the filter.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, int64, error) {
	var kind pgtype.Text
	if filter.Kind != nil {
		kind = pgtype.Text{String: string(*filter.Kind), Valid: true}
	}

	from := optionalTimestamptz(filter.From)
	to := optionalTimestamptz(filter.To)

	total, err := r.queries.CountTransactions(ctx, generated.CountTransactionsParams{
		AccountID: filter.AccountID,
		Kind:      kind,
		FromTime:  from,
		ToTime:    to,
	})
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.queries.ListTransactions(ctx, generated.ListTransactionsParams{
		AccountID: filter.AccountID,
		Kind:      kind,
		FromTime:  from,
		ToTime:    to,
		Limit:     int32(filter.Limit),
		Offset:    int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, err
	}

	return rowsToTransactions(rows), total, nil
}

// ListAllByAccount returns every posting of the account, oldest first.
func (r *TransactionRepository) ListAllByAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListAllTransactionsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return rowsToTransactions(rows), nil
}

// Summarize reads the balance and both totals in a single statement, so they
// come from one snapshot even under READ COMMITTED.
func (r *TransactionRepository) Summarize(ctx context.Context, accountID string) (*domain.Summary, error) {
	row, err := r.queries.GetAccountSummary(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	return &domain.Summary{
		Balance:      numericToDecimal(row.Balance),
		TotalCredits: numericToDecimal(row.TotalCredits),
		TotalDebits:  numericToDecimal(row.TotalDebits),
	}, nil
}

func rowsToTransactions(rows []generated.Transaction) []*domain.Transaction {
	transactions := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, &domain.Transaction{
			ID:          row.ID,
			AccountID:   row.AccountID,
			Kind:        domain.TransactionKind(row.Kind),
			Amount:      numericToDecimal(row.Amount),
			Description: textPtr(row.Description),
			CreatedAt:   row.CreatedAt.Time,
		})
	}
	return transactions
}
