package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions
WHERE account_id = $1
  AND ($2::text IS NULL OR kind = $2::text)
  AND ($3::timestamptz IS NULL OR created_at >= $3::timestamptz)
  AND ($4::timestamptz IS NULL OR created_at <= $4::timestamptz)
`

type CountTransactionsParams struct {
	AccountID string             `json:"account_id"`
	Kind      pgtype.Text        `json:"kind"`
	FromTime  pgtype.Timestamptz `json:"from_time"`
	ToTime    pgtype.Timestamptz `json:"to_time"`
}

func (q *Queries) CountTransactions(ctx context.Context, arg CountTransactionsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countTransactions,
		arg.AccountID,
		arg.Kind,
		arg.FromTime,
		arg.ToTime,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, account_id, kind, amount, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateTransactionParams struct {
	ID          string             `json:"id"`
	AccountID   string             `json:"account_id"`
	Kind        string             `json:"kind"`
	Amount      pgtype.Numeric     `json:"amount"`
	Description pgtype.Text        `json:"description"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.Exec(ctx, createTransaction,
		arg.ID,
		arg.AccountID,
		arg.Kind,
		arg.Amount,
		arg.Description,
		arg.CreatedAt,
	)
	return err
}

const getAccountSummary = `-- name: GetAccountSummary :one
SELECT a.balance,
       COALESCE(SUM(t.amount) FILTER (WHERE t.kind = 'CREDIT'), 0)::numeric AS total_credits,
       COALESCE(SUM(t.amount) FILTER (WHERE t.kind = 'DEBIT'), 0)::numeric AS total_debits
FROM accounts a
LEFT JOIN transactions t ON t.account_id = a.id
WHERE a.id = $1
GROUP BY a.id, a.balance
`

type GetAccountSummaryRow struct {
	Balance      pgtype.Numeric `json:"balance"`
	TotalCredits pgtype.Numeric `json:"total_credits"`
	TotalDebits  pgtype.Numeric `json:"total_debits"`
}

func (q *Queries) GetAccountSummary(ctx context.Context, id string) (GetAccountSummaryRow, error) {
	row := q.db.QueryRow(ctx, getAccountSummary, id)
	var i GetAccountSummaryRow
	err := row.Scan(&i.Balance, &i.TotalCredits, &i.TotalDebits)
	return i, err
}

const listAllTransactionsByAccount = `-- name: ListAllTransactionsByAccount :many
SELECT id, account_id, kind, amount, description, created_at FROM transactions
WHERE account_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListAllTransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listAllTransactionsByAccount, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Kind,
			&i.Amount,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, account_id, kind, amount, description, created_at FROM transactions
WHERE account_id = $1
  AND ($2::text IS NULL OR kind = $2::text)
  AND ($3::timestamptz IS NULL OR created_at >= $3::timestamptz)
  AND ($4::timestamptz IS NULL OR created_at <= $4::timestamptz)
ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6
`

type ListTransactionsParams struct {
	AccountID string             `json:"account_id"`
	Kind      pgtype.Text        `json:"kind"`
	FromTime  pgtype.Timestamptz `json:"from_time"`
	ToTime    pgtype.Timestamptz `json:"to_time"`
	Limit     int32              `json:"limit"`
	Offset    int32              `json:"offset"`
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, listTransactions,
		arg.AccountID,
		arg.Kind,
		arg.FromTime,
		arg.ToTime,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Kind,
			&i.Amount,
			&i.Description,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
