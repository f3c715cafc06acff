package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type LedgerTransaction struct {
	ID         int64
	OccurredAt string
	Amount     string
	Category   string
	Payer      string
}

type CreateTransactionParams struct {
	OccurredAt string
	Amount     string
	Category   string
	Payer      string
}

const createTransaction = `
INSERT INTO ledger_transactions (occurred_at, amount, category, payer)
VALUES (?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction, arg.OccurredAt, arg.Amount, arg.Category, arg.Payer).Scan(&id)
	return id, err
}

const listTransactions = `
SELECT id, occurred_at, amount, category, payer
FROM ledger_transactions
ORDER BY id`

func (q *Queries) ListTransactions(ctx context.Context) ([]LedgerTransaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerTransaction{}
	for rows.Next() {
		var i LedgerTransaction
		if err := rows.Scan(&i.ID, &i.OccurredAt, &i.Amount, &i.Category, &i.Payer); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `SELECT COUNT(*) FROM ledger_transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions).Scan(&n)
	return n, err
}
