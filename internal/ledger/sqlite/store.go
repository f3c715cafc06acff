// Package sqlite persists the ledger in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"budgetboard/internal/core"
	"budgetboard/internal/ledger"
	"budgetboard/internal/log"

	_ "modernc.org/sqlite"
)

type Store struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func New(dbPath string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:      db,
		queries: NewQueries(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Append implements ledger.Writer
func (s *Store) Append(ctx context.Context, tx core.Transaction) (string, error) {
	id, err := s.queries.CreateTransaction(ctx, params(tx))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		log.FieldOperation, log.OpAppend,
		"category", tx.Category,
		"payer", tx.Payer,
		"amount", tx.Amount.String())

	return strconv.FormatInt(id, 10), nil
}

// Import stores a batch atomically; either every transaction lands or none.
func (s *Store) Import(ctx context.Context, txs []core.Transaction) (int, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer dbtx.Rollback()

	q := s.queries.WithTx(dbtx)
	for i, tx := range txs {
		if _, err := q.CreateTransaction(ctx, params(tx)); err != nil {
			return 0, fmt.Errorf("import transaction %d: %w", i+1, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	s.logger.InfoContext(ctx, "Transactions imported",
		log.FieldOperation, log.OpImport,
		log.FieldTransactions, len(txs))
	return len(txs), nil
}

// Snapshot implements ledger.Source. All rows are read inside one
// transaction so a concurrent import is either fully visible or not at all.
func (s *Store) Snapshot(ctx context.Context) ([]core.RawRecord, error) {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer dbtx.Rollback()

	rows, err := s.queries.WithTx(dbtx).ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.RawRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.RawRecord{
			Row:      int(r.ID),
			Date:     r.OccurredAt,
			Amount:   r.Amount,
			Category: r.Category,
			Payer:    r.Payer,
		})
	}
	return out, nil
}

// Count returns the number of stored transactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.queries.CountTransactions(ctx)
}

func params(tx core.Transaction) CreateTransactionParams {
	raw := ledger.ToRaw(0, tx)
	return CreateTransactionParams{
		OccurredAt: raw.Date,
		Amount:     raw.Amount,
		Category:   raw.Category,
		Payer:      raw.Payer,
	}
}
