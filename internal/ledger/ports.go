// Package ledger defines where raw transaction records come from and the
// helpers shared by the concrete sources.
package ledger

import (
	"context"
	"errors"

	"budgetboard/internal/core"
)

// ErrReadOnly is returned when a write is attempted against a source that
// cannot store transactions.
var ErrReadOnly = errors.New("ledger is read-only")

// Ports for ledger adapters.
type (
	// Source returns one consistent snapshot of the ledger. Records carry
	// their source row so malformed input can be traced back.
	Source interface {
		Snapshot(ctx context.Context) ([]core.RawRecord, error)
	}

	// Writer stores a normalized transaction and returns a row reference.
	Writer interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// Importer stores a batch of transactions atomically.
	Importer interface {
		Import(ctx context.Context, txs []core.Transaction) (int, error)
	}

	// ReadWriter is a source that also accepts new transactions.
	ReadWriter interface {
		Source
		Writer
	}
)

// DateLayout is the layout used when a transaction is written back as text.
const DateLayout = "2006-01-02T15:04:05Z07:00"

// ToRaw renders a normalized transaction as the raw record a source would
// return for it.
func ToRaw(row int, tx core.Transaction) core.RawRecord {
	return core.RawRecord{
		Row:      row,
		Date:     tx.Date.Format(DateLayout),
		Amount:   tx.Amount.String(),
		Category: tx.Category,
		Payer:    tx.Payer,
	}
}
