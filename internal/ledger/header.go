package ledger

import (
	"errors"
	"fmt"
	"strings"

	"budgetboard/internal/core"
)

// ErrMissingColumn is returned when a header row lacks a required column.
var ErrMissingColumn = errors.New("missing ledger column")

// Column aliases accepted in header rows, matched case-insensitively.
var columnAliases = map[string]string{
	"date":     "date",
	"日期":       "date",
	"amount":   "amount",
	"金额":       "amount",
	"category": "category",
	"分类":       "category",
	"payer":    "payer",
	"支付人":      "payer",
}

// Columns holds the index of every required field in a row.
type Columns struct {
	Date, Amount, Category, Payer int
}

// DefaultColumns is the positional layout used when a source has no header.
var DefaultColumns = Columns{Date: 0, Amount: 1, Category: 2, Payer: 3}

// MapHeader resolves the column positions from a header row.
func MapHeader(header []string) (Columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := columnAliases[name]; ok {
			if _, dup := idx[field]; !dup {
				idx[field] = i
			}
		}
	}
	var missing []string
	for _, field := range []string{"date", "amount", "category", "payer"} {
		if _, ok := idx[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return Columns{Date: idx["date"], Amount: idx["amount"], Category: idx["category"], Payer: idx["payer"]}, nil
}

// Record extracts a raw record from a row. Short rows yield empty fields,
// which normalization reports as malformed.
func (c Columns) Record(row int, fields []string) core.RawRecord {
	at := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return core.RawRecord{
		Row:      row,
		Date:     at(c.Date),
		Amount:   at(c.Amount),
		Category: at(c.Category),
		Payer:    at(c.Payer),
	}
}

// BlankRow reports whether every field of a row is empty.
func BlankRow(fields []string) bool {
	for _, f := range fields {
		if !core.IsBlank(f) {
			return false
		}
	}
	return true
}
