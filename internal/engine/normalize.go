package engine

import (
	"strings"
	"time"

	"budgetboard/internal/core"
)

// Layouts accepted for the ledger date column, tried in order. The 1 and 2
// verbs take both padded and unpadded months and days, as spreadsheet
// exports often drop the leading zero.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	"2006-1-2 15:04",
	"2006/1/2 15:04",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	time.RFC3339,
}

// Normalize validates raw records and derives their day and month fields.
// It stops at the first malformed record and returns it as a *core.RecordError.
func Normalize(records []core.RawRecord) ([]core.Transaction, error) {
	txs, _, err := normalize(records, false)
	return txs, err
}

func normalize(records []core.RawRecord, skipMalformed bool) ([]core.Transaction, []core.RecordError, error) {
	out := make([]core.Transaction, 0, len(records))
	var skipped []core.RecordError
	for i, rec := range records {
		tx, rerr := normalizeRecord(i, rec)
		if rerr != nil {
			if !skipMalformed {
				return nil, nil, rerr
			}
			skipped = append(skipped, *rerr)
			continue
		}
		out = append(out, tx)
	}
	return out, skipped, nil
}

func normalizeRecord(index int, rec core.RawRecord) (core.Transaction, *core.RecordError) {
	row := rec.Row
	if row == 0 {
		row = index + 1
	}
	fail := func(field, value string, err error) *core.RecordError {
		return &core.RecordError{Row: row, Field: field, Value: value, Err: err}
	}

	date, err := parseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, fail("date", rec.Date, err)
	}
	amount, err := core.ParseAmount(rec.Amount)
	if err != nil {
		return core.Transaction{}, fail("amount", rec.Amount, err)
	}
	if core.IsBlank(rec.Category) {
		return core.Transaction{}, fail("category", rec.Category, core.ErrEmptyCategory)
	}
	if core.IsBlank(rec.Payer) {
		return core.Transaction{}, fail("payer", rec.Payer, core.ErrEmptyPayer)
	}

	return core.Transaction{
		Date:     date,
		Day:      date.Truncate(),
		Month:    date.MonthKey(),
		Amount:   amount,
		Category: rec.Category,
		Payer:    rec.Payer,
	}, nil
}

func parseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, core.ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}, nil
		}
	}
	return core.Date{}, core.ErrInvalidDate
}
