package sheets

import (
	"fmt"

	"budgetboard/internal/core"
	"budgetboard/internal/ledger"
)

// parseValues converts a values matrix (as returned by the Sheets API) into
// raw records. The first row is the header; Row is the 1-based sheet row.
func parseValues(values [][]interface{}) ([]core.RawRecord, error) {
	out := []core.RawRecord{}
	if len(values) == 0 {
		return out, nil
	}
	cols, err := ledger.MapHeader(toStrings(values[0]))
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if ledger.BlankRow(row) {
			continue
		}
		out = append(out, cols.Record(i+1, row))
	}
	return out, nil
}

// rowValues lays out a record in the column order of the sheet.
func rowValues(cols ledger.Columns, r core.RawRecord) []any {
	width := max(cols.Date, cols.Amount, cols.Category, cols.Payer) + 1
	row := make([]any, width)
	for i := range row {
		row[i] = ""
	}
	row[cols.Date] = r.Date
	row[cols.Amount] = r.Amount
	row[cols.Category] = r.Category
	row[cols.Payer] = r.Payer
	return row
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}
