package engine

import (
	"github.com/shopspring/decimal"

	"budgetboard/internal/core"
)

// Highlight returns a copy of cells where, for every payer, exactly one cell
// carries the payer's total as its annotation.
//
// The annotated cell is the payer's largest category. Ties go to the
// category whose name sorts first byte-wise, whatever order cells arrive in.
// A payer missing from totals is annotated with the sum of its cells.
func Highlight(cells []core.PayerCategoryAmount, totals []core.PayerAmount) []core.PayerCategoryAmount {
	out := make([]core.PayerCategoryAmount, len(cells))
	best := map[string]int{}
	sums := map[string]decimal.Decimal{}
	for i, c := range cells {
		c.Annotation = nil
		out[i] = c
		sums[c.Payer] = sums[c.Payer].Add(c.Amount)

		j, seen := best[c.Payer]
		if !seen || beats(c, out[j]) {
			best[c.Payer] = i
		}
	}

	payerTotal := make(map[string]decimal.Decimal, len(totals))
	for _, t := range totals {
		payerTotal[t.Payer] = t.Amount
	}
	for payer, i := range best {
		total, ok := payerTotal[payer]
		if !ok {
			total = sums[payer]
		}
		out[i].Annotation = &total
	}
	return out
}

func beats(c, current core.PayerCategoryAmount) bool {
	switch c.Amount.Cmp(current.Amount) {
	case 1:
		return true
	case 0:
		return c.Category < current.Category
	}
	return false
}
