// Package engine turns a ledger snapshot into the figures the budget dashboard shows.
//
// A pass runs Normalize, Aggregate, Evaluate and Highlight in that order.
// Nothing is kept between passes: the same records and budget always give
// the same bundle.
package engine

import (
	"budgetboard/internal/core"
)

// Options tune how a pass treats malformed records.
type Options struct {
	// SkipMalformed drops bad rows and reports them in Bundle.Skipped
	// instead of failing the whole pass.
	SkipMalformed bool
}

// Compute runs a full aggregation pass, aborting on the first malformed record.
func Compute(records []core.RawRecord, budget core.Budget) (core.Bundle, error) {
	return ComputeWithOptions(records, budget, Options{})
}

// ComputeWithOptions runs a full aggregation pass. The budget is checked
// before any record is read. On error no partial bundle is returned.
func ComputeWithOptions(records []core.RawRecord, budget core.Budget, opts Options) (core.Bundle, error) {
	if err := budget.Validate(); err != nil {
		return core.Bundle{}, err
	}

	txs, skipped, err := normalize(records, opts.SkipMalformed)
	if err != nil {
		return core.Bundle{}, err
	}

	agg := Aggregate(txs)
	ev, err := Evaluate(agg.Total, budget, len(agg.PayerTotals))
	if err != nil {
		return core.Bundle{}, err
	}

	return core.Bundle{
		TotalExpense:           agg.Total,
		UsagePercent:           ev.UsagePercent,
		OverAmount:             ev.OverAmount,
		IdealBudget:            budget.Ideal,
		MaxBudget:              budget.Max,
		PerPayerBudget:         ev.PerPayerBudget,
		NoPayers:               ev.NoPayers,
		CategoryBreakdown:      agg.Categories,
		DailySeries:            agg.Daily,
		MonthlySeries:          agg.Monthly,
		PayerCategoryBreakdown: Highlight(agg.PayerCategories, agg.PayerTotals),
		PayerTotal:             agg.PayerTotals,
		Transactions:           len(txs),
		Skipped:                skipped,
	}, nil
}
