package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// DayAmount is one point of the daily series.
type DayAmount struct {
	Day    Date
	Amount decimal.Decimal
}

// MonthAmount is one point of the monthly series.
type MonthAmount struct {
	Month  string // YYYY-MM
	Amount decimal.Decimal
}

// PayerAmount represents an amount aggregated by payer.
type PayerAmount struct {
	Payer  string
	Amount decimal.Decimal
}

// PayerCategoryAmount is one segment of the stacked per-payer chart.
// Annotation is set on exactly one segment per payer and holds the payer's total.
type PayerCategoryAmount struct {
	Payer      string
	Category   string
	Amount     decimal.Decimal
	Annotation *decimal.Decimal
}

func (c PayerCategoryAmount) Annotated() bool {
	return c.Annotation != nil
}

// Bundle is the full output of one aggregation pass.
type Bundle struct {
	TotalExpense decimal.Decimal
	UsagePercent decimal.Decimal // not capped; may exceed 100
	OverAmount   decimal.Decimal

	// Passed through so the monthly chart can draw its reference lines.
	IdealBudget decimal.Decimal
	MaxBudget   decimal.Decimal

	// PerPayerBudget is nil when NoPayers is set.
	PerPayerBudget *decimal.Decimal
	NoPayers       bool

	CategoryBreakdown      []CategoryAmount
	DailySeries            []DayAmount
	MonthlySeries          []MonthAmount
	PayerCategoryBreakdown []PayerCategoryAmount
	PayerTotal             []PayerAmount

	Transactions int
	// Skipped lists rows dropped under the skip-and-report policy.
	Skipped []RecordError
}

// OverBudget reports whether spend went past the max budget.
func (b Bundle) OverBudget() bool {
	return b.OverAmount.IsPositive()
}

// Empty reports whether the pass saw no transactions at all.
func (b Bundle) Empty() bool {
	return b.Transactions == 0
}
