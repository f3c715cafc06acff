package engine

import (
	"github.com/shopspring/decimal"

	"budgetboard/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Evaluation holds the budget figures derived from a total.
type Evaluation struct {
	UsagePercent   decimal.Decimal
	OverAmount     decimal.Decimal
	PerPayerBudget *decimal.Decimal
	NoPayers       bool
}

// Evaluate compares total spend with the budget thresholds.
//
// UsagePercent is measured against the ideal budget and is never capped.
// OverAmount is measured against the max budget. With zero payers the
// per-payer budget is left nil and NoPayers is set.
func Evaluate(total decimal.Decimal, budget core.Budget, payers int) (Evaluation, error) {
	if err := budget.Validate(); err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		UsagePercent: total.Mul(hundred).Div(budget.Ideal),
		OverAmount:   decimal.Max(total.Sub(budget.Max), decimal.Zero),
	}
	if payers <= 0 {
		ev.NoPayers = true
		return ev, nil
	}
	share := budget.Ideal.Div(decimal.NewFromInt(int64(payers)))
	ev.PerPayerBudget = &share
	return ev, nil
}
