// Package view shapes a metrics bundle into the chart-ready JSON served to
// the dashboard front end and printed by the report command.
package view

import (
	"github.com/shopspring/decimal"

	"budgetboard/internal/core"
)

// Budget status values.
const (
	StatusWithin = "within"
	StatusOver   = "over"
)

// Reference line names.
const (
	LineIdeal    = "ideal"
	LineMax      = "max"
	LinePerPayer = "per_payer"
)

var hundred = decimal.NewFromInt(100)

type Dashboard struct {
	Summary      Summary      `json:"summary"`
	Progress     Progress     `json:"progress"`
	Categories   []Slice      `json:"categories"`
	Daily        []Point      `json:"daily"`
	Monthly      LineChart    `json:"monthly"`
	Payers       PayerChart   `json:"payers"`
	Transactions int          `json:"transactions"`
	Skipped      []SkippedRow `json:"skipped,omitempty"`
}

type Summary struct {
	TotalExpense string `json:"total_expense"`
	IdealBudget  string `json:"ideal_budget"`
	MaxBudget    string `json:"max_budget"`
	OverAmount   string `json:"over_amount"`
	Status       string `json:"status"`
}

// Progress drives the budget usage bar. Width is clamped to [0, 100] while
// UsagePercent keeps the real value.
type Progress struct {
	UsagePercent string  `json:"usage_percent"`
	Width        float64 `json:"width"`
	Label        string  `json:"label"`
	Status       string  `json:"status"`
}

type Slice struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type Point struct {
	X      string `json:"x"`
	Amount string `json:"amount"`
}

type ReferenceLine struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Dash  string `json:"dash"`
}

type LineChart struct {
	Points []Point         `json:"points"`
	Lines  []ReferenceLine `json:"reference_lines"`
}

// PayerBar is one stacked segment. Label is set on exactly one segment per
// payer and carries the payer's total.
type PayerBar struct {
	Payer    string `json:"payer"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Label    string `json:"label,omitempty"`
}

type PayerChart struct {
	Bars   []PayerBar      `json:"bars"`
	Totals []Slice         `json:"totals"`
	Lines  []ReferenceLine `json:"reference_lines"`
}

type SkippedRow struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
	Error string `json:"error"`
}

// FromBundle builds the view for b.
func FromBundle(b core.Bundle) Dashboard {
	status := StatusWithin
	if b.OverBudget() {
		status = StatusOver
	}
	usage := b.UsagePercent.Round(1)

	d := Dashboard{
		Summary: Summary{
			TotalExpense: core.FormatAmount(b.TotalExpense),
			IdealBudget:  core.FormatAmount(b.IdealBudget),
			MaxBudget:    core.FormatAmount(b.MaxBudget),
			OverAmount:   core.FormatAmount(b.OverAmount),
			Status:       status,
		},
		Progress: Progress{
			UsagePercent: usage.StringFixed(1),
			Width:        clampPercent(b.UsagePercent).Round(1).InexactFloat64(),
			Label:        usage.StringFixed(1) + " % used",
			Status:       status,
		},
		Categories:   make([]Slice, 0, len(b.CategoryBreakdown)),
		Daily:        make([]Point, 0, len(b.DailySeries)),
		Transactions: b.Transactions,
	}

	for _, c := range b.CategoryBreakdown {
		d.Categories = append(d.Categories, Slice{Label: c.Category, Amount: core.FormatAmount(c.Amount)})
	}
	for _, p := range b.DailySeries {
		d.Daily = append(d.Daily, Point{X: p.Day.DayKey(), Amount: core.FormatAmount(p.Amount)})
	}

	d.Monthly.Points = make([]Point, 0, len(b.MonthlySeries))
	for _, m := range b.MonthlySeries {
		d.Monthly.Points = append(d.Monthly.Points, Point{X: m.Month, Amount: core.FormatAmount(m.Amount)})
	}
	d.Monthly.Lines = []ReferenceLine{
		{Name: LineIdeal, Value: core.FormatAmount(b.IdealBudget), Dash: "dot"},
		{Name: LineMax, Value: core.FormatAmount(b.MaxBudget), Dash: "dash"},
	}

	d.Payers.Bars = make([]PayerBar, 0, len(b.PayerCategoryBreakdown))
	for _, c := range b.PayerCategoryBreakdown {
		bar := PayerBar{Payer: c.Payer, Category: c.Category, Amount: core.FormatAmount(c.Amount)}
		if c.Annotated() {
			bar.Label = core.FormatAmount(*c.Annotation)
		}
		d.Payers.Bars = append(d.Payers.Bars, bar)
	}
	d.Payers.Totals = make([]Slice, 0, len(b.PayerTotal))
	for _, p := range b.PayerTotal {
		d.Payers.Totals = append(d.Payers.Totals, Slice{Label: p.Payer, Amount: core.FormatAmount(p.Amount)})
	}
	d.Payers.Lines = []ReferenceLine{}
	if !b.NoPayers && b.PerPayerBudget != nil {
		d.Payers.Lines = append(d.Payers.Lines, ReferenceLine{
			Name: LinePerPayer, Value: core.FormatAmount(*b.PerPayerBudget), Dash: "dot",
		})
	}

	for _, s := range b.Skipped {
		d.Skipped = append(d.Skipped, SkippedRow{Row: s.Row, Field: s.Field, Value: s.Value, Error: s.Err.Error()})
	}
	return d
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(p, decimal.Zero), hundred)
}
