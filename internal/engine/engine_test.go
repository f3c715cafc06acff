package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetboard/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func budget(ideal, maximum string) core.Budget {
	return core.Budget{Ideal: dec(ideal), Max: dec(maximum)}
}

func rec(date, amount, category, payer string) core.RawRecord {
	return core.RawRecord{Date: date, Amount: amount, Category: category, Payer: payer}
}

func scenarioA() []core.RawRecord {
	return []core.RawRecord{
		rec("2024-01-01", "100", "Food", "Alice"),
		rec("2024-01-02", "50", "Food", "Alice"),
		rec("2024-01-01", "200", "Rent", "Bob"),
	}
}

func categoryMap(b core.Bundle) map[string]string {
	out := map[string]string{}
	for _, c := range b.CategoryBreakdown {
		out[c.Category] = c.Amount.String()
	}
	return out
}

func payerMap(b core.Bundle) map[string]string {
	out := map[string]string{}
	for _, p := range b.PayerTotal {
		out[p.Payer] = p.Amount.String()
	}
	return out
}

func annotated(b core.Bundle) map[string]core.PayerCategoryAmount {
	out := map[string]core.PayerCategoryAmount{}
	for _, c := range b.PayerCategoryBreakdown {
		if c.Annotated() {
			out[c.Payer] = c
		}
	}
	return out
}

func TestComputeScenarioA(t *testing.T) {
	b, err := Compute(scenarioA(), budget("300", "400"))
	require.NoError(t, err)

	assert.Equal(t, "350", b.TotalExpense.String())
	assert.Equal(t, "116.7", b.UsagePercent.Round(1).String())
	assert.True(t, b.OverAmount.IsZero())
	assert.False(t, b.OverBudget())
	assert.Equal(t, map[string]string{"Food": "150", "Rent": "200"}, categoryMap(b))
	assert.Equal(t, map[string]string{"Alice": "150", "Bob": "200"}, payerMap(b))

	hl := annotated(b)
	require.Len(t, hl, 2)
	assert.Equal(t, "Food", hl["Alice"].Category)
	assert.Equal(t, "150", hl["Alice"].Annotation.String())
	assert.Equal(t, "Rent", hl["Bob"].Category)
	assert.Equal(t, "200", hl["Bob"].Annotation.String())

	require.NotNil(t, b.PerPayerBudget)
	assert.Equal(t, "150", b.PerPayerBudget.String())
	assert.False(t, b.NoPayers)
	assert.Equal(t, "300", b.IdealBudget.String())
	assert.Equal(t, "400", b.MaxBudget.String())
	assert.Equal(t, 3, b.Transactions)

	require.Len(t, b.DailySeries, 2)
	assert.Equal(t, "2024-01-01", b.DailySeries[0].Day.DayKey())
	assert.Equal(t, "300", b.DailySeries[0].Amount.String())
	assert.Equal(t, "2024-01-02", b.DailySeries[1].Day.DayKey())
	assert.Equal(t, "50", b.DailySeries[1].Amount.String())

	require.Len(t, b.MonthlySeries, 1)
	assert.Equal(t, "2024-01", b.MonthlySeries[0].Month)
	assert.Equal(t, "350", b.MonthlySeries[0].Amount.String())
}

func TestComputeScenarioB(t *testing.T) {
	b, err := Compute(scenarioA(), budget("300", "300.01"))
	require.NoError(t, err)
	assert.Equal(t, "49.99", b.OverAmount.String())

	// ideal must stay below max, so the literal max=300 case is checked on Evaluate.
	ev, err := Evaluate(dec("350"), budget("299", "300"), 2)
	require.NoError(t, err)
	assert.Equal(t, "50", ev.OverAmount.String())
}

func TestComputeScenarioC(t *testing.T) {
	records := append(scenarioA(), rec("2024-01-03", "abc", "Food", "Alice"))
	b, err := Compute(records, budget("300", "400"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMalformedRecord))
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
	var re *core.RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 4, re.Row)
	assert.Equal(t, "amount", re.Field)
	assert.Equal(t, core.Bundle{}, b, "no partial bundle on failure")
}

func TestComputeEmptyInput(t *testing.T) {
	b, err := Compute(nil, budget("300", "400"))
	require.NoError(t, err)

	assert.True(t, b.TotalExpense.IsZero())
	assert.True(t, b.UsagePercent.IsZero())
	assert.True(t, b.OverAmount.IsZero())
	assert.True(t, b.NoPayers)
	assert.Nil(t, b.PerPayerBudget)
	assert.True(t, b.Empty())

	assert.NotNil(t, b.CategoryBreakdown)
	assert.Empty(t, b.CategoryBreakdown)
	assert.Empty(t, b.DailySeries)
	assert.Empty(t, b.MonthlySeries)
	assert.Empty(t, b.PayerCategoryBreakdown)
	assert.Empty(t, b.PayerTotal)
}

func TestComputeRejectsBudgetBeforeRecords(t *testing.T) {
	// The malformed record must not be reported: the budget check comes first.
	records := []core.RawRecord{rec("nope", "abc", "", "")}
	for _, bud := range []core.Budget{
		budget("400", "300"),
		budget("300", "300"),
		budget("0", "300"),
		budget("-5", "300"),
	} {
		_, err := Compute(records, bud)
		assert.ErrorIs(t, err, core.ErrInvalidBudgetConfig, "budget %s", bud)
		assert.NotErrorIs(t, err, core.ErrMalformedRecord)
	}
}

func TestComputeSkipMalformed(t *testing.T) {
	records := []core.RawRecord{
		rec("2024-01-01", "100", "Food", "Alice"),
		{Row: 7, Date: "2024-13-40", Amount: "5", Category: "Food", Payer: "Alice"},
		rec("2024-01-02", "20", "", "Bob"),
		rec("2024-01-02", "30", "Fun", "Bob"),
	}
	b, err := ComputeWithOptions(records, budget("300", "400"), Options{SkipMalformed: true})
	require.NoError(t, err)

	assert.Equal(t, "130", b.TotalExpense.String())
	assert.Equal(t, 2, b.Transactions)
	require.Len(t, b.Skipped, 2)
	assert.Equal(t, 7, b.Skipped[0].Row)
	assert.Equal(t, "date", b.Skipped[0].Field)
	assert.Equal(t, 3, b.Skipped[1].Row)
	assert.ErrorIs(t, b.Skipped[1].Err, core.ErrEmptyCategory)
}

func TestComputeOverageMonotonicity(t *testing.T) {
	bud := budget("300", "400")
	for _, amount := range []string{"-50", "0", "399.99", "400", "400.01", "1000"} {
		b, err := Compute([]core.RawRecord{rec("2024-02-01", amount, "Misc", "Carol")}, bud)
		require.NoError(t, err)
		if b.TotalExpense.LessThanOrEqual(bud.Max) {
			assert.True(t, b.OverAmount.IsZero(), "amount %s", amount)
		} else {
			assert.True(t, b.OverAmount.Equal(b.TotalExpense.Sub(bud.Max)), "amount %s", amount)
		}
	}
}

func TestComputeUsageNotCapped(t *testing.T) {
	b, err := Compute([]core.RawRecord{rec("2024-02-01", "900", "Misc", "Carol")}, budget("300", "400"))
	require.NoError(t, err)
	assert.Equal(t, "300", b.UsagePercent.String())
	assert.Equal(t, "500", b.OverAmount.String())
	assert.True(t, b.OverBudget())
}

func randomLedger(r *rand.Rand, n int) []core.RawRecord {
	categories := []string{"Food", "Rent", "Fun", "food", "Utilities"}
	payers := []string{"Alice", "Bob", "Carol"}
	out := make([]core.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		cents := r.Intn(200000) - 20000 // refunds included
		out = append(out, rec(
			fmt.Sprintf("2024-%02d-%02d", 1+r.Intn(12), 1+r.Intn(28)),
			decimal.New(int64(cents), -2).StringFixed(2),
			categories[r.Intn(len(categories))],
			payers[r.Intn(len(payers))],
		))
	}
	return out
}

func TestComputeTotalConsistency(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		b, err := Compute(randomLedger(r, 1+r.Intn(300)), budget("8000", "11429"))
		require.NoError(t, err)

		sumCat, sumDay, sumMonth, sumPayer, sumCells := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
		for _, c := range b.CategoryBreakdown {
			sumCat = sumCat.Add(c.Amount)
		}
		for _, d := range b.DailySeries {
			sumDay = sumDay.Add(d.Amount)
		}
		for _, m := range b.MonthlySeries {
			sumMonth = sumMonth.Add(m.Amount)
		}
		for _, p := range b.PayerTotal {
			sumPayer = sumPayer.Add(p.Amount)
		}
		for _, c := range b.PayerCategoryBreakdown {
			sumCells = sumCells.Add(c.Amount)
		}
		for name, s := range map[string]decimal.Decimal{
			"category": sumCat, "daily": sumDay, "monthly": sumMonth, "payer": sumPayer, "cells": sumCells,
		} {
			assert.True(t, b.TotalExpense.Equal(s), "round %d: %s sum %s != total %s", round, name, s, b.TotalExpense)
		}
	}
}

func TestComputeHighlightExclusivityAndDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	records := randomLedger(r, 200)
	first, err := Compute(records, budget("8000", "11429"))
	require.NoError(t, err)

	totals := payerMap(first)
	counts := map[string]int{}
	for _, c := range first.PayerCategoryBreakdown {
		if c.Annotated() {
			counts[c.Payer]++
			assert.Equal(t, totals[c.Payer], c.Annotation.String())
		}
	}
	for payer := range totals {
		assert.Equal(t, 1, counts[payer], "payer %s", payer)
	}

	// Same input in a different order must annotate the same cells.
	shuffled := append([]core.RawRecord(nil), records...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	for i := 0; i < 5; i++ {
		again, err := Compute(shuffled, budget("8000", "11429"))
		require.NoError(t, err)
		assert.Equal(t, annotatedKeys(first), annotatedKeys(again))
	}
}

func annotatedKeys(b core.Bundle) map[string]string {
	out := map[string]string{}
	for payer, c := range annotated(b) {
		out[payer] = c.Category
	}
	return out
}

func TestComputeKeysAreExact(t *testing.T) {
	records := []core.RawRecord{
		rec("2024-03-01", "10", "Food", "Alice"),
		rec("2024-03-01", "10", "food", "Alice"),
		rec("2024-03-01", "10", "Food ", "alice"),
	}
	b, err := Compute(records, budget("300", "400"))
	require.NoError(t, err)
	assert.Len(t, b.CategoryBreakdown, 3)
	assert.Len(t, b.PayerTotal, 2)
}

func TestComputeDecimalAccumulation(t *testing.T) {
	records := make([]core.RawRecord, 0, 1000)
	for i := 0; i < 1000; i++ {
		records = append(records, rec("2024-04-01", "0.10", "Coffee", "Dan"))
	}
	b, err := Compute(records, budget("300", "400"))
	require.NoError(t, err)
	assert.Equal(t, "100", b.TotalExpense.String())
}
