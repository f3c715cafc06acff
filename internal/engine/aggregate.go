package engine

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"budgetboard/internal/core"
)

// Aggregates are the five grouped views of one normalized snapshot.
type Aggregates struct {
	Total           decimal.Decimal
	Categories      []core.CategoryAmount
	Daily           []core.DayAmount
	Monthly         []core.MonthAmount
	PayerCategories []core.PayerCategoryAmount
	PayerTotals     []core.PayerAmount
}

type payerCategory struct {
	payer    string
	category string
}

// Aggregate groups the transactions by exact key equality in a single pass.
// Every slice is sorted by its key and is non-nil, even for an empty snapshot.
func Aggregate(txs []core.Transaction) Aggregates {
	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	byDay := map[string]decimal.Decimal{}
	days := map[string]core.Date{}
	byMonth := map[string]decimal.Decimal{}
	byPayerCategory := map[payerCategory]decimal.Decimal{}
	byPayer := map[string]decimal.Decimal{}

	for _, tx := range txs {
		total = total.Add(tx.Amount)
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)

		dk := tx.Day.DayKey()
		byDay[dk] = byDay[dk].Add(tx.Amount)
		days[dk] = tx.Day

		byMonth[tx.Month] = byMonth[tx.Month].Add(tx.Amount)

		pc := payerCategory{payer: tx.Payer, category: tx.Category}
		byPayerCategory[pc] = byPayerCategory[pc].Add(tx.Amount)
		byPayer[tx.Payer] = byPayer[tx.Payer].Add(tx.Amount)
	}

	agg := Aggregates{
		Total:           total,
		Categories:      make([]core.CategoryAmount, 0, len(byCategory)),
		Daily:           make([]core.DayAmount, 0, len(byDay)),
		Monthly:         make([]core.MonthAmount, 0, len(byMonth)),
		PayerCategories: make([]core.PayerCategoryAmount, 0, len(byPayerCategory)),
		PayerTotals:     make([]core.PayerAmount, 0, len(byPayer)),
	}
	for _, c := range slices.Sorted(maps.Keys(byCategory)) {
		agg.Categories = append(agg.Categories, core.CategoryAmount{Category: c, Amount: byCategory[c]})
	}
	// YYYY-MM-DD and YYYY-MM sort chronologically as plain strings.
	for _, d := range slices.Sorted(maps.Keys(byDay)) {
		agg.Daily = append(agg.Daily, core.DayAmount{Day: days[d], Amount: byDay[d]})
	}
	for _, m := range slices.Sorted(maps.Keys(byMonth)) {
		agg.Monthly = append(agg.Monthly, core.MonthAmount{Month: m, Amount: byMonth[m]})
	}
	keys := slices.SortedFunc(maps.Keys(byPayerCategory), comparePayerCategory)
	for _, k := range keys {
		agg.PayerCategories = append(agg.PayerCategories, core.PayerCategoryAmount{
			Payer:    k.payer,
			Category: k.category,
			Amount:   byPayerCategory[k],
		})
	}
	for _, p := range slices.Sorted(maps.Keys(byPayer)) {
		agg.PayerTotals = append(agg.PayerTotals, core.PayerAmount{Payer: p, Amount: byPayer[p]})
	}
	return agg
}

func comparePayerCategory(a, b payerCategory) int {
	if a.payer != b.payer {
		if a.payer < b.payer {
			return -1
		}
		return 1
	}
	switch {
	case a.category < b.category:
		return -1
	case a.category > b.category:
		return 1
	}
	return 0
}
