// Package telemetry provides Prometheus metrics for the dashboard.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"budgetboard/internal/core"
)

const namespace = "budgetboard"

// Refresh outcomes.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector holds all Prometheus metrics for the dashboard.
type Collector struct {
	// Recomputation metrics
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	SkippedRecords  prometheus.Counter
	LastRefresh     prometheus.Gauge

	// Current bundle figures
	TotalExpense  prometheus.Gauge
	UsagePercent  prometheus.Gauge
	OverAmount    prometheus.Gauge
	Transactions  prometheus.Gauge
	Payers        prometheus.Gauge
	PayerExpenses *prometheus.GaugeVec

	// What-if cache
	WhatIfLookups *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Queue metrics
	RefreshMessages *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Total number of dashboard recomputations by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		RefreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Time to snapshot the ledger and compute the dashboard",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"trigger"},
		),
		SkippedRecords: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_records_total",
				Help:      "Malformed ledger records left out of a recomputation",
			},
		),
		LastRefresh: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_refresh_timestamp",
				Help:      "Unix timestamp of the last successful recomputation",
			},
		),
		TotalExpense: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "total_expense",
				Help:      "Net spend of the current ledger",
			},
		),
		UsagePercent: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "budget_usage_percent",
				Help:      "Total expense as a percentage of the ideal budget",
			},
		),
		OverAmount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "budget_over_amount",
				Help:      "Amount spent beyond the maximum budget",
			},
		),
		Transactions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transactions",
				Help:      "Transactions in the current bundle",
			},
		),
		Payers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "payers",
				Help:      "Distinct payers in the current bundle",
			},
		),
		PayerExpenses: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "payer_expense",
				Help:      "Net spend per payer",
			},
			[]string{"payer"},
		),
		WhatIfLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "whatif_lookups_total",
				Help:      "What-if budget lookups by cache outcome",
			},
			[]string{"cache"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		RefreshMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_messages_total",
				Help:      "Refresh requests consumed from the queue by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveBundle publishes the headline figures of a freshly computed bundle.
// Gauges are float64; precision loss is acceptable for monitoring.
func (c *Collector) ObserveBundle(b core.Bundle) {
	c.TotalExpense.Set(b.TotalExpense.InexactFloat64())
	c.UsagePercent.Set(b.UsagePercent.InexactFloat64())
	c.OverAmount.Set(b.OverAmount.InexactFloat64())
	c.Transactions.Set(float64(b.Transactions))
	c.Payers.Set(float64(len(b.PayerTotal)))
	c.SkippedRecords.Add(float64(len(b.Skipped)))

	c.PayerExpenses.Reset()
	for _, p := range b.PayerTotal {
		c.PayerExpenses.WithLabelValues(p.Payer).Set(p.Amount.InexactFloat64())
	}
}
