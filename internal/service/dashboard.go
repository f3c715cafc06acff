// Package service keeps the current dashboard bundle and recomputes it from
// the ledger on demand.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetboard/internal/cache"
	"budgetboard/internal/core"
	"budgetboard/internal/engine"
	"budgetboard/internal/ledger"
	"budgetboard/internal/log"
	"budgetboard/internal/telemetry"
)

// ErrNotReady is returned while no bundle has been computed yet.
var ErrNotReady = errors.New("dashboard not computed yet")

// What triggered a recomputation; used as a metric label.
const (
	TriggerStartup = "startup"
	TriggerHTTP    = "http"
	TriggerWorker  = "worker"
	TriggerTicker  = "ticker"
	TriggerWrite   = "write"
)

// Notifier announces ledger changes to other instances.
type Notifier interface {
	PublishRefresh(ctx context.Context, source string) error
}

// Snapshot is one published bundle together with the records it was built from.
type Snapshot struct {
	Bundle     core.Bundle
	Budget     core.Budget
	Generation uint64
	// TakenAt is when the ledger read began. Every write that finished
	// before it is reflected in Bundle.
	TakenAt    time.Time
	ComputedAt time.Time

	records  []core.RawRecord
	writeSeq uint64
}

// Options configures a Dashboard.
type Options struct {
	Budget        core.Budget
	SkipMalformed bool
	// WhatIfCacheSize bounds the per-generation what-if cache.
	WhatIfCacheSize int
	// WhatIfTTL expires cached what-if bundles; zero keeps them until the
	// next refresh.
	WhatIfTTL time.Duration
	Writer    ledger.Writer
	Importer  ledger.Importer
	Notifier  Notifier
	Metrics   *telemetry.Collector
}

type Dashboard struct {
	source   ledger.Source
	writer   ledger.Writer
	importer ledger.Importer
	notifier Notifier
	budget   core.Budget
	engine   engine.Options
	metrics  *telemetry.Collector
	logger   *log.Logger
	now      func() time.Time

	group  singleflight.Group
	whatIf *cache.LRU[string, core.Bundle]

	// writes counts finished ledger writes.
	writes atomic.Uint64

	mu      sync.RWMutex
	current *Snapshot
	gen     uint64
	lastErr error
}

// New validates the budget up front so a misconfigured dashboard never starts.
func New(source ledger.Source, opts Options, logger *log.Logger) (*Dashboard, error) {
	if source == nil {
		return nil, errors.New("ledger source is required")
	}
	if err := opts.Budget.Validate(); err != nil {
		return nil, err
	}
	size := opts.WhatIfCacheSize
	if size <= 0 {
		size = 32
	}
	return &Dashboard{
		source:   source,
		writer:   opts.Writer,
		importer: opts.Importer,
		notifier: opts.Notifier,
		budget:   opts.Budget,
		engine:   engine.Options{SkipMalformed: opts.SkipMalformed},
		metrics:  opts.Metrics,
		logger:   logger.WithComponent(log.ComponentDashboard),
		now:      time.Now,
		whatIf:   cache.NewLRU[string, core.Bundle](size, opts.WhatIfTTL),
	}, nil
}

// Caches returns the caches a cache.Manager should sweep.
func (d *Dashboard) Caches() []cache.Cleaner {
	return []cache.Cleaner{d.whatIf}
}

// Budget returns the configured thresholds.
func (d *Dashboard) Budget() core.Budget { return d.budget }

// Writable reports whether transactions can be added.
func (d *Dashboard) Writable() bool { return d.writer != nil }

// Refresh snapshots the ledger and recomputes the bundle. Concurrent calls
// share one recomputation as long as no write finished in between, so a
// caller never gets a bundle read before its own write. On failure the
// previous bundle stays published.
func (d *Dashboard) Refresh(ctx context.Context, trigger string) (Snapshot, error) {
	seq := d.writes.Load()
	ch := d.group.DoChan("refresh:"+strconv.FormatUint(seq, 10), func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		return d.recompute(context.WithoutCancel(ctx), trigger, seq)
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

func (d *Dashboard) recompute(ctx context.Context, trigger string, seq uint64) (Snapshot, error) {
	start := d.now()
	records, err := d.source.Snapshot(ctx)
	if err == nil {
		var bundle core.Bundle
		bundle, err = engine.ComputeWithOptions(records, d.budget, d.engine)
		if err == nil {
			return d.publish(ctx, trigger, start, seq, records, bundle), nil
		}
	} else {
		err = fmt.Errorf("snapshot ledger: %w", err)
	}

	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.RefreshTotal.WithLabelValues(trigger, telemetry.ResultError).Inc()
	}
	d.logger.ErrorContext(ctx, "Dashboard recomputation failed, keeping previous bundle",
		log.NewFields().WithOperation(log.OpRefresh).WithError(err).ToSlice()...)
	return Snapshot{}, err
}

func (d *Dashboard) publish(ctx context.Context, trigger string, start time.Time, seq uint64, records []core.RawRecord, bundle core.Bundle) Snapshot {
	d.mu.Lock()
	if d.current != nil && d.current.writeSeq > seq {
		// A recomputation that saw later writes won the race.
		cur := *d.current
		d.mu.Unlock()
		d.logger.DebugContext(ctx, "Discarding outdated recomputation",
			log.FieldGeneration, cur.Generation, log.FieldSource, trigger)
		return cur
	}
	d.gen++
	snap := Snapshot{
		Bundle:     bundle,
		Budget:     d.budget,
		Generation: d.gen,
		TakenAt:    start,
		ComputedAt: d.now(),
		records:    records,
		writeSeq:   seq,
	}
	d.current = &snap
	d.lastErr = nil
	d.mu.Unlock()

	// Cached what-if bundles belong to the previous snapshot.
	d.whatIf.Purge()

	if d.metrics != nil {
		d.metrics.RefreshTotal.WithLabelValues(trigger, telemetry.ResultOK).Inc()
		d.metrics.RefreshDuration.WithLabelValues(trigger).Observe(snap.ComputedAt.Sub(start).Seconds())
		d.metrics.LastRefresh.Set(float64(snap.ComputedAt.Unix()))
		d.metrics.ObserveBundle(bundle)
	}

	fields := log.NewFields().
		WithOperation(log.OpRefresh).
		WithTotals(bundle.TotalExpense, bundle.UsagePercent, bundle.OverAmount, bundle.Transactions, len(bundle.PayerTotal))
	fields[log.FieldGeneration] = snap.Generation
	fields[log.FieldSource] = trigger
	if len(bundle.Skipped) > 0 {
		fields[log.FieldSkipped] = len(bundle.Skipped)
		for _, s := range bundle.Skipped {
			d.logger.WarnContext(ctx, "Malformed ledger record skipped",
				log.FieldRow, s.Row, "field", s.Field, log.FieldError, s.Err.Error())
		}
	}
	d.logger.InfoContext(ctx, "Dashboard recomputed", fields.ToSlice()...)
	return snap
}

// Current returns the last published snapshot.
func (d *Dashboard) Current() (Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return Snapshot{}, false
	}
	return *d.current, true
}

// LastError returns the error of the latest failed recomputation, or nil
// once a later one succeeds.
func (d *Dashboard) LastError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// WhatIf computes the bundle the current snapshot would produce under a
// different budget. The returned snapshot carries that bundle and budget
// together with the generation it was computed from. Results are cached
// until the next refresh.
func (d *Dashboard) WhatIf(ctx context.Context, budget core.Budget) (Snapshot, error) {
	if err := budget.Validate(); err != nil {
		return Snapshot{}, err
	}
	snap, ok := d.Current()
	if !ok {
		return Snapshot{}, ErrNotReady
	}
	if budget.Ideal.Equal(snap.Budget.Ideal) && budget.Max.Equal(snap.Budget.Max) {
		return snap, nil
	}

	key := strconv.FormatUint(snap.Generation, 10) + ":" + budget.String()
	b, ok := d.whatIf.Get(key)
	if ok {
		d.countWhatIf("hit")
	} else {
		d.countWhatIf("miss")
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		var err error
		b, err = engine.ComputeWithOptions(snap.records, budget, d.engine)
		if err != nil {
			return Snapshot{}, err
		}
		d.whatIf.Set(key, b)
		d.logger.DebugContext(ctx, "What-if bundle computed",
			log.NewFields().WithOperation(log.OpWhatIf).WithBudget(budget.Ideal, budget.Max).ToSlice()...)
	}

	snap.Bundle = b
	snap.Budget = budget
	return snap, nil
}

func (d *Dashboard) countWhatIf(outcome string) {
	if d.metrics != nil {
		d.metrics.WhatIfLookups.WithLabelValues(outcome).Inc()
	}
}

// Add validates and stores one transaction, then recomputes. The row
// reference is returned even if the recomputation fails.
func (d *Dashboard) Add(ctx context.Context, rec core.RawRecord) (string, error) {
	if d.writer == nil {
		return "", ledger.ErrReadOnly
	}
	txs, err := engine.Normalize([]core.RawRecord{rec})
	if err != nil {
		return "", err
	}
	ref, err := d.writer.Append(ctx, txs[0])
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	d.afterWrite(ctx)
	return ref, nil
}

// Import validates a batch and stores it atomically. Any malformed record
// rejects the whole batch.
func (d *Dashboard) Import(ctx context.Context, records []core.RawRecord) (int, error) {
	if d.importer == nil {
		return 0, ledger.ErrReadOnly
	}
	txs, err := engine.Normalize(records)
	if err != nil {
		return 0, err
	}
	n, err := d.importer.Import(ctx, txs)
	if err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}
	d.afterWrite(ctx)
	return n, nil
}

func (d *Dashboard) afterWrite(ctx context.Context) {
	d.writes.Add(1)
	if _, err := d.Refresh(ctx, TriggerWrite); err != nil {
		d.logger.WarnContext(ctx, "Recomputation after write failed", log.FieldError, err.Error())
	}
	if d.notifier == nil {
		return
	}
	// Other instances refresh from the queue; the write already succeeded.
	if err := d.notifier.PublishRefresh(ctx, TriggerWrite); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish refresh request",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}
