// Package worker keeps a dashboard fresh from queued refresh requests and a
// periodic ticker.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetboard/internal/amqp"
	"budgetboard/internal/log"
	"budgetboard/internal/service"
	"budgetboard/internal/telemetry"
)

// Message outcomes recorded in telemetry.
const (
	OutcomeRefreshed = "refreshed"
	OutcomeStale     = "stale"
	OutcomeFailed    = "failed"
)

// Consumer delivers refresh requests until ctx is done.
type Consumer interface {
	ConsumeRefresh(ctx context.Context, handler amqp.Handler) error
}

// Refresher is the part of service.Dashboard the worker drives.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (service.Snapshot, error)
	Current() (service.Snapshot, bool)
}

// RefreshWorker recomputes the dashboard when asked over the queue and on a
// fixed interval.
type RefreshWorker struct {
	dashboard Refresher
	consumer  Consumer
	interval  time.Duration
	metrics   *telemetry.Collector
	logger    *log.Logger
}

// NewRefreshWorker builds a worker. A nil consumer disables queue
// consumption; a zero interval disables the ticker.
func NewRefreshWorker(dashboard Refresher, consumer Consumer, interval time.Duration, metrics *telemetry.Collector, logger *log.Logger) *RefreshWorker {
	return &RefreshWorker{
		dashboard: dashboard,
		consumer:  consumer,
		interval:  interval,
		metrics:   metrics,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or the consumer fails for good.
func (w *RefreshWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeRefresh(ctx, w.HandleRefreshRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	if w.interval > 0 {
		g.Go(func() error {
			w.tick(ctx)
			return nil
		})
	}

	w.logger.InfoContext(ctx, "Refresh worker started",
		"consume", w.consumer != nil, "interval", w.interval.String())
	return g.Wait()
}

func (w *RefreshWorker) tick(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.dashboard.Refresh(ctx, service.TriggerTicker); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed",
					log.NewFields().WithOperation(log.OpRefresh).WithError(err).ToSlice()...)
			}
		}
	}
}

// HandleRefreshRequest recomputes unless the published bundle was read from
// the ledger after the request was made.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequest) error {
	if snap, ok := w.dashboard.Current(); ok && snap.TakenAt.After(msg.RequestedAt) {
		w.count(OutcomeStale)
		w.logger.DebugContext(ctx, "Skipping stale refresh request",
			log.FieldMessageID, msg.ID, log.FieldGeneration, snap.Generation)
		return nil
	}

	if _, err := w.dashboard.Refresh(ctx, service.TriggerWorker); err != nil {
		w.count(OutcomeFailed)
		return err
	}
	w.count(OutcomeRefreshed)
	w.logger.InfoContext(ctx, "Refresh request handled",
		log.FieldMessageID, msg.ID, log.FieldSource, msg.Source)
	return nil
}

func (w *RefreshWorker) count(outcome string) {
	if w.metrics != nil {
		w.metrics.RefreshMessages.WithLabelValues(outcome).Inc()
	}
}
