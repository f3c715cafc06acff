package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetboard/internal/amqp"
	"budgetboard/internal/log"
	"budgetboard/internal/service"
	"budgetboard/internal/telemetry"
)

type fakeDashboard struct {
	mu       sync.Mutex
	current  *service.Snapshot
	err      error
	triggers []string
}

func (f *fakeDashboard) Refresh(_ context.Context, trigger string) (service.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	if f.err != nil {
		return service.Snapshot{}, f.err
	}
	now := time.Now()
	snap := service.Snapshot{Generation: uint64(len(f.triggers)), TakenAt: now, ComputedAt: now}
	f.current = &snap
	return snap, nil
}

func (f *fakeDashboard) Current() (service.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return service.Snapshot{}, false
	}
	return *f.current, true
}

func (f *fakeDashboard) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggers...)
}

// fakeConsumer hands each queued message to the handler, then waits for ctx.
type fakeConsumer struct {
	msgs    []*amqp.RefreshRequest
	results chan error
	err     error
}

func (c *fakeConsumer) ConsumeRefresh(ctx context.Context, handler amqp.Handler) error {
	if c.err != nil {
		return c.err
	}
	for _, m := range c.msgs {
		c.results <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func newCollector() *telemetry.Collector {
	return telemetry.NewWithRegistry(prometheus.NewRegistry())
}

func TestHandleRefreshRequest(t *testing.T) {
	t.Run("refreshes when nothing is published", func(t *testing.T) {
		dash := &fakeDashboard{}
		metrics := newCollector()
		w := NewRefreshWorker(dash, nil, 0, metrics, log.Discard())

		require.NoError(t, w.HandleRefreshRequest(context.Background(), amqp.NewRefreshRequest("write")))
		assert.Equal(t, []string{service.TriggerWorker}, dash.calls())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RefreshMessages.WithLabelValues(OutcomeRefreshed)))
	})

	t.Run("skips requests older than the published bundle", func(t *testing.T) {
		msg := amqp.NewRefreshRequest("write")
		dash := &fakeDashboard{current: &service.Snapshot{
			TakenAt:    msg.RequestedAt.Add(time.Second),
			ComputedAt: msg.RequestedAt.Add(2 * time.Second),
		}}
		metrics := newCollector()
		w := NewRefreshWorker(dash, nil, 0, metrics, log.Discard())

		require.NoError(t, w.HandleRefreshRequest(context.Background(), msg))
		assert.Empty(t, dash.calls())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RefreshMessages.WithLabelValues(OutcomeStale)))
	})

	t.Run("refreshes when the bundle was read before the request", func(t *testing.T) {
		msg := amqp.NewRefreshRequest("write")
		// Published after the request, but built from an earlier ledger read.
		dash := &fakeDashboard{current: &service.Snapshot{
			TakenAt:    msg.RequestedAt.Add(-time.Second),
			ComputedAt: msg.RequestedAt.Add(time.Second),
		}}
		metrics := newCollector()
		w := NewRefreshWorker(dash, nil, 0, metrics, log.Discard())

		require.NoError(t, w.HandleRefreshRequest(context.Background(), msg))
		assert.Equal(t, []string{service.TriggerWorker}, dash.calls())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RefreshMessages.WithLabelValues(OutcomeRefreshed)))
	})

	t.Run("returns refresh failures for redelivery", func(t *testing.T) {
		dash := &fakeDashboard{err: errors.New("ledger unavailable")}
		metrics := newCollector()
		w := NewRefreshWorker(dash, nil, 0, metrics, log.Discard())

		err := w.HandleRefreshRequest(context.Background(), amqp.NewRefreshRequest("write"))
		assert.EqualError(t, err, "ledger unavailable")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RefreshMessages.WithLabelValues(OutcomeFailed)))
	})

	t.Run("works without metrics", func(t *testing.T) {
		w := NewRefreshWorker(&fakeDashboard{}, nil, 0, nil, log.Discard())
		assert.NoError(t, w.HandleRefreshRequest(context.Background(), amqp.NewRefreshRequest("write")))
	})
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	dash := &fakeDashboard{}
	consumer := &fakeConsumer{
		msgs:    []*amqp.RefreshRequest{amqp.NewRefreshRequest("write")},
		results: make(chan error, 1),
	}
	w := NewRefreshWorker(dash, consumer, 0, nil, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, <-consumer.results)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, []string{service.TriggerWorker}, dash.calls())
}

func TestRun_ConsumerFailureStopsWorker(t *testing.T) {
	w := NewRefreshWorker(&fakeDashboard{}, &fakeConsumer{err: errors.New("access refused")}, time.Hour, nil, log.Discard())

	err := w.Run(context.Background())
	assert.EqualError(t, err, "access refused")
}

func TestRun_Ticker(t *testing.T) {
	dash := &fakeDashboard{}
	w := NewRefreshWorker(dash, nil, 10*time.Millisecond, nil, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Bool
	go func() {
		_ = w.Run(ctx)
		stopped.Store(true)
	}()

	require.Eventually(t, func() bool { return len(dash.calls()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.Eventually(t, stopped.Load, 2*time.Second, 5*time.Millisecond)

	for _, trigger := range dash.calls() {
		assert.Equal(t, service.TriggerTicker, trigger)
	}
}

func TestRun_NothingToDo(t *testing.T) {
	w := NewRefreshWorker(&fakeDashboard{}, nil, 0, nil, log.Discard())
	assert.NoError(t, w.Run(context.Background()))
}
