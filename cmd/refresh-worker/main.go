package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budgetboard/internal/amqp"
	"budgetboard/internal/cli"
	"budgetboard/internal/log"
	"budgetboard/internal/service"
	"budgetboard/internal/telemetry"
	"budgetboard/internal/worker"
)

// refresh-worker is a headless dashboard: it recomputes on queued refresh
// requests and on a timer, and exports the budget gauges on /metrics.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting refresh-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" && cfg.RefreshInterval == 0 {
		logger.Error("Nothing to do: set AMQP_URL or REFRESH_INTERVAL")
		os.Exit(1)
	}

	budget, err := cfg.Budget()
	if err != nil {
		logger.Error("Invalid budget", log.FieldError, err.Error())
		os.Exit(1)
	}

	ledger := cli.OpenLedger(context.Background(), logger, cfg)
	defer ledger.Close()

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewWithRegistry(reg)

	// Read-only: writes go through budgetd.
	dashboard, err := service.New(ledger.Source, service.Options{
		Budget:        budget,
		SkipMalformed: cfg.SkipMalformed,
		Metrics:       metrics,
	}, logger)
	if err != nil {
		logger.Error("Failed to create dashboard", log.FieldError, err.Error())
		os.Exit(1)
	}
	if _, err := dashboard.Refresh(context.Background(), service.TriggerStartup); err != nil {
		logger.Error("Initial dashboard computation failed", log.FieldError, err.Error())
	}

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", log.FieldError, err.Error())
		}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", log.FieldError, err.Error(), "port", cfg.Port)
		}
	}()

	w := worker.NewRefreshWorker(dashboard, consumer, cfg.RefreshInterval, metrics, logger)
	if err := w.Run(ctx); err != nil {
		logger.Error("Refresh worker failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
