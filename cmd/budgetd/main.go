package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"budgetboard/internal/amqp"
	"budgetboard/internal/cache"
	"budgetboard/internal/cli"
	apphttp "budgetboard/internal/http"
	"budgetboard/internal/log"
	"budgetboard/internal/service"
	"budgetboard/internal/telemetry"
	"budgetboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	budget, err := cfg.Budget()
	if err != nil {
		logger.Error("Invalid budget", log.FieldError, err.Error())
		os.Exit(1)
	}

	ledger := cli.OpenLedger(context.Background(), logger, cfg)
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err.Error())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewWithRegistry(reg)

	opts := service.Options{
		Budget:          budget,
		SkipMalformed:   cfg.SkipMalformed,
		WhatIfCacheSize: cfg.WhatIfCacheSize,
		WhatIfTTL:       cfg.WhatIfCacheTTL,
		Writer:          ledger.Writer,
		Importer:        ledger.Importer,
		Metrics:         metrics,
	}

	// Writes are announced so refresh workers and other instances recompute.
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer publisher.Close()
		opts.Notifier = publisher
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	dashboard, err := service.New(ledger.Source, opts, logger)
	if err != nil {
		logger.Error("Failed to create dashboard", log.FieldError, err.Error())
		os.Exit(1)
	}

	// A bad ledger at startup is not fatal: /readyz stays red and the
	// ticker or a manual refresh retries.
	if _, err := dashboard.Refresh(context.Background(), service.TriggerStartup); err != nil {
		logger.Error("Initial dashboard computation failed", log.FieldError, err.Error())
	}

	caches := cache.NewManager(logger.WithComponent(log.ComponentDashboard))
	for _, c := range dashboard.Caches() {
		caches.Register(c)
	}

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, apphttp.Options{
		RefreshRateLimit: cfg.RefreshRateLimit,
		Metrics:          metrics,
		Gatherer:         reg,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
	})

	caches.StartCleanup(ctx, time.Minute)

	ticker := worker.NewRefreshWorker(dashboard, nil, cfg.RefreshInterval, metrics, logger)
	go func() {
		if err := ticker.Run(ctx); err != nil {
			logger.Error("Periodic refresh stopped", log.FieldError, err.Error())
		}
	}()

	logger.Info("Starting budgetd",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"writable", dashboard.Writable(),
		"refresh_interval", cfg.RefreshInterval.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
