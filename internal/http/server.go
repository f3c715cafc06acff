// Package http exposes the dashboard over a small JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budgetboard/internal/core"
	"budgetboard/internal/log"
	"budgetboard/internal/middleware/ratelimit"
	"budgetboard/internal/middleware/security"
	"budgetboard/internal/middleware/trace"
	"budgetboard/internal/service"
	"budgetboard/internal/telemetry"
)

// Dashboard is what the handlers need from service.Dashboard.
type Dashboard interface {
	Current() (service.Snapshot, bool)
	LastError() error
	Refresh(ctx context.Context, trigger string) (service.Snapshot, error)
	WhatIf(ctx context.Context, budget core.Budget) (service.Snapshot, error)
	Add(ctx context.Context, rec core.RawRecord) (string, error)
	Import(ctx context.Context, records []core.RawRecord) (int, error)
	Budget() core.Budget
	Writable() bool
}

// Options configures a Server.
type Options struct {
	// RefreshRateLimit bounds manual refreshes and writes per client per minute.
	RefreshRateLimit int
	Metrics          *telemetry.Collector
	// Gatherer backs /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
}

type Server struct {
	http.Server
	dashboard Dashboard
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	metrics   *telemetry.Collector
	logger    *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, dash Dashboard, opts Options, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		dashboard: dash,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{Limit: opts.RefreshRateLimit, Window: time.Minute}),
		detector:  security.NewDetector(),
		metrics:   opts.Metrics,
		logger:    logger,
	}

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited)

	s.route(mux, "GET /api/dashboard", http.HandlerFunc(s.handleDashboard))
	s.route(mux, "GET /api/dashboard/whatif", http.HandlerFunc(s.handleWhatIf))
	s.route(mux, "POST /api/dashboard/refresh", limited(http.HandlerFunc(s.handleRefresh)))
	s.route(mux, "POST /api/transactions", limited(http.HandlerFunc(s.handleCreateTransaction)))
	s.route(mux, "POST /api/transactions/import", limited(http.HandlerFunc(s.handleImport)))
	s.route(mux, "GET /healthz", http.HandlerFunc(handleHealth))
	s.route(mux, "GET /readyz", http.HandlerFunc(s.handleReady))
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	var h http.Handler = mux
	h = security.NoStore(h)
	h = headers.Middleware(h)
	h = s.flagSuspicious(h)
	h = log.Middleware(logger, trace.FromRequest)(h)
	h = tracer.Middleware(h)
	s.Handler = h

	return s
}

// route registers h under pattern and records request metrics labelled
// with the pattern rather than the raw path.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.Handler) {
	if s.metrics == nil {
		mux.Handle(pattern, h)
		return
	}
	_, path, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rw, r)
		s.metrics.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	}))
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldPath, r.URL.Path, log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
