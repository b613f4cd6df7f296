// Package metrics exposes Prometheus metrics and a health/metrics HTTP
// server for the quote API service.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the quote API.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec // labels: route, status
	RequestDur         *prometheus.HistogramVec
	BarsFetched        prometheus.Counter
	IchimokuComputeDur prometheus.Histogram

	TerminalReconnects prometheus.Counter

	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheBreakerTrips prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quoteapi_requests_total",
			Help: "Total HTTP requests by route and status code",
		}, []string{"route", "status"}),
		RequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quoteapi_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		BarsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoteapi_bars_fetched_total",
			Help: "Total OHLC bars fetched from the terminal bridge",
		}),
		IchimokuComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quoteapi_ichimoku_compute_seconds",
			Help:    "Ichimoku computation duration per request",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		TerminalReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoteapi_terminal_reconnects_total",
			Help: "Total terminal bridge reconnection attempts",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoteapi_cache_hits_total",
			Help: "Quote cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoteapi_cache_misses_total",
			Help: "Quote cache misses",
		}),
		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quoteapi_cache_breaker_state",
			Help: "Quote cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quoteapi_cache_breaker_trips_total",
			Help: "Quote cache circuit breaker trips",
		}),
	}

	prometheus.MustRegister(
		m.RequestsTotal,
		m.RequestDur,
		m.BarsFetched,
		m.IchimokuComputeDur,
		m.TerminalReconnects,
		m.CacheHits,
		m.CacheMisses,
		m.CacheBreakerState,
		m.CacheBreakerTrips,
	)

	return m
}

// HealthStatus represents the service health.
type HealthStatus struct {
	mu sync.RWMutex

	TerminalConnected bool
	RedisEnabled      bool
	RedisConnected    bool

	RedisLatencyMs float64
	LastCheckAt    time.Time
	StartedAt      time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetTerminalConnected(v bool) {
	h.mu.Lock()
	h.TerminalConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if rdb != nil {
					probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
					h.CheckRedis(probeCtx, rdb)
					cancel()
				}
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.TerminalConnected || (h.RedisEnabled && !h.RedisConnected) {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.TerminalConnected && h.RedisEnabled && !h.RedisConnected {
		overallStatus = "unhealthy"
	}

	status := struct {
		Status            string  `json:"status"`
		Uptime            string  `json:"uptime"`
		TerminalConnected bool    `json:"terminal_connected"`
		RedisEnabled      bool    `json:"redis_enabled"`
		RedisConnected    bool    `json:"redis_connected"`
		RedisLatencyMs    float64 `json:"redis_latency_ms"`
		LastCheckAt       string  `json:"last_check_at"`
	}{
		Status:            overallStatus,
		Uptime:            time.Since(h.StartedAt).Round(time.Second).String(),
		TerminalConnected: h.TerminalConnected,
		RedisEnabled:      h.RedisEnabled,
		RedisConnected:    h.RedisConnected,
		RedisLatencyMs:    h.RedisLatencyMs,
		LastCheckAt:       h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
