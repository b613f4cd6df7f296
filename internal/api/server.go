// Package api provides the public REST surface of the quote API service:
// health, raw quotes, symbol listing, and Ichimoku-enriched quotes.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"ichimoku-apiv1/internal/ichimoku"
	"ichimoku-apiv1/internal/metrics"
	"ichimoku-apiv1/internal/model"
)

// minIchimokuBars is the smallest request size that still warms the longest
// rolling window; smaller counts are bumped to the substitute below.
const (
	minIchimokuBars    = 52
	substituteBarCount = 200
	ichimokuTimeframe  = "H1"
	defaultQuoteCount  = 100
	defaultTimeframe   = "H1"
)

// QuoteSource is the terminal-facing collaborator.
type QuoteSource interface {
	Rates(ctx context.Context, symbol, timeframe string, count int, startDate, endDate string) ([]model.Bar, error)
	Symbols(ctx context.Context) ([]string, error)
	IsConnected() bool
}

// QuoteCache is the optional response cache. Both methods are best effort.
type QuoteCache interface {
	Get(ctx context.Context, key string) ([]model.Bar, bool)
	Set(ctx context.Context, key string, bars []model.Bar)
}

// CacheKey builds the cache key for one quote request shape. Kept here so
// the handler and cache tests agree on the layout.
type CacheKey func(symbol, timeframe string, count int, startDate, endDate string) string

// Config holds API server settings.
type Config struct {
	Addr             string
	DefaultTimeframe string // applied when ?timeframe is missing, default H1
	DefaultCount     int    // applied when ?count is missing, default 100
}

func (c *Config) defaults() {
	if c.DefaultTimeframe == "" {
		c.DefaultTimeframe = defaultTimeframe
	}
	if c.DefaultCount == 0 {
		c.DefaultCount = defaultQuoteCount
	}
}

// Server serves the REST API.
type Server struct {
	cfg      Config
	source   QuoteSource
	cache    QuoteCache // nil when caching is disabled
	cacheKey CacheKey
	engine   *ichimoku.Engine
	prom     *metrics.Metrics
	srv      *http.Server
}

// New creates the API server. cache and cacheKey may be nil.
func New(cfg Config, source QuoteSource, cache QuoteCache, cacheKey CacheKey, engine *ichimoku.Engine, prom *metrics.Metrics) *Server {
	cfg.defaults()
	s := &Server{
		cfg:      cfg,
		source:   source,
		cache:    cache,
		cacheKey: cacheKey,
		engine:   engine,
		prom:     prom,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.instrument("health", s.handleHealth))
	mux.HandleFunc("/quotes", s.instrument("quotes", s.handleQuotes))
	mux.HandleFunc("/symbols", s.instrument("symbols", s.handleSymbols))
	mux.HandleFunc("/ichimoku", s.instrument("ichimoku", s.handleIchimoku))

	s.srv = &http.Server{Addr: cfg.Addr, Handler: mux}
	return s
}

// Handler exposes the route mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the API server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] server listening on %s", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with duration and count metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.prom.RequestDur.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.prom.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

// intParam parses an integer query parameter, falling back on absence or
// garbage.
func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            "healthy",
		TerminalConnected: s.source.IsConnected(),
	})
}

// fetchBars consults the cache, then the terminal, and backfills the cache.
func (s *Server) fetchBars(ctx context.Context, symbol, timeframe string, count int, startDate, endDate string) ([]model.Bar, error) {
	var key string
	if s.cache != nil && s.cacheKey != nil {
		key = s.cacheKey(symbol, timeframe, count, startDate, endDate)
		if bars, ok := s.cache.Get(ctx, key); ok {
			return bars, nil
		}
	}

	bars, err := s.source.Rates(ctx, symbol, timeframe, count, startDate, endDate)
	if err != nil {
		return nil, err
	}
	s.prom.BarsFetched.Add(float64(len(bars)))

	if s.cache != nil && key != "" {
		s.cache.Set(ctx, key, bars)
	}
	return bars, nil
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol parameter is required")
		return
	}
	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = s.cfg.DefaultTimeframe
	}
	count := intParam(r, "count", s.cfg.DefaultCount)

	bars, err := s.fetchBars(r.Context(), symbol, timeframe, count, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		log.Printf("[api] quotes %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve quotes data")
		return
	}

	writeJSON(w, http.StatusOK, QuotesResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Count:     len(bars),
		Data:      bars,
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	symbols, err := s.source.Symbols(r.Context())
	if err != nil {
		log.Printf("[api] symbols: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve symbols")
		return
	}
	writeJSON(w, http.StatusOK, SymbolsResponse{Symbols: symbols})
}

func (s *Server) handleIchimoku(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol parameter is required")
		return
	}

	count := intParam(r, "count", substituteBarCount)
	if count < minIchimokuBars {
		log.Printf("[api] count %d too low for ichimoku, using default %d", count, substituteBarCount)
		count = substituteBarCount
	}

	// Ichimoku always runs on hourly bars.
	bars, err := s.fetchBars(r.Context(), symbol, ichimokuTimeframe, count, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		log.Printf("[api] ichimoku %s: %v", symbol, err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve quotes data")
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "No quotes data available")
		return
	}

	start := time.Now()
	enriched := s.engine.Compute(bars)
	s.prom.IchimokuComputeDur.Observe(time.Since(start).Seconds())

	var latest *model.Signal
	if len(enriched) > 0 {
		latest = &enriched[len(enriched)-1].Signal
	}

	writeJSON(w, http.StatusOK, IchimokuResponse{
		Symbol:       symbol,
		Timeframe:    ichimokuTimeframe,
		TotalCandles: len(enriched),
		LatestSignal: latest,
		Data:         enriched,
	})
}
