package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ichimoku-apiv1/config"
	"ichimoku-apiv1/internal/api"
	"ichimoku-apiv1/internal/ichimoku"
	"ichimoku-apiv1/internal/metrics"
	redisstore "ichimoku-apiv1/internal/store/redis"
	"ichimoku-apiv1/internal/terminal"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[apiserver] starting...")

	if err := godotenv.Load(); err == nil {
		log.Println("[apiserver] loaded .env")
	}

	cfg := config.Load()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Quote cache (optional) ----
	var cache *redisstore.Cache
	health.SetRedisEnabled(cfg.RedisEnabled())
	if cfg.RedisEnabled() {
		var err error
		cache, err = redisstore.NewCache(redisstore.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.QuoteCacheTTL,
		})
		if err != nil {
			log.Printf("[apiserver] WARNING: redis init failed: %v (continuing without cache)", err)
			health.SetRedisConnected(false)
		} else {
			cache.OnHit = prom.CacheHits.Inc
			cache.OnMiss = prom.CacheMisses.Inc
			cache.Breaker().OnStateChange = func(from, to redisstore.State) {
				log.Printf("[apiserver] cache breaker %s -> %s", from, to)
				prom.CacheBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.CacheBreakerTrips.Inc()
				}
			}
			health.SetRedisConnected(true)
			defer cache.Close()
		}
	}

	// ---- Periodic liveness checks ----
	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), 10*time.Second)
	}

	// ---- Terminal bridge client ----
	client, err := terminal.New(terminal.Config{
		URL:        cfg.TerminalWSURL,
		Login:      cfg.TerminalLogin,
		Password:   cfg.TerminalPassword,
		Server:     cfg.TerminalServer,
		TOTPSecret: cfg.TerminalTOTPSecret,
	})
	if err != nil {
		log.Fatalf("[apiserver] terminal init failed: %v", err)
	}
	client.OnReconnect = func() {
		prom.TerminalReconnects.Inc()
	}
	go client.Run(ctx)

	// Mirror bridge connectivity into /healthz.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.SetTerminalConnected(client.IsConnected())
			}
		}
	}()

	// ---- Ichimoku engine ----
	engine, err := ichimoku.New(ichimoku.Config{
		TenkanPeriod:  cfg.TenkanPeriod,
		KijunPeriod:   cfg.KijunPeriod,
		SenkouBPeriod: cfg.SenkouBPeriod,
		ChikouShift:   cfg.ChikouShift,
	})
	if err != nil {
		log.Fatalf("[apiserver] engine init failed: %v", err)
	}

	// ---- REST API ----
	var quoteCache api.QuoteCache
	var cacheKey api.CacheKey
	if cache != nil {
		quoteCache = cache
		cacheKey = redisstore.Key
	}
	apiSrv := api.New(api.Config{
		Addr:             cfg.APIAddr,
		DefaultTimeframe: cfg.DefaultTimeframe,
		DefaultCount:     cfg.DefaultCount,
	}, client, quoteCache, cacheKey, engine, prom)
	apiSrv.Start()

	log.Printf("[apiserver] ready: api=%s metrics=%s bridge=%s cache=%v",
		cfg.APIAddr, cfg.MetricsAddr, cfg.TerminalWSURL, cache != nil)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[apiserver] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)

	log.Println("[apiserver] shutdown complete.")
}
