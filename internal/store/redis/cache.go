// Package redis implements a short-TTL quote cache in front of the terminal
// bridge, guarded by a circuit breaker so a flapping Redis never slows the
// request path.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"ichimoku-apiv1/internal/model"
)

// CacheConfig configures the quote cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // entry lifetime, defaults to 60s
}

// Cache stores recently fetched bar sequences keyed by request shape.
// All operations are best effort: a Redis failure degrades to a miss.
type Cache struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *CircuitBreaker

	// Optional hooks for cache metrics.
	OnHit  func()
	OnMiss func()
}

// NewCache creates the quote cache and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 60 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] quote cache connected to %s (ttl=%s)", cfg.Addr, cfg.TTL)
	return &Cache{
		client:  client,
		ttl:     cfg.TTL,
		breaker: NewCircuitBreaker(5, 10*time.Second),
	}, nil
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the cache circuit breaker for state-change wiring.
func (c *Cache) Breaker() *CircuitBreaker { return c.breaker }

// Key builds the cache key for one quote request shape.
func Key(symbol, timeframe string, count int, startDate, endDate string) string {
	return "quotes:" + symbol + ":" + timeframe + ":" + strconv.Itoa(count) + ":" + startDate + ":" + endDate
}

// Get returns the cached bars for key, or (nil, false) on a miss. Redis
// errors are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]model.Bar, bool) {
	var raw string
	err := c.breaker.Execute(func() error {
		var err error
		raw, err = c.client.Get(ctx, key).Result()
		return err
	})
	if err != nil {
		if err != goredis.Nil && err != ErrCircuitOpen {
			log.Printf("[redis] get %s: %v", key, err)
		}
		c.miss()
		return nil, false
	}

	var bars []model.Bar
	if err := json.Unmarshal([]byte(raw), &bars); err != nil {
		log.Printf("[redis] corrupt entry %s: %v", key, err)
		c.miss()
		return nil, false
	}

	if c.OnHit != nil {
		c.OnHit()
	}
	return bars, true
}

// Set stores bars under key with the configured TTL. Failures are swallowed;
// the next request refetches from the terminal.
func (c *Cache) Set(ctx context.Context, key string, bars []model.Bar) {
	payload, err := json.Marshal(bars)
	if err != nil {
		log.Printf("[redis] marshal %s: %v", key, err)
		return
	}

	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, payload, c.ttl).Err()
	})
	if err != nil && err != ErrCircuitOpen {
		log.Printf("[redis] set %s: %v", key, err)
	}
}

// Close shuts down the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) miss() {
	if c.OnMiss != nil {
		c.OnMiss()
	}
}
