package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Terminal bridge credentials
	TerminalWSURL      string
	TerminalLogin      string
	TerminalPassword   string
	TerminalServer     string
	TerminalTOTPSecret string

	// Infrastructure
	APIAddr       string
	MetricsAddr   string
	RedisAddr     string
	RedisPassword string
	QuoteCacheTTL time.Duration

	// Request defaults
	DefaultTimeframe string
	DefaultCount     int

	// Ichimoku periods
	TenkanPeriod  int
	KijunPeriod   int
	SenkouBPeriod int
	ChikouShift   int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		TerminalWSURL:      mustEnv("TERMINAL_WS_URL"),
		TerminalLogin:      mustEnv("TERMINAL_LOGIN"),
		TerminalPassword:   mustEnv("TERMINAL_PASSWORD"),
		TerminalServer:     getEnv("TERMINAL_SERVER", ""),
		TerminalTOTPSecret: getEnv("TERMINAL_TOTP_SECRET", ""),

		APIAddr:       getEnv("API_ADDR", ":5000"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		QuoteCacheTTL: time.Duration(intEnv("QUOTE_CACHE_TTL_S", 60)) * time.Second,

		DefaultTimeframe: getEnv("DEFAULT_TIMEFRAME", "H1"),
		DefaultCount:     intEnv("DEFAULT_COUNT", 100),

		TenkanPeriod:  intEnv("ICHIMOKU_TENKAN", 9),
		KijunPeriod:   intEnv("ICHIMOKU_KIJUN", 26),
		SenkouBPeriod: intEnv("ICHIMOKU_SENKOU_B", 52),
		ChikouShift:   intEnv("ICHIMOKU_CHIKOU", 26),
	}
}

// RedisEnabled reports whether quote caching is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, raw)
		return fallback
	}
	return n
}
