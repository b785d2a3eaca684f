package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Servers
	LabAddr     string
	MetricsAddr string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string

	// Quote cache expiry while the exchange is open and while it is closed
	QuoteTTL       time.Duration
	QuoteTTLClosed time.Duration

	// Default P/L sweep around the live price
	SweepBandPct decimal.Decimal
	SweepStep    decimal.Decimal

	LogLevel string

	// Alerts are logged; a webhook URL also POSTs them
	AlertWebhookURL string
}

// Load reads a .env file when present, then configuration from environment
// variables with sensible defaults. Variables already set win over .env.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[config] ignoring .env: %v", err)
	}

	return &Config{
		LabAddr:     getEnv("LAB_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/lab.db"),

		QuoteTTL:       getDuration("QUOTE_TTL", time.Minute),
		QuoteTTLClosed: getDuration("QUOTE_TTL_CLOSED", 12*time.Hour),

		SweepBandPct: getDecimal("SWEEP_BAND_PCT", decimal.NewFromInt(20)),
		SweepStep:    getDecimal("SWEEP_STEP", decimal.NewFromInt(1)),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	dur, err := time.ParseDuration(v)
	if err != nil || dur <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return dur
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
