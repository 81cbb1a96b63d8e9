package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server reads from the environment so main
// stays lean.
type Config struct {
	Addr string

	// JWTSigningKey verifies SEP-10 tokens issued by the anchor's auth
	// server. JWTIssuer is enforced when non-empty.
	JWTSigningKey string
	JWTIssuer     string

	// Upload caps for multipart KYC bodies.
	MaxFileSize  int64
	MaxFileCount int

	// PostgresDSN selects the postgres customer store; empty runs in-memory.
	PostgresDSN string

	Redis RedisConfig

	// KafkaBrokers enables the customer event stream; empty keeps events
	// in-process.
	KafkaBrokers []string
	KafkaTopic   string

	// RateLimitPerMinute caps PUT /customer writes per account. Zero
	// disables limiting.
	RateLimitPerMinute int
}

// RedisConfig holds connection settings for the rate limiter backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("ANCHORGATE_ADDR", ":8080"),
		JWTSigningKey:      envOr("ANCHORGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:          os.Getenv("ANCHORGATE_JWT_ISSUER"),
		MaxFileSize:        envInt64("ANCHORGATE_MAX_FILE_SIZE", 2<<20),
		MaxFileCount:       envInt("ANCHORGATE_MAX_FILE_COUNT", 6),
		PostgresDSN:        os.Getenv("ANCHORGATE_POSTGRES_DSN"),
		KafkaTopic:         envOr("ANCHORGATE_KAFKA_TOPIC", "anchorgate.customer-events"),
		RateLimitPerMinute: envInt("ANCHORGATE_RATE_LIMIT_PER_MINUTE", 60),
		Redis: RedisConfig{
			URL:          os.Getenv("ANCHORGATE_REDIS_URL"),
			PoolSize:     envInt("ANCHORGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ANCHORGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
	if brokers := os.Getenv("ANCHORGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
