package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	ServerPort     string
	AllowedOrigins string
	RequestTimeout time.Duration
	JWTSecret      string

	// RedisURL enables idempotency keys and the report cache. Empty disables both.
	RedisURL string
	// KafkaBrokers enables payment notifications. Empty disables them.
	KafkaBrokers []string
	KafkaTopic   string

	ServiceName string
	LogLevel    string
	LogFormat   string

	// AllowNegativeStock lets paid orders drive a product's stock below zero.
	AllowNegativeStock bool
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:    getenv("DATABASE_URL", ""),
		ServerPort:     getenv("SERVER_PORT", "8080"),
		AllowedOrigins: getenv("ALLOWED_ORIGINS", ""),
		JWTSecret:      getenv("JWT_SECRET", ""),
		RedisURL:       getenv("REDIS_URL", ""),
		KafkaBrokers:   splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:     getenv("KAFKA_TOPIC", "payment.succeeded"),
		ServiceName:    getenv("SERVICE_NAME", "backoffice"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.DBMaxConns, err = getenvInt32("DB_MAX_CONNS", 8); err != nil {
		return Config{}, err
	}
	if cfg.DBMinConns, err = getenvInt32("DB_MIN_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.AllowNegativeStock, err = getenvBool("ALLOW_NEGATIVE_STOCK", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings a server process cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt32(k string, def int32) (int32, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", k, v)
	}
	return int32(n), nil
}

func getenvBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return b, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
