package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	platformstrings "agenda/pkg/platform/strings"
)

// Config captures everything the server needs from the environment so main
// stays lean.
type Config struct {
	Addr string

	// API Ninjas credentials and endpoint for the enrichment lookups.
	APINinjasKey string
	APINinjasURL string
	// Per-lookup request timeout. Each pipeline step is one HTTP round trip;
	// without a bound a hung upstream would hang the whole operation.
	LookupTimeout time.Duration

	// StoreBackend selects the contact store: "memory", "postgres" or "redis".
	StoreBackend string
	PostgresURL  string
	Redis        RedisConfig

	// Kafka audit trail. Empty brokers disables the Kafka publisher.
	KafkaBrokers    []string
	KafkaAuditTopic string

	LogLevel string
}

// RedisConfig holds connection tuning for the Redis-backed store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            envOr("AGENDA_ADDR", ":8080"),
		APINinjasKey:    os.Getenv("API_NINJAS_KEY"),
		APINinjasURL:    envOr("API_NINJAS_URL", "https://api.api-ninjas.com"),
		LookupTimeout:   durationOr("LOOKUP_TIMEOUT", 5*time.Second),
		StoreBackend:    envOr("STORE_BACKEND", "memory"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		KafkaAuditTopic: envOr("KAFKA_AUDIT_TOPIC", "agenda.contact-audit"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}

	if cfg.APINinjasKey == "" {
		return Config{}, fmt.Errorf("API_NINJAS_KEY is required")
	}
	switch cfg.StoreBackend {
	case "memory":
	case "postgres":
		if cfg.PostgresURL == "" {
			return Config{}, fmt.Errorf("POSTGRES_URL is required when STORE_BACKEND=postgres")
		}
	case "redis":
		if cfg.Redis.URL == "" {
			return Config{}, fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
