package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "mailmove/pkg/platform/strings"
)

// Config captures everything main needs that is not a command-line flag.
// Flags decide what a run does; the environment decides where it connects.
type Config struct {
	AdminAddr string
	// AdminTokenHash is the bcrypt hash of the admin API token. Empty
	// disables the admin endpoints that require it.
	AdminTokenHash string

	LogLevel string
	LogJSON  bool

	Pacing time.Duration

	Directory DirectoryConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
}

// DirectoryConfig points at the tenant directory API.
type DirectoryConfig struct {
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// PostgresConfig enables the durable record store. Empty URL disables it.
type PostgresConfig struct {
	URL string
}

// RedisConfig enables the shared checkpoint store. Empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the change-record publisher. Empty brokers disable it.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		AdminAddr:      envOr("MAILMOVE_ADMIN_ADDR", ":8080"),
		AdminTokenHash: os.Getenv("MAILMOVE_ADMIN_TOKEN_HASH"),
		LogLevel:       envOr("MAILMOVE_LOG_LEVEL", "info"),
		LogJSON:        os.Getenv("MAILMOVE_LOG_JSON") == "true",
		Pacing:         envDuration("MAILMOVE_PACING", 500*time.Millisecond),
		Directory: DirectoryConfig{
			BaseURL:      os.Getenv("MAILMOVE_DIRECTORY_URL"),
			TenantID:     os.Getenv("MAILMOVE_DIRECTORY_TENANT_ID"),
			ClientID:     os.Getenv("MAILMOVE_DIRECTORY_CLIENT_ID"),
			ClientSecret: os.Getenv("MAILMOVE_DIRECTORY_CLIENT_SECRET"),
			Timeout:      envDuration("MAILMOVE_DIRECTORY_TIMEOUT", 30*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("MAILMOVE_POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("MAILMOVE_REDIS_URL"),
			PoolSize:     envInt("MAILMOVE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MAILMOVE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("MAILMOVE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("MAILMOVE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("MAILMOVE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  envList("MAILMOVE_KAFKA_BROKERS"),
			Topic:    envOr("MAILMOVE_KAFKA_TOPIC", "mailmove.change-records"),
			ClientID: envOr("MAILMOVE_KAFKA_CLIENT_ID", "mailmove"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := pstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
