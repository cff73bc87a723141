package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SOURCE_TIMEZONE must resolve in minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

const maxUpsertBatchSize = 5000

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Met Office source.
	MetOfficeBaseURL string
	FetchTimeout     time.Duration
	SourceLocation   *time.Location

	// Record store.
	StoreDriver     string
	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	UpsertBatchSize int

	// Sync event publishing.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSyncTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	tz := sharedcfg.EnvOrDefault("SOURCE_TIMEZONE", "Europe/London")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_TIMEZONE %q: %w", tz, err)
	}

	upsertBatchSize, err := parsePositiveInt("UPSERT_BATCH_SIZE", 500)
	if err != nil {
		return nil, err
	}
	if upsertBatchSize > maxUpsertBatchSize {
		return nil, fmt.Errorf("UPSERT_BATCH_SIZE must be at most %d", maxUpsertBatchSize)
	}

	maxConns, err := parsePositiveInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := parsePositiveInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	if minConns > maxConns {
		return nil, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MetOfficeBaseURL: sharedcfg.EnvOrDefault("METOFFICE_BASE_URL", "https://www.metoffice.gov.uk/pub/data/weather/uk/climate/datasets"),
		FetchTimeout:     fetchTimeout,
		SourceLocation:   loc,

		StoreDriver:     strings.ToLower(sharedcfg.EnvOrDefault("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBMaxConns:      int32(maxConns), //nolint:gosec // bounded by parsePositiveInt input
		DBMinConns:      int32(minConns), //nolint:gosec // bounded by parsePositiveInt input
		UpsertBatchSize: upsertBatchSize,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSyncTopic: sharedcfg.EnvOrDefault("KAFKA_SYNC_TOPIC", "climate-dataset-synced"),
	}

	if cfg.MetOfficeBaseURL == "" {
		return nil, errors.New("METOFFICE_BASE_URL is required")
	}
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSyncTopic == "" {
			return nil, errors.New("KAFKA_SYNC_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 1<<20 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
