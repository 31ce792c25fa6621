package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pstrings "acspop/pkg/platform/strings"
)

// Sink kinds.
const (
	SinkMemory   = "memory"
	SinkPostgres = "postgres"
)

// Config is the process configuration. FromEnv fills it from the
// environment; cmd/acspop flags override individual fields.
type Config struct {
	Server   Server
	ACS      ACS
	Sink     string
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
	// Levels run by ingest, in order.
	Levels []string
	// Parallelism bounds concurrent level runs; 0 runs all at once.
	Parallelism int
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// ACS locates the downloaded extracts of one ACS release.
type ACS struct {
	// Release tags cached variable maps, e.g. "acs2022_5yr".
	Release string
	// DataDir holds one JSON extract per concept and level.
	DataDir string
	// VariablesFile is the release's variables.json document.
	VariablesFile string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the variable-map cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures publication events. No brokers disables them.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds and validates a Config from environment variables.
func FromEnv() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse reads environment variables without validating the result, so
// callers can layer overrides before calling Validate.
func Parse() (Config, error) {
	var errs []error
	cfg := Config{
		Server: Server{
			Addr:            envOr("ACSPOP_ADDR", ":8080"),
			ShutdownTimeout: durationEnv("ACSPOP_SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		},
		ACS: ACS{
			Release:       envOr("ACS_RELEASE", "acs2022_5yr"),
			DataDir:       envOr("ACS_DATA_DIR", "data"),
			VariablesFile: envOr("ACS_VARIABLES_FILE", "data/variables.json"),
		},
		Sink: envOr("ACSPOP_SINK", SinkMemory),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    intEnv("DB_MAX_OPEN_CONNS", 10, &errs),
			MaxIdleConns:    intEnv("DB_MAX_IDLE_CONNS", 5, &errs),
			ConnMaxLifetime: durationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute, &errs),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intEnv("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
			CacheTTL:     durationEnv("REDIS_CACHE_TTL", 24*time.Hour, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:           pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:             envOr("KAFKA_TOPIC", "acs.relations"),
			Partitions:        int32(intEnv("KAFKA_PARTITIONS", 1, &errs)),
			ReplicationFactor: int16(intEnv("KAFKA_REPLICATION_FACTOR", 1, &errs)),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Levels:      pstrings.SplitListLower(envOr("ACSPOP_LEVELS", "state,county")),
		Parallelism: intEnv("ACSPOP_PARALLELISM", 0, &errs),
	}
	if len(errs) > 0 {
		return Config{}, errs[0]
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Sink {
	case SinkMemory:
	case SinkPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s sink", SinkPostgres)
		}
	default:
		return fmt.Errorf("unknown sink %q: must be %q or %q", c.Sink, SinkMemory, SinkPostgres)
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("at least one level is required")
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func durationEnv(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
