package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ACSPOP_SINK", "")
	t.Setenv("ACSPOP_LEVELS", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, SinkMemory, cfg.Sink)
	assert.Equal(t, []string{"state", "county"}, cfg.Levels)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CacheTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ACSPOP_SINK", SinkPostgres)
	t.Setenv("DATABASE_URL", "postgres://acspop@localhost/acspop?sslmode=disable")
	t.Setenv("ACSPOP_LEVELS", " County, state ,county")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("REDIS_CACHE_TTL", "1h")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"county", "state"}, cfg.Levels)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("REDIS_CACHE_TTL", "forever")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "REDIS_CACHE_TTL")
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("ACSPOP_SINK", SinkPostgres)
		t.Setenv("DATABASE_URL", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("unknown sink", func(t *testing.T) {
		t.Setenv("ACSPOP_SINK", "bigquery")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "unknown sink")
	})
}

func TestParseSkipsValidation(t *testing.T) {
	t.Setenv("ACSPOP_SINK", SinkPostgres)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Parse()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Database.URL = "postgres://acspop@localhost/acspop?sslmode=disable"
	assert.NoError(t, cfg.Validate())
}
