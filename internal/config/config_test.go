package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, "https://argovis.colorado.edu", cfg.ArgovisBaseURL)
	assert.Equal(t, 30*time.Second, cfg.ArgovisTimeout)
	assert.Equal(t, 5000, cfg.ArgovisLimit)
	assert.Equal(t, "data/argo_chunks.db", cfg.ArchivePath)

	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 2.0, cfg.RetryBackoffMultiplier)
	assert.Equal(t, 3, cfg.DedupCoordPrecision)
	assert.Equal(t, "knn", cfg.CleaningMode)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "ocean-records", cfg.KafkaSinkTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("ARGOVIS_BASE_URL", "http://localhost:8001")
	t.Setenv("ARGOVIS_LIMIT", "100")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "250ms")
	t.Setenv("RETRY_BACKOFF_MULTIPLIER", "1.5")
	t.Setenv("DEDUP_COORD_PRECISION", "4")
	t.Setenv("CLEANING_MODE", "meanfill")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "http://localhost:8001", cfg.ArgovisBaseURL)
	assert.Equal(t, 100, cfg.ArgovisLimit)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 1.5, cfg.RetryBackoffMultiplier)
	assert.Equal(t, 4, cfg.DedupCoordPrecision)
	assert.Equal(t, "meanfill", cfg.CleaningMode)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero attempts", "RETRY_MAX_ATTEMPTS", "0"},
		{"multiplier not above one", "RETRY_BACKOFF_MULTIPLIER", "1.0"},
		{"negative precision", "DEDUP_COORD_PRECISION", "-1"},
		{"unknown cleaning mode", "CLEANING_MODE", "median"},
		{"bad duration", "RETRY_BASE_DELAY", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
