package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream providers.
	ArgovisBaseURL string
	ArgovisTimeout time.Duration
	ArgovisLimit   int
	ErsstBaseURL   string
	ErsstTimeout   time.Duration
	ArchivePath    string

	// Retry policy shared by the network-backed adapters.
	RetryMaxAttempts       int
	RetryBaseDelay         time.Duration
	RetryBackoffMultiplier float64

	// Merge behavior.
	DedupCoordPrecision int

	// Cleaning strategy: "knn" (full path) or "meanfill" (degraded path).
	CleaningMode string

	// Optional YAML file overriding the built-in regional fallback profiles.
	FallbackProfilePath string

	// Kafka record publishing (feature-flagged).
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	argovisTimeout, err := parseDurationEnv("ARGOVIS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	ersstTimeout, err := parseDurationEnv("ERSST_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	retryBaseDelay, err := parseDurationEnv("RETRY_BASE_DELAY", "1s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ArgovisBaseURL: envOrDefault("ARGOVIS_BASE_URL", "https://argovis.colorado.edu"),
		ArgovisTimeout: argovisTimeout,
		ArgovisLimit:   parseIntEnv("ARGOVIS_LIMIT", 5000),
		ErsstBaseURL:   envOrDefault("ERSST_BASE_URL", "https://coastwatch.pfeg.noaa.gov/erddap/griddap/ncdcOisst21Agg"),
		ErsstTimeout:   ersstTimeout,
		ArchivePath:    envOrDefault("ARCHIVE_PATH", "data/argo_chunks.db"),

		RetryMaxAttempts:       parseIntEnv("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:         retryBaseDelay,
		RetryBackoffMultiplier: parseFloatEnv("RETRY_BACKOFF_MULTIPLIER", 2.0),

		DedupCoordPrecision: parseIntEnv("DEDUP_COORD_PRECISION", 3),

		CleaningMode: envOrDefault("CLEANING_MODE", "knn"),

		FallbackProfilePath: os.Getenv("FALLBACK_PROFILE_PATH"),

		KafkaBrokers:   splitAndTrim(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "ocean-records"),
		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
	}

	if cfg.RetryMaxAttempts < 1 {
		return nil, errors.New("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.RetryBackoffMultiplier <= 1 {
		return nil, errors.New("RETRY_BACKOFF_MULTIPLIER must be greater than 1")
	}
	if cfg.DedupCoordPrecision < 0 || cfg.DedupCoordPrecision > 9 {
		return nil, errors.New("DEDUP_COORD_PRECISION must be between 0 and 9")
	}
	if cfg.CleaningMode != "knn" && cfg.CleaningMode != "meanfill" {
		return nil, fmt.Errorf("unknown CLEANING_MODE %q", cfg.CleaningMode)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func parseFloatEnv(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
