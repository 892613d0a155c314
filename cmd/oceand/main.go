package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ocean-data-service/internal/adapter/archive"
	"github.com/couchcryptid/ocean-data-service/internal/adapter/argovis"
	"github.com/couchcryptid/ocean-data-service/internal/adapter/ersst"
	httpadapter "github.com/couchcryptid/ocean-data-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ocean-data-service/internal/adapter/kafka"
	"github.com/couchcryptid/ocean-data-service/internal/aggregator"
	"github.com/couchcryptid/ocean-data-service/internal/cleaning"
	"github.com/couchcryptid/ocean-data-service/internal/config"
	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/fallback"
	"github.com/couchcryptid/ocean-data-service/internal/fetch"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	retryer := fetch.NewRetryer(fetch.RetryPolicy{
		MaxAttempts:       cfg.RetryMaxAttempts,
		BaseDelay:         cfg.RetryBaseDelay,
		BackoffMultiplier: cfg.RetryBackoffMultiplier,
	}, clockwork.NewRealClock(), logger, metrics)

	// Sources in priority order: live network data first, then the on-disk
	// archive, then the coarse gridded dataset for the pre-float era.
	sources := []domain.SourceAdapter{
		argovis.New(cfg.ArgovisBaseURL, cfg.ArgovisLimit, cfg.ArgovisTimeout, retryer, logger, metrics),
	}

	store, err := archive.OpenStore(cfg.ArchivePath)
	if err != nil {
		logger.Warn("archive store unavailable, continuing without it", "path", cfg.ArchivePath, "error", err)
	} else {
		defer store.Close()
		sources = append(sources, archive.NewAdapter(store, logger))
	}

	sources = append(sources, ersst.New(cfg.ErsstBaseURL, cfg.ErsstTimeout, retryer, logger, metrics))

	profiles := fallback.DefaultProfiles()
	if cfg.FallbackProfilePath != "" {
		profiles, err = fallback.LoadProfiles(cfg.FallbackProfilePath)
		if err != nil {
			logger.Error("failed to load fallback profiles", "path", cfg.FallbackProfilePath, "error", err)
			os.Exit(1)
		}
	}
	generator := fallback.NewGenerator(profiles, logger)

	cleaner := cleaning.ForMode(cfg.CleaningMode, logger, metrics)
	logger.Info("cleaning strategy selected", "strategy", cleaner.Name())

	agg := aggregator.New(sources, generator, cleaner, cfg.DedupCoordPrecision, logger, metrics)

	// Publisher is feature-flagged via KAFKA_ENABLED.
	var publisher httpadapter.BatchPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger, metrics)
		publisher = kafkaPublisher
		logger.Info("record publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("record publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, agg, publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
