// Package aggregator orchestrates the acquisition pipeline: it queries every
// source adapter in priority order, merges and deduplicates their records,
// fills total outages with synthetic regional data, and hands the merged set
// to the cleaning stage. Merged pre-cleaning results are cached by request
// signature so the cleaning strategy can change between deployments without
// invalidating acquired data.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/ocean-data-service/internal/cleaning"
	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/fallback"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

// Synthetic records generated per intersecting region when every real
// source comes back empty.
const fallbackPerRegion = 50

var errNotReady = errors.New("no request has completed yet")

// Aggregator merges records from prioritized sources into one cleaned set.
type Aggregator struct {
	sources   []domain.SourceAdapter // highest priority first
	fallback  *fallback.Generator
	cleaner   cleaning.Cleaner
	cache     *resultCache
	precision int
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates an Aggregator. Sources are consulted in the order given, and
// precision is the coordinate rounding used for duplicate detection.
func New(sources []domain.SourceAdapter, fb *fallback.Generator, cleaner cleaning.Cleaner, precision int, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		sources:   sources,
		fallback:  fb,
		cleaner:   cleaner,
		cache:     newResultCache(),
		precision: precision,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one request has completed.
func (a *Aggregator) CheckReadiness(_ context.Context) error {
	if !a.ready.Load() {
		return errNotReady
	}
	return nil
}

// GetData runs one full acquisition cycle for the request and returns the
// cleaned record set. It only fails on an invalid request: source outages
// degrade to synthetic data rather than an error.
func (a *Aggregator) GetData(ctx context.Context, req domain.FetchRequest) ([]domain.CanonicalRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		a.metrics.RequestDuration.Observe(time.Since(start).Seconds())
		a.ready.Store(true)
	}()

	key := req.Signature()
	merged, fetchedAt, cached := a.cache.get(key)
	if cached {
		a.metrics.CacheLookups.WithLabelValues("hit").Inc()
		a.logger.Info("cache hit",
			"signature", key, "records", len(merged), "age", domain.Now().Sub(fetchedAt))
	} else {
		a.metrics.CacheLookups.WithLabelValues("miss").Inc()
		// The ceiling applies before the fallback decision: a window whose
		// real records are all too deep is still a total miss.
		merged = applyDepthCeiling(a.fetchAndMerge(ctx, req), req.DepthCeiling)
		if len(merged) > 0 {
			a.cache.put(key, merged)
		} else {
			// Synthetic data is never cached: the next request should probe
			// the real sources again.
			merged = a.generateFallback(req)
		}
	}

	cleanStart := time.Now()
	cleaned := a.cleaner.Clean(merged)
	a.metrics.CleaningDuration.Observe(time.Since(cleanStart).Seconds())

	a.logger.Info("request complete",
		"signature", key,
		"cache_hit", cached,
		"records_merged", len(merged),
		"records_returned", len(cleaned),
		"duration", time.Since(start))
	return cleaned, nil
}

// ClearCache drops every cached result and reports how many were held.
func (a *Aggregator) ClearCache() int {
	n := a.cache.clear()
	a.logger.Info("cache cleared", "entries_dropped", n)
	return n
}

// CacheSize reports the number of cached request signatures.
func (a *Aggregator) CacheSize() int {
	return a.cache.len()
}

// fetchAndMerge queries every source and merges results in priority order.
// Each source gets a recorded outcome; a failing source contributes nothing
// but never aborts the cycle. Duplicates resolve to the record from the
// higher-priority source, which for ties within a source means the earlier
// record.
func (a *Aggregator) fetchAndMerge(ctx context.Context, req domain.FetchRequest) []domain.CanonicalRecord {
	var merged []domain.CanonicalRecord
	seen := make(map[string]bool)
	dropped := 0

	for _, src := range a.sources {
		records, err := src.Fetch(ctx, req)
		switch {
		case err != nil:
			a.metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
			a.logger.Error("source fetch failed", "source", src.Name(), "error", err)
			continue
		case len(records) == 0:
			a.metrics.SourceFetches.WithLabelValues(src.Name(), "empty").Inc()
			a.logger.Info("source returned no records", "source", src.Name())
			continue
		}

		a.metrics.SourceFetches.WithLabelValues(src.Name(), "success").Inc()
		a.metrics.RecordsFetched.WithLabelValues(src.Name()).Add(float64(len(records)))
		a.logger.Info("source fetch complete", "source", src.Name(), "records", len(records))

		for _, r := range records {
			k := r.DedupKey(a.precision)
			if seen[k] {
				dropped++
				continue
			}
			seen[k] = true
			merged = append(merged, r)
		}
	}

	if dropped > 0 {
		a.metrics.DuplicatesDropped.Add(float64(dropped))
		a.logger.Info("duplicates dropped", "count", dropped)
	}
	return merged
}

func (a *Aggregator) generateFallback(req domain.FetchRequest) []domain.CanonicalRecord {
	records := a.fallback.ForRequest(req, fallbackPerRegion)
	a.metrics.FallbackRecords.Add(float64(len(records)))
	a.logger.Warn("all sources unavailable, serving synthetic data", "records", len(records))
	return records
}

// applyDepthCeiling drops records measured below the requested depth.
// Pressure in decibars approximates depth in meters at these scales.
// Records without a pressure reading pass through.
func applyDepthCeiling(records []domain.CanonicalRecord, ceiling *float64) []domain.CanonicalRecord {
	if ceiling == nil {
		return records
	}
	out := records[:0:0]
	for _, r := range records {
		if r.Pressure != nil && *r.Pressure > *ceiling {
			continue
		}
		out = append(out, r)
	}
	return out
}
