package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition and cleaning pipeline.
type Metrics struct {
	SourceFetches  *prometheus.CounterVec // labels: source, outcome={success,error,empty}
	RecordsFetched *prometheus.CounterVec // labels: source
	RecordsSkipped *prometheus.CounterVec // labels: source, reason
	RetryAttempts  *prometheus.CounterVec // labels: operation
	RetryExhausted *prometheus.CounterVec // labels: operation

	CacheLookups      *prometheus.CounterVec // labels: result={hit,miss}
	DuplicatesDropped prometheus.Counter
	FallbackRecords   prometheus.Counter

	RequestDuration  prometheus.Histogram
	CleaningDuration prometheus.Histogram
	RecordsImputed   prometheus.Counter
	OutliersRejected prometheus.Counter
	CleaningDegraded prometheus.Gauge

	PublisherEnabled prometheus.Gauge
	RecordsPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourceFetches,
		m.RecordsFetched,
		m.RecordsSkipped,
		m.RetryAttempts,
		m.RetryExhausted,
		m.CacheLookups,
		m.DuplicatesDropped,
		m.FallbackRecords,
		m.RequestDuration,
		m.CleaningDuration,
		m.RecordsImputed,
		m.OutliersRejected,
		m.CleaningDegraded,
		m.PublisherEnabled,
		m.RecordsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "source_fetches_total",
			Help:      "Adapter fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "records_fetched_total",
			Help:      "Canonical records contributed by each source before dedup.",
		}, []string{"source"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "records_skipped_total",
			Help:      "Upstream entries dropped during mapping, by reason.",
		}, []string{"source", "reason"}),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "retry_attempts_total",
			Help:      "Upstream call attempts by operation, including the first.",
		}, []string{"operation"}),
		RetryExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "retry_exhausted_total",
			Help:      "Operations that failed every allowed attempt.",
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "cache_lookups_total",
			Help:      "Aggregator cache lookups by result.",
		}, []string{"result"}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "duplicates_dropped_total",
			Help:      "Records discarded by composite-key deduplication.",
		}),
		FallbackRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "fallback_records_total",
			Help:      "Synthetic records generated after total source failure.",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ocean",
			Name:      "request_duration_seconds",
			Help:      "Duration of a complete fetch-merge-clean cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CleaningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ocean",
			Name:      "cleaning_duration_seconds",
			Help:      "Duration of the imputation and outlier-rejection pass.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		RecordsImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "records_imputed_total",
			Help:      "Records that had at least one measurement filled in.",
		}),
		OutliersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "outliers_rejected_total",
			Help:      "Records dropped by anomaly detection.",
		}),
		CleaningDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ocean",
			Name:      "cleaning_degraded",
			Help:      "1 when the mean-fill fallback cleaner is in use, 0 for the full KNN path.",
		}),
		PublisherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ocean",
			Name:      "publisher_enabled",
			Help:      "1 when the Kafka record publisher is enabled, 0 otherwise.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean",
			Name:      "records_published_total",
			Help:      "Cleaned records published to the sink topic.",
		}),
	}
}
