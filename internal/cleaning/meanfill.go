package cleaning

import (
	"log/slog"
	"math"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

// MeanFillCleaner is the degraded strategy: missing values are filled with
// the batch mean of their column, and records still incomplete after that
// (a column with no values at all cannot be filled) are dropped. No outlier
// rejection runs on this path. Operators can see it is active through the
// cleaning_degraded gauge and a warning per batch.
type MeanFillCleaner struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewMeanFillCleaner(logger *slog.Logger, metrics *observability.Metrics) *MeanFillCleaner {
	metrics.CleaningDegraded.Set(1)
	return &MeanFillCleaner{logger: logger, metrics: metrics}
}

func (c *MeanFillCleaner) Name() string { return "meanfill" }

func (c *MeanFillCleaner) Clean(records []domain.CanonicalRecord) []domain.CanonicalRecord {
	if len(records) == 0 {
		return []domain.CanonicalRecord{}
	}

	m := featureMatrix(records)
	means := columnMeans(m)

	imputed, dropped := 0, 0
	out := make([]domain.CanonicalRecord, 0, len(records))
	for i, rec := range records {
		complete := true
		for col := 0; col < numFeatures; col++ {
			if !math.IsNaN(m[i][col]) {
				continue
			}
			if math.IsNaN(means[col]) {
				complete = false
				break
			}
			m[i][col] = means[col]
			imputed++
		}
		if !complete {
			dropped++
			continue
		}
		out = append(out, applyRow(rec, m[i]))
	}
	if imputed > 0 {
		c.metrics.RecordsImputed.Add(float64(imputed))
	}

	c.logger.Warn("batch cleaned in degraded mode",
		"strategy", c.Name(),
		"records_in", len(records),
		"values_filled", imputed,
		"records_dropped", dropped,
		"records_out", len(out))
	return out
}

// ForMode selects the cleaner matching a configured mode string. Unknown
// modes fall back to the full strategy.
func ForMode(mode string, logger *slog.Logger, metrics *observability.Metrics) Cleaner {
	if mode == "meanfill" {
		return NewMeanFillCleaner(logger, metrics)
	}
	return NewKNNCleaner(logger, metrics)
}
