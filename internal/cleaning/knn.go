package cleaning

import (
	"log/slog"
	"math"
	"sort"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

const (
	// Neighbors consulted per missing value.
	kNeighbors = 5
	// Share of each batch rejected as outliers.
	contamination = 0.01
)

// KNNCleaner is the primary cleaning strategy: missing measurements are
// imputed from the k nearest records by Euclidean distance over the features
// both records carry, then the most anomalous round(contamination*N) records
// are rejected by an isolation forest over the imputed feature matrix.
type KNNCleaner struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewKNNCleaner(logger *slog.Logger, metrics *observability.Metrics) *KNNCleaner {
	metrics.CleaningDegraded.Set(0)
	return &KNNCleaner{logger: logger, metrics: metrics}
}

func (c *KNNCleaner) Name() string { return "knn" }

func (c *KNNCleaner) Clean(records []domain.CanonicalRecord) []domain.CanonicalRecord {
	if len(records) == 0 {
		return []domain.CanonicalRecord{}
	}

	m := featureMatrix(records)
	imputed := imputeKNN(m)
	if imputed > 0 {
		c.metrics.RecordsImputed.Add(float64(imputed))
	}

	rejected := rejectOutliers(m)
	if len(rejected) > 0 {
		c.metrics.OutliersRejected.Add(float64(len(rejected)))
	}

	out := make([]domain.CanonicalRecord, 0, len(records)-len(rejected))
	for i, rec := range records {
		if rejected[i] {
			continue
		}
		out = append(out, applyRow(rec, m[i]))
	}

	c.logger.Info("batch cleaned",
		"strategy", c.Name(),
		"records_in", len(records),
		"values_imputed", imputed,
		"outliers_rejected", len(rejected),
		"records_out", len(out))
	return out
}

// imputeKNN fills NaN cells in place and reports how many values were
// imputed. For each missing cell the candidates are the rows that carry that
// feature; the k closest by distance over mutually observed features
// contribute their mean. Fewer than k candidates means all are used; zero
// candidates leaves the cell missing.
func imputeKNN(m [][numFeatures]float64) int {
	// Distances are computed against the original matrix so that imputation
	// order cannot influence the result.
	orig := make([][numFeatures]float64, len(m))
	copy(orig, m)

	imputed := 0
	for i := range m {
		for c := 0; c < numFeatures; c++ {
			if !math.IsNaN(m[i][c]) {
				continue
			}
			if v, ok := knnValue(orig, i, c); ok {
				m[i][c] = v
				imputed++
			}
		}
	}
	return imputed
}

type neighbor struct {
	dist  float64
	value float64
}

func knnValue(m [][numFeatures]float64, i, col int) (float64, bool) {
	neighbors := make([]neighbor, 0, len(m))
	for j := range m {
		if j == i || math.IsNaN(m[j][col]) {
			continue
		}
		d, ok := rowDistance(m[i], m[j])
		if !ok {
			continue
		}
		neighbors = append(neighbors, neighbor{dist: d, value: m[j][col]})
	}
	if len(neighbors) == 0 {
		return 0, false
	}
	sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].dist < neighbors[b].dist })
	k := kNeighbors
	if len(neighbors) < k {
		k = len(neighbors)
	}
	sum := 0.0
	for _, n := range neighbors[:k] {
		sum += n.value
	}
	return sum / float64(k), true
}

// rowDistance is the Euclidean distance over features observed in both rows,
// normalized by the number of shared features so rows with sparse overlap
// compare fairly against fully populated ones. Rows sharing no feature are
// incomparable.
func rowDistance(a, b [numFeatures]float64) (float64, bool) {
	sum, shared := 0.0, 0
	for c := 0; c < numFeatures; c++ {
		if math.IsNaN(a[c]) || math.IsNaN(b[c]) {
			continue
		}
		d := a[c] - b[c]
		sum += d * d
		shared++
	}
	if shared == 0 {
		return 0, false
	}
	return math.Sqrt(sum / float64(shared)), true
}
