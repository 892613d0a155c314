// Package cleaning imputes missing measurements and rejects statistical
// outliers from merged record batches. Two strategies implement one Cleaner
// interface: the full KNN-imputation + isolation-forest path, and a
// degraded mean-fill path that trades precision for zero dependencies on
// batch geometry. The strategy is chosen at construction, never silently at
// runtime, so both paths stay independently testable.
//
// Cleaning is a pure function of its input batch: no I/O, no shared-state
// mutation, output preserves input order, and the batch never grows.
package cleaning

import (
	"math"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

// The fixed numeric feature set cleaning operates on, in column order.
const (
	colPressure = iota
	colTemperature
	colSalinity
	numFeatures
)

// Cleaner transforms a record batch into its cleaned form.
type Cleaner interface {
	Name() string
	Clean(records []domain.CanonicalRecord) []domain.CanonicalRecord
}

// featureMatrix extracts the {pressure, temperature, salinity} columns,
// with NaN marking missing values.
func featureMatrix(records []domain.CanonicalRecord) [][numFeatures]float64 {
	m := make([][numFeatures]float64, len(records))
	for i, r := range records {
		m[i] = [numFeatures]float64{nanOr(r.Pressure), nanOr(r.Temperature), nanOr(r.Salinity)}
	}
	return m
}

func nanOr(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// applyRow writes a (possibly imputed) feature row back onto a copy of the
// record, rounding to presentation precision: temperature and salinity to 2
// decimals, pressure to 1. NaN entries stay nil.
func applyRow(rec domain.CanonicalRecord, row [numFeatures]float64) domain.CanonicalRecord {
	out := rec
	out.Pressure = roundedOrNil(row[colPressure], 1)
	out.Temperature = roundedOrNil(row[colTemperature], 2)
	out.Salinity = roundedOrNil(row[colSalinity], 2)
	return out
}

func roundedOrNil(v float64, decimals int) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return domain.Float(domain.Round(v, decimals))
}

// columnMeans averages each feature over its present values. A column with
// no values at all yields NaN.
func columnMeans(m [][numFeatures]float64) [numFeatures]float64 {
	var sums, counts [numFeatures]float64
	for _, row := range m {
		for c := 0; c < numFeatures; c++ {
			if !math.IsNaN(row[c]) {
				sums[c] += row[c]
				counts[c]++
			}
		}
	}
	var means [numFeatures]float64
	for c := 0; c < numFeatures; c++ {
		if counts[c] == 0 {
			means[c] = math.NaN()
			continue
		}
		means[c] = sums[c] / counts[c]
	}
	return means
}
