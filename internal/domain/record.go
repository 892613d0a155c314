package domain

import (
	"fmt"
	"math"
	"time"
)

// Status indicates whether the reporting platform was active at observation time.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// DataSource identifies which upstream produced a record.
type DataSource string

const (
	SourceLive     DataSource = "live"
	SourceArchive  DataSource = "archive"
	SourceGridded  DataSource = "gridded"
	SourceFallback DataSource = "fallback"
)

// CanonicalRecord is one ocean observation in the unified schema all
// adapters map into. Measurement fields are nullable; at least one of
// Temperature, Salinity, or Pressure is non-nil for any record that
// survives adapter ingestion. Records are immutable once produced —
// transformations return new records.
type CanonicalRecord struct {
	ID          string     `json:"id"`
	Lat         float64    `json:"lat"`
	Lon         float64    `json:"lon"`
	Timestamp   time.Time  `json:"time"`
	Temperature *float64   `json:"temperature"`
	Salinity    *float64   `json:"salinity"`
	Pressure    *float64   `json:"pressure"`
	Oxygen      *float64   `json:"oxygen,omitempty"`
	CycleNumber *int       `json:"cycle,omitempty"`
	Status      Status     `json:"status"`
	DataSource  DataSource `json:"data_source"`
}

// HasMeasurement reports whether the record carries at least one of the
// three core measurements. Adapters drop records where this is false.
func (r CanonicalRecord) HasMeasurement() bool {
	return r.Temperature != nil || r.Salinity != nil || r.Pressure != nil
}

// DedupKey builds the composite duplicate-detection key: coordinates rounded
// to precision decimal places plus the timestamp. Records sharing a key are
// treated as the same observation regardless of source.
func (r CanonicalRecord) DedupKey(precision int) string {
	return fmt.Sprintf("%.*f|%.*f|%s",
		precision, r.Lat, precision, r.Lon, r.Timestamp.UTC().Format(time.RFC3339))
}

// NormalizeLon maps a longitude from any source convention ([0,360) or
// [-180,180]) into [-180,180].
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	}
	if lon < -180 {
		lon += 360
	}
	return lon
}

// Round returns v rounded to decimals decimal places.
func Round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}

// Float returns a pointer to v. Convenience for building nullable fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
