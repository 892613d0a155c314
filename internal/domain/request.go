package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FetchRequest describes one query against the pipeline: a spatial box, a
// time window, and an optional depth ceiling. Requests are immutable; the
// canonicalized Signature is the aggregator's cache key.
type FetchRequest struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
	Start, End     time.Time // naive UTC, inclusive
	DepthCeiling   *float64  // dbar; nil means unbounded
	Ocean          string    // optional named ocean filter, e.g. "Indian"
}

// Validate checks request shape. A malformed request is a programming error
// at the caller and the only condition the pipeline surfaces as an error.
func (r FetchRequest) Validate() error {
	if r.LatMin < -90 || r.LatMax > 90 || r.LatMin > r.LatMax {
		return fmt.Errorf("invalid latitude range [%g, %g]", r.LatMin, r.LatMax)
	}
	if r.LonMin < -180 || r.LonMax > 360 || r.LonMin > r.LonMax {
		return fmt.Errorf("invalid longitude range [%g, %g]", r.LonMin, r.LonMax)
	}
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return fmt.Errorf("invalid time window [%s, %s]", r.Start, r.End)
	}
	if r.DepthCeiling != nil && *r.DepthCeiling <= 0 {
		return fmt.Errorf("invalid depth ceiling %g", *r.DepthCeiling)
	}
	return nil
}

// Signature canonicalizes the request into a stable cache key: bounds
// rounded to 3 decimals, dates truncated to days, depth to 1 decimal,
// ocean lower-cased.
func (r FetchRequest) Signature() string {
	depth := "-"
	if r.DepthCeiling != nil {
		depth = fmt.Sprintf("%.1f", *r.DepthCeiling)
	}
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f|%s..%s|%s|%s",
		r.LonMin, r.LonMax, r.LatMin, r.LatMax,
		r.Start.UTC().Format("2006-01-02"), r.End.UTC().Format("2006-01-02"),
		depth, strings.ToLower(r.Ocean))
}

// Years lists every calendar year the request's window touches, ascending.
func (r FetchRequest) Years() []int {
	var years []int
	for y := r.Start.UTC().Year(); y <= r.End.UTC().Year(); y++ {
		years = append(years, y)
	}
	return years
}

// Contains reports whether the point lies inside the request's spatial box.
// The box longitudes may use either convention; the point is expected
// normalized to [-180,180].
func (r FetchRequest) Contains(lat, lon float64) bool {
	if lat < r.LatMin || lat > r.LatMax {
		return false
	}
	if lon >= r.LonMin && lon <= r.LonMax {
		return true
	}
	// Retry against the [0,360) reading of the box.
	alt := lon
	if alt < 0 {
		alt += 360
	}
	return alt >= r.LonMin && alt <= r.LonMax
}

// SourceAdapter normalizes one upstream provider into canonical records.
// A nil error with an empty slice is a legitimately empty result; a non-nil
// error means the source is unavailable for this request. Neither outcome
// is fatal to a merge — adapters never panic or abort past this boundary.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) ([]CanonicalRecord, error)
}
