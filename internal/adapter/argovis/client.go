// Package argovis adapts the ArgoVis profile catalog (live Argo float data)
// into canonical records.
package argovis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/fetch"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

// Adapter implements domain.SourceAdapter against the ArgoVis HTTP catalog.
type Adapter struct {
	baseURL    string
	limit      int
	httpClient *http.Client
	retryer    *fetch.Retryer
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a live-provider adapter. limit caps the result count requested
// per catalog query.
func New(baseURL string, limit int, timeout time.Duration, retryer *fetch.Retryer, logger *slog.Logger, metrics *observability.Metrics) *Adapter {
	return &Adapter{
		baseURL:    baseURL,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
		retryer:    retryer,
		logger:     logger,
		metrics:    metrics,
	}
}

func (a *Adapter) Name() string { return "live" }

// Fetch queries the profile catalog for the request's spatial and temporal
// window. A non-nil error means the catalog was unavailable after retries;
// individual malformed entries are skipped and logged, never fatal.
func (a *Adapter) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CanonicalRecord, error) {
	params := url.Values{
		"startDate": {req.Start.UTC().Format("2006-01-02")},
		"endDate":   {req.End.UTC().Format("2006-01-02")},
		"box": {fmt.Sprintf("[[%g,%g],[%g,%g]]",
			req.LonMin, req.LatMin, req.LonMax, req.LatMax)},
		"limit": {strconv.Itoa(a.limit)},
	}
	fullURL := a.baseURL + "/catalog/profiles/?" + params.Encode()

	var payload []profile
	err := a.retryer.Do(ctx, "live.catalog", func(ctx context.Context) error {
		return a.getJSON(ctx, fullURL, &payload)
	})
	if err != nil {
		return nil, err
	}

	return a.mapProfiles(payload), nil
}

func (a *Adapter) getJSON(ctx context.Context, fullURL string, out *[]profile) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

// mapProfiles converts raw catalog entries to canonical records. Entries
// without coordinates or without any core measurement are dropped; a single
// bad entry never aborts the batch.
func (a *Adapter) mapProfiles(profiles []profile) []domain.CanonicalRecord {
	records := make([]domain.CanonicalRecord, 0, len(profiles))

	for _, p := range profiles {
		if len(p.GeoLocation.Coordinates) != 2 {
			a.logger.Warn("skipping catalog entry without coordinates", "profile_id", p.ID)
			a.metrics.RecordsSkipped.WithLabelValues(a.Name(), "no_coordinates").Inc()
			continue
		}

		ts, err := parseProfileDate(p.Date)
		if err != nil {
			a.logger.Warn("skipping catalog entry with unparseable date",
				"profile_id", p.ID, "date", p.Date, "error", err)
			a.metrics.RecordsSkipped.WithLabelValues(a.Name(), "bad_date").Inc()
			continue
		}

		rec := domain.CanonicalRecord{
			ID:          p.ID,
			Lat:         p.GeoLocation.Coordinates[1],
			Lon:         domain.NormalizeLon(p.GeoLocation.Coordinates[0]),
			Timestamp:   ts,
			Temperature: firstMeasurement(p.Data["temperature"]),
			Salinity:    firstMeasurement(p.Data["salinity"]),
			Pressure:    firstMeasurement(p.Data["pressure"]),
			Oxygen:      firstMeasurement(p.Data["oxygen"]),
			CycleNumber: p.CycleNumber,
			Status:      domain.StatusActive,
			DataSource:  domain.SourceLive,
		}

		if !rec.HasMeasurement() {
			a.logger.Warn("skipping catalog entry without measurements", "profile_id", p.ID)
			a.metrics.RecordsSkipped.WithLabelValues(a.Name(), "no_measurements").Inc()
			continue
		}
		records = append(records, rec)
	}

	return records
}

// firstMeasurement picks the first non-null value from a per-parameter
// measurement array, the shallowest reading of the profile.
func firstMeasurement(values []*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return domain.Float(*v)
		}
	}
	return nil
}

// parseProfileDate accepts the catalog's timestamp flavors: RFC 3339 with or
// without sub-second precision, or a bare date.
func parseProfileDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ArgoVis catalog response types.

type profile struct {
	ID          string                `json:"_id"`
	GeoLocation geoLocation           `json:"geoLocation"`
	Data        map[string][]*float64 `json:"data"`
	CycleNumber *int                  `json:"cycleNumber"`
	Date        string                `json:"date"`
}

type geoLocation struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}
