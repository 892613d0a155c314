// Package ersst adapts NOAA gridded sea-surface-temperature climatology
// into canonical records. It serves only time windows predating the float
// network (pre-2002); later windows get an empty result without any
// upstream call.
package ersst

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/fetch"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

// cutoverYear is the first year the live float network has usable coverage;
// windows starting at or after it are not served from the grid.
const cutoverYear = 2002

// sstMin/sstMax bound physically plausible sea-surface temperatures; grid
// cells outside the range are treated as sentinel/fill values.
const (
	sstMin = -10.0
	sstMax = 50.0
)

// Adapter implements domain.SourceAdapter against a griddap-style subset
// endpoint. The subset is requested in the server's CSV flavor: columns
// time, lat, lon, sst with a units line under the header.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	retryer    *fetch.Retryer
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a gridded-climatology adapter.
func New(baseURL string, timeout time.Duration, retryer *fetch.Retryer, logger *slog.Logger, metrics *observability.Metrics) *Adapter {
	return &Adapter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryer:    retryer,
		logger:     logger,
		metrics:    metrics,
	}
}

func (a *Adapter) Name() string { return "gridded" }

// Fetch returns one record per valid grid cell intersecting the request's
// box for the representative month (July of the window's middle year).
// Requests entirely inside the float era return empty without a network
// call.
func (a *Adapter) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CanonicalRecord, error) {
	if req.Start.UTC().Year() >= cutoverYear {
		return nil, nil
	}

	month := representativeMonth(req)
	// Grid timestamps sit mid-month at 12:00Z.
	subset := fmt.Sprintf("sst[(%04d-%02d-16T12:00:00Z)][(%g):(%g)][(%g):(%g)]",
		month.Year(), month.Month(),
		req.LatMin, req.LatMax, req.LonMin, req.LonMax)
	fullURL := a.baseURL + ".csv?" + subset

	var rows [][]string
	err := a.retryer.Do(ctx, "gridded.subset", func(ctx context.Context) error {
		var err error
		rows, err = a.getCSV(ctx, fullURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	return a.mapCells(rows), nil
}

// representativeMonth picks July of the middle year of the window, clamped
// to the pre-cutover era. The grid is monthly; July is the conventional
// representative sample.
func representativeMonth(req domain.FetchRequest) time.Time {
	year := (req.Start.UTC().Year() + req.End.UTC().Year()) / 2
	if year >= cutoverYear {
		year = cutoverYear - 1
	}
	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
}

func (a *Adapter) getCSV(ctx context.Context, fullURL string) ([][]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("grid subset request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("grid server error: status %d: %s", resp.StatusCode, body)
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = 4
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode grid subset: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("grid subset response empty")
	}
	return rows, nil
}

// mapCells converts subset rows to canonical records, skipping the header
// and units lines and any cell whose value is missing or a sentinel.
func (a *Adapter) mapCells(rows [][]string) []domain.CanonicalRecord {
	var out []domain.CanonicalRecord

	for i, row := range rows {
		if i == 0 {
			continue // column names
		}

		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			// The units line under the header also lands here.
			if i > 1 {
				a.logger.Warn("skipping grid row with bad time", "row", i, "value", row[0])
				a.metrics.RecordsSkipped.WithLabelValues(a.Name(), "bad_time").Inc()
			}
			continue
		}
		lat, errLat := strconv.ParseFloat(row[1], 64)
		lon, errLon := strconv.ParseFloat(row[2], 64)
		if errLat != nil || errLon != nil {
			a.logger.Warn("skipping grid row with bad coordinates", "row", i)
			a.metrics.RecordsSkipped.WithLabelValues(a.Name(), "bad_coordinates").Inc()
			continue
		}
		sst, err := strconv.ParseFloat(row[3], 64)
		if err != nil || sst < sstMin || sst > sstMax {
			continue // land cell, fill value, or sentinel
		}

		lon = domain.NormalizeLon(lon)
		out = append(out, domain.CanonicalRecord{
			ID:          fmt.Sprintf("ERSST_%s_%.1f_%.1f", ts.UTC().Format("2006_01"), lat, lon),
			Lat:         lat,
			Lon:         lon,
			Timestamp:   ts.UTC(),
			Temperature: domain.Float(sst),
			Status:      domain.StatusActive,
			DataSource:  domain.SourceGridded,
		})
	}
	return out
}
