package archive

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

// inactivePercent is the share of archive records deterministically marked
// inactive, matching the observed retirement rate of the float network.
const inactivePercent = 15

// Adapter implements domain.SourceAdapter over a chunk Store. It is
// file-backed, so unlike the network adapters it carries no retryer.
type Adapter struct {
	store  *Store
	logger *slog.Logger
}

// NewAdapter creates an archive adapter over the given chunk store.
func NewAdapter(store *Store, logger *slog.Logger) *Adapter {
	return &Adapter{store: store, logger: logger}
}

func (a *Adapter) Name() string { return "archive" }

// Fetch loads every partition the request's years touch, filters rows to
// the request's box, window, and optional ocean name, and maps them to
// canonical records. Missing partitions contribute nothing; a store failure
// only surfaces as an error when no partition could be read at all.
func (a *Adapter) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.CanonicalRecord, error) {
	var (
		records  []domain.CanonicalRecord
		loaded   int
		lastErr  error
		resolved = map[string]bool{}
	)

	for _, year := range req.Years() {
		partition := PartitionFor(year)
		if resolved[partition] {
			continue
		}
		resolved[partition] = true

		ok, err := a.store.HasPartition(ctx, partition)
		if err != nil {
			lastErr = err
			a.logger.Warn("archive partition check failed", "partition", partition, "error", err)
			continue
		}
		if !ok {
			a.logger.Debug("archive partition not present", "partition", partition)
			continue
		}

		rows, err := a.store.LoadPartition(ctx, partition, req.Ocean)
		if err != nil {
			lastErr = err
			a.logger.Warn("archive partition load failed", "partition", partition, "error", err)
			continue
		}
		loaded++

		records = append(records, a.mapRows(rows, req)...)
	}

	if loaded == 0 && lastErr != nil {
		return nil, fmt.Errorf("archive unavailable: %w", lastErr)
	}
	return records, nil
}

func (a *Adapter) mapRows(rows []Row, req domain.FetchRequest) []domain.CanonicalRecord {
	windowEnd := req.End.UTC().Add(24 * time.Hour) // End is an inclusive date
	var out []domain.CanonicalRecord

	for _, r := range rows {
		lon := domain.NormalizeLon(r.Longitude)
		if !req.Contains(r.Latitude, lon) {
			continue
		}
		if r.Time.Before(req.Start) || !r.Time.Before(windowEnd) {
			continue
		}

		rec := domain.CanonicalRecord{
			ID: fmt.Sprintf("WMO_%d_%s_%s_%d",
				r.Year, oceanAbbrev(r.Ocean), r.PlatformNumber, r.CycleNumber),
			Lat:         domain.Round(r.Latitude, 3),
			Lon:         domain.Round(lon, 3),
			Timestamp:   r.Time.UTC(),
			CycleNumber: domain.Int(r.CycleNumber),
			Status:      statusFor(r.PlatformNumber, r.CycleNumber),
			DataSource:  domain.SourceArchive,
		}
		if r.Temp.Valid {
			rec.Temperature = domain.Float(r.Temp.Float64)
		}
		if r.Psal.Valid {
			rec.Salinity = domain.Float(r.Psal.Float64)
		}
		if r.Pres.Valid {
			rec.Pressure = domain.Float(r.Pres.Float64)
		}

		if !rec.HasMeasurement() {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// statusFor derives active/inactive from a hash of the identifying fields,
// so repeated loads of the same partition assign identical statuses.
func statusFor(platform string, cycle int) domain.Status {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d", platform, cycle)
	if h.Sum32()%100 < inactivePercent {
		return domain.StatusInactive
	}
	return domain.StatusActive
}

func oceanAbbrev(ocean string) string {
	if len(ocean) <= 3 {
		return ocean
	}
	return ocean[:3]
}
