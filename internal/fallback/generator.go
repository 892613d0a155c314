package fallback

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

// Coordinate jitter around a cluster center, in degrees.
const (
	latJitter = 5.0
	lonJitter = 10.0
)

// inactiveShare is the fraction of synthetic platforms marked inactive.
const inactiveShare = 0.2

// Generator produces synthetic records from regional profiles. Output
// values are random; only their distributional shape (each value inside
// its region's configured range) is contractual.
type Generator struct {
	profiles []Profile
	logger   *slog.Logger
}

// NewGenerator creates a Generator over the given profile table.
func NewGenerator(profiles []Profile, logger *slog.Logger) *Generator {
	return &Generator{profiles: profiles, logger: logger}
}

// Profiles exposes the loaded table, read-only by convention.
func (g *Generator) Profiles() []Profile { return g.profiles }

// Generate produces count synthetic records for one region: coordinates
// sampled from the region's clusters with bounded jitter, measurements from
// its configured ranges, timestamps uniform inside [start, end].
func (g *Generator) Generate(p Profile, start, end time.Time, count int) []domain.CanonicalRecord {
	records := make([]domain.CanonicalRecord, 0, count)

	for i := 0; i < count; i++ {
		c := p.Clusters[rand.IntN(len(p.Clusters))]
		lat := clampLat(c.Lat + uniform(-latJitter, latJitter))
		lon := domain.NormalizeLon(c.Lon + uniform(-lonJitter, lonJitter))

		status := domain.StatusActive
		if rand.Float64() < inactiveShare {
			status = domain.StatusInactive
		}

		ts := sampleTime(start, end)
		records = append(records, domain.CanonicalRecord{
			ID: fmt.Sprintf("WMO_%d_%s_FALLBACK_%s",
				ts.Year(), regionAbbrev(p.Name), uuid.NewString()[:8]),
			Lat:         domain.Round(lat, 3),
			Lon:         domain.Round(lon, 3),
			Timestamp:   ts,
			Temperature: domain.Float(domain.Round(uniform(p.Temperature.Min, p.Temperature.Max), 2)),
			Salinity:    domain.Float(domain.Round(uniform(p.Salinity.Min, p.Salinity.Max), 2)),
			Pressure:    domain.Float(domain.Round(uniform(p.Pressure.Min, p.Pressure.Max), 1)),
			CycleNumber: domain.Int(rand.IntN(250) + 1),
			Status:      status,
			DataSource:  domain.SourceFallback,
		})
	}
	return records
}

// ForRequest synthesizes records for every region the request's box
// implies, keeping only records that land inside the box. When no region
// intersects, all regions are sampled so the caller still gets data.
func (g *Generator) ForRequest(req domain.FetchRequest, perRegion int) []domain.CanonicalRecord {
	regions := make([]Profile, 0, len(g.profiles))
	for _, p := range g.profiles {
		if p.Intersects(req) {
			regions = append(regions, p)
		}
	}
	if len(regions) == 0 {
		regions = g.profiles
	}

	var all, inBox []domain.CanonicalRecord
	for _, p := range regions {
		for _, rec := range g.Generate(capDepth(p, req.DepthCeiling), req.Start, req.End, perRegion) {
			all = append(all, rec)
			if req.Contains(rec.Lat, rec.Lon) {
				inBox = append(inBox, rec)
			}
		}
	}

	// A box no cluster can reach still gets plausible data; the fallback
	// tag tells consumers it is synthetic either way.
	out := inBox
	if len(out) == 0 {
		out = all
	}

	g.logger.Info("synthesized fallback records",
		"regions", len(regions), "records", len(out), "outside_box", len(all)-len(inBox))
	return out
}

// capDepth narrows a profile's pressure range so synthetic records stay
// above the requested depth ceiling.
func capDepth(p Profile, ceiling *float64) Profile {
	if ceiling == nil || p.Pressure.Max <= *ceiling {
		return p
	}
	p.Pressure.Max = *ceiling
	if p.Pressure.Min > p.Pressure.Max {
		p.Pressure.Min = p.Pressure.Max
	}
	return p
}

func uniform(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

func clampLat(lat float64) float64 {
	if lat > 90 {
		return 90
	}
	if lat < -90 {
		return -90
	}
	return lat
}

func sampleTime(start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start.UTC()
	}
	return start.Add(time.Duration(rand.Int64N(int64(span)))).UTC().Truncate(time.Hour)
}

func regionAbbrev(name string) string {
	if len(name) <= 3 {
		return name
	}
	return name[:3]
}
