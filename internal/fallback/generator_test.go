package fallback

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	return NewGenerator(DefaultProfiles(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func profileByName(t *testing.T, name string) Profile {
	t.Helper()
	for _, p := range DefaultProfiles() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no profile %q", name)
	return Profile{}
}

func window2015() (time.Time, time.Time) {
	return time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC)
}

func TestGenerate_ValuesWithinProfileRanges(t *testing.T) {
	g := testGenerator(t)
	indian := profileByName(t, "Indian")
	start, end := window2015()

	records := g.Generate(indian, start, end, 200)
	require.Len(t, records, 200)

	for _, rec := range records {
		assert.Equal(t, domain.SourceFallback, rec.DataSource)

		require.NotNil(t, rec.Temperature)
		assert.GreaterOrEqual(t, *rec.Temperature, indian.Temperature.Min)
		assert.LessOrEqual(t, *rec.Temperature, indian.Temperature.Max)

		require.NotNil(t, rec.Salinity)
		assert.GreaterOrEqual(t, *rec.Salinity, indian.Salinity.Min)
		assert.LessOrEqual(t, *rec.Salinity, indian.Salinity.Max)

		require.NotNil(t, rec.Pressure)
		assert.GreaterOrEqual(t, *rec.Pressure, 5.0)
		assert.LessOrEqual(t, *rec.Pressure, 2000.0)

		assert.False(t, rec.Timestamp.Before(start))
		assert.False(t, rec.Timestamp.After(end))

		// Jitter stays bounded around some cluster.
		nearCluster := false
		for _, c := range indian.Clusters {
			if abs(rec.Lat-c.Lat) <= latJitter+1e-9 && abs(rec.Lon-c.Lon) <= lonJitter+1e-9 {
				nearCluster = true
				break
			}
		}
		assert.True(t, nearCluster, "record at (%g, %g) far from every cluster", rec.Lat, rec.Lon)
	}
}

func TestGenerate_UniqueIDs(t *testing.T) {
	g := testGenerator(t)
	start, end := window2015()

	records := g.Generate(profileByName(t, "Pacific"), start, end, 100)
	seen := map[string]bool{}
	for _, rec := range records {
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestForRequest_SelectsImpliedRegions(t *testing.T) {
	g := testGenerator(t)
	start, end := window2015()

	// The Indian Ocean box from the outage scenario.
	req := domain.FetchRequest{
		LonMin: 20, LonMax: 120, LatMin: -60, LatMax: 30,
		Start: start, End: end,
	}

	records := g.ForRequest(req, 50)
	require.NotEmpty(t, records)

	indian := profileByName(t, "Indian")
	for _, rec := range records {
		assert.Equal(t, domain.SourceFallback, rec.DataSource)
		assert.True(t, req.Contains(rec.Lat, rec.Lon),
			"record at (%g, %g) outside request box", rec.Lat, rec.Lon)
		// Only Indian clusters land inside this box, so every surviving
		// temperature obeys the Indian profile.
		require.NotNil(t, rec.Temperature)
		assert.GreaterOrEqual(t, *rec.Temperature, indian.Temperature.Min)
		assert.LessOrEqual(t, *rec.Temperature, indian.Temperature.Max)
	}
}

func TestForRequest_RespectsDepthCeiling(t *testing.T) {
	g := testGenerator(t)
	start, end := window2015()

	req := domain.FetchRequest{
		LonMin: 20, LonMax: 120, LatMin: -60, LatMax: 30,
		Start: start, End: end,
		DepthCeiling: domain.Float(100),
	}

	records := g.ForRequest(req, 50)
	require.NotEmpty(t, records)
	for _, rec := range records {
		require.NotNil(t, rec.Pressure)
		assert.LessOrEqual(t, *rec.Pressure, 100.0)
	}
}

func TestForRequest_UnreachableBoxStillYieldsRecords(t *testing.T) {
	g := testGenerator(t)
	start, end := window2015()

	// A sliver no cluster's jitter can reach: the generator still returns
	// plausible (out-of-box) records rather than nothing.
	req := domain.FetchRequest{
		LonMin: 130, LonMax: 170, LatMin: 62, LatMax: 68,
		Start: start, End: end,
	}
	records := g.ForRequest(req, 10)
	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.Equal(t, domain.SourceFallback, rec.DataSource)
	}
}

func TestLoadProfiles_Default(t *testing.T) {
	profiles, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Len(t, profiles, 5)
}

func TestLoadProfiles_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
- name: TestBasin
  bounds: {latMin: -10, latMax: 10, lonMin: 0, lonMax: 20}
  clusters:
    - {lat: 0, lon: 10}
  temperature: {min: 10, max: 12}
  salinity: {min: 34, max: 35}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "TestBasin", profiles[0].Name)
	// Unset pressure range falls back to the operational default.
	assert.Equal(t, 5.0, profiles[0].Pressure.Min)
	assert.Equal(t, 2000.0, profiles[0].Pressure.Max)
}

func TestLoadProfiles_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`- name: ""`), 0o600))

	_, err := LoadProfiles(path)
	assert.Error(t, err)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
