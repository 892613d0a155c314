// Package fallback synthesizes regionally plausible ocean records when
// every real source fails. Generated records are always tagged
// domain.SourceFallback; that tag is the consumer's only way to tell
// synthetic data from observed data and must never be dropped.
package fallback

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

// Range is an inclusive numeric interval a value is sampled from.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Cluster is a representative coordinate a region's synthetic records are
// scattered around.
type Cluster struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Bounds is a region's overall bounding box, used to decide which regions a
// request implies.
type Bounds struct {
	LatMin float64 `yaml:"latMin"`
	LatMax float64 `yaml:"latMax"`
	LonMin float64 `yaml:"lonMin"`
	LonMax float64 `yaml:"lonMax"`
}

// Profile holds one named ocean region's plausible value ranges. Profiles
// are loaded once at process start and read-only thereafter.
type Profile struct {
	Name        string    `yaml:"name"`
	Bounds      Bounds    `yaml:"bounds"`
	Clusters    []Cluster `yaml:"clusters"`
	Temperature Range     `yaml:"temperature"`
	Salinity    Range     `yaml:"salinity"`
	Pressure    Range     `yaml:"pressure"`
}

// Intersects reports whether the profile's bounding box overlaps the
// request's spatial box under either longitude convention.
func (p Profile) Intersects(req domain.FetchRequest) bool {
	if p.Bounds.LatMax < req.LatMin || p.Bounds.LatMin > req.LatMax {
		return false
	}
	if p.Bounds.LonMax >= req.LonMin && p.Bounds.LonMin <= req.LonMax {
		return true
	}
	// Request boxes may use [0,360); retry with the profile shifted.
	return p.Bounds.LonMax+360 >= req.LonMin && p.Bounds.LonMin+360 <= req.LonMax
}

// pressureRange spans the operationally valid float depth in dbar.
var pressureRange = Range{Min: 5, Max: 2000}

// DefaultProfiles returns the built-in regional table: warmer/saltier
// low-latitude basins, colder/fresher polar basins.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:        "Indian",
			Bounds:      Bounds{LatMin: -40, LatMax: 30, LonMin: 20, LonMax: 120},
			Clusters:    []Cluster{{Lat: 30, Lon: 75}, {Lat: 20, Lon: 65}, {Lat: 35, Lon: 70}},
			Temperature: Range{Min: 20, Max: 32},
			Salinity:    Range{Min: 34.5, Max: 36.5},
			Pressure:    pressureRange,
		},
		{
			Name:        "Atlantic",
			Bounds:      Bounds{LatMin: -60, LatMax: 70, LonMin: -70, LonMax: 20},
			Clusters:    []Cluster{{Lat: 25, Lon: -50}, {Lat: 35, Lon: -25}, {Lat: 30, Lon: -40}},
			Temperature: Range{Min: 15, Max: 28},
			Salinity:    Range{Min: 34.0, Max: 36.0},
			Pressure:    pressureRange,
		},
		{
			Name:        "Pacific",
			Bounds:      Bounds{LatMin: -60, LatMax: 60, LonMin: -170, LonMax: -70},
			Clusters:    []Cluster{{Lat: 20, Lon: -160}, {Lat: 25, Lon: -170}, {Lat: 40, Lon: -120}},
			Temperature: Range{Min: 18, Max: 30},
			Salinity:    Range{Min: 33.0, Max: 35.0},
			Pressure:    pressureRange,
		},
		{
			Name:        "Southern",
			Bounds:      Bounds{LatMin: -90, LatMax: -40, LonMin: -180, LonMax: 180},
			Clusters:    []Cluster{{Lat: -55, Lon: -60}, {Lat: -45, Lon: -20}, {Lat: -50, Lon: -90}},
			Temperature: Range{Min: 2, Max: 8},
			Salinity:    Range{Min: 33.5, Max: 34.5},
			Pressure:    pressureRange,
		},
		{
			Name:        "Arctic",
			Bounds:      Bounds{LatMin: 70, LatMax: 90, LonMin: -180, LonMax: 180},
			Clusters:    []Cluster{{Lat: 75, Lon: -150}, {Lat: 80, Lon: 10}, {Lat: 78, Lon: 120}},
			Temperature: Range{Min: -2, Max: 4},
			Salinity:    Range{Min: 30.0, Max: 34.0},
			Pressure:    pressureRange,
		},
	}
}

// LoadProfiles reads a YAML override file, falling back to the built-in
// table when path is empty.
func LoadProfiles(path string) ([]Profile, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	var profiles []Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profile file: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("profile file %s defines no regions", path)
	}
	for i, p := range profiles {
		if p.Name == "" || len(p.Clusters) == 0 {
			return nil, fmt.Errorf("profile %d is missing a name or clusters", i)
		}
		if p.Pressure == (Range{}) {
			profiles[i].Pressure = pressureRange
		}
	}
	return profiles, nil
}
