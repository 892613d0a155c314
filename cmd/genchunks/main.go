// Command genchunks seeds the two-year SQLite chunk database with
// regionally plausible float measurements, so the archive adapter and demo
// deployments have history to serve without a bulk download. It reuses the
// regional profile table the fallback generator ships with, which keeps
// seeded values inside the same plausible ranges the service itself would
// synthesize.
//
// Usage:
//
//	go run ./cmd/genchunks -db data/argo_chunks.db -start-year 2005 -end-year 2020 -rows 500
//	go run ./cmd/genchunks -db data/argo_chunks.db -start-year 2005 -end-year 2020 -verify
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/ocean-data-service/internal/adapter/archive"
	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/fallback"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "data/argo_chunks.db", "path to the chunk database")
	startYear := flag.Int("start-year", 2005, "first year to seed")
	endYear := flag.Int("end-year", 2020, "last year to seed")
	rows := flag.Int("rows", 500, "rows per ocean per year")
	seed := flag.Uint64("seed", 1, "seed for reproducible output")
	verify := flag.Bool("verify", false, "check existing partitions instead of writing")
	flag.Parse()

	if *startYear > *endYear {
		return fmt.Errorf("start-year %d is after end-year %d", *startYear, *endYear)
	}

	if !*verify {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
			return err
		}
	}

	store, err := archive.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if *verify {
		return verifyPartitions(ctx, store, *startYear, *endYear)
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))
	return seedPartitions(ctx, store, rng, *startYear, *endYear, *rows)
}

// seedPartitions writes one partition per two-year window, each holding
// rows*len(profiles) rows per covered year.
func seedPartitions(ctx context.Context, store *archive.Store, rng *rand.Rand, startYear, endYear, rowsPerOcean int) error {
	profiles := fallback.DefaultProfiles()

	seeded := map[string]bool{}
	for year := startYear; year <= endYear; year++ {
		partition := archive.PartitionFor(year)
		if seeded[partition] {
			continue
		}
		seeded[partition] = true

		if err := store.CreatePartition(ctx, partition); err != nil {
			return err
		}

		var rows []archive.Row
		for _, coveredYear := range partitionYears(partition) {
			for _, p := range profiles {
				rows = append(rows, generateRows(rng, p, coveredYear, rowsPerOcean)...)
			}
		}
		if err := store.InsertRows(ctx, partition, rows); err != nil {
			return err
		}
		log.Printf("partition %s: %d rows", partition, len(rows))
	}

	log.Printf("seeded %d partitions", len(seeded))
	return nil
}

// generateRows fabricates measurement rows for one ocean and year, scattered
// around the profile's cluster coordinates.
func generateRows(rng *rand.Rand, p fallback.Profile, year, count int) []archive.Row {
	rows := make([]archive.Row, 0, count)
	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		c := p.Clusters[rng.IntN(len(p.Clusters))]
		rows = append(rows, archive.Row{
			Year:           year,
			Ocean:          p.Name,
			PlatformNumber: fmt.Sprintf("69%05d", rng.IntN(100000)),
			CycleNumber:    rng.IntN(250) + 1,
			Latitude:       clampLat(c.Lat + uniform(rng, -5, 5)),
			Longitude:      domain.NormalizeLon(c.Lon + uniform(rng, -10, 10)),
			Time:           yearStart.Add(time.Duration(rng.Int64N(int64(365 * 24 * time.Hour)))),
			Pres:           nullFloat(rng, uniform(rng, p.Pressure.Min, p.Pressure.Max), 0.05),
			Temp:           nullFloat(rng, uniform(rng, p.Temperature.Min, p.Temperature.Max), 0.05),
			Psal:           nullFloat(rng, uniform(rng, p.Salinity.Min, p.Salinity.Max), 0.05),
		})
	}
	return rows
}

// verifyPartitions reports the state of every partition the year range maps
// to, failing if any is missing or empty.
func verifyPartitions(ctx context.Context, store *archive.Store, startYear, endYear int) error {
	checked := map[string]bool{}
	var missing int
	for year := startYear; year <= endYear; year++ {
		partition := archive.PartitionFor(year)
		if checked[partition] {
			continue
		}
		checked[partition] = true

		ok, err := store.HasPartition(ctx, partition)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("partition %s: MISSING", partition)
			missing++
			continue
		}
		rows, err := store.LoadPartition(ctx, partition, "")
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			log.Printf("partition %s: EMPTY", partition)
			missing++
			continue
		}
		log.Printf("partition %s: %d rows ok", partition, len(rows))
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d partitions missing or empty", missing, len(checked))
	}
	log.Printf("all %d partitions ok", len(checked))
	return nil
}

// partitionYears decodes "2007_2008" back into its covered years.
func partitionYears(partition string) []int {
	var start, end int
	fmt.Sscanf(partition, "%d_%d", &start, &end)
	return []int{start, end}
}

// nullFloat returns v as a valid NullFloat64, except for a nullShare chance
// of a NULL so the cleaning pipeline always has something to impute.
func nullFloat(rng *rand.Rand, v float64, nullShare float64) sql.NullFloat64 {
	if rng.Float64() < nullShare {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
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

