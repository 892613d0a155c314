// Package archive adapts two-year columnar partitions of historical float
// data into canonical records. Partitions live as tables in a single SQLite
// file; a request year y maps to the partition starting at y-1 when y is
// even, y otherwise, so consecutive odd/even years share a chunk.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

// partitionRe guards table-name interpolation; partitions are always
// "<start>_<end>" with four-digit years.
var partitionRe = regexp.MustCompile(`^\d{4}_\d{4}$`)

// PartitionFor resolves a request year to its two-year partition name,
// e.g. 2007 and 2008 both resolve to "2007_2008".
func PartitionFor(year int) string {
	start := year
	if year%2 == 0 {
		start = year - 1
	}
	return fmt.Sprintf("%d_%d", start, start+1)
}

// Row is one measurement row as stored in a chunk partition.
type Row struct {
	Year           int
	Ocean          string
	PlatformNumber string
	CycleNumber    int
	Latitude       float64
	Longitude      float64
	Time           time.Time
	Pres           sql.NullFloat64
	Temp           sql.NullFloat64
	Psal           sql.NullFloat64
}

// Store reads and writes chunk partitions in a SQLite database file.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the chunk database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open chunk store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping chunk store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// HasPartition reports whether the named partition table exists.
func (s *Store) HasPartition(ctx context.Context, partition string) (bool, error) {
	if !partitionRe.MatchString(partition) {
		return false, fmt.Errorf("malformed partition name %q", partition)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		tableName(partition)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check partition %s: %w", partition, err)
	}
	return n > 0, nil
}

// LoadPartition reads all rows of a partition, optionally filtered to one
// named ocean. A missing partition is an error; callers distinguish it via
// HasPartition first.
func (s *Store) LoadPartition(ctx context.Context, partition, ocean string) ([]Row, error) {
	if !partitionRe.MatchString(partition) {
		return nil, fmt.Errorf("malformed partition name %q", partition)
	}

	query := fmt.Sprintf(
		`SELECT year, ocean, platform_number, cycle_number, latitude, longitude, time, pres, temp, psal
		 FROM %s`, tableName(partition))
	var args []any
	if ocean != "" {
		query += ` WHERE ocean = ?`
		args = append(args, ocean)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load partition %s: %w", partition, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var ts string
		if err := rows.Scan(&r.Year, &r.Ocean, &r.PlatformNumber, &r.CycleNumber,
			&r.Latitude, &r.Longitude, &ts, &r.Pres, &r.Temp, &r.Psal); err != nil {
			return nil, fmt.Errorf("scan partition %s: %w", partition, err)
		}
		r.Time, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("partition %s: bad time %q: %w", partition, ts, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read partition %s: %w", partition, err)
	}
	return out, nil
}

// CreatePartition creates (or replaces) a partition table. Used by the
// chunk generator and tests.
func (s *Store) CreatePartition(ctx context.Context, partition string) error {
	if !partitionRe.MatchString(partition) {
		return fmt.Errorf("malformed partition name %q", partition)
	}
	table := tableName(partition)
	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table),
		fmt.Sprintf(`CREATE TABLE %s (
			year INTEGER NOT NULL,
			ocean TEXT NOT NULL,
			platform_number TEXT NOT NULL,
			cycle_number INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			time TEXT NOT NULL,
			pres REAL,
			temp REAL,
			psal REAL
		)`, table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create partition %s: %w", partition, err)
		}
	}
	return nil
}

// InsertRows appends rows to a partition inside one transaction.
func (s *Store) InsertRows(ctx context.Context, partition string, rows []Row) error {
	if !partitionRe.MatchString(partition) {
		return fmt.Errorf("malformed partition name %q", partition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into partition %s: %w", partition, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (year, ocean, platform_number, cycle_number, latitude, longitude, time, pres, temp, psal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, tableName(partition)))
	if err != nil {
		return fmt.Errorf("insert into partition %s: %w", partition, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx, r.Year, r.Ocean, r.PlatformNumber, r.CycleNumber,
			r.Latitude, r.Longitude, r.Time.UTC().Format(time.RFC3339), r.Pres, r.Temp, r.Psal)
		if err != nil {
			return fmt.Errorf("insert into partition %s: %w", partition, err)
		}
	}
	return tx.Commit()
}

func tableName(partition string) string {
	return "argo_" + partition
}
