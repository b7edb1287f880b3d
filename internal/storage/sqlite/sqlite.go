// Package sqlite reads ice readings from a local SQLite database. It is
// meant for development and for sites that export readings to a file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/canalwatch/icewatch/pkg/config"
	"github.com/canalwatch/icewatch/pkg/migrate"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage holds the SQLite handle
type Storage struct {
	db     *sql.DB
	dbPath string
}

// New opens the database at cfg.Path read-only
func New(cfg config.SQLiteData) (*Storage, error) {
	dsn := cfg.Path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	log.Infof("using SQLite reading database %s", cfg.Path)
	return &Storage{db: db, dbPath: cfg.Path}, nil
}

// Migrate brings the readings schema in db up to date
func Migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	migrations, err := migrate.Load(sub)
	if err != nil {
		return err
	}
	return migrate.NewMigrator(db, migrations, "").Up(ctx)
}

// Provision creates or upgrades the readings schema in the database at
// path, creating the file if needed.
func Provision(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return nil
}

// NewWithDB wraps an open handle
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// BuildQuery renders q as SQL with positional parameters
func BuildQuery(q storage.Query) (string, []any) {
	var args []any
	var b strings.Builder

	if q.StatusOnly {
		b.WriteString("SELECT id, location, window_end_time, 0, 0, NULL, NULL, safety_status, 0 FROM ice_readings")
	} else {
		b.WriteString("SELECT id, location, window_end_time, avg_ice_thickness, avg_surface_temperature, avg_snow_accumulation, max_snow_accumulation, safety_status, reading_count FROM ice_readings")
	}

	if q.Location != "" {
		b.WriteString(" WHERE location = ?")
		args = append(args, q.Location)
	}
	// window_end_time may mix fractional precision, separators and zones, so
	// it is ordered as an instant rather than as text
	if q.Descending {
		b.WriteString(" ORDER BY julianday(window_end_time) DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY julianday(window_end_time) ASC, id ASC")
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return b.String(), args
}

// Query runs q
func (s *Storage) Query(ctx context.Context, q storage.Query) ([]types.Reading, error) {
	query, args := BuildQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings (%s): %w", q, err)
	}
	defer rows.Close()

	var readings []types.Reading
	for rows.Next() {
		var (
			r       types.Reading
			ts      string
			avgSnow sql.NullFloat64
			maxSnow sql.NullFloat64
			safety  string
		)
		if err := rows.Scan(&r.ID, &r.Location, &ts, &r.AvgIceThickness, &r.AvgSurfaceTemperature,
			&avgSnow, &maxSnow, &safety, &r.ReadingCount); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		r.WindowEndTime, err = storage.ParseWindowEnd(ts)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", r.ID, err)
		}
		r.AvgSnowAccumulation = storage.SnowValue(nullable(avgSnow), nullable(maxSnow))
		r.SafetyStatus = types.SafetyStatus(safety)

		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading rows: %w", err)
	}

	return readings, nil
}

func nullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

// Ping checks the database handle
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Backend returns "sqlite"
func (s *Storage) Backend() string {
	return config.BackendSQLite
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
