package timescaledb

import (
	"context"
	"fmt"

	"github.com/canalwatch/icewatch/internal/database"
	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/canalwatch/icewatch/pkg/config"
	"gorm.io/gorm"
)

// Storage reads ice readings from a TimescaleDB (or plain PostgreSQL) table
type Storage struct {
	TimescaleDBConn *gorm.DB
	table           string
}

// New opens the connection described by cfg
func New(cfg config.TimescaleDBData) (*Storage, error) {
	db, err := database.CreateConnection(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to TimescaleDB: %w", err)
	}
	return NewWithDB(db, cfg.Table), nil
}

// NewWithDB wraps an existing gorm handle
func NewWithDB(db *gorm.DB, table string) *Storage {
	if table == "" {
		table = database.ReadingRecord{}.TableName()
	}
	return &Storage{TimescaleDBConn: db, table: table}
}

// Query translates q into a parameterized SELECT
func (t *Storage) Query(ctx context.Context, q storage.Query) ([]types.Reading, error) {
	var records []database.ReadingRecord
	if err := t.selectReadings(t.TimescaleDBConn.WithContext(ctx), q).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error querying %s (%s): %w", t.table, q, err)
	}

	readings := make([]types.Reading, 0, len(records))
	for _, rec := range records {
		readings = append(readings, rec.ToReading())
	}
	return readings, nil
}

func (t *Storage) selectReadings(tx *gorm.DB, q storage.Query) *gorm.DB {
	tx = tx.Table(t.table)

	if q.StatusOnly {
		tx = tx.Select(database.StatusColumns)
	}
	if q.Location != "" {
		tx = tx.Where("location = ?", q.Location)
	}
	if q.Descending {
		tx = tx.Order("window_end_time DESC")
	} else {
		tx = tx.Order("window_end_time ASC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx
}

// Ping checks the underlying connection pool
func (t *Storage) Ping(ctx context.Context) error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return fmt.Errorf("could not get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Backend returns "timescaledb"
func (t *Storage) Backend() string {
	return config.BackendTimescaleDB
}

// Close releases the connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
