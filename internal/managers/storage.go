package managers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/storage/cosmos"
	"github.com/canalwatch/icewatch/internal/storage/sqlite"
	"github.com/canalwatch/icewatch/internal/storage/timescaledb"
	"github.com/canalwatch/icewatch/pkg/config"
)

// StorageManager owns the single reading store handle for the process
type StorageManager struct {
	Store  storage.ReadingStore
	Health *storage.HealthMonitor
}

// NewStorageManager opens the configured backend. A backend with missing
// connection settings is replaced by a store that fails every query, so the
// server still comes up and /health can report what is missing.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c config.StoreData) (*StorageManager, error) {
	store, err := OpenStore(c)
	if err != nil {
		return nil, err
	}

	s := &StorageManager{
		Store:  store,
		Health: storage.NewHealthMonitor(store, 60*time.Second),
	}
	s.Health.Start(ctx, wg)

	return s, nil
}

// OpenStore opens the configured backend, or an unconfigured store when
// connection settings are missing.
func OpenStore(c config.StoreData) (storage.ReadingStore, error) {
	if missing := c.MissingFields(); len(missing) > 0 {
		log.Warnf("%s store is missing %s; all queries will fail until it is configured",
			c.Backend, strings.Join(missing, ", "))
		return storage.NewUnconfigured(c.Backend, missing), nil
	}

	switch c.Backend {
	case config.BackendCosmos:
		s, err := cosmos.New(c.Cosmos)
		if err != nil {
			return nil, fmt.Errorf("could not add Cosmos DB storage backend: %v", err)
		}
		return s, nil
	case config.BackendTimescaleDB:
		s, err := timescaledb.New(c.TimescaleDB)
		if err != nil {
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %v", err)
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlite.New(c.SQLite)
		if err != nil {
			return nil, fmt.Errorf("could not add SQLite storage backend: %v", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownBackend, c.Backend)
	}
}

// Close releases the store
func (s *StorageManager) Close() error {
	return s.Store.Close()
}
