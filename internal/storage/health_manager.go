package storage

import (
	"context"
	"sync"
	"time"

	"github.com/canalwatch/icewatch/internal/log"
)

// HealthData is the last observed reachability of a store
type HealthData struct {
	Status    string    `json:"status"`
	Message   string    `json:"-"`
	LastCheck time.Time `json:"lastCheck"`
}

// HealthMonitor pings a store on an interval and remembers the outcome
type HealthMonitor struct {
	store    ReadingStore
	interval time.Duration
	timeout  time.Duration

	mu     sync.RWMutex
	health HealthData
}

// NewHealthMonitor creates a monitor; call Start to begin checking
func NewHealthMonitor(store ReadingStore, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		store:    store,
		interval: interval,
		timeout:  10 * time.Second,
		health:   HealthData{Status: "unknown"},
	}
}

// Start runs an immediate check and then one per interval until ctx is done
func (h *HealthMonitor) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		h.Check(ctx)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.Check(ctx)
			case <-ctx.Done():
				log.Infof("stopping %s health monitor", h.store.Backend())
				return
			}
		}
	}()
}

// Check pings the store once and records the result
func (h *HealthMonitor) Check(ctx context.Context) HealthData {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	health := HealthData{
		Status:    "healthy",
		LastCheck: time.Now().UTC(),
	}
	if err := h.store.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Message = err.Error()
		log.Warnf("%s health check failed: %v", h.store.Backend(), err)
	} else {
		log.Debugf("%s health check ok", h.store.Backend())
	}

	h.mu.Lock()
	h.health = health
	h.mu.Unlock()

	return health
}

// Status returns the most recent check result
func (h *HealthMonitor) Status() HealthData {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}
