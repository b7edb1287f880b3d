package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/canalwatch/icewatch/internal/controllers/restserver"
	"github.com/canalwatch/icewatch/internal/locations"
	"github.com/canalwatch/icewatch/internal/log"
	"github.com/canalwatch/icewatch/internal/managers"
	"github.com/canalwatch/icewatch/internal/query"
	"github.com/canalwatch/icewatch/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	config *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		config: cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mapper, err := locations.NewMapper(a.config.Locations)
	if err != nil {
		return err
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, a.config.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := storageManager.Close(); err != nil {
			log.Errorf("error closing reading store: %v", err)
		}
	}()

	svc := query.NewService(storageManager.Store, mapper, a.config.Query, a.logger)

	rest, err := restserver.NewController(ctx, &wg, a.config, svc, storageManager.Health)
	if err != nil {
		return err
	}
	if err := rest.StartController(); err != nil {
		return err
	}

	a.logger.Infow("Application started successfully",
		"backend", storageManager.Store.Backend(),
		"locations", len(mapper.All()),
	)

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
