package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognized by EnvProvider
const (
	EnvCosmosEndpoint  = "COSMOS_ENDPOINT"
	EnvCosmosKey       = "COSMOS_KEY"
	EnvCosmosDatabase  = "COSMOS_DATABASE"
	EnvCosmosContainer = "COSMOS_CONTAINER"
	EnvPort            = "PORT"
	EnvListenAddr      = "ICEWATCH_LISTEN_ADDR"
	EnvStoreBackend    = "ICEWATCH_STORE_BACKEND"
	EnvDSN             = "ICEWATCH_DSN"
	EnvLogFile         = "ICEWATCH_LOG_FILE"
)

// EnvProvider layers a .env file and the process environment on top of a
// base provider, then applies defaults.
type EnvProvider struct {
	base    ConfigProvider
	envFile string
	lookup  func(string) (string, bool)
}

// NewEnvProvider creates an EnvProvider. base may be nil, in which case the
// configuration starts empty. envFile may be empty to skip .env loading.
func NewEnvProvider(base ConfigProvider, envFile string) *EnvProvider {
	return &EnvProvider{
		base:    base,
		envFile: envFile,
		lookup:  os.LookupEnv,
	}
}

// WithLookup replaces the environment lookup function
func (e *EnvProvider) WithLookup(fn func(string) (string, bool)) *EnvProvider {
	e.lookup = fn
	return e
}

// LoadConfig loads the base configuration and overlays environment settings
func (e *EnvProvider) LoadConfig() (*ConfigData, error) {
	cfg := &ConfigData{}
	if e.base != nil {
		var err error
		cfg, err = e.base.LoadConfig()
		if err != nil {
			return nil, err
		}
	}

	if e.envFile != "" {
		// godotenv never overrides variables already present in the environment
		if err := godotenv.Load(e.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", e.envFile, err)
		}
	}

	if err := e.overlay(cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func (e *EnvProvider) overlay(cfg *ConfigData) error {
	setString := func(name string, dst *string) {
		if v, ok := e.lookup(name); ok && v != "" {
			*dst = v
		}
	}

	setString(EnvStoreBackend, &cfg.Store.Backend)
	setString(EnvCosmosEndpoint, &cfg.Store.Cosmos.Endpoint)
	setString(EnvCosmosKey, &cfg.Store.Cosmos.Key)
	setString(EnvCosmosDatabase, &cfg.Store.Cosmos.Database)
	setString(EnvCosmosContainer, &cfg.Store.Cosmos.Container)
	setString(EnvListenAddr, &cfg.Server.ListenAddr)
	setString(EnvLogFile, &cfg.Log.File)

	if dsn, ok := e.lookup(EnvDSN); ok && dsn != "" {
		switch cfg.Store.Backend {
		case BackendTimescaleDB:
			cfg.Store.TimescaleDB.ConnectionString = dsn
		case BackendSQLite:
			cfg.Store.SQLite.Path = dsn
		}
	}

	if p, ok := e.lookup(EnvPort); ok && p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, p, err)
		}
		cfg.Server.Port = port
	}

	return nil
}
