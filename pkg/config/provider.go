package config

import (
	"errors"
	"fmt"

	"github.com/canalwatch/icewatch/internal/constants"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	LoadConfig() (*ConfigData, error)
}

// Store backend names
const (
	BackendCosmos      = "cosmos"
	BackendTimescaleDB = "timescaledb"
	BackendSQLite      = "sqlite"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Server    ServerData     `yaml:"server" json:"server"`
	Store     StoreData      `yaml:"store" json:"store"`
	Query     QueryData      `yaml:"query" json:"query"`
	Locations []LocationData `yaml:"locations" json:"locations"`
	Dashboard DashboardData  `yaml:"dashboard" json:"dashboard"`
	Log       LogData        `yaml:"log" json:"log"`
}

// ServerData holds HTTP listener settings
type ServerData struct {
	ListenAddr            string  `yaml:"listen_addr,omitempty" json:"listen_addr,omitempty"`
	Port                  int     `yaml:"port,omitempty" json:"port,omitempty"`
	TLSCertPath           string  `yaml:"tls_cert_path,omitempty" json:"tls_cert_path,omitempty"`
	TLSKeyPath            string  `yaml:"tls_key_path,omitempty" json:"tls_key_path,omitempty"`
	ReadTimeoutSeconds    int     `yaml:"read_timeout_seconds,omitempty" json:"read_timeout_seconds,omitempty"`
	WriteTimeoutSeconds   int     `yaml:"write_timeout_seconds,omitempty" json:"write_timeout_seconds,omitempty"`
	DisableDebugEndpoints bool    `yaml:"disable_debug_endpoints,omitempty" json:"disable_debug_endpoints,omitempty"`
	DebugRateLimit        float64 `yaml:"debug_rate_limit,omitempty" json:"debug_rate_limit,omitempty"`
	DebugRateBurst        int     `yaml:"debug_rate_burst,omitempty" json:"debug_rate_burst,omitempty"`
	GzipResponses         bool    `yaml:"gzip_responses,omitempty" json:"gzip_responses,omitempty"`
}

// StoreData selects and configures the reading store backend
type StoreData struct {
	Backend     string          `yaml:"backend" json:"backend"`
	Cosmos      CosmosData      `yaml:"cosmos,omitempty" json:"cosmos,omitempty"`
	TimescaleDB TimescaleDBData `yaml:"timescaledb,omitempty" json:"timescaledb,omitempty"`
	SQLite      SQLiteData      `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
}

// CosmosData holds Azure Cosmos DB connection settings
type CosmosData struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Key       string `yaml:"key" json:"-"`
	Database  string `yaml:"database" json:"database"`
	Container string `yaml:"container" json:"container"`
	// CrossPartition forces cross-partition queries. When unset it is
	// detected at startup from the container's partition key.
	CrossPartition bool `yaml:"cross_partition,omitempty" json:"cross_partition,omitempty"`
}

// TimescaleDBData holds the PostgreSQL/TimescaleDB connection string
type TimescaleDBData struct {
	ConnectionString string `yaml:"connection_string" json:"-"`
	Table            string `yaml:"table,omitempty" json:"table,omitempty"`
}

// SQLiteData holds the path of a SQLite reading database
type SQLiteData struct {
	Path string `yaml:"path" json:"path"`
}

// QueryData bounds the query service
type QueryData struct {
	DefaultHistoryLimit int `yaml:"default_history_limit,omitempty" json:"default_history_limit,omitempty"`
	MaxHistoryLimit     int `yaml:"max_history_limit,omitempty" json:"max_history_limit,omitempty"`
	MaxAllResults       int `yaml:"max_all_results,omitempty" json:"max_all_results,omitempty"`
}

// LocationData is one monitored location
type LocationData struct {
	Name  string `yaml:"name" json:"name"`
	ID    string `yaml:"id" json:"id"`
	Key   string `yaml:"key,omitempty" json:"key,omitempty"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// DashboardData configures the browser dashboard
type DashboardData struct {
	PageTitle      string `yaml:"page_title,omitempty" json:"page_title,omitempty"`
	RefreshSeconds int    `yaml:"refresh_seconds,omitempty" json:"refresh_seconds,omitempty"`
}

// LogData configures logging
type LogData struct {
	Debug      bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty" json:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty" json:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty"`
}

// DefaultLocations are the three monitored points on the Rideau Canal skateway
func DefaultLocations() []LocationData {
	return []LocationData{
		{Name: "Dow's Lake", ID: "DowsLake", Key: "dows", Color: "rgb(75, 192, 192)"},
		{Name: "Fifth Avenue", ID: "FifthAvenue", Key: "fifth", Color: "rgb(255, 99, 132)"},
		{Name: "NAC", ID: "NAC", Key: "nac", Color: "rgb(54, 162, 235)"},
	}
}

// Default returns a configuration with every default applied
func Default() *ConfigData {
	cfg := &ConfigData{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued settings
func (c *ConfigData) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultPort
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 30
	}
	if c.Server.DebugRateLimit == 0 {
		c.Server.DebugRateLimit = 1
	}
	if c.Server.DebugRateBurst == 0 {
		c.Server.DebugRateBurst = 5
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendCosmos
	}
	if c.Store.TimescaleDB.Table == "" {
		c.Store.TimescaleDB.Table = "ice_readings"
	}
	if c.Query.DefaultHistoryLimit == 0 {
		c.Query.DefaultHistoryLimit = constants.DefaultHistoryLimit
	}
	if c.Query.MaxHistoryLimit == 0 {
		c.Query.MaxHistoryLimit = constants.DefaultMaxHistoryLimit
	}
	if c.Query.MaxAllResults == 0 {
		c.Query.MaxAllResults = constants.DefaultMaxAllResults
	}
	if len(c.Locations) == 0 {
		c.Locations = DefaultLocations()
	}
	if c.Dashboard.PageTitle == "" {
		c.Dashboard.PageTitle = "Rideau Canal Ice Safety"
	}
	if c.Dashboard.RefreshSeconds == 0 {
		c.Dashboard.RefreshSeconds = constants.DefaultRefreshSeconds
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
}

// Validate reports every malformed setting at once. Missing store
// credentials are not an error here; see StoreData.MissingFields.
func (c *ConfigData) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendCosmos, BackendTimescaleDB, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported store backend: %q", c.Store.Backend))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port out of range: %d", c.Server.Port))
	}
	if (c.Server.TLSCertPath == "") != (c.Server.TLSKeyPath == "") {
		errs = append(errs, errors.New("tls_cert_path and tls_key_path must be set together"))
	}

	if c.Query.DefaultHistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("default_history_limit must be positive: %d", c.Query.DefaultHistoryLimit))
	}
	if c.Query.MaxHistoryLimit < c.Query.DefaultHistoryLimit {
		errs = append(errs, fmt.Errorf("max_history_limit (%d) is below default_history_limit (%d)",
			c.Query.MaxHistoryLimit, c.Query.DefaultHistoryLimit))
	}
	if c.Query.MaxAllResults < 1 {
		errs = append(errs, fmt.Errorf("max_all_results must be positive: %d", c.Query.MaxAllResults))
	}
	if c.Dashboard.RefreshSeconds < 1 {
		errs = append(errs, fmt.Errorf("refresh_seconds must be positive: %d", c.Dashboard.RefreshSeconds))
	}

	if len(c.Locations) == 0 {
		errs = append(errs, errors.New("at least one location must be configured"))
	}
	names := make(map[string]bool)
	ids := make(map[string]bool)
	for _, l := range c.Locations {
		if l.Name == "" || l.ID == "" {
			errs = append(errs, fmt.Errorf("location needs both name and id: %+v", l))
			continue
		}
		if names[l.Name] {
			errs = append(errs, fmt.Errorf("duplicate location name: %s", l.Name))
		}
		if ids[l.ID] {
			errs = append(errs, fmt.Errorf("duplicate location id: %s", l.ID))
		}
		names[l.Name] = true
		ids[l.ID] = true
	}

	return errors.Join(errs...)
}

// MissingFields lists the connection settings the selected backend needs
// but does not have.
func (s StoreData) MissingFields() []string {
	var missing []string
	switch s.Backend {
	case BackendCosmos:
		if s.Cosmos.Endpoint == "" {
			missing = append(missing, "endpoint")
		}
		if s.Cosmos.Key == "" {
			missing = append(missing, "key")
		}
		if s.Cosmos.Database == "" {
			missing = append(missing, "database")
		}
		if s.Cosmos.Container == "" {
			missing = append(missing, "container")
		}
	case BackendTimescaleDB:
		if s.TimescaleDB.ConnectionString == "" {
			missing = append(missing, "connection_string")
		}
	case BackendSQLite:
		if s.SQLite.Path == "" {
			missing = append(missing, "path")
		}
	}
	return missing
}
