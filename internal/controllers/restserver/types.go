package restserver

import (
	"time"

	"github.com/canalwatch/icewatch/internal/locations"
	"github.com/canalwatch/icewatch/internal/types"
)

// Generic failure messages. Internal error detail is logged, never returned.
const (
	errLatest      = "Failed to fetch latest data"
	errHistory     = "Failed to fetch history"
	errStatus      = "Failed to fetch system status"
	errAll         = "Failed to fetch all data"
	errTrend       = "Failed to compute trend"
	errRateLimited = "Too many requests"
	errNotFound    = "Not found"
)

// ErrorResponse is the failure envelope shared by every API endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ReadingsResponse wraps a list of readings
type ReadingsResponse struct {
	Success bool            `json:"success"`
	Data    []types.Reading `json:"data"`
}

// StatusResponse carries the overall and per-location status
type StatusResponse struct {
	Success       bool                   `json:"success"`
	OverallStatus types.OverallStatus    `json:"overallStatus"`
	Locations     []types.LocationStatus `json:"locations"`
}

// AllResponse is the diagnostic dump of every reading
type AllResponse struct {
	Success   bool            `json:"success"`
	Count     int             `json:"count"`
	Truncated bool            `json:"truncated"`
	Data      []types.Reading `json:"data"`
}

// LocationsResponse lists the configured locations
type LocationsResponse struct {
	Success bool                 `json:"success"`
	Data    []locations.Location `json:"data"`
}

// TrendResponse wraps a trend
type TrendResponse struct {
	Success bool        `json:"success"`
	Data    types.Trend `json:"data"`
}

// HealthResponse reports liveness and which store settings are present
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Version   string      `json:"version"`
	Store     StoreHealth `json:"store"`
}

// StoreHealth never carries secret values, only whether they are set
type StoreHealth struct {
	Backend   string     `json:"backend"`
	Endpoint  string     `json:"endpoint"`
	Key       string     `json:"key,omitempty"`
	Database  string     `json:"database,omitempty"`
	Container string     `json:"container,omitempty"`
	Reachable string     `json:"reachable"`
	LastCheck *time.Time `json:"lastCheck,omitempty"`
}

func presence(v string) string {
	if v == "" {
		return "missing"
	}
	return "configured"
}
