package types

import "time"

// SafetyStatus is the classification the upstream pipeline attaches to a reading
type SafetyStatus string

const (
	StatusSafe    SafetyStatus = "Safe"
	StatusCaution SafetyStatus = "Caution"
	StatusUnsafe  SafetyStatus = "Unsafe"
)

// OverallStatus is the worst-case reduction of the latest per-location statuses
type OverallStatus string

const (
	OverallSafe    OverallStatus = "Safe"
	OverallCaution OverallStatus = "Caution"
	OverallUnsafe  OverallStatus = "Unsafe"
	OverallUnknown OverallStatus = "Unknown"
)

// Reading is one aggregated window of ice sensor measurements for a location.
// Location holds the storage identifier when it comes out of a store and the
// display name once the query service has normalized it.
type Reading struct {
	ID                    string       `json:"id,omitempty"`
	Location              string       `json:"location"`
	AvgIceThickness       float64      `json:"avgIceThickness"`
	AvgSurfaceTemperature float64      `json:"avgSurfaceTemperature"`
	AvgSnowAccumulation   float64      `json:"avgSnowAccumulation"`
	SafetyStatus          SafetyStatus `json:"safetyStatus"`
	WindowEndTime         time.Time    `json:"windowEndTime"`
	ReadingCount          int          `json:"readingCount,omitempty"`
}

// LocationStatus is the latest classification for one location
type LocationStatus struct {
	Location      string       `json:"location"`
	SafetyStatus  SafetyStatus `json:"safetyStatus"`
	WindowEndTime time.Time    `json:"windowEndTime"`
}

// Trend holds least-squares slopes over a location's recent history
type Trend struct {
	Location                  string     `json:"location"`
	Points                    int        `json:"points"`
	IceThicknessPerHour       float64    `json:"iceThicknessPerHour"`
	SurfaceTemperaturePerHour float64    `json:"surfaceTemperaturePerHour"`
	From                      *time.Time `json:"from,omitempty"`
	To                        *time.Time `json:"to,omitempty"`
}
