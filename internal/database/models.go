package database

import (
	"time"

	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
)

// ReadingRecord is one aggregated window as stored in a relational table
type ReadingRecord struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	Location              string    `gorm:"column:location;not null;index:idx_location_window,priority:1"`
	WindowEndTime         time.Time `gorm:"column:window_end_time;not null;index:idx_location_window,priority:2"`
	AvgIceThickness       float64   `gorm:"column:avg_ice_thickness"`
	AvgSurfaceTemperature float64   `gorm:"column:avg_surface_temperature"`
	AvgSnowAccumulation   *float64  `gorm:"column:avg_snow_accumulation"`
	MaxSnowAccumulation   *float64  `gorm:"column:max_snow_accumulation"`
	SafetyStatus          string    `gorm:"column:safety_status"`
	ReadingCount          int       `gorm:"column:reading_count"`
}

// TableName implements the Tabler interface for the ReadingRecord struct
func (ReadingRecord) TableName() string {
	return "ice_readings"
}

// StatusColumns is the projection used for status lookups
var StatusColumns = []string{"id", "location", "safety_status", "window_end_time"}

// ToReading converts a record into the API reading type
func (r ReadingRecord) ToReading() types.Reading {
	return types.Reading{
		ID:                    r.ID,
		Location:              r.Location,
		AvgIceThickness:       r.AvgIceThickness,
		AvgSurfaceTemperature: r.AvgSurfaceTemperature,
		AvgSnowAccumulation:   storage.SnowValue(r.AvgSnowAccumulation, r.MaxSnowAccumulation),
		SafetyStatus:          types.SafetyStatus(r.SafetyStatus),
		WindowEndTime:         r.WindowEndTime.UTC(),
		ReadingCount:          r.ReadingCount,
	}
}
