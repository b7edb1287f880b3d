// Package query implements the dashboard's read operations on top of a
// reading store: latest per location, history, overall status, the
// diagnostic dump, and trends.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/canalwatch/icewatch/internal/locations"
	"github.com/canalwatch/icewatch/internal/status"
	"github.com/canalwatch/icewatch/internal/storage"
	"github.com/canalwatch/icewatch/internal/types"
	"github.com/canalwatch/icewatch/pkg/config"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidLimit is returned for a limit that is not a positive integer
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// Service is stateless apart from its long-lived store handle
type Service struct {
	store  storage.ReadingStore
	mapper *locations.Mapper
	limits config.QueryData
	logger *zap.SugaredLogger
}

// NewService creates a query service
func NewService(store storage.ReadingStore, mapper *locations.Mapper, limits config.QueryData, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:  store,
		mapper: mapper,
		limits: limits,
		logger: logger,
	}
}

// Locations returns the configured locations in display order
func (s *Service) Locations() []locations.Location {
	return s.mapper.All()
}

// ParseLimit turns a raw limit parameter into a usable limit: empty means
// the default, anything above the maximum is clamped.
func (s *Service) ParseLimit(raw string) (int, error) {
	if raw == "" {
		return s.limits.DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
	}
	if n > s.limits.MaxHistoryLimit {
		return s.limits.MaxHistoryLimit, nil
	}
	return n, nil
}

// Latest returns the newest reading for each location that has one
func (s *Service) Latest(ctx context.Context) ([]types.Reading, error) {
	results := make([]types.Reading, 0, len(s.mapper.All()))

	for _, loc := range s.mapper.All() {
		q := storage.Query{Location: loc.ID, Limit: 1, Descending: true}
		readings, err := s.store.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("latest reading for %s: %w", loc.Name, err)
		}
		s.logQuery("latest", loc, q, len(readings))

		if len(readings) == 0 {
			continue
		}

		newest := readings[0]
		results = append(results, types.Reading{
			Location:              loc.Name,
			AvgIceThickness:       newest.AvgIceThickness,
			AvgSurfaceTemperature: newest.AvgSurfaceTemperature,
			AvgSnowAccumulation:   newest.AvgSnowAccumulation,
			SafetyStatus:          newest.SafetyStatus,
			WindowEndTime:         newest.WindowEndTime,
		})
	}

	return results, nil
}

// History returns up to limit of the most recent readings for a location,
// oldest first. limit must already be positive; it is clamped to the
// configured maximum.
func (s *Service) History(ctx context.Context, name string, limit int) ([]types.Reading, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > s.limits.MaxHistoryLimit {
		limit = s.limits.MaxHistoryLimit
	}

	loc := s.resolve(name)
	q := storage.Query{Location: loc.ID, Limit: limit, Descending: true}
	readings, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", name, err)
	}
	s.logQuery("history", loc, q, len(readings))

	if len(readings) > limit {
		readings = readings[:limit]
	}

	storage.SortByWindowEnd(readings, false)
	for i := range readings {
		readings[i].Location = loc.Name
	}

	return readings, nil
}

// Status returns the newest status of every location with readings and the
// overall classification derived from them.
func (s *Service) Status(ctx context.Context) (types.OverallStatus, []types.LocationStatus, error) {
	statuses := make([]types.LocationStatus, 0, len(s.mapper.All()))

	for _, loc := range s.mapper.All() {
		q := storage.Query{Location: loc.ID, Limit: 1, Descending: true, StatusOnly: true}
		readings, err := s.store.Query(ctx, q)
		if err != nil {
			return "", nil, fmt.Errorf("status for %s: %w", loc.Name, err)
		}
		s.logQuery("status", loc, q, len(readings))

		if len(readings) == 0 {
			continue
		}

		newest := readings[0]
		for _, r := range readings[1:] {
			if r.WindowEndTime.After(newest.WindowEndTime) {
				newest = r
			}
		}

		statuses = append(statuses, types.LocationStatus{
			Location:      loc.Name,
			SafetyStatus:  newest.SafetyStatus,
			WindowEndTime: newest.WindowEndTime,
		})
	}

	return status.FromLocations(statuses), statuses, nil
}

// All returns every stored reading, newest first, up to the configured cap.
// truncated reports whether the cap cut the result short. Locations are
// left as stored.
func (s *Service) All(ctx context.Context) (readings []types.Reading, truncated bool, err error) {
	max := s.limits.MaxAllResults
	q := storage.Query{Limit: max + 1, Descending: true}

	readings, err = s.store.Query(ctx, q)
	if err != nil {
		return nil, false, fmt.Errorf("all readings: %w", err)
	}
	s.logger.Infow("query executed", "op", "all", "query", q.String(), "rows", len(readings))

	storage.SortByWindowEnd(readings, true)
	if len(readings) > max {
		readings = readings[:max]
		truncated = true
	}
	return readings, truncated, nil
}

// Trend fits a least-squares line through a location's recent history
func (s *Service) Trend(ctx context.Context, name string, limit int) (types.Trend, error) {
	history, err := s.History(ctx, name, limit)
	if err != nil {
		return types.Trend{}, err
	}

	t := types.Trend{Location: s.resolve(name).Name, Points: len(history)}
	if len(history) == 0 {
		return t, nil
	}
	from, to := history[0].WindowEndTime, history[len(history)-1].WindowEndTime
	t.From, t.To = &from, &to

	if len(history) < 2 || !to.After(from) {
		return t, nil
	}

	hours := make([]float64, len(history))
	ice := make([]float64, len(history))
	temp := make([]float64, len(history))
	for i, r := range history {
		hours[i] = r.WindowEndTime.Sub(from).Hours()
		ice[i] = r.AvgIceThickness
		temp[i] = r.AvgSurfaceTemperature
	}

	_, t.IceThicknessPerHour = stat.LinearRegression(hours, ice, nil, false)
	_, t.SurfaceTemperaturePerHour = stat.LinearRegression(hours, temp, nil, false)
	t.IceThicknessPerHour = finite(t.IceThicknessPerHour)
	t.SurfaceTemperaturePerHour = finite(t.SurfaceTemperaturePerHour)

	return t, nil
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// resolve finds the configured location for a display name. Unknown names
// pass through as their own storage id.
func (s *Service) resolve(name string) locations.Location {
	id := s.mapper.ToDB(name)
	for _, loc := range s.mapper.All() {
		if loc.ID == id {
			return loc
		}
	}
	return locations.Location{Name: name, ID: id}
}

func (s *Service) logQuery(op string, loc locations.Location, q storage.Query, rows int) {
	s.logger.Infow("query executed",
		"op", op,
		"location", loc.Name,
		"store_location", loc.ID,
		"query", q.String(),
		"rows", rows,
	)
}
