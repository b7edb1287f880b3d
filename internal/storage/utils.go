package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/canalwatch/icewatch/internal/types"
)

// windowEndLayouts covers RFC 3339 and the zone-less 7-digit form that
// Stream Analytics writes.
var windowEndLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.9999999",
	"2006-01-02 15:04:05",
}

// ParseWindowEnd parses a stored window end timestamp. Zone-less values are
// taken as UTC.
func ParseWindowEnd(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range windowEndLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized windowEndTime %q", s)
}

// SnowValue picks the canonical snow accumulation, falling back to the
// maximum when a document has no average.
func SnowValue(avg, max *float64) float64 {
	if avg != nil {
		return *avg
	}
	if max != nil {
		return *max
	}
	return 0
}

// SortByWindowEnd stably sorts readings by windowEndTime
func SortByWindowEnd(rs []types.Reading, descending bool) {
	sort.SliceStable(rs, func(i, j int) bool {
		if descending {
			return rs[i].WindowEndTime.After(rs[j].WindowEndTime)
		}
		return rs[i].WindowEndTime.Before(rs[j].WindowEndTime)
	})
}

// Apply filters, orders, truncates and projects rs in memory according to q
func Apply(rs []types.Reading, q Query) []types.Reading {
	out := rs[:0:0]
	for _, r := range rs {
		if q.Location != "" && r.Location != q.Location {
			continue
		}
		if q.StatusOnly {
			r = types.Reading{
				ID:            r.ID,
				Location:      r.Location,
				SafetyStatus:  r.SafetyStatus,
				WindowEndTime: r.WindowEndTime,
			}
		}
		out = append(out, r)
	}

	SortByWindowEnd(out, q.Descending)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
