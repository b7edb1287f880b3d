package dashboard

import (
	"sort"
	"time"

	"github.com/canalwatch/icewatch/internal/types"
)

// ChartData is every location's history on one shared time axis. A nil
// entry marks a timestamp with no reading for that location.
type ChartData struct {
	Labels []time.Time
	Ice    map[string][]*float64
	Temp   map[string][]*float64
}

// MergeSeries aligns per-location histories on the sorted union of their
// window end times.
func MergeSeries(histories map[string][]types.Reading) ChartData {
	seen := make(map[time.Time]bool)
	for _, h := range histories {
		for _, r := range h {
			seen[r.WindowEndTime.UTC()] = true
		}
	}

	labels := make([]time.Time, 0, len(seen))
	for ts := range seen {
		labels = append(labels, ts)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Before(labels[j]) })

	index := make(map[time.Time]int, len(labels))
	for i, ts := range labels {
		index[ts] = i
	}

	cd := ChartData{
		Labels: labels,
		Ice:    make(map[string][]*float64, len(histories)),
		Temp:   make(map[string][]*float64, len(histories)),
	}
	for loc, h := range histories {
		ice := make([]*float64, len(labels))
		temp := make([]*float64, len(labels))
		for _, r := range h {
			i := index[r.WindowEndTime.UTC()]
			ice[i] = float64Ptr(r.AvgIceThickness)
			temp[i] = float64Ptr(r.AvgSurfaceTemperature)
		}
		cd.Ice[loc] = ice
		cd.Temp[loc] = temp
	}

	return cd
}

func float64Ptr(f float64) *float64 {
	return &f
}
