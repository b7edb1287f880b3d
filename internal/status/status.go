// Package status reduces per-location safety classifications to a single
// canal-wide status.
package status

import "github.com/canalwatch/icewatch/internal/types"

// Aggregate returns Unknown for no input, Safe when every status is Safe,
// Unsafe when any status is Unsafe, and Caution otherwise.
func Aggregate(statuses []types.SafetyStatus) types.OverallStatus {
	if len(statuses) == 0 {
		return types.OverallUnknown
	}

	allSafe := true
	for _, s := range statuses {
		if s == types.StatusUnsafe {
			return types.OverallUnsafe
		}
		if s != types.StatusSafe {
			allSafe = false
		}
	}

	if allSafe {
		return types.OverallSafe
	}
	return types.OverallCaution
}

// FromLocations aggregates the statuses carried by a per-location list
func FromLocations(locs []types.LocationStatus) types.OverallStatus {
	statuses := make([]types.SafetyStatus, 0, len(locs))
	for _, l := range locs {
		statuses = append(statuses, l.SafetyStatus)
	}
	return Aggregate(statuses)
}
