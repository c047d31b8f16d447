package sync

import "math"

// ShouldAlert reports whether a day change crosses the owner's alert
// threshold. The comparison is inclusive: a move of exactly the threshold
// alerts. A missing day change never alerts.
func ShouldAlert(dayChangePercent *float64, thresholdPercent float64) bool {
	if dayChangePercent == nil {
		return false
	}
	return math.Abs(*dayChangePercent) >= thresholdPercent
}
