// Package schedule provides pure poll-window timing helpers. All functions
// take "now" explicitly so callers and tests control the clock.
package schedule

import (
	"fmt"
	"time"
)

// NextBoundaryDelay returns the delay from now until the next wall-clock
// minute that is a whole multiple of intervalMinutes. The boundary may roll
// into the next hour or day; the result is always positive.
func NextBoundaryDelay(now time.Time, intervalMinutes int) (time.Duration, error) {
	if intervalMinutes < 1 {
		return 0, fmt.Errorf("schedule: interval must be >= 1 minute, got %d", intervalMinutes)
	}
	next := (now.Minute()/intervalMinutes + 1) * intervalMinutes
	top := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	boundary := top.Add(time.Duration(next) * time.Minute)
	return boundary.Sub(now), nil
}

// NextMidnightDelay returns the delay from now until the next local midnight.
func NextMidnightDelay(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}
