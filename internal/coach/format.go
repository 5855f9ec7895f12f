// Package coach implements the coaching logic on top of the run store:
// syncing activities, building training reports, and comparing training
// plans against what was actually run.
package coach

import (
	"fmt"
	"math"
	"time"
)

// FormatPace renders a speed in metres per second as a per-kilometre
// pace string like "5:30". Returns "N/A" for zero or negative speeds.
func FormatPace(metresPerSecond float64) string {
	if metresPerSecond <= 0 {
		return "N/A"
	}
	total := int(1000 / metresPerSecond)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// FormatDuration renders a duration in seconds as "H:MM:SS", or "MM:SS"
// under an hour.
func FormatDuration(seconds float64) string {
	total := int(math.Round(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ISOWeekKey returns the "2025-W14" style key for the ISO week
// containing t.
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// WeekStart returns the Monday of the ISO week containing t, at
// midnight in t's location.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, 1-weekday)
}

// round1 rounds to one decimal place, matching how distances and rates
// are reported.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
