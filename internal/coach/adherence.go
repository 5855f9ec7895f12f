package coach

import (
	"fmt"
	"sort"
	"time"

	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// CompletedWorkout pairs a planned running workout with the run that
// fulfilled it.
type CompletedWorkout struct {
	PlannedDate       string  `json:"planned_date"`
	WorkoutType       string  `json:"workout_type"`
	Description       string  `json:"description,omitempty"`
	PlannedDistanceKM float64 `json:"planned_distance_km,omitempty"`
	ActivityID        int64   `json:"activity_id"`
	ActivityName      string  `json:"activity_name,omitempty"`
	ActualDate        string  `json:"actual_date"`
	ActualDistanceKM  float64 `json:"actual_distance_km"`
	ActualPacePerKM   string  `json:"actual_pace_min_per_km"`
}

// MissedWorkout is a planned running workout in the past with no
// matching run.
type MissedWorkout struct {
	PlannedDate       string  `json:"planned_date"`
	WorkoutType       string  `json:"workout_type"`
	Description       string  `json:"description,omitempty"`
	PlannedDistanceKM float64 `json:"planned_distance_km,omitempty"`
}

// UpcomingWorkout is a planned workout within the next week.
type UpcomingWorkout struct {
	Date        string  `json:"date"`
	DayOfWeek   string  `json:"day_of_week,omitempty"`
	WorkoutType string  `json:"workout_type"`
	Description string  `json:"description,omitempty"`
	DistanceKM  float64 `json:"distance_km,omitempty"`
	DaysAway    int     `json:"days_away"`
}

// AdherenceReport compares a training plan against the recorded runs.
type AdherenceReport struct {
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name"`
	AsOf     string `json:"as_of"`

	CompletedCount int     `json:"completed_count"`
	MissedCount    int     `json:"missed_count"`
	CompletionRate float64 `json:"completion_rate_percent"`

	// RecentCompleted holds the 5 most recent completions,
	// RecentMissed the 10 most recent misses, both newest first.
	RecentCompleted []CompletedWorkout `json:"recent_completed"`
	RecentMissed    []MissedWorkout    `json:"recent_missed"`
	Upcoming        []UpcomingWorkout  `json:"upcoming_workouts"`
}

const (
	recentCompletedLimit = 5
	recentMissedLimit    = 10
	upcomingWindowDays   = 7
)

// AnalyzeAdherence walks every planned running workout up to today and
// matches it against the recorded runs. A planned workout counts as
// completed when a run starts within one day of its planned date; each
// run fulfills at most one workout. Gym, cross-training and rest days
// are never matched. Workouts in the next seven days are listed as
// upcoming.
func AnalyzeAdherence(plan *store.TrainingPlan, runs []strava.Activity, today time.Time) (*AdherenceReport, error) {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	// Index runs by calendar day. Only running activities can fulfill
	// a planned workout.
	runsByDay := make(map[string][]*strava.Activity)
	for i := range runs {
		run := &runs[i]
		if !run.IsRun() {
			continue
		}
		day, err := run.StartDay()
		if err != nil {
			continue
		}
		key := day.Format("2006-01-02")
		runsByDay[key] = append(runsByDay[key], run)
	}

	report := &AdherenceReport{
		PlanID:   plan.ID,
		PlanName: plan.PlanName,
		AsOf:     today.Format("2006-01-02"),
	}
	used := make(map[int64]bool)

	type datedWorkout struct {
		date    time.Time
		workout store.PlannedWorkout
	}
	var planned []datedWorkout
	for _, week := range plan.Weeks {
		for _, w := range week.Runs {
			date, err := strava.ParseDate(w.Date)
			if err != nil {
				return nil, fmt.Errorf("invalid workout date %q in plan %s: %w", w.Date, plan.ID, err)
			}
			date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
			planned = append(planned, datedWorkout{date: date, workout: w})
		}
	}
	sort.Slice(planned, func(i, j int) bool { return planned[i].date.Before(planned[j].date) })

	var completed []CompletedWorkout
	var missed []MissedWorkout
	for _, pw := range planned {
		w := pw.workout

		if pw.date.After(today) {
			daysAway := int(pw.date.Sub(today).Hours() / 24)
			if daysAway <= upcomingWindowDays {
				report.Upcoming = append(report.Upcoming, UpcomingWorkout{
					Date:        pw.date.Format("2006-01-02"),
					DayOfWeek:   w.DayOfWeek,
					WorkoutType: string(w.Type),
					Description: w.Description,
					DistanceKM:  w.DistanceKM,
					DaysAway:    daysAway,
				})
			}
			continue
		}

		if !w.Type.IsRunning() {
			continue
		}

		match := findMatch(pw.date, runsByDay, used)
		if match == nil {
			missed = append(missed, MissedWorkout{
				PlannedDate:       pw.date.Format("2006-01-02"),
				WorkoutType:       string(w.Type),
				Description:       w.Description,
				PlannedDistanceKM: w.DistanceKM,
			})
			continue
		}

		used[match.ID] = true
		actualDay, _ := match.StartDay()
		completed = append(completed, CompletedWorkout{
			PlannedDate:       pw.date.Format("2006-01-02"),
			WorkoutType:       string(w.Type),
			Description:       w.Description,
			PlannedDistanceKM: w.DistanceKM,
			ActivityID:        match.ID,
			ActivityName:      match.Name,
			ActualDate:        actualDay.Format("2006-01-02"),
			ActualDistanceKM:  round1(match.DistanceMetres / 1000),
			ActualPacePerKM:   FormatPace(match.AverageSpeedMPS),
		})
	}

	report.CompletedCount = len(completed)
	report.MissedCount = len(missed)
	if total := len(completed) + len(missed); total > 0 {
		report.CompletionRate = round1(float64(len(completed)) / float64(total) * 100)
	}

	// Newest first, capped
	for i := len(completed) - 1; i >= 0 && len(report.RecentCompleted) < recentCompletedLimit; i-- {
		report.RecentCompleted = append(report.RecentCompleted, completed[i])
	}
	for i := len(missed) - 1; i >= 0 && len(report.RecentMissed) < recentMissedLimit; i-- {
		report.RecentMissed = append(report.RecentMissed, missed[i])
	}

	return report, nil
}

// findMatch looks for an unused run on the planned day, then the day
// before and the day after.
func findMatch(planned time.Time, runsByDay map[string][]*strava.Activity, used map[int64]bool) *strava.Activity {
	for _, offset := range []int{0, -1, 1} {
		key := planned.AddDate(0, 0, offset).Format("2006-01-02")
		for _, run := range runsByDay[key] {
			if !used[run.ID] {
				return run
			}
		}
	}
	return nil
}
