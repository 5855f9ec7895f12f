package coach

import (
	"testing"
	"time"

	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testPlan(workouts ...store.PlannedWorkout) *store.TrainingPlan {
	return &store.TrainingPlan{
		ID:       "ab12cd34",
		PlanName: "Test Plan",
		Weeks:    []store.TrainingWeek{{WeekNumber: 1, Runs: workouts}},
	}
}

func run(id int64, date string, distanceKM float64) strava.Activity {
	return strava.Activity{
		ID:              id,
		Name:            "Run",
		SportType:       "Run",
		StartDate:       date + "T07:00:00Z",
		DistanceMetres:  distanceKM * 1000,
		AverageSpeedMPS: 3.0,
	}
}

func TestAnalyzeAdherenceMatching(t *testing.T) {
	plan := testPlan(
		store.PlannedWorkout{Date: "2025-06-02", Type: store.WorkoutEasy, DistanceKM: 10},
		store.PlannedWorkout{Date: "2025-06-04", Type: store.WorkoutSession, DistanceKM: 12},
		store.PlannedWorkout{Date: "2025-06-06", Type: store.WorkoutLongRun, DistanceKM: 25},
	)
	runs := []strava.Activity{
		run(1, "2025-06-02", 10.2), // exact day
		run(2, "2025-06-05", 12.0), // day after the session
	}

	report, err := AnalyzeAdherence(plan, runs, day("2025-06-10"))
	if err != nil {
		t.Fatalf("failed to analyze adherence: %v", err)
	}

	if report.CompletedCount != 2 {
		t.Errorf("expected 2 completed, got %d", report.CompletedCount)
	}
	if report.MissedCount != 1 {
		t.Errorf("expected 1 missed, got %d", report.MissedCount)
	}
	if report.CompletionRate != 66.7 {
		t.Errorf("expected completion rate 66.7, got %f", report.CompletionRate)
	}

	if len(report.RecentMissed) != 1 || report.RecentMissed[0].PlannedDate != "2025-06-06" {
		t.Errorf("unexpected missed workouts: %+v", report.RecentMissed)
	}

	// Newest completion first
	if len(report.RecentCompleted) != 2 {
		t.Fatalf("expected 2 recent completions, got %d", len(report.RecentCompleted))
	}
	first := report.RecentCompleted[0]
	if first.PlannedDate != "2025-06-04" || first.ActivityID != 2 {
		t.Errorf("unexpected first completion: %+v", first)
	}
	if first.ActualDate != "2025-06-05" {
		t.Errorf("expected actual date 2025-06-05, got %s", first.ActualDate)
	}
	if first.ActualPacePerKM != "5:33" {
		t.Errorf("expected pace 5:33 at 3 m/s, got %s", first.ActualPacePerKM)
	}
}

func TestAnalyzeAdherenceRunUsedOnce(t *testing.T) {
	// Two planned workouts a day apart, one run between them. The run
	// fulfills only one of them.
	plan := testPlan(
		store.PlannedWorkout{Date: "2025-06-02", Type: store.WorkoutEasy},
		store.PlannedWorkout{Date: "2025-06-03", Type: store.WorkoutEasy},
	)
	runs := []strava.Activity{run(1, "2025-06-02", 8)}

	report, err := AnalyzeAdherence(plan, runs, day("2025-06-10"))
	if err != nil {
		t.Fatalf("failed to analyze adherence: %v", err)
	}
	if report.CompletedCount != 1 || report.MissedCount != 1 {
		t.Errorf("expected 1 completed and 1 missed, got %d and %d", report.CompletedCount, report.MissedCount)
	}
	if report.RecentCompleted[0].PlannedDate != "2025-06-02" {
		t.Errorf("expected the earlier workout to claim the run, got %s", report.RecentCompleted[0].PlannedDate)
	}
}

func TestAnalyzeAdherenceSkipsNonRunning(t *testing.T) {
	plan := testPlan(
		store.PlannedWorkout{Date: "2025-06-02", Type: store.WorkoutGym},
		store.PlannedWorkout{Date: "2025-06-03", Type: store.WorkoutRest},
		store.PlannedWorkout{Date: "2025-06-04", Type: store.WorkoutCrossTraining},
		store.PlannedWorkout{Date: "2025-06-05", Type: store.WorkoutEasy},
	)

	report, err := AnalyzeAdherence(plan, nil, day("2025-06-10"))
	if err != nil {
		t.Fatalf("failed to analyze adherence: %v", err)
	}
	if report.CompletedCount != 0 || report.MissedCount != 1 {
		t.Errorf("gym, rest and cross-training days must not count: %+v", report)
	}
}

func TestAnalyzeAdherenceIgnoresNonRunActivities(t *testing.T) {
	plan := testPlan(store.PlannedWorkout{Date: "2025-06-02", Type: store.WorkoutEasy})
	ride := strava.Activity{ID: 9, SportType: "Ride", StartDate: "2025-06-02T07:00:00Z"}

	report, err := AnalyzeAdherence(plan, []strava.Activity{ride}, day("2025-06-10"))
	if err != nil {
		t.Fatalf("failed to analyze adherence: %v", err)
	}
	if report.CompletedCount != 0 {
		t.Error("a ride must not fulfill a planned run")
	}
}

func TestAnalyzeAdherenceUpcoming(t *testing.T) {
	plan := testPlan(
		store.PlannedWorkout{Date: "2025-06-11", Type: store.WorkoutEasy, DayOfWeek: "Wednesday", DistanceKM: 10},
		store.PlannedWorkout{Date: "2025-06-14", Type: store.WorkoutLongRun, DistanceKM: 28},
		store.PlannedWorkout{Date: "2025-06-20", Type: store.WorkoutSession}, // beyond the window
	)

	report, err := AnalyzeAdherence(plan, nil, day("2025-06-10"))
	if err != nil {
		t.Fatalf("failed to analyze adherence: %v", err)
	}

	if len(report.Upcoming) != 2 {
		t.Fatalf("expected 2 upcoming workouts, got %d", len(report.Upcoming))
	}
	if report.Upcoming[0].DaysAway != 1 {
		t.Errorf("expected tomorrow's workout 1 day away, got %d", report.Upcoming[0].DaysAway)
	}
	if report.Upcoming[1].DaysAway != 4 {
		t.Errorf("expected the long run 4 days away, got %d", report.Upcoming[1].DaysAway)
	}
	// Future workouts never count as missed
	if report.MissedCount != 0 {
		t.Errorf("expected no misses, got %d", report.MissedCount)
	}
}

func TestAnalyzeAdherenceRecentCaps(t *testing.T) {
	var workouts []store.PlannedWorkout
	base := day("2025-05-01")
	for i := 0; i < 20; i++ {
		workouts = append(workouts, store.PlannedWorkout{
			Date: base.AddDate(0, 0, i).Format("2006-01-02"),
			Type: store.WorkoutEasy,
		})
	}
	plan := testPlan(workouts...)

	report, err := AnalyzeAdherence(plan, nil, day("2025-06-10"))
	if err != nil {
		t.Fatalf("failed to analyze adherence: %v", err)
	}
	if report.MissedCount != 20 {
		t.Fatalf("expected 20 missed, got %d", report.MissedCount)
	}
	if len(report.RecentMissed) != recentMissedLimit {
		t.Errorf("expected missed list capped at %d, got %d", recentMissedLimit, len(report.RecentMissed))
	}
	if report.RecentMissed[0].PlannedDate != "2025-05-20" {
		t.Errorf("expected newest miss first, got %s", report.RecentMissed[0].PlannedDate)
	}
}

func TestAnalyzeAdherenceInvalidDate(t *testing.T) {
	plan := testPlan(store.PlannedWorkout{Date: "not-a-date", Type: store.WorkoutEasy})
	if _, err := AnalyzeAdherence(plan, nil, day("2025-06-10")); err == nil {
		t.Fatal("expected error for invalid workout date")
	}
}
