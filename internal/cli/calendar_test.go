package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

func TestBuildCalendar(t *testing.T) {
	plan := &store.TrainingPlan{
		PlanName: "Marathon Build",
		GoalRace: store.GoalRace{Date: "2025-10-12", RaceName: "City Marathon"},
		Weeks: []store.TrainingWeek{
			{
				WeekNumber:  1,
				WeeklyFocus: "base",
				Runs: []store.PlannedWorkout{
					{Date: "2025-06-03", Type: store.WorkoutEasy, DistanceKM: 10},
					{Date: "2025-06-07", Type: store.WorkoutLongRun, DistanceKM: 25},
				},
			},
		},
	}
	runs := []strava.Activity{
		{
			ID: 1, Name: "Tuesday Easy", SportType: "Run",
			StartDate: "2025-06-03T07:00:00Z", DistanceMetres: 10200, AverageSpeedMPS: 3.0,
		},
	}

	data, err := buildCalendar(plan, runs)
	if err != nil {
		t.Fatalf("failed to build calendar: %v", err)
	}

	if len(data.Weeks) != 1 {
		t.Fatalf("expected 1 week, got %d", len(data.Weeks))
	}
	week := data.Weeks[0]
	if len(week.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week.Days))
	}
	// The week containing June 3 2025 starts Monday June 2
	if week.Days[0].Date != "2025-06-02" {
		t.Errorf("expected week to start 2025-06-02, got %s", week.Days[0].Date)
	}

	tuesday := week.Days[1]
	if tuesday.Planned == nil || tuesday.Planned.Type != store.WorkoutEasy {
		t.Error("expected planned easy run on Tuesday")
	}
	if tuesday.Actual == nil || tuesday.Actual.Name != "Tuesday Easy" {
		t.Error("expected actual run paired with Tuesday")
	}

	saturday := week.Days[5]
	if saturday.Planned == nil || saturday.Planned.Type != store.WorkoutLongRun {
		t.Error("expected planned long run on Saturday")
	}
	if saturday.Actual != nil {
		t.Error("expected no actual run on Saturday")
	}

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, data); err != nil {
		t.Fatalf("failed to render template: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Marathon Build") || !strings.Contains(html, "Tuesday Easy") {
		t.Error("expected plan and run names in rendered calendar")
	}
}

func TestBuildCalendarInvalidDate(t *testing.T) {
	plan := &store.TrainingPlan{
		PlanName: "Broken",
		Weeks: []store.TrainingWeek{
			{WeekNumber: 1, Runs: []store.PlannedWorkout{{Date: "soon", Type: store.WorkoutEasy}}},
		},
	}
	if _, err := buildCalendar(plan, nil); err == nil {
		t.Fatal("expected error for invalid workout date")
	}
}
