package coach

import (
	"testing"

	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

func TestFormatPace(t *testing.T) {
	tests := []struct {
		name string
		mps  float64
		want string
	}{
		{name: "easy pace", mps: 3.0, want: "5:33"},
		{name: "fast pace", mps: 5.0, want: "3:20"},
		{name: "slow pace", mps: 2.5, want: "6:40"},
		{name: "just under the minute", mps: 1000.0 / 359.7, want: "5:59"},
		{name: "zero speed", mps: 0, want: "N/A"},
		{name: "negative speed", mps: -1, want: "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPace(tt.mps); got != tt.want {
				t.Errorf("FormatPace(%f) = %q, want %q", tt.mps, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "under a minute", seconds: 45, want: "0:45"},
		{name: "under an hour", seconds: 1830, want: "30:30"},
		{name: "over an hour", seconds: 3725, want: "1:02:05"},
		{name: "zero", seconds: 0, want: "0:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.seconds); got != tt.want {
				t.Errorf("FormatDuration(%f) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestBuildReport(t *testing.T) {
	runs := []strava.Activity{
		{
			ID: 1, Name: "Tempo", SportType: "Run",
			StartDate:      "2025-06-03T07:00:00Z",
			DistanceMetres: 10000, MovingTimeSeconds: 3000,
			AverageSpeedMPS:          10000.0 / 3000.0,
			TotalElevationGainMetres: 80,
			Laps: []strava.Lap{
				{LapIndex: 1, Distance: 5000, MovingTime: 1550, AverageSpeed: 5000.0 / 1550.0, AverageHeartrate: 150},
				{LapIndex: 2, Distance: 5000, MovingTime: 1450, AverageSpeed: 5000.0 / 1450.0, AverageHeartrate: 162},
			},
		},
		{
			ID: 2, Name: "Long Run", SportType: "Run",
			StartDate:      "2025-06-08T08:00:00Z",
			DistanceMetres: 25000, MovingTimeSeconds: 8100,
			AverageSpeedMPS: 25000.0 / 8100.0,
		},
		// Outside the window
		{
			ID: 3, Name: "Old Run", SportType: "Run",
			StartDate:      "2025-04-01T07:00:00Z",
			DistanceMetres: 5000, MovingTimeSeconds: 1500,
		},
		// Not a run
		{
			ID: 4, Name: "Ride", SportType: "Ride",
			StartDate:      "2025-06-05T07:00:00Z",
			DistanceMetres: 40000, MovingTimeSeconds: 5000,
		},
	}

	report := BuildReport(runs, 4, day("2025-06-10"))

	if report.TotalRuns != 2 {
		t.Fatalf("expected 2 runs in report, got %d", report.TotalRuns)
	}
	if report.TotalDistanceKM != 35.0 {
		t.Errorf("expected 35.0 km total, got %f", report.TotalDistanceKM)
	}
	if report.TotalMovingTime != "3:05:00" {
		t.Errorf("expected total time 3:05:00, got %s", report.TotalMovingTime)
	}
	if report.LongestRunKM != 25.0 {
		t.Errorf("expected longest run 25.0 km, got %f", report.LongestRunKM)
	}
	// 35 km in 11100 s is 5:17/km
	if report.AveragePace != "5:17" {
		t.Errorf("expected average pace 5:17, got %s", report.AveragePace)
	}
	// Mean of the lap heartrates 150 and 162
	if report.AverageHeartrate != 156.0 {
		t.Errorf("expected average heartrate 156.0, got %f", report.AverageHeartrate)
	}

	// June 8 2025 is a Sunday, so both runs land in the ISO week
	// starting Monday June 2
	if len(report.Weeks) != 1 {
		t.Fatalf("expected 1 weekly summary, got %d", len(report.Weeks))
	}
	week := report.Weeks[0]
	if week.WeekStart != "2025-06-02" {
		t.Errorf("unexpected week start: %s", week.WeekStart)
	}
	if week.RunCount != 2 || week.TotalDistanceKM != 35.0 {
		t.Errorf("unexpected week aggregate: %+v", week)
	}
	if week.ElevationGainM != 80.0 {
		t.Errorf("expected 80.0 m elevation for the week, got %f", week.ElevationGainM)
	}
	if week.AverageHeartrate != 156.0 {
		t.Errorf("expected week average heartrate 156.0, got %f", week.AverageHeartrate)
	}

	if len(report.Runs) != 2 {
		t.Fatalf("expected 2 run details, got %d", len(report.Runs))
	}
	if report.Runs[0].ActivityID != 2 {
		t.Errorf("expected newest run first, got %d", report.Runs[0].ActivityID)
	}
	tempo := report.Runs[1]
	if len(tempo.Laps) != 2 {
		t.Fatalf("expected 2 laps on the tempo, got %d", len(tempo.Laps))
	}
	if tempo.Laps[1].AverageHeartrate != 162 {
		t.Errorf("expected lap 2 HR 162, got %f", tempo.Laps[1].AverageHeartrate)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	report := BuildReport(nil, 4, day("2025-06-10"))
	if report.TotalRuns != 0 {
		t.Errorf("expected 0 runs, got %d", report.TotalRuns)
	}
	if report.AveragePace != "N/A" {
		t.Errorf("expected N/A pace for empty report, got %s", report.AveragePace)
	}
	if report.TotalMovingTime != "0:00" {
		t.Errorf("expected 0:00 moving time, got %s", report.TotalMovingTime)
	}
}

func TestWeekHelpers(t *testing.T) {
	// Monday
	if got := WeekStart(day("2025-06-04")).Format("2006-01-02"); got != "2025-06-02" {
		t.Errorf("expected week start 2025-06-02, got %s", got)
	}
	// Sunday belongs to the preceding Monday's week
	if got := WeekStart(day("2025-06-08")).Format("2006-01-02"); got != "2025-06-02" {
		t.Errorf("expected week start 2025-06-02 for Sunday, got %s", got)
	}
	if got := ISOWeekKey(day("2025-06-04")); got != "2025-W23" {
		t.Errorf("expected 2025-W23, got %s", got)
	}
}
