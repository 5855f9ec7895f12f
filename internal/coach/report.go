package coach

import (
	"sort"
	"time"

	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// LapDetail is one lap of a run, with formatted pace.
type LapDetail struct {
	LapIndex         int     `json:"lap_index"`
	DistanceKM       float64 `json:"distance_km"`
	MovingTime       string  `json:"moving_time"`
	PacePerKM        string  `json:"pace_min_per_km"`
	AverageHeartrate float64 `json:"average_heartrate,omitempty"`
	MaxHeartrate     float64 `json:"max_heartrate,omitempty"`
}

// RunDetail is the per-run view in a training report.
type RunDetail struct {
	ActivityID       int64       `json:"activity_id"`
	Name             string      `json:"name,omitempty"`
	Date             string      `json:"date"`
	DistanceKM       float64     `json:"distance_km"`
	MovingTime       string      `json:"moving_time"`
	PacePerKM        string      `json:"pace_min_per_km"`
	ElevationGainM   float64     `json:"elevation_gain_metres,omitempty"`
	Laps             []LapDetail `json:"laps,omitempty"`
	AvailableStreams []string    `json:"available_streams,omitempty"`
}

// WeekSummary aggregates the runs of one ISO week.
type WeekSummary struct {
	Week             string  `json:"week"`
	WeekStart        string  `json:"week_start"`
	RunCount         int     `json:"run_count"`
	TotalDistanceKM  float64 `json:"total_distance_km"`
	TotalMovingTime  string  `json:"total_moving_time"`
	AveragePace      string  `json:"average_pace_min_per_km"`
	AverageHeartrate float64 `json:"average_heartrate,omitempty"`
	ElevationGainM   float64 `json:"total_elevation_gain_metres"`
}

// TrainingReport summarizes the stored runs over a period: overall
// totals, per-week aggregates, and the individual runs.
type TrainingReport struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	TotalRuns        int     `json:"total_runs"`
	TotalDistanceKM  float64 `json:"total_distance_km"`
	TotalMovingTime  string  `json:"total_moving_time"`
	AveragePace      string  `json:"average_pace_min_per_km"`
	AverageHeartrate float64 `json:"average_heartrate,omitempty"`
	LongestRunKM     float64 `json:"longest_run_km"`
	ElevationGainM   float64 `json:"total_elevation_gain_metres"`

	Weeks []WeekSummary `json:"weekly_summaries"`
	Runs  []RunDetail   `json:"runs"`
}

// BuildReport builds a training report over the running activities in
// the given window ending at today. Non-running activities are ignored.
func BuildReport(runs []strava.Activity, weeks int, today time.Time) *TrainingReport {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	periodStart := today.AddDate(0, 0, -7*weeks)

	report := &TrainingReport{
		PeriodStart: periodStart.Format("2006-01-02"),
		PeriodEnd:   today.Format("2006-01-02"),
	}

	type weekAgg struct {
		start      time.Time
		count      int
		distance   float64
		movingTime float64
		elevation  float64
		hrSum      float64
		hrCount    int
	}
	weekAggs := make(map[string]*weekAgg)

	var totalDistance, totalMoving, totalElevation float64
	var hrSum float64
	var hrCount int
	var selected []strava.Activity
	for _, run := range runs {
		if !run.IsRun() {
			continue
		}
		day, err := run.StartDay()
		if err != nil {
			continue
		}
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		if day.Before(periodStart) || day.After(today) {
			continue
		}
		selected = append(selected, run)

		totalDistance += run.DistanceMetres
		totalMoving += run.MovingTimeSeconds
		totalElevation += run.TotalElevationGainMetres
		if km := run.DistanceMetres / 1000; km > report.LongestRunKM {
			report.LongestRunKM = round1(km)
		}

		key := ISOWeekKey(day)
		agg, ok := weekAggs[key]
		if !ok {
			agg = &weekAgg{start: WeekStart(day)}
			weekAggs[key] = agg
		}
		agg.count++
		agg.distance += run.DistanceMetres
		agg.movingTime += run.MovingTimeSeconds
		agg.elevation += run.TotalElevationGainMetres
		for _, lap := range run.Laps {
			if lap.AverageHeartrate > 0 {
				hrSum += lap.AverageHeartrate
				hrCount++
				agg.hrSum += lap.AverageHeartrate
				agg.hrCount++
			}
		}
	}

	report.TotalRuns = len(selected)
	report.TotalDistanceKM = round1(totalDistance / 1000)
	report.TotalMovingTime = FormatDuration(totalMoving)
	report.AveragePace = averagePace(totalDistance, totalMoving)
	if hrCount > 0 {
		report.AverageHeartrate = round1(hrSum / float64(hrCount))
	}
	report.ElevationGainM = round1(totalElevation)

	for key, agg := range weekAggs {
		week := WeekSummary{
			Week:            key,
			WeekStart:       agg.start.Format("2006-01-02"),
			RunCount:        agg.count,
			TotalDistanceKM: round1(agg.distance / 1000),
			TotalMovingTime: FormatDuration(agg.movingTime),
			AveragePace:     averagePace(agg.distance, agg.movingTime),
			ElevationGainM:  round1(agg.elevation),
		}
		if agg.hrCount > 0 {
			week.AverageHeartrate = round1(agg.hrSum / float64(agg.hrCount))
		}
		report.Weeks = append(report.Weeks, week)
	}
	sort.Slice(report.Weeks, func(i, j int) bool {
		return report.Weeks[i].WeekStart > report.Weeks[j].WeekStart
	})

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].StartDate > selected[j].StartDate
	})
	for i := range selected {
		report.Runs = append(report.Runs, runDetail(&selected[i]))
	}

	return report
}

func runDetail(run *strava.Activity) RunDetail {
	detail := RunDetail{
		ActivityID:       run.ID,
		Name:             run.Name,
		Date:             run.StartDate,
		DistanceKM:       round1(run.DistanceMetres / 1000),
		MovingTime:       FormatDuration(run.MovingTimeSeconds),
		PacePerKM:        FormatPace(run.AverageSpeedMPS),
		ElevationGainM:   round1(run.TotalElevationGainMetres),
		AvailableStreams: run.Streams.Types(),
	}
	for _, lap := range run.Laps {
		detail.Laps = append(detail.Laps, LapDetail{
			LapIndex:         lap.LapIndex,
			DistanceKM:       round1(lap.Distance / 1000),
			MovingTime:       FormatDuration(lap.MovingTime),
			PacePerKM:        FormatPace(lap.AverageSpeed),
			AverageHeartrate: lap.AverageHeartrate,
			MaxHeartrate:     lap.MaxHeartrate,
		})
	}
	return detail
}

// averagePace formats the mean pace over a total distance and moving
// time. The overall pace uses totals, not a mean of per-run paces.
func averagePace(distanceMetres, movingSeconds float64) string {
	if distanceMetres <= 0 || movingSeconds <= 0 {
		return "N/A"
	}
	return FormatPace(distanceMetres / movingSeconds)
}
