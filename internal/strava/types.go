// Package strava provides a typed client for the Strava v3 API.
// Responses are reduced to the fields the coaching tools care about,
// renamed so that every numeric field carries its unit.
package strava

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Activity is a single recorded activity. Field names match the JSON
// documents persisted in the run store, so stored runs round-trip
// unchanged.
type Activity struct {
	ID                       int64     `json:"id"`
	Name                     string    `json:"name,omitempty"`
	SportType                string    `json:"sport_type,omitempty"`
	StartDate                string    `json:"start_date,omitempty"`
	DistanceMetres           float64   `json:"distance_metres,omitempty"`
	MovingTimeSeconds        float64   `json:"moving_time_seconds,omitempty"`
	ElapsedTimeSeconds       float64   `json:"elapsed_time_seconds,omitempty"`
	TotalElevationGainMetres float64   `json:"total_elevation_gain_metres,omitempty"`
	ElevHighMetres           float64   `json:"elev_high_metres,omitempty"`
	ElevLowMetres            float64   `json:"elev_low_metres,omitempty"`
	AverageSpeedMPS          float64   `json:"average_speed_mps,omitempty"`
	MaxSpeedMPS              float64   `json:"max_speed_mps,omitempty"`
	Calories                 float64   `json:"calories,omitempty"`
	StartLatLng              []float64 `json:"start_latlng,omitempty"`
	EndLatLng                []float64 `json:"end_latlng,omitempty"`

	// Streams and Laps are populated by the sync step, not by the
	// activity list endpoint.
	Streams StreamSet `json:"streams,omitempty"`
	Laps    []Lap     `json:"laps,omitempty"`
}

// IsRun reports whether the activity is a running activity
// (Run, TrailRun, VirtualRun, ...).
func (a *Activity) IsRun() bool {
	return strings.Contains(strings.ToLower(a.SportType), "run")
}

// StartDay returns the calendar day the activity started on.
func (a *Activity) StartDay() (time.Time, error) {
	t, err := ParseDate(a.StartDate)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
}

// Lap is a single lap of an activity. Lap fields keep Strava's own
// names; laps are stored as fetched.
type Lap struct {
	LapIndex         int     `json:"lap_index,omitempty"`
	Distance         float64 `json:"distance,omitempty"`
	MovingTime       float64 `json:"moving_time,omitempty"`
	ElapsedTime      float64 `json:"elapsed_time,omitempty"`
	AverageSpeed     float64 `json:"average_speed,omitempty"`
	AverageHeartrate float64 `json:"average_heartrate,omitempty"`
	MaxHeartrate     float64 `json:"max_heartrate,omitempty"`
}

// StreamSet holds raw stream data keyed by stream type (heartrate,
// pace, altitude, ...). The time-series payloads are kept opaque.
type StreamSet map[string]json.RawMessage

// Types returns the stream types that carry data, for report summaries.
func (s StreamSet) Types() []string {
	var types []string
	for k, v := range s {
		if len(v) > 0 && string(v) != "null" {
			types = append(types, k)
		}
	}
	return types
}

// apiActivity mirrors the wire format of the Strava activity endpoints.
type apiActivity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	StartDate          string    `json:"start_date"`
	Distance           float64   `json:"distance"`
	MovingTime         float64   `json:"moving_time"`
	ElapsedTime        float64   `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	ElevHigh           float64   `json:"elev_high"`
	ElevLow            float64   `json:"elev_low"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	Calories           float64   `json:"calories"`
	StartLatLng        []float64 `json:"start_latlng"`
	EndLatLng          []float64 `json:"end_latlng"`
}

// toActivity applies the field whitelist and unit renaming.
func (a *apiActivity) toActivity() Activity {
	return Activity{
		ID:                       a.ID,
		Name:                     a.Name,
		SportType:                a.SportType,
		StartDate:                a.StartDate,
		DistanceMetres:           a.Distance,
		MovingTimeSeconds:        a.MovingTime,
		ElapsedTimeSeconds:       a.ElapsedTime,
		TotalElevationGainMetres: a.TotalElevationGain,
		ElevHighMetres:           a.ElevHigh,
		ElevLowMetres:            a.ElevLow,
		AverageSpeedMPS:          a.AverageSpeed,
		MaxSpeedMPS:              a.MaxSpeed,
		Calories:                 a.Calories,
		StartLatLng:              a.StartLatLng,
		EndLatLng:                a.EndLatLng,
	}
}

// ParseDate parses the date formats that appear in activity and plan
// records: plain ISO dates (2025-04-01) and RFC3339 timestamps with an
// optional Z suffix.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
}
