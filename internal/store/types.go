// Package store persists the coaching records: mirrored runs, training
// plans, the athlete profile, session notes, and plan adjustments. Two
// implementations are provided behind the Store interface, one on
// SQLite for local-first setups and one on PostgreSQL with pgvector.
package store

import "time"

// WorkoutType classifies a planned workout.
type WorkoutType string

const (
	WorkoutEasy          WorkoutType = "easy"
	WorkoutSession       WorkoutType = "workout"
	WorkoutLongRun       WorkoutType = "long_run"
	WorkoutTuneupRace    WorkoutType = "tuneup_race"
	WorkoutGym           WorkoutType = "gym"
	WorkoutCrossTraining WorkoutType = "cross_training"
	WorkoutRest          WorkoutType = "rest"
)

// IsRunning reports whether the workout type is expected to produce a
// recorded run. Gym, cross-training and rest days never match against
// activities.
func (t WorkoutType) IsRunning() bool {
	switch t {
	case WorkoutGym, WorkoutCrossTraining, WorkoutRest:
		return false
	}
	return true
}

// GoalRace describes the race a training plan builds toward.
type GoalRace struct {
	Date          string  `json:"date"`
	RaceType      string  `json:"race_type,omitempty"`
	DistanceKM    float64 `json:"distance_km,omitempty"`
	GoalTime      string  `json:"goal_time,omitempty"`
	GoalPacePerKM string  `json:"goal_pace_min_per_km,omitempty"`
	RaceName      string  `json:"race_name,omitempty"`
}

// PlannedWorkout is a single entry in a training week.
type PlannedWorkout struct {
	DayOfWeek   string      `json:"day_of_week,omitempty"`
	Date        string      `json:"date"`
	Type        WorkoutType `json:"type"`
	Description string      `json:"description,omitempty"`

	// Running workouts.
	DistanceKM      float64 `json:"distance_km,omitempty"`
	TargetPacePerKM string  `json:"target_pace_min_per_km,omitempty"`
	Structure       string  `json:"structure,omitempty"`

	// Non-running activities.
	DurationMinutes int `json:"duration_minutes,omitempty"`

	// Tuneup races.
	RaceName string `json:"race_name,omitempty"`
}

// TrainingWeek is one week of a training plan.
type TrainingWeek struct {
	WeekNumber             int              `json:"week_number"`
	WeekStartDate          string           `json:"week_start_date,omitempty"`
	TotalPlannedDistanceKM float64          `json:"total_planned_distance_km,omitempty"`
	WeeklyFocus            string           `json:"weekly_focus,omitempty"`
	Runs                   []PlannedWorkout `json:"runs"`
}

// TrainingPlan is a complete user-authored training plan.
type TrainingPlan struct {
	ID            string         `json:"id,omitempty"`
	PlanName      string         `json:"plan_name"`
	GoalRace      GoalRace       `json:"goal_race"`
	CreatedDate   string         `json:"created_date,omitempty"`
	PlanStartDate string         `json:"plan_start_date"`
	PlanEndDate   string         `json:"plan_end_date"`
	Notes         string         `json:"notes,omitempty"`
	Weeks         []TrainingWeek `json:"weeks"`
	IsActive      *bool          `json:"is_active,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Active reports whether the plan is active. Plans are active unless
// explicitly deactivated.
func (p *TrainingPlan) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// PlanSummary is the listing view of a training plan.
type PlanSummary struct {
	ID        string `json:"id"`
	PlanName  string `json:"plan_name"`
	RaceDate  string `json:"race_date,omitempty"`
	RaceName  string `json:"race_name,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// AthleteProfile carries the long-lived coaching context for one
// athlete. The default athlete ID is "default"; the key exists so a
// multi-athlete setup needs no schema change.
type AthleteProfile struct {
	AthleteID           string           `json:"athlete_id"`
	Name                string           `json:"name,omitempty"`
	TrainingPreferences map[string]any   `json:"training_preferences"`
	Goals               []map[string]any `json:"goals"`
	InjuryHistory       []map[string]any `json:"injury_history"`
	Notes               string           `json:"notes"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// NewAthleteProfile returns an empty profile for the given athlete.
func NewAthleteProfile(athleteID string) *AthleteProfile {
	return &AthleteProfile{
		AthleteID:           athleteID,
		TrainingPreferences: map[string]any{},
		Goals:               []map[string]any{},
		InjuryHistory:       []map[string]any{},
	}
}

// Valid note types for SessionNote.NoteType.
const (
	NoteSessionSummary = "session_summary"
	NoteInsight        = "insight"
	NoteAdjustment     = "adjustment"
)

// SessionNote is a free-form coaching note persisted across sessions.
type SessionNote struct {
	ID        int64     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	AthleteID string    `json:"athlete_id"`
	NoteType  string    `json:"note_type"`
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"key_points,omitempty"`

	// Similarity is populated by SearchSimilarNotes.
	Similarity float32 `json:"similarity,omitempty"`
}

// PlanAdjustment records a change made to a training plan and why.
type PlanAdjustment struct {
	ID                int64     `json:"-"`
	Timestamp         time.Time `json:"timestamp"`
	AthleteID         string    `json:"athlete_id"`
	PlanID            string    `json:"plan_id"`
	ChangeDescription string    `json:"change_description"`
	Reason            string    `json:"reason"`
}
