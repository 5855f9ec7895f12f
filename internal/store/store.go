package store

import (
	"context"

	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// MaxSessionNotes bounds the number of notes kept per athlete. Adding a
// note prunes the oldest beyond this count.
const MaxSessionNotes = 50

// Store defines the contract for the coaching record store. One record
// type per entity; implementations must make every write durable before
// returning.
type Store interface {
	// Runs mirror Strava activities. SaveRun upserts by activity ID so
	// re-syncing the same window is idempotent.
	SaveRun(ctx context.Context, run *strava.Activity) error
	GetRun(ctx context.Context, activityID int64) (*strava.Activity, error)
	ListRuns(ctx context.Context) ([]strava.Activity, error)
	ExistingRunIDs(ctx context.Context) (map[int64]struct{}, error)
	DeleteRun(ctx context.Context, activityID int64) (bool, error)

	// Training plans. SavePlan stores the full plan document; callers
	// merge updates before saving.
	SavePlan(ctx context.Context, plan *TrainingPlan) error
	GetPlan(ctx context.Context, planID string) (*TrainingPlan, error)
	ListPlans(ctx context.Context) ([]PlanSummary, error)
	DeletePlan(ctx context.Context, planID string) (bool, error)

	// Athlete profile, one per athlete ID.
	GetProfile(ctx context.Context, athleteID string) (*AthleteProfile, error)
	SaveProfile(ctx context.Context, profile *AthleteProfile) error

	// Session notes, newest first, pruned to MaxSessionNotes per
	// athlete. The embedding is optional and enables similarity search.
	AddNote(ctx context.Context, note *SessionNote, embedding []float32) error
	ListNotes(ctx context.Context, athleteID string, limit int) ([]SessionNote, error)
	SearchSimilarNotes(ctx context.Context, queryVector []float32, limit int) ([]SessionNote, error)

	// Plan adjustment log, newest first.
	AddAdjustment(ctx context.Context, adj *PlanAdjustment) error
	ListAdjustments(ctx context.Context, athleteID string, limit int) ([]PlanAdjustment, error)

	// Coaching persona markdown. GetPersona returns "" when none has
	// been saved yet.
	GetPersona(ctx context.Context) (string, error)
	SavePersona(ctx context.Context, content string) error

	// Close releases any resources held by the store.
	Close() error
}
