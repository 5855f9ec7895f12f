package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

const (
	// DefaultAthleteID keys the profile, notes and adjustments in a
	// single-athlete setup.
	DefaultAthleteID = "default"

	defaultSyncWeeks = 4
	defaultSyncLimit = 200

	contextNoteLimit       = 10
	contextAdjustmentLimit = 5
)

// ActivitySource is the slice of the Strava client the service needs.
type ActivitySource interface {
	Activities(ctx context.Context, limit int, before, after int64) ([]strava.Activity, error)
	ActivityLaps(ctx context.Context, activityID int64) ([]strava.Lap, error)
	ActivityStreams(ctx context.Context, activityID int64, keys []string) (strava.StreamSet, error)
}

// Embedder produces embedding vectors for note text. Optional; without
// one, notes are stored without embeddings and similarity search is
// unavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service ties the Strava client and the record store together and
// implements the coaching operations the tools expose.
type Service struct {
	store    store.Store
	source   ActivitySource
	embedder Embedder

	now func() time.Time
}

// NewService creates a coach service. source may be nil for offline use
// (sync is then unavailable); embedder may be nil.
func NewService(st store.Store, source ActivitySource, embedder Embedder) *Service {
	return &Service{
		store:    st,
		source:   source,
		embedder: embedder,
		now:      time.Now,
	}
}

// Store exposes the underlying record store for pass-through reads.
func (s *Service) Store() store.Store {
	return s.store
}

// --- Sync ---

// SyncResult reports what a sync run did.
type SyncResult struct {
	Fetched    int     `json:"fetched"`
	NewRuns    int     `json:"new_runs"`
	Skipped    int     `json:"skipped_existing"`
	NonRunning int     `json:"skipped_non_running"`
	SyncedIDs  []int64 `json:"synced_activity_ids,omitempty"`
}

// syncStreamKeys are the streams mirrored alongside each new run.
var syncStreamKeys = []string{"heartrate", "pace", "altitude", "cadence"}

// SyncRuns fetches recent activities and stores the running ones that
// are not mirrored yet, enriched with their streams and laps. weeks and
// limit fall back to defaults when zero.
func (s *Service) SyncRuns(ctx context.Context, weeks, limit int) (*SyncResult, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no Strava credentials configured, sync unavailable")
	}
	if weeks <= 0 {
		weeks = defaultSyncWeeks
	}
	if limit <= 0 {
		limit = defaultSyncLimit
	}

	after := s.now().AddDate(0, 0, -7*weeks).Unix()
	activities, err := s.source.Activities(ctx, limit, 0, after)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	existing, err := s.store.ExistingRunIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Fetched: len(activities)}
	for i := range activities {
		activity := activities[i]
		if !activity.IsRun() {
			result.NonRunning++
			continue
		}
		if _, ok := existing[activity.ID]; ok {
			result.Skipped++
			continue
		}

		// A run without streams or laps is still worth mirroring
		streams, err := s.source.ActivityStreams(ctx, activity.ID, syncStreamKeys)
		if err != nil {
			log.Printf("failed to fetch streams for activity %d: %v", activity.ID, err)
		} else {
			activity.Streams = streams
		}

		laps, err := s.source.ActivityLaps(ctx, activity.ID)
		if err != nil {
			log.Printf("failed to fetch laps for activity %d: %v", activity.ID, err)
		} else {
			activity.Laps = laps
		}

		if err := s.store.SaveRun(ctx, &activity); err != nil {
			return nil, err
		}
		result.NewRuns++
		result.SyncedIDs = append(result.SyncedIDs, activity.ID)
	}

	log.Printf("sync complete: %d fetched, %d new, %d already stored", result.Fetched, result.NewRuns, result.Skipped)
	return result, nil
}

// FetchStreams fetches time-series streams for a stored run and saves
// them into its document.
func (s *Service) FetchStreams(ctx context.Context, activityID int64, keys []string) (*strava.Activity, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no Strava credentials configured")
	}
	run, err := s.store.GetRun(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found, sync it first", activityID)
	}
	if len(keys) == 0 {
		keys = []string{"heartrate", "velocity_smooth", "altitude", "cadence"}
	}

	streams, err := s.source.ActivityStreams(ctx, activityID, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch streams for %d: %w", activityID, err)
	}
	run.Streams = streams
	if err := s.store.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// --- Reports and adherence ---

// Report builds a training report over the stored runs for the last
// weeks weeks (default 4).
func (s *Service) Report(ctx context.Context, weeks int) (*TrainingReport, error) {
	if weeks <= 0 {
		weeks = defaultSyncWeeks
	}
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	return BuildReport(runs, weeks, s.now()), nil
}

// Adherence compares a plan against the stored runs. An empty planID
// selects the first active plan.
func (s *Service) Adherence(ctx context.Context, planID string) (*AdherenceReport, error) {
	plan, err := s.resolvePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	return AnalyzeAdherence(plan, runs, s.now())
}

func (s *Service) resolvePlan(ctx context.Context, planID string) (*store.TrainingPlan, error) {
	if planID != "" {
		plan, err := s.store.GetPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, fmt.Errorf("plan %s not found", planID)
		}
		return plan, nil
	}

	summaries, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		if summary.IsActive {
			return s.store.GetPlan(ctx, summary.ID)
		}
	}
	return nil, fmt.Errorf("no active training plan, create one first")
}

// --- Training plans ---

// CreatePlan validates and stores a new plan, assigning it a short ID
// and timestamps.
func (s *Service) CreatePlan(ctx context.Context, plan *store.TrainingPlan) (*store.TrainingPlan, error) {
	if plan.PlanName == "" {
		return nil, fmt.Errorf("plan_name is required")
	}
	if len(plan.Weeks) == 0 {
		return nil, fmt.Errorf("a plan needs at least one week")
	}
	for _, week := range plan.Weeks {
		for _, w := range week.Runs {
			if _, err := strava.ParseDate(w.Date); err != nil {
				return nil, fmt.Errorf("week %d: %w", week.WeekNumber, err)
			}
		}
	}

	if plan.ID == "" {
		plan.ID = uuid.NewString()[:8]
	}
	now := s.now().UTC().Format(time.RFC3339)
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.CreatedDate == "" {
		plan.CreatedDate = s.now().Format("2006-01-02")
	}

	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan applies a partial update to a stored plan. Nested objects
// merge, lists replace: sending a rewritten week replaces that week.
func (s *Service) UpdatePlan(ctx context.Context, planID string, updates map[string]any) (*store.TrainingPlan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("plan %s not found", planID)
	}

	merged, err := mergeDocument(plan, updates, false)
	if err != nil {
		return nil, err
	}

	var updated store.TrainingPlan
	if err := json.Unmarshal(merged, &updated); err != nil {
		return nil, fmt.Errorf("update does not produce a valid plan: %w", err)
	}
	// Identity fields never change through an update
	updated.ID = plan.ID
	updated.CreatedAt = plan.CreatedAt
	updated.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.store.SavePlan(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// --- Athlete profile ---

// Profile returns the athlete's profile, creating an empty one on
// first access.
func (s *Service) Profile(ctx context.Context, athleteID string) (*store.AthleteProfile, error) {
	if athleteID == "" {
		athleteID = DefaultAthleteID
	}
	profile, err := s.store.GetProfile(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = store.NewAthleteProfile(athleteID)
	}
	return profile, nil
}

// UpdateProfile merges updates into the athlete's profile. Nested maps
// merge, lists append (goals and injury history accumulate), scalars
// replace.
func (s *Service) UpdateProfile(ctx context.Context, athleteID string, updates map[string]any) (*store.AthleteProfile, error) {
	profile, err := s.Profile(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	merged, err := mergeDocument(profile, updates, true)
	if err != nil {
		return nil, err
	}

	var updated store.AthleteProfile
	if err := json.Unmarshal(merged, &updated); err != nil {
		return nil, fmt.Errorf("update does not produce a valid profile: %w", err)
	}
	updated.AthleteID = profile.AthleteID
	if updated.CreatedAt == "" {
		updated.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}
	updated.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.store.SaveProfile(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// mergeDocument round-trips a record through its JSON form, merges the
// updates at the map level, and returns the merged document.
func mergeDocument(record any, updates map[string]any, appendLists bool) ([]byte, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	doc = mergeMaps(doc, updates, appendLists)
	return json.Marshal(doc)
}

// --- Notes and adjustments ---

// SaveNote validates and stores a coaching note, embedding it when an
// embedder is configured.
func (s *Service) SaveNote(ctx context.Context, note *store.SessionNote) error {
	switch note.NoteType {
	case store.NoteSessionSummary, store.NoteInsight, store.NoteAdjustment:
	default:
		return fmt.Errorf("invalid note_type %q (want %s, %s or %s)",
			note.NoteType, store.NoteSessionSummary, store.NoteInsight, store.NoteAdjustment)
	}
	if strings.TrimSpace(note.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if note.AthleteID == "" {
		note.AthleteID = DefaultAthleteID
	}
	if note.Timestamp.IsZero() {
		note.Timestamp = s.now().UTC()
	}

	var embedding []float32
	if s.embedder != nil {
		text := note.Summary
		if len(note.KeyPoints) > 0 {
			text += "\n" + strings.Join(note.KeyPoints, "\n")
		}
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			// Notes must survive embedding outages
			log.Printf("failed to embed note: %v", err)
		} else {
			embedding = vec
		}
	}

	return s.store.AddNote(ctx, note, embedding)
}

// SearchNotes finds stored notes semantically similar to the query.
func (s *Service) SearchNotes(ctx context.Context, query string, limit int) ([]store.SessionNote, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedding model configured, similarity search unavailable")
	}
	if limit <= 0 {
		limit = 5
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.store.SearchSimilarNotes(ctx, vec, limit)
}

// RecordAdjustment logs a plan change and why it was made. The plan
// must exist.
func (s *Service) RecordAdjustment(ctx context.Context, adj *store.PlanAdjustment) error {
	if adj.ChangeDescription == "" || adj.Reason == "" {
		return fmt.Errorf("change_description and reason are required")
	}
	plan, err := s.store.GetPlan(ctx, adj.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("plan %s not found", adj.PlanID)
	}
	if adj.AthleteID == "" {
		adj.AthleteID = DefaultAthleteID
	}
	if adj.Timestamp.IsZero() {
		adj.Timestamp = s.now().UTC()
	}
	return s.store.AddAdjustment(ctx, adj)
}

// --- Coaching context ---

// CoachingContext bundles everything a new conversation needs to pick
// up where the last one left off.
type CoachingContext struct {
	Persona           string                 `json:"coaching_persona,omitempty"`
	Profile           *store.AthleteProfile  `json:"athlete_profile"`
	RecentNotes       []store.SessionNote    `json:"recent_notes"`
	RecentAdjustments []store.PlanAdjustment `json:"recent_adjustments"`
	ActivePlan        *store.PlanSummary     `json:"active_plan,omitempty"`
}

// Context assembles the coaching context for an athlete: persona,
// profile, the most recent notes and adjustments, and the first active
// plan.
func (s *Service) Context(ctx context.Context, athleteID string) (*CoachingContext, error) {
	if athleteID == "" {
		athleteID = DefaultAthleteID
	}

	persona, err := s.store.GetPersona(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, athleteID, contextNoteLimit)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.store.ListAdjustments(ctx, athleteID, contextAdjustmentLimit)
	if err != nil {
		return nil, err
	}

	result := &CoachingContext{
		Persona:           persona,
		Profile:           profile,
		RecentNotes:       notes,
		RecentAdjustments: adjustments,
	}

	summaries, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		if summaries[i].IsActive {
			result.ActivePlan = &summaries[i]
			break
		}
	}

	return result, nil
}
