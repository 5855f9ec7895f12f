package store

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	run := &strava.Activity{
		ID:                101,
		Name:              "Morning Run",
		SportType:         "Run",
		StartDate:         "2025-04-01T07:00:00Z",
		DistanceMetres:    10000,
		MovingTimeSeconds: 3000,
	}

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := s.GetRun(ctx, 101)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.Name != "Morning Run" || got.DistanceMetres != 10000 {
		t.Errorf("run round-trip mismatch: %+v", got)
	}

	// Upsert replaces the document
	run.Name = "Morning Run (renamed)"
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to upsert run: %v", err)
	}
	got, err = s.GetRun(ctx, 101)
	if err != nil {
		t.Fatalf("failed to get run after upsert: %v", err)
	}
	if got.Name != "Morning Run (renamed)" {
		t.Errorf("expected upserted name, got %q", got.Name)
	}

	missing, err := s.GetRun(ctx, 999)
	if err != nil {
		t.Fatalf("unexpected error for missing run: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing run")
	}
}

func TestListRunsAndExistingIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	dates := []string{"2025-04-03T07:00:00Z", "2025-04-01T07:00:00Z", "2025-04-02T07:00:00Z"}
	for i, d := range dates {
		run := &strava.Activity{ID: int64(i + 1), Name: fmt.Sprintf("Run %d", i+1), SportType: "Run", StartDate: d}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run %d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Newest first
	if runs[0].ID != 1 || runs[1].ID != 3 || runs[2].ID != 2 {
		t.Errorf("unexpected order: %d, %d, %d", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	ids, err := s.ExistingRunIDs(ctx)
	if err != nil {
		t.Fatalf("failed to list run IDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 IDs, got %d", len(ids))
	}
	if _, ok := ids[2]; !ok {
		t.Error("expected ID 2 in set")
	}

	deleted, err := s.DeleteRun(ctx, 2)
	if err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}
	deleted, err = s.DeleteRun(ctx, 2)
	if err != nil {
		t.Fatalf("failed on second delete: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report false")
	}
}

func TestPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	plan := &TrainingPlan{
		ID:       "ab12cd34",
		PlanName: "Marathon Build",
		GoalRace: GoalRace{Date: "2025-10-12", RaceName: "City Marathon"},
		Weeks: []TrainingWeek{
			{WeekNumber: 1, Runs: []PlannedWorkout{
				{Date: "2025-06-02", Type: WorkoutEasy, DistanceKM: 10},
			}},
		},
		CreatedAt: "2025-06-01T10:00:00Z",
		UpdatedAt: "2025-06-01T10:00:00Z",
	}

	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}

	got, err := s.GetPlan(ctx, "ab12cd34")
	if err != nil {
		t.Fatalf("failed to get plan: %v", err)
	}
	if got == nil {
		t.Fatal("expected plan, got nil")
	}
	if got.PlanName != "Marathon Build" || len(got.Weeks) != 1 {
		t.Errorf("plan round-trip mismatch: %+v", got)
	}
	if !got.Active() {
		t.Error("plan without is_active flag should be active")
	}

	summaries, err := s.ListPlans(ctx)
	if err != nil {
		t.Fatalf("failed to list plans: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 plan summary, got %d", len(summaries))
	}
	if summaries[0].RaceName != "City Marathon" || !summaries[0].IsActive {
		t.Errorf("unexpected summary: %+v", summaries[0])
	}

	inactive := false
	plan.IsActive = &inactive
	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("failed to update plan: %v", err)
	}
	summaries, err = s.ListPlans(ctx)
	if err != nil {
		t.Fatalf("failed to relist plans: %v", err)
	}
	if summaries[0].IsActive {
		t.Error("expected plan to be inactive after update")
	}

	deleted, err := s.DeletePlan(ctx, "ab12cd34")
	if err != nil {
		t.Fatalf("failed to delete plan: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}
	got, err = s.GetPlan(ctx, "ab12cd34")
	if err != nil {
		t.Fatalf("unexpected error after delete: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetProfile(ctx, "default")
	if err != nil {
		t.Fatalf("unexpected error for missing profile: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing profile")
	}

	profile := NewAthleteProfile("default")
	profile.Name = "Alex"
	profile.TrainingPreferences["preferred_days"] = []any{"Tue", "Thu", "Sat"}
	profile.Goals = append(profile.Goals, map[string]any{"race": "City Marathon", "time": "3:15:00"})

	if err := s.SaveProfile(ctx, profile); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}

	got, err = s.GetProfile(ctx, "default")
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if got == nil {
		t.Fatal("expected profile, got nil")
	}
	if got.Name != "Alex" || len(got.Goals) != 1 {
		t.Errorf("profile round-trip mismatch: %+v", got)
	}
}

func TestNotesCapAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < MaxSessionNotes+10; i++ {
		note := &SessionNote{
			Timestamp: time.Now().UTC(),
			AthleteID: "default",
			NoteType:  NoteSessionSummary,
			Summary:   fmt.Sprintf("session %d", i),
		}
		if err := s.AddNote(ctx, note, nil); err != nil {
			t.Fatalf("failed to add note %d: %v", i, err)
		}
	}

	notes, err := s.ListNotes(ctx, "default", MaxSessionNotes+10)
	if err != nil {
		t.Fatalf("failed to list notes: %v", err)
	}
	if len(notes) != MaxSessionNotes {
		t.Fatalf("expected notes pruned to %d, got %d", MaxSessionNotes, len(notes))
	}
	// Newest first, oldest 10 pruned
	if notes[0].Summary != fmt.Sprintf("session %d", MaxSessionNotes+9) {
		t.Errorf("expected newest note first, got %q", notes[0].Summary)
	}
	if notes[len(notes)-1].Summary != "session 10" {
		t.Errorf("expected oldest surviving note to be session 10, got %q", notes[len(notes)-1].Summary)
	}

	limited, err := s.ListNotes(ctx, "default", 5)
	if err != nil {
		t.Fatalf("failed to list limited notes: %v", err)
	}
	if len(limited) != 5 {
		t.Errorf("expected 5 notes, got %d", len(limited))
	}
}

func TestSearchSimilarNotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	embeddings := map[string][]float32{
		"tempo pacing felt hard":  {1, 0, 0},
		"long run fueling worked": {0, 1, 0},
		"ankle niggle after hills": {0.9, 0.1, 0},
	}
	for summary, emb := range embeddings {
		note := &SessionNote{
			Timestamp: time.Now().UTC(),
			AthleteID: "default",
			NoteType:  NoteInsight,
			Summary:   summary,
		}
		if err := s.AddNote(ctx, note, emb); err != nil {
			t.Fatalf("failed to add note: %v", err)
		}
	}

	// A note without embedding must never appear in search results
	plain := &SessionNote{Timestamp: time.Now().UTC(), AthleteID: "default", NoteType: NoteInsight, Summary: "no embedding"}
	if err := s.AddNote(ctx, plain, nil); err != nil {
		t.Fatalf("failed to add plain note: %v", err)
	}

	results, err := s.SearchSimilarNotes(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("failed to search notes: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Summary != "tempo pacing felt hard" {
		t.Errorf("expected closest note first, got %q", results[0].Summary)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("expected results sorted by similarity descending")
	}
	if math.Abs(float64(results[0].Similarity)-1.0) > 1e-6 {
		t.Errorf("expected similarity 1.0 for identical vector, got %f", results[0].Similarity)
	}
}

func TestAdjustmentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		adj := &PlanAdjustment{
			Timestamp:         time.Now().UTC(),
			AthleteID:         "default",
			PlanID:            "ab12cd34",
			ChangeDescription: fmt.Sprintf("change %d", i),
			Reason:            "fatigue",
		}
		if err := s.AddAdjustment(ctx, adj); err != nil {
			t.Fatalf("failed to add adjustment %d: %v", i, err)
		}
	}

	adjustments, err := s.ListAdjustments(ctx, "default", 2)
	if err != nil {
		t.Fatalf("failed to list adjustments: %v", err)
	}
	if len(adjustments) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(adjustments))
	}
	if adjustments[0].ChangeDescription != "change 2" {
		t.Errorf("expected newest adjustment first, got %q", adjustments[0].ChangeDescription)
	}
}

func TestPersona(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	content, err := s.GetPersona(ctx)
	if err != nil {
		t.Fatalf("unexpected error for empty persona: %v", err)
	}
	if content != "" {
		t.Errorf("expected empty persona, got %q", content)
	}

	if err := s.SavePersona(ctx, "# Coach\nDirect, evidence-based."); err != nil {
		t.Fatalf("failed to save persona: %v", err)
	}
	if err := s.SavePersona(ctx, "# Coach\nUpdated."); err != nil {
		t.Fatalf("failed to update persona: %v", err)
	}

	content, err = s.GetPersona(ctx)
	if err != nil {
		t.Fatalf("failed to get persona: %v", err)
	}
	if content != "# Coach\nUpdated." {
		t.Errorf("expected updated persona, got %q", content)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 3.14159, 0, 1e-7}
	decoded := decodeVector(encodeVector(original))
	if len(decoded) != len(original) {
		t.Fatalf("expected %d values, got %d", len(original), len(decoded))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("value %d: expected %f, got %f", i, original[i], decoded[i])
		}
	}

	if decodeVector(nil) != nil {
		t.Error("expected nil for empty blob")
	}
	if decodeVector([]byte{1, 2, 3}) != nil {
		t.Error("expected nil for misaligned blob")
	}
}
