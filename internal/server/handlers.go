package server

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// --- Activity tools ---

// GetActivitiesArgs is the input for get_activities.
type GetActivitiesArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Maximum number of activities to return (default 10)"`
}

func (h *Handler) getActivities(ctx context.Context, req *mcp.CallToolRequest, args GetActivitiesArgs) (*mcp.CallToolResult, ToolResult, error) {
	if h.api == nil {
		return nil, fail("no Strava credentials configured"), nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	activities, err := h.api.Activities(ctx, limit, 0, 0)
	if err != nil {
		return nil, fail("failed to fetch activities: %v", err), nil
	}
	return nil, ok(activities), nil
}

// DateRangeArgs is the input for get_activities_by_date_range.
type DateRangeArgs struct {
	StartDate string `json:"start_date" jsonschema:"description=Start date in YYYY-MM-DD format"`
	EndDate   string `json:"end_date" jsonschema:"description=End date in YYYY-MM-DD format (inclusive)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"description=Maximum number of activities to return (default 30)"`
}

func (h *Handler) getActivitiesByDateRange(ctx context.Context, req *mcp.CallToolRequest, args DateRangeArgs) (*mcp.CallToolResult, ToolResult, error) {
	if h.api == nil {
		return nil, fail("no Strava credentials configured"), nil
	}
	start, err := strava.ParseDate(args.StartDate)
	if err != nil {
		return nil, fail("invalid start_date: %v", err), nil
	}
	end, err := strava.ParseDate(args.EndDate)
	if err != nil {
		return nil, fail("invalid end_date: %v", err), nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 30
	}

	// Inclusive end: up to 23:59:59 on the end date
	after := start.Unix()
	before := end.AddDate(0, 0, 1).Add(-time.Second).Unix()

	activities, err := h.api.Activities(ctx, limit, before, after)
	if err != nil {
		return nil, fail("failed to fetch activities: %v", err), nil
	}
	return nil, ok(activities), nil
}

// ActivityIDArgs is the input for tools addressing a single activity.
type ActivityIDArgs struct {
	ActivityID int64 `json:"activity_id" jsonschema:"description=Strava activity ID"`
}

func (h *Handler) getActivityByID(ctx context.Context, req *mcp.CallToolRequest, args ActivityIDArgs) (*mcp.CallToolResult, ToolResult, error) {
	if h.api == nil {
		return nil, fail("no Strava credentials configured"), nil
	}
	if args.ActivityID == 0 {
		return nil, fail("activity_id is required"), nil
	}

	activity, err := h.api.Activity(ctx, args.ActivityID)
	if err != nil {
		return nil, fail("failed to fetch activity %d: %v", args.ActivityID, err), nil
	}
	return nil, ok(activity), nil
}

// RecentActivitiesArgs is the input for get_recent_activities.
type RecentActivitiesArgs struct {
	Days  int `json:"days,omitempty" jsonschema:"description=How many days back to look (default 7)"`
	Limit int `json:"limit,omitempty" jsonschema:"description=Maximum number of activities to return (default 10)"`
}

func (h *Handler) getRecentActivities(ctx context.Context, req *mcp.CallToolRequest, args RecentActivitiesArgs) (*mcp.CallToolResult, ToolResult, error) {
	if h.api == nil {
		return nil, fail("no Strava credentials configured"), nil
	}
	days := args.Days
	if days <= 0 {
		days = 7
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	after := time.Now().AddDate(0, 0, -days).Unix()
	activities, err := h.api.Activities(ctx, limit, 0, after)
	if err != nil {
		return nil, fail("failed to fetch activities: %v", err), nil
	}
	return nil, ok(activities), nil
}

// StreamsArgs is the input for get_activity_streams.
type StreamsArgs struct {
	ActivityID  int64  `json:"activity_id" jsonschema:"description=Strava activity ID"`
	StreamTypes string `json:"stream_types,omitempty" jsonschema:"description=Comma-separated stream types (default heartrate,pace)"`
}

func (h *Handler) getActivityStreams(ctx context.Context, req *mcp.CallToolRequest, args StreamsArgs) (*mcp.CallToolResult, ToolResult, error) {
	if h.api == nil {
		return nil, fail("no Strava credentials configured"), nil
	}
	if args.ActivityID == 0 {
		return nil, fail("activity_id is required"), nil
	}
	keys := []string{"heartrate", "pace"}
	if args.StreamTypes != "" {
		keys = strings.Split(args.StreamTypes, ",")
		for i := range keys {
			keys[i] = strings.TrimSpace(keys[i])
		}
	}

	// Persist the streams onto the stored run when we have it, so later
	// reports can serve them without another API call.
	stored, err := h.svc.Store().GetRun(ctx, args.ActivityID)
	if err == nil && stored != nil {
		run, err := h.svc.FetchStreams(ctx, args.ActivityID, keys)
		if err != nil {
			return nil, fail("failed to fetch streams for %d: %v", args.ActivityID, err), nil
		}
		return nil, ok(run.Streams), nil
	}

	streams, err := h.api.ActivityStreams(ctx, args.ActivityID, keys)
	if err != nil {
		return nil, fail("failed to fetch streams for %d: %v", args.ActivityID, err), nil
	}
	return nil, ok(streams), nil
}

// --- Sync and reports ---

// SyncArgs is the input for sync_runs.
type SyncArgs struct {
	Weeks int `json:"weeks,omitempty" jsonschema:"description=How many weeks back to sync (default 4)"`
	Limit int `json:"limit,omitempty" jsonschema:"description=Maximum number of activities to fetch (default 200)"`
}

func (h *Handler) syncRuns(ctx context.Context, req *mcp.CallToolRequest, args SyncArgs) (*mcp.CallToolResult, ToolResult, error) {
	result, err := h.svc.SyncRuns(ctx, args.Weeks, args.Limit)
	if err != nil {
		return nil, fail("sync failed: %v", err), nil
	}
	return nil, ok(result), nil
}

// ReportArgs is the input for get_training_report.
type ReportArgs struct {
	Weeks   int   `json:"weeks,omitempty" jsonschema:"description=Report window in weeks (default 4)"`
	Refresh *bool `json:"refresh,omitempty" jsonschema:"description=Sync from Strava before building the report (default true when credentials are set)"`
}

func (h *Handler) getTrainingReport(ctx context.Context, req *mcp.CallToolRequest, args ReportArgs) (*mcp.CallToolResult, ToolResult, error) {
	refresh := args.Refresh == nil || *args.Refresh
	if refresh && h.api != nil {
		if _, err := h.svc.SyncRuns(ctx, args.Weeks, 0); err != nil {
			return nil, fail("refresh failed: %v", err), nil
		}
	}
	report, err := h.svc.Report(ctx, args.Weeks)
	if err != nil {
		return nil, fail("failed to build report: %v", err), nil
	}
	return nil, ok(report), nil
}

// --- Training plans ---

// SavePlanArgs is the input for save_training_plan.
type SavePlanArgs struct {
	PlanJSON string `json:"plan_json" jsonschema:"description=Full training plan as a JSON document"`
	PlanID   string `json:"plan_id,omitempty" jsonschema:"description=Optional plan ID; generated when omitted"`
}

func (h *Handler) saveTrainingPlan(ctx context.Context, req *mcp.CallToolRequest, args SavePlanArgs) (*mcp.CallToolResult, ToolResult, error) {
	var plan store.TrainingPlan
	if err := json.Unmarshal([]byte(args.PlanJSON), &plan); err != nil {
		return nil, fail("invalid plan_json: %v", err), nil
	}
	if args.PlanID != "" {
		plan.ID = args.PlanID
	}

	saved, err := h.svc.CreatePlan(ctx, &plan)
	if err != nil {
		return nil, fail("failed to save plan: %v", err), nil
	}
	return nil, ok(map[string]any{"plan_id": saved.ID, "plan_name": saved.PlanName}), nil
}

type emptyArgs struct{}

func (h *Handler) listTrainingPlans(ctx context.Context, req *mcp.CallToolRequest, args emptyArgs) (*mcp.CallToolResult, ToolResult, error) {
	plans, err := h.svc.Store().ListPlans(ctx)
	if err != nil {
		return nil, fail("failed to list plans: %v", err), nil
	}
	return nil, ok(plans), nil
}

// PlanIDArgs is the input for tools addressing a single plan.
type PlanIDArgs struct {
	PlanID string `json:"plan_id" jsonschema:"description=Training plan ID"`
}

func (h *Handler) getTrainingPlan(ctx context.Context, req *mcp.CallToolRequest, args PlanIDArgs) (*mcp.CallToolResult, ToolResult, error) {
	if args.PlanID == "" {
		return nil, fail("plan_id is required"), nil
	}
	plan, err := h.svc.Store().GetPlan(ctx, args.PlanID)
	if err != nil {
		return nil, fail("failed to fetch plan: %v", err), nil
	}
	if plan == nil {
		return nil, fail("plan %s not found", args.PlanID), nil
	}
	return nil, ok(plan), nil
}

// UpdatePlanArgs is the input for update_training_plan.
type UpdatePlanArgs struct {
	PlanID      string `json:"plan_id" jsonschema:"description=Training plan ID"`
	UpdatesJSON string `json:"updates_json" jsonschema:"description=Partial plan update as a JSON object"`
}

func (h *Handler) updateTrainingPlan(ctx context.Context, req *mcp.CallToolRequest, args UpdatePlanArgs) (*mcp.CallToolResult, ToolResult, error) {
	if args.PlanID == "" {
		return nil, fail("plan_id is required"), nil
	}
	var updates map[string]any
	if err := json.Unmarshal([]byte(args.UpdatesJSON), &updates); err != nil {
		return nil, fail("invalid updates_json: %v", err), nil
	}

	plan, err := h.svc.UpdatePlan(ctx, args.PlanID, updates)
	if err != nil {
		return nil, fail("failed to update plan: %v", err), nil
	}
	return nil, ok(plan), nil
}

func (h *Handler) deleteTrainingPlan(ctx context.Context, req *mcp.CallToolRequest, args PlanIDArgs) (*mcp.CallToolResult, ToolResult, error) {
	if args.PlanID == "" {
		return nil, fail("plan_id is required"), nil
	}
	deleted, err := h.svc.Store().DeletePlan(ctx, args.PlanID)
	if err != nil {
		return nil, fail("failed to delete plan: %v", err), nil
	}
	if !deleted {
		return nil, fail("plan %s not found", args.PlanID), nil
	}
	return nil, ok("plan deleted"), nil
}

// AdherenceArgs is the input for analyze_plan_adherence.
type AdherenceArgs struct {
	PlanID string `json:"plan_id,omitempty" jsonschema:"description=Training plan ID (defaults to the active plan)"`
}

func (h *Handler) analyzePlanAdherence(ctx context.Context, req *mcp.CallToolRequest, args AdherenceArgs) (*mcp.CallToolResult, ToolResult, error) {
	report, err := h.svc.Adherence(ctx, args.PlanID)
	if err != nil {
		return nil, fail("failed to analyze adherence: %v", err), nil
	}
	return nil, ok(report), nil
}

// AdjustmentArgs is the input for record_plan_adjustment.
type AdjustmentArgs struct {
	PlanID            string `json:"plan_id" jsonschema:"description=Training plan ID the change applies to"`
	ChangeDescription string `json:"change_description" jsonschema:"description=What was changed"`
	Reason            string `json:"reason" jsonschema:"description=Why the change was made"`
	AthleteID         string `json:"athlete_id,omitempty" jsonschema:"description=Athlete ID (default \"default\")"`
}

func (h *Handler) recordPlanAdjustment(ctx context.Context, req *mcp.CallToolRequest, args AdjustmentArgs) (*mcp.CallToolResult, ToolResult, error) {
	adj := &store.PlanAdjustment{
		AthleteID:         args.AthleteID,
		PlanID:            args.PlanID,
		ChangeDescription: args.ChangeDescription,
		Reason:            args.Reason,
	}
	if err := h.svc.RecordAdjustment(ctx, adj); err != nil {
		return nil, fail("failed to record adjustment: %v", err), nil
	}
	return nil, ok("adjustment recorded"), nil
}

// --- Coaching memory ---

// AthleteArgs is the input for tools addressing an athlete.
type AthleteArgs struct {
	AthleteID string `json:"athlete_id,omitempty" jsonschema:"description=Athlete ID (default \"default\")"`
}

func (h *Handler) getCoachingContext(ctx context.Context, req *mcp.CallToolRequest, args AthleteArgs) (*mcp.CallToolResult, ToolResult, error) {
	cc, err := h.svc.Context(ctx, args.AthleteID)
	if err != nil {
		return nil, fail("failed to build coaching context: %v", err), nil
	}
	return nil, ok(cc), nil
}

// NoteArgs is the input for save_coaching_note.
type NoteArgs struct {
	NoteType  string   `json:"note_type" jsonschema:"description=One of session_summary, insight, adjustment"`
	Summary   string   `json:"summary" jsonschema:"description=The note text"`
	KeyPoints []string `json:"key_points,omitempty" jsonschema:"description=Optional bullet points"`
	AthleteID string   `json:"athlete_id,omitempty" jsonschema:"description=Athlete ID (default \"default\")"`
}

func (h *Handler) saveCoachingNote(ctx context.Context, req *mcp.CallToolRequest, args NoteArgs) (*mcp.CallToolResult, ToolResult, error) {
	note := &store.SessionNote{
		AthleteID: args.AthleteID,
		NoteType:  args.NoteType,
		Summary:   args.Summary,
		KeyPoints: args.KeyPoints,
	}
	if err := h.svc.SaveNote(ctx, note); err != nil {
		return nil, fail("failed to save note: %v", err), nil
	}
	return nil, ok("note saved"), nil
}

// SearchNotesArgs is the input for search_coaching_notes.
type SearchNotesArgs struct {
	Query string `json:"query" jsonschema:"description=Free-text query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of notes to return (default 5)"`
}

func (h *Handler) searchCoachingNotes(ctx context.Context, req *mcp.CallToolRequest, args SearchNotesArgs) (*mcp.CallToolResult, ToolResult, error) {
	if args.Query == "" {
		return nil, fail("query is required"), nil
	}
	notes, err := h.svc.SearchNotes(ctx, args.Query, args.Limit)
	if err != nil {
		return nil, fail("failed to search notes: %v", err), nil
	}
	return nil, ok(notes), nil
}

// ProfileUpdateArgs is the input for update_athlete_profile.
type ProfileUpdateArgs struct {
	UpdatesJSON string `json:"updates_json" jsonschema:"description=Profile updates as a JSON object"`
	AthleteID   string `json:"athlete_id,omitempty" jsonschema:"description=Athlete ID (default \"default\")"`
}

func (h *Handler) updateAthleteProfile(ctx context.Context, req *mcp.CallToolRequest, args ProfileUpdateArgs) (*mcp.CallToolResult, ToolResult, error) {
	var updates map[string]any
	if err := json.Unmarshal([]byte(args.UpdatesJSON), &updates); err != nil {
		return nil, fail("invalid updates_json: %v", err), nil
	}

	profile, err := h.svc.UpdateProfile(ctx, args.AthleteID, updates)
	if err != nil {
		return nil, fail("failed to update profile: %v", err), nil
	}
	return nil, ok(profile), nil
}

// PersonaArgs is the input for set_coaching_persona.
type PersonaArgs struct {
	Content string `json:"content" jsonschema:"description=Coaching persona as markdown"`
}

func (h *Handler) setCoachingPersona(ctx context.Context, req *mcp.CallToolRequest, args PersonaArgs) (*mcp.CallToolResult, ToolResult, error) {
	if strings.TrimSpace(args.Content) == "" {
		return nil, fail("content is required"), nil
	}
	if err := h.svc.Store().SavePersona(ctx, args.Content); err != nil {
		return nil, fail("failed to save persona: %v", err), nil
	}
	return nil, ok("persona saved"), nil
}
