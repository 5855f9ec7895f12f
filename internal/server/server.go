// Package server exposes the coaching operations as MCP tools over
// stdio. Tool failures are reported in-band in the result payload, so
// a conversational client can read and recover from them.
package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wernerpe/strava-mcp-server/internal/coach"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// StravaAPI is the slice of the Strava client the activity tools call
// directly, without going through the run store.
type StravaAPI interface {
	Activities(ctx context.Context, limit int, before, after int64) ([]strava.Activity, error)
	Activity(ctx context.Context, activityID int64) (*strava.Activity, error)
	ActivityStreams(ctx context.Context, activityID int64, keys []string) (strava.StreamSet, error)
}

// ToolResult is the common tool output shape: either Data on success
// or Error on failure.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

func fail(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Handler implements the MCP tool handlers.
type Handler struct {
	svc *coach.Service
	api StravaAPI
}

// New builds the MCP server with all coaching tools registered. api may
// be nil when no Strava credentials are configured; the activity tools
// then report an in-band error.
func New(svc *coach.Service, api StravaAPI) *mcp.Server {
	h := &Handler{svc: svc, api: api}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "strava-coach",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_activities",
		Description: "Fetch the athlete's most recent activities from Strava.",
	}, h.getActivities)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_activities_by_date_range",
		Description: "Fetch activities between two ISO dates (inclusive).",
	}, h.getActivitiesByDateRange)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_activity_by_id",
		Description: "Fetch a single activity with full details.",
	}, h.getActivityByID)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_recent_activities",
		Description: "Fetch activities from the last N days.",
	}, h.getRecentActivities)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_activity_streams",
		Description: "Fetch time-series streams (heartrate, pace, ...) for an activity.",
	}, h.getActivityStreams)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_runs",
		Description: "Mirror recent runs from Strava into the local store, with laps.",
	}, h.syncRuns)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_training_report",
		Description: "Build a training report over the stored runs: totals, weekly summaries, and per-run details.",
	}, h.getTrainingReport)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_training_plan",
		Description: "Validate and store a new training plan. Returns the assigned plan ID.",
	}, h.saveTrainingPlan)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_training_plans",
		Description: "List stored training plans, upcoming races first.",
	}, h.listTrainingPlans)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_training_plan",
		Description: "Fetch a full training plan by ID.",
	}, h.getTrainingPlan)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_training_plan",
		Description: "Apply a partial update to a training plan. Nested objects merge, lists replace.",
	}, h.updateTrainingPlan)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_training_plan",
		Description: "Delete a training plan by ID.",
	}, h.deleteTrainingPlan)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_plan_adherence",
		Description: "Compare a training plan against the recorded runs: completed, missed, and upcoming workouts.",
	}, h.analyzePlanAdherence)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_plan_adjustment",
		Description: "Log a change made to a training plan and the reason for it.",
	}, h.recordPlanAdjustment)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_coaching_context",
		Description: "Fetch everything a new coaching conversation needs: persona, athlete profile, recent notes and adjustments, and the active plan.",
	}, h.getCoachingContext)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_coaching_note",
		Description: "Persist a coaching note (session_summary, insight or adjustment) for future sessions.",
	}, h.saveCoachingNote)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_coaching_notes",
		Description: "Find stored coaching notes semantically similar to a query.",
	}, h.searchCoachingNotes)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_athlete_profile",
		Description: "Merge updates into the athlete profile. Preferences merge, goals and injury history append.",
	}, h.updateAthleteProfile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_coaching_persona",
		Description: "Store the coaching persona markdown used to open new conversations.",
	}, h.setCoachingPersona)

	return server
}

// Run serves the MCP protocol on stdin/stdout until the client
// disconnects or ctx is cancelled.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
