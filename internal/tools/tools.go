// Package tools defines the ADK tool declarations for the built-in
// coach agent. Each tool wraps one coach service operation; failures
// are reported in the result payload so the model can read them.
package tools

import (
	"encoding/json"
	"fmt"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/wernerpe/strava-mcp-server/internal/coach"
	"github.com/wernerpe/strava-mcp-server/internal/store"
)

// ToolsConfig holds dependencies for creating tools.
type ToolsConfig struct {
	Service *coach.Service
}

// ToolResult is the common tool output: Data on success, Error on
// failure.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func success(data any) ToolResult {
	return ToolResult{Success: true, Data: data}
}

func failure(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// --- Tool Input Structs ---

// SyncRunsArgs is the input for sync_runs.
type SyncRunsArgs struct {
	Weeks int `json:"weeks" jsonschema:"How many weeks back to sync (default 4)"`
}

// ReportArgs is the input for get_training_report.
type ReportArgs struct {
	Weeks int `json:"weeks" jsonschema:"Report window in weeks (default 4)"`
}

// AdherenceArgs is the input for analyze_plan_adherence.
type AdherenceArgs struct {
	PlanID string `json:"plan_id" jsonschema:"Training plan ID; empty selects the active plan"`
}

// SaveNoteArgs is the input for save_coaching_note.
type SaveNoteArgs struct {
	NoteType  string   `json:"note_type" jsonschema:"One of session_summary, insight, adjustment"`
	Summary   string   `json:"summary" jsonschema:"The note text"`
	KeyPoints []string `json:"key_points" jsonschema:"Optional bullet points"`
}

// SearchNotesArgs is the input for search_coaching_notes.
type SearchNotesArgs struct {
	Query string `json:"query" jsonschema:"Free-text query to match against stored notes"`
}

// UpdateProfileArgs is the input for update_athlete_profile.
type UpdateProfileArgs struct {
	UpdatesJSON string `json:"updates_json" jsonschema:"Profile updates as a JSON object"`
}

// --- Tool Constructors ---

func createSyncRunsTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args SyncRunsArgs) (ToolResult, error) {
		result, err := cfg.Service.SyncRuns(ctx, args.Weeks, 0)
		if err != nil {
			return failure("sync failed: %v", err), nil
		}
		return success(result), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "sync_runs",
		Description: "Mirror the athlete's recent Strava runs into the local store. Run this before building reports when fresh data matters.",
	}, handler)
}

func createTrainingReportTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args ReportArgs) (ToolResult, error) {
		report, err := cfg.Service.Report(ctx, args.Weeks)
		if err != nil {
			return failure("failed to build report: %v", err), nil
		}
		return success(report), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "get_training_report",
		Description: "Summarize the stored runs: totals, weekly mileage, and per-run details with laps.",
	}, handler)
}

func createAdherenceTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args AdherenceArgs) (ToolResult, error) {
		report, err := cfg.Service.Adherence(ctx, args.PlanID)
		if err != nil {
			return failure("failed to analyze adherence: %v", err), nil
		}
		return success(report), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "analyze_plan_adherence",
		Description: "Compare the training plan against what was actually run: completed workouts, missed workouts, completion rate, and what is coming up this week.",
	}, handler)
}

func createCoachingContextTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args struct{}) (ToolResult, error) {
		cc, err := cfg.Service.Context(ctx, "")
		if err != nil {
			return failure("failed to build coaching context: %v", err), nil
		}
		return success(cc), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "get_coaching_context",
		Description: "Fetch the athlete profile, recent coaching notes, recent plan adjustments, and the active plan. Call this at the start of a conversation.",
	}, handler)
}

func createSaveNoteTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args SaveNoteArgs) (ToolResult, error) {
		note := &store.SessionNote{
			NoteType:  args.NoteType,
			Summary:   args.Summary,
			KeyPoints: args.KeyPoints,
		}
		if err := cfg.Service.SaveNote(ctx, note); err != nil {
			return failure("failed to save note: %v", err), nil
		}
		return success("note saved"), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "save_coaching_note",
		Description: "Persist an observation worth remembering across conversations: a session summary, an insight about the athlete, or a plan adjustment rationale.",
	}, handler)
}

func createSearchNotesTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args SearchNotesArgs) (ToolResult, error) {
		if args.Query == "" {
			return failure("query is required"), nil
		}
		notes, err := cfg.Service.SearchNotes(ctx, args.Query, 5)
		if err != nil {
			return failure("failed to search notes: %v", err), nil
		}
		if len(notes) == 0 {
			return success("no related notes found"), nil
		}
		return success(notes), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "search_coaching_notes",
		Description: "Find past coaching notes related to a topic, e.g. earlier discussions of pacing, fueling, or an injury.",
	}, handler)
}

func createUpdateProfileTool(cfg ToolsConfig) (tool.Tool, error) {
	handler := func(ctx tool.Context, args UpdateProfileArgs) (ToolResult, error) {
		var updates map[string]any
		if err := json.Unmarshal([]byte(args.UpdatesJSON), &updates); err != nil {
			return failure("invalid updates_json: %v", err), nil
		}
		profile, err := cfg.Service.UpdateProfile(ctx, "", updates)
		if err != nil {
			return failure("failed to update profile: %v", err), nil
		}
		return success(profile), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "update_athlete_profile",
		Description: "Merge new facts into the athlete profile: preferences merge, goals and injury history append.",
	}, handler)
}

// BuildTools creates all agent tools with the given configuration.
func BuildTools(cfg ToolsConfig) ([]tool.Tool, error) {
	constructors := []struct {
		name  string
		build func(ToolsConfig) (tool.Tool, error)
	}{
		{"sync_runs", createSyncRunsTool},
		{"get_training_report", createTrainingReportTool},
		{"analyze_plan_adherence", createAdherenceTool},
		{"get_coaching_context", createCoachingContextTool},
		{"save_coaching_note", createSaveNoteTool},
		{"search_coaching_notes", createSearchNotesTool},
		{"update_athlete_profile", createUpdateProfileTool},
	}

	var tools []tool.Tool
	for _, c := range constructors {
		t, err := c.build(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tool: %w", c.name, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}
