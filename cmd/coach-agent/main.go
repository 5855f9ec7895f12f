// Package main is the entry point for the built-in coach agent, an
// interactive running coach over the same store the MCP server uses.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/template"

	"github.com/joho/godotenv"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/full"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/wernerpe/strava-mcp-server/internal/coach"
	"github.com/wernerpe/strava-mcp-server/internal/config"
	"github.com/wernerpe/strava-mcp-server/internal/llm"
	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
	"github.com/wernerpe/strava-mcp-server/internal/tools"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.APIKey == "" {
		log.Fatal("GOOGLE_API_KEY environment variable is required for the coach agent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	llmAgent, memorySvc, cleanup, err := initializeAgent(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize agent: %v", err)
	}
	defer cleanup()

	launcherCfg := &launcher.Config{
		AgentLoader:   agent.NewSingleLoader(llmAgent),
		MemoryService: memorySvc,
	}
	l := full.NewLauncher()
	if err := l.Execute(ctx, launcherCfg, os.Args[1:]); err != nil {
		log.Fatalf("Failed to run agent: %v\n\n%s", err, l.CommandLineSyntax())
	}
}

// initializeAgent wires the store, the coach service, the session
// memory, and the ADK agent.
func initializeAgent(ctx context.Context, cfg config.Config) (agent.Agent, *coach.MemoryService, func(), error) {
	embedder, err := llm.NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var source coach.ActivitySource
	if cfg.HasStrava() {
		source = strava.NewClient(cfg.StravaRefreshToken, cfg.StravaClientID, cfg.StravaClientSecret)
	}
	svc := coach.NewService(st, source, embedder)

	persona, err := st.GetPersona(ctx)
	if err != nil {
		log.Printf("Warning: failed to load coaching persona: %v", err)
	}
	systemPrompt := buildSystemPrompt(persona)

	agentTools, err := tools.BuildTools(tools.ToolsConfig{Service: svc})
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("failed to build tools: %w", err)
	}

	llmModel, err := gemini.NewModel(ctx, "gemini-2.0-flash", &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("failed to create LLM model: %w", err)
	}

	llmAgent, err := llmagent.New(llmagent.Config{
		Name:        "running_coach",
		Description: "A running coach that tracks training, compares plans against actual runs, and remembers the athlete across conversations",
		Model:       llmModel,
		Instruction: systemPrompt,
		Tools:       agentTools,
	})
	if err != nil {
		st.Close()
		return nil, nil, nil, fmt.Errorf("failed to create agent: %w", err)
	}

	cleanup := func() {
		st.Close()
	}

	log.Println("Coach agent initialized")
	return llmAgent, coach.NewMemoryService(svc), cleanup, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DBType == "postgres" {
		st, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := st.InitSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}

	st, err := store.NewSQLiteStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

var systemPromptTmpl = template.Must(template.New("systemPrompt").Parse(`
You are a running coach working with one athlete over many
conversations. You track their training, compare it against their plan,
and remember what you learn about them.

You can:
1. Sync recent runs from Strava and summarize training load
2. Analyze how well the training plan is being followed
3. Recall the athlete's profile, goals, injuries, and past conversations
4. Save notes and profile updates so the next conversation picks up
   where this one left off

{{- if .HasPersona }}

Adopt the following coaching persona:
{{.Persona}}
{{- end }}

At the start of a conversation, call get_coaching_context. When you
learn something durable about the athlete, save it with
save_coaching_note or update_athlete_profile before the conversation
ends.
`))

// buildSystemPrompt templates the stored coaching persona into the
// system instruction.
func buildSystemPrompt(persona string) string {
	data := struct {
		Persona    string
		HasPersona bool
	}{
		Persona:    persona,
		HasPersona: persona != "",
	}

	var buf bytes.Buffer
	_ = systemPromptTmpl.Execute(&buf, data)
	return buf.String()
}
