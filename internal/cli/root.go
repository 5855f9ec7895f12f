// Package cli implements the strava-mcp command line: the MCP server
// plus maintenance commands for syncing, reporting, and plan analysis.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wernerpe/strava-mcp-server/internal/coach"
	"github.com/wernerpe/strava-mcp-server/internal/config"
	"github.com/wernerpe/strava-mcp-server/internal/llm"
	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

// app bundles the wired components behind the subcommands.
type app struct {
	cfg    config.Config
	store  store.Store
	svc    *coach.Service
	client *strava.Client
}

// newApp loads configuration and opens the store. The returned cleanup
// closes it.
func newApp(ctx context.Context) (*app, func(), error) {
	_ = godotenv.Load()
	cfg := config.Load()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var client *strava.Client
	var source coach.ActivitySource
	if cfg.HasStrava() {
		client = strava.NewClient(cfg.StravaRefreshToken, cfg.StravaClientID, cfg.StravaClientSecret)
		source = client
	}

	var embedder coach.Embedder
	if cfg.APIKey != "" {
		llmClient, err := llm.NewClient(ctx, cfg.APIKey)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		embedder = llmClient
	}

	a := &app{
		cfg:    cfg,
		store:  st,
		svc:    coach.NewService(st, source, embedder),
		client: client,
	}
	cleanup := func() { st.Close() }
	return a, cleanup, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	var st store.Store
	var err error
	if cfg.DBType == "postgres" {
		st, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
	} else {
		st, err = store.NewSQLiteStore(ctx, cfg.DatabaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	type schemaIniter interface {
		InitSchema(ctx context.Context) error
	}
	if initer, ok := st.(schemaIniter); ok {
		if err := initer.InitSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

// NewRootCommand builds the strava-mcp command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "strava-mcp",
		Short:        "Personal running data server: mirrors Strava runs and serves coaching tools over MCP",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newUpdateCommand(),
		newReportCommand(),
		newAnalyzeCommand(),
		newCalendarCommand(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}
