package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/wernerpe/strava-mcp-server/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var api server.StravaAPI
			if a.client != nil {
				api = a.client
			}

			log.Println("serving MCP on stdio")
			srv := server.New(a.svc, api)
			return server.Run(ctx, srv)
		},
	}
}
