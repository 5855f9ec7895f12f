// Package main is the entry point for the strava-mcp command.
package main

import (
	"os"

	"github.com/wernerpe/strava-mcp-server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
