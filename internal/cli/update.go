package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCommand() *cobra.Command {
	var weeks int

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Sync recent runs from Strava into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if weeks == 0 {
				weeks = a.cfg.LookbackWeeks
			}
			result, err := a.svc.SyncRuns(ctx, weeks, 0)
			if err != nil {
				return err
			}

			fmt.Printf("Fetched %d activities\n", result.Fetched)
			fmt.Printf("  %d new runs stored\n", result.NewRuns)
			fmt.Printf("  %d already stored\n", result.Skipped)
			fmt.Printf("  %d non-running activities skipped\n", result.NonRunning)
			return nil
		},
	}

	cmd.Flags().IntVar(&weeks, "weeks", 0, "how many weeks back to sync (default 4)")
	return cmd
}
