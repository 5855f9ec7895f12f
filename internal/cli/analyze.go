package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [plan-id]",
		Short: "Compare a training plan against the recorded runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			planID := ""
			if len(args) > 0 {
				planID = args[0]
			}

			report, err := a.svc.Adherence(ctx, planID)
			if err != nil {
				return err
			}

			fmt.Printf("Plan %q (%s), as of %s\n", report.PlanName, report.PlanID, report.AsOf)
			fmt.Printf("  %d completed, %d missed (%.1f%% completion)\n",
				report.CompletedCount, report.MissedCount, report.CompletionRate)

			if len(report.RecentCompleted) > 0 {
				fmt.Println("\nRecently completed:")
				for _, w := range report.RecentCompleted {
					fmt.Printf("  %s  %-10s planned %.1f km, ran %.1f km at %s/km (%s)\n",
						w.PlannedDate, w.WorkoutType, w.PlannedDistanceKM,
						w.ActualDistanceKM, w.ActualPacePerKM, w.ActivityName)
				}
			}
			if len(report.RecentMissed) > 0 {
				fmt.Println("\nRecently missed:")
				for _, w := range report.RecentMissed {
					fmt.Printf("  %s  %-10s %.1f km  %s\n",
						w.PlannedDate, w.WorkoutType, w.PlannedDistanceKM, w.Description)
				}
			}
			if len(report.Upcoming) > 0 {
				fmt.Println("\nComing up:")
				for _, w := range report.Upcoming {
					fmt.Printf("  %s (%d days away)  %-10s %.1f km  %s\n",
						w.Date, w.DaysAway, w.WorkoutType, w.DistanceKM, w.Description)
				}
			}
			return nil
		},
	}
}
