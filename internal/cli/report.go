package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	var weeks int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a training report over the stored runs",
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
			report, err := a.svc.Report(ctx, weeks)
			if err != nil {
				return err
			}

			fmt.Printf("Training report %s to %s\n", report.PeriodStart, report.PeriodEnd)
			fmt.Printf("  %d runs, %.1f km, %s moving, avg %s/km, longest %.1f km\n",
				report.TotalRuns, report.TotalDistanceKM, report.TotalMovingTime,
				report.AveragePace, report.LongestRunKM)
			if report.AverageHeartrate > 0 {
				fmt.Printf("  avg heartrate %.0f bpm\n", report.AverageHeartrate)
			}

			for _, week := range report.Weeks {
				fmt.Printf("\nWeek of %s: %d runs, %.1f km, %s, avg %s/km, %.0f m climbed",
					week.WeekStart, week.RunCount, week.TotalDistanceKM,
					week.TotalMovingTime, week.AveragePace, week.ElevationGainM)
				if week.AverageHeartrate > 0 {
					fmt.Printf(", avg %.0f bpm", week.AverageHeartrate)
				}
				fmt.Println()
			}

			if len(report.Runs) > 0 {
				fmt.Println("\nRuns:")
			}
			for _, run := range report.Runs {
				fmt.Printf("  %s  %-30s %6.1f km  %8s  %s/km\n",
					run.Date, run.Name, run.DistanceKM, run.MovingTime, run.PacePerKM)
				for _, lap := range run.Laps {
					fmt.Printf("      lap %d: %.1f km in %s (%s/km)", lap.LapIndex, lap.DistanceKM, lap.MovingTime, lap.PacePerKM)
					if lap.AverageHeartrate > 0 {
						fmt.Printf(", %.0f bpm", lap.AverageHeartrate)
					}
					fmt.Println()
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&weeks, "weeks", 0, "report window in weeks (default 4)")
	return cmd
}
