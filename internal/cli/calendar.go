package cli

import (
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wernerpe/strava-mcp-server/internal/coach"
	"github.com/wernerpe/strava-mcp-server/internal/store"
	"github.com/wernerpe/strava-mcp-server/internal/strava"
)

type calendarRun struct {
	Name       string
	DistanceKM float64
	Pace       string
}

type calendarDay struct {
	Date    string
	DayName string
	Planned *store.PlannedWorkout
	Actual  *calendarRun
}

type calendarWeek struct {
	WeekNumber int
	Focus      string
	Days       []calendarDay
}

type calendarData struct {
	PlanName string
	RaceName string
	RaceDate string
	Weeks    []calendarWeek
}

func newCalendarCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "calendar [plan-id]",
		Short: "Render an HTML calendar of planned vs actual workouts",
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
			plan, err := resolveCalendarPlan(cmd, a, planID)
			if err != nil {
				return err
			}

			runs, err := a.store.ListRuns(ctx)
			if err != nil {
				return err
			}

			data, err := buildCalendar(plan, runs)
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			if err := calendarTmpl.Execute(out, data); err != nil {
				return fmt.Errorf("failed to render calendar: %w", err)
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the calendar to a file instead of stdout")
	return cmd
}

func resolveCalendarPlan(cmd *cobra.Command, a *app, planID string) (*store.TrainingPlan, error) {
	ctx := cmd.Context()
	if planID != "" {
		plan, err := a.store.GetPlan(ctx, planID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, fmt.Errorf("plan %s not found", planID)
		}
		return plan, nil
	}

	summaries, err := a.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		if s.IsActive {
			return a.store.GetPlan(ctx, s.ID)
		}
	}
	return nil, fmt.Errorf("no active training plan")
}

// buildCalendar lays each plan week out Monday through Sunday and pairs
// planned workouts with the runs recorded on the same day.
func buildCalendar(plan *store.TrainingPlan, runs []strava.Activity) (*calendarData, error) {
	runsByDay := make(map[string]*strava.Activity)
	for i := range runs {
		if !runs[i].IsRun() {
			continue
		}
		day, err := runs[i].StartDay()
		if err != nil {
			continue
		}
		runsByDay[day.Format("2006-01-02")] = &runs[i]
	}

	data := &calendarData{
		PlanName: plan.PlanName,
		RaceName: plan.GoalRace.RaceName,
		RaceDate: plan.GoalRace.Date,
	}

	for _, week := range plan.Weeks {
		workoutsByDay := make(map[string]*store.PlannedWorkout)
		var firstDate time.Time
		for i := range week.Runs {
			date, err := strava.ParseDate(week.Runs[i].Date)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q in week %d: %w", week.Runs[i].Date, week.WeekNumber, err)
			}
			if firstDate.IsZero() || date.Before(firstDate) {
				firstDate = date
			}
			workoutsByDay[date.Format("2006-01-02")] = &week.Runs[i]
		}
		if firstDate.IsZero() {
			continue
		}

		cw := calendarWeek{WeekNumber: week.WeekNumber, Focus: week.WeeklyFocus}
		start := coach.WeekStart(firstDate)
		for d := 0; d < 7; d++ {
			day := start.AddDate(0, 0, d)
			key := day.Format("2006-01-02")

			cd := calendarDay{
				Date:    key,
				DayName: day.Format("Mon"),
				Planned: workoutsByDay[key],
			}
			if run := runsByDay[key]; run != nil {
				cd.Actual = &calendarRun{
					Name:       run.Name,
					DistanceKM: run.DistanceMetres / 1000,
					Pace:       coach.FormatPace(run.AverageSpeedMPS),
				}
			}
			cw.Days = append(cw.Days, cd)
		}
		data.Weeks = append(data.Weeks, cw)
	}

	return data, nil
}

var calendarTmpl = template.Must(template.New("calendar").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.PlanName}}</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 2em; }
  th, td { border: 1px solid #ccc; padding: 6px; vertical-align: top; width: 14%; }
  th { background: #f0f0f0; }
  .planned { color: #1a5276; }
  .actual { color: #1e8449; }
  .missed { color: #b03a2e; }
  caption { text-align: left; font-weight: bold; padding: 6px 0; }
</style>
</head>
<body>
<h1>{{.PlanName}}</h1>
{{if .RaceName}}<p>Goal race: {{.RaceName}} on {{.RaceDate}}</p>{{end}}
{{range .Weeks}}
<table>
<caption>Week {{.WeekNumber}}{{if .Focus}} &mdash; {{.Focus}}{{end}}</caption>
<tr>{{range .Days}}<th>{{.DayName}} {{.Date}}</th>{{end}}</tr>
<tr>
{{range .Days}}<td>
{{with .Planned}}<div class="planned">{{.Type}}{{if .DistanceKM}} {{.DistanceKM}} km{{end}}{{if .Description}}<br>{{.Description}}{{end}}</div>{{end}}
{{with .Actual}}<div class="actual">{{.Name}}<br>{{printf "%.1f" .DistanceKM}} km @ {{.Pace}}/km</div>{{end}}
</td>{{end}}
</tr>
</table>
{{end}}
</body>
</html>
`))
