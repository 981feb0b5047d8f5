package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"diaryassistant/internal/evaluation"
	"diaryassistant/internal/preflight"
	"diaryassistant/internal/runner"
	"diaryassistant/internal/summary"
)

const dateLayout = "2006-01-02"

type runFlags struct {
	date  string
	force bool
}

func (f *runFlags) bind(cmd *cobra.Command, withForce bool) {
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "Date to process (YYYY-MM-DD, default today)")
	if withForce {
		cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Regenerate feedback even if the diary already has it")
	}
}

// resolveDate returns the UTC midnight of the requested or current local day.
func (f runFlags) resolveDate(now time.Time) (time.Time, error) {
	value := strings.TrimSpace(f.date)
	if value == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", value)
	}
	return date, nil
}

func newRunCommands(ctx *commandContext) []*cobra.Command {
	var runOpts, dailyOpts, weeklyOpts runFlags

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the day's diary, then write missing weekly summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, ctx, runner.All, runOpts)
		},
	}
	runOpts.bind(runCmd, true)

	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Evaluate one diary day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, ctx, runner.Tasks{Daily: true}, dailyOpts)
		},
	}
	dailyOpts.bind(dailyCmd, true)

	weeklyCmd := &cobra.Command{
		Use:   "weekly",
		Short: "Write summaries for complete weeks that lack one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd, ctx, runner.Tasks{Weekly: true}, weeklyOpts)
		},
	}
	weeklyOpts.bind(weeklyCmd, false)

	return []*cobra.Command{runCmd, dailyCmd, weeklyCmd}
}

func runTasks(cmd *cobra.Command, ctx *commandContext, tasks runner.Tasks, flags runFlags) error {
	date, err := flags.resolveDate(time.Now())
	if err != nil {
		return err
	}
	a, err := ctx.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.newRunner(flags)
	if err != nil {
		return err
	}
	if err := preflight.Failed(preflight.RunAll(cmd.Context(), a.cfg, true)); err != nil {
		return err
	}
	a.prune(cmd.Context())

	result, err := r.Run(cmd.Context(), date, tasks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Daily != nil {
		printDaily(out, *result.Daily, a.cfg.Display.PreviewLength)
	}
	if result.Weekly != nil {
		printWeekly(out, *result.Weekly)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("run %s finished with failures: %w", result.RunID, err)
	}
	return nil
}

func printDaily(out io.Writer, outcome evaluation.Outcome, previewLength int) {
	day := outcome.Date.Format(dateLayout)
	switch outcome.Status {
	case evaluation.NoDiary:
		fmt.Fprintf(out, "Daily %s: no diary found\n", day)
	case evaluation.AlreadyEvaluated:
		fmt.Fprintf(out, "Daily %s: feedback already present (%s)\n", day, outcome.DiaryPath)
	case evaluation.Evaluated:
		fmt.Fprintf(out, "Daily %s: feedback written to %s\n", day, outcome.DiaryPath)
		if m := outcome.Memory; m.Any() {
			fmt.Fprintf(out, "Profile: %d added, %d removed, %d updated\n", m.Added, m.Removed, m.Updated)
		}
		if preview := renderPreview(out, outcome.Feedback, previewLength); preview != "" {
			fmt.Fprintln(out, preview)
		}
	case evaluation.Failed:
		fmt.Fprintf(out, "Daily %s: failed\n", day)
	}
}

func printWeekly(out io.Writer, report summary.Report) {
	fmt.Fprintf(out, "Weekly: %d summarized, %d existing, %d without diaries, %d failed\n",
		report.Count(summary.Summarized), report.Count(summary.Existing),
		report.Count(summary.Skipped), report.Count(summary.Failed))
	for _, w := range report.Weeks {
		switch w.Status {
		case summary.Summarized:
			fmt.Fprintf(out, "  %s (%s): %d diaries -> %s\n", w.Key, w.Key.Range(), w.DiaryCount, w.Path)
		case summary.Failed:
			fmt.Fprintf(out, "  %s (%s): failed: %v\n", w.Key, w.Key.Range(), w.Err)
		}
	}
}
