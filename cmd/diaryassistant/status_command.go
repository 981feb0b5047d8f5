package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"diaryassistant/internal/journal"
	"diaryassistant/internal/preflight"
	"diaryassistant/internal/profile"
	"diaryassistant/internal/week"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var weeks int
	var entries int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent weeks and the latest API attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := flags.resolveDate(time.Now())
			if err != nil {
				return err
			}
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := weekRows(a, date, weeks)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			fmt.Fprintln(out, profileLine(a.cfg.ProfilePath()))
			fmt.Fprintln(out, renderChecks(preflight.RunAll(cmd.Context(), a.cfg, true)))
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]tableColumn{
				{header: "Week"},
				{header: "Range"},
				{header: "Diaries", align: alignRight},
				{header: "Complete"},
				{header: "Summary"},
			}, rows))

			recent, err := a.journal.Recent(cmd.Context(), entries)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			if len(recent) == 0 {
				fmt.Fprintln(out, "\nNo API attempts recorded yet")
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]tableColumn{
				{header: "Time"},
				{header: "Task"},
				{header: "Attempt", align: alignRight},
				{header: "Outcome"},
				{header: "Status", align: alignRight},
				{header: "Elapsed", align: alignRight},
			}, journalRows(recent)))
			return nil
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().IntVarP(&weeks, "weeks", "w", 8, "Number of weeks to list")
	cmd.Flags().IntVarP(&entries, "entries", "n", 10, "Number of journal entries to list")
	return cmd
}

// weekRows lists weeks ending with the one containing date, newest first.
func weekRows(a *app, date time.Time, count int) ([][]string, error) {
	dates, err := a.reader.Dates()
	if err != nil {
		return nil, err
	}
	perWeek := make(map[week.Key]int, len(dates))
	for _, d := range dates {
		perWeek[week.KeyFor(d)]++
	}

	rows := make([][]string, 0, count)
	key := week.KeyFor(date)
	for i := 0; i < count; i++ {
		has, err := a.store.HasSummary(key)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []string{
			key.String(),
			key.Range(),
			strconv.Itoa(perWeek[key]),
			yesNo(key.Complete(date)),
			yesNo(has),
		})
		key = key.Previous()
	}
	return rows, nil
}

func profileLine(path string) string {
	if path == "" {
		return "Profile: disabled"
	}
	p, err := profile.Load(path)
	if err != nil {
		return fmt.Sprintf("Profile: unreadable (%v)", err)
	}
	return fmt.Sprintf("Profile: %d facts, %d chars (%s)", len(p.Facts()), p.Length(), path)
}

func journalRows(entries []journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := ""
		if e.StatusCode > 0 {
			status = strconv.Itoa(e.StatusCode)
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Task,
			fmt.Sprintf("%d/%d", e.Attempt, e.MaxAttempts),
			e.Outcome,
			status,
			e.Elapsed.Round(time.Millisecond).String(),
		})
	}
	return rows
}
