// ABOUTME: CLI command for muscle group soreness history.
// ABOUTME: Lists recorded group samples, optionally for one group.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyDays int

var historyCmd = &cobra.Command{
	Use:   "history [group]",
	Short: "Show muscle group soreness history",
	Long: `Show how muscle group soreness changed over time.

A sample is recorded for every group touched by a logged session or a
recompute. Values are the raw weighted group score, not normalized.

EXAMPLES:

  liftlog history              # All groups, last 7 days
  liftlog history Legs -d 30   # Legs, last 30 days`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group := ""
		if len(args) == 1 {
			group = args[0]
		}
		if historyDays <= 0 {
			return fmt.Errorf("--days must be positive")
		}

		since := time.Now().AddDate(0, 0, -historyDays)
		entries, err := svc.History(cmd.Context(), currentUser(), group, since)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No history found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, e := range entries {
			fmt.Fprintf(out, "%s %s %.2f\n",
				faint.Sprint(e.RecordedAt.Local().Format("2006-01-02 15:04")),
				padRight(e.MuscleGroup, 12),
				e.Score)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyDays, "days", "d", 7, "how many days back to show")
	rootCmd.AddCommand(historyCmd)
}
