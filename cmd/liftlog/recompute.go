// ABOUTME: CLI command for rebuilding the soreness snapshot.
// ABOUTME: Runs a full recompute over the accumulation window and reports ledger changes.
package main

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild soreness from logged sets",
	Long: `Recompute every muscle's soreness from the sets in the accumulation
window and replace the stored snapshot. Baselines only ever go up.

Use this after changing --strategy, the window, or the half-life.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.RecomputeAll(cmd.Context(), currentUser())
		if err != nil {
			return statsError(err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Recomputed %d muscle(s) from %d set(s) using %s scoring\n",
			len(res.Muscles), res.SetsCounted, svc.Strategy())
		printRaised(out, res)
		return nil
	},
}

// printRaised reports unmapped sets and any new baselines from a recompute.
func printRaised(w io.Writer, res *soreness.Result) {
	faint := color.New(color.Faint)
	if res.SetsUnmapped > 0 {
		faint.Fprintf(w, "  %d set(s) skipped: exercise not in catalog\n", res.SetsUnmapped)
	}
	if len(res.RaisedMuscles) > 0 {
		faint.Fprintf(w, "  New muscle baselines: %s\n", strings.Join(res.RaisedMuscles, ", "))
	}
	if len(res.RaisedGroups) > 0 {
		faint.Fprintf(w, "  New group baselines: %s\n", strings.Join(res.RaisedGroups, ", "))
	}
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
}
