// ABOUTME: CLI commands for reading current soreness.
// ABOUTME: Shows per-muscle and per-muscle-group normalized soreness with bars.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	sorenessGroup string
	sorenessJSON  bool
	sorenessAll   bool
	groupsJSON    bool
)

var sorenessCmd = &cobra.Command{
	Use:     "soreness",
	Aliases: []string{"sore", "s"},
	Short:   "Show per-muscle soreness",
	Long: `Show how sore each muscle is, relative to its baseline.

OUTPUT FORMAT:

  MUSCLE  GROUP  BAR  NORMALIZED  (CURRENT / MAX)

  NORMALIZED is CURRENT divided by MAX, between 0 and 1. MAX is the
  highest soreness ever recorded for that muscle.

EXAMPLES:

  liftlog soreness                 # Muscles with any soreness
  liftlog soreness --all           # Include fully recovered muscles
  liftlog soreness --group Chest   # Only Chest muscles
  liftlog soreness --json          # Machine-readable output`,
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := svc.GetMuscleSoreness(cmd.Context(), currentUser())
		if err != nil {
			return fmt.Errorf("failed to read soreness: %w", err)
		}

		filtered := make([]models.MuscleReading, 0, len(readings))
		for _, r := range readings {
			if sorenessGroup != "" && !strings.EqualFold(r.MuscleGroup, sorenessGroup) {
				continue
			}
			if !sorenessAll && !sorenessJSON && r.Normalized == 0 {
				continue
			}
			filtered = append(filtered, r)
		}

		out := cmd.OutOrStdout()
		if sorenessJSON {
			return writeJSON(out, filtered)
		}
		if len(filtered) == 0 {
			fmt.Fprintln(out, "No soreness recorded.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range filtered {
			group := r.MuscleGroup
			if group == "" {
				group = "-"
			}
			fmt.Fprintf(out, "%s %s %s %.2f %s\n",
				padRight(r.Muscle, 22),
				faint.Sprint(padRight(truncate(group, 12), 12)),
				bar(r.Normalized, 20),
				r.Normalized,
				faint.Sprintf("(%.1f / %.1f)", r.Current, r.Max))
		}
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:     "groups",
	Aliases: []string{"g"},
	Short:   "Show per-muscle-group soreness",
	Long: `Show soreness rolled up per muscle group.

Each group's value is the ratio-weighted sum of its muscles' normalized
soreness. Groups without a ratio table use the plain mean of their
muscles and are marked with *.

EXAMPLES:

  liftlog groups
  liftlog groups --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		readings, err := svc.GetMuscleGroupSoreness(cmd.Context(), currentUser())
		if err != nil {
			return fmt.Errorf("failed to read group soreness: %w", err)
		}

		out := cmd.OutOrStdout()
		if groupsJSON {
			return writeJSON(out, readings)
		}
		if len(readings) == 0 {
			fmt.Fprintln(out, "No muscle groups in the catalog.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, g := range readings {
			mark := " "
			if !g.Weighted && g.Coverage > 0 {
				mark = "*"
			}
			fmt.Fprintf(out, "%s%s %s %.2f %s\n",
				padRight(g.Group, 12),
				mark,
				bar(g.Normalized, 20),
				g.Normalized,
				faint.Sprintf("(baseline %.2f)", g.Baseline))
		}
		return nil
	},
}

// bar renders v in [0,1] as a fixed-width bar colored by severity.
func bar(v float64, width int) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := int(v*float64(width) + 0.5)
	s := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	switch {
	case v >= 0.7:
		return color.RedString(s)
	case v >= 0.4:
		return color.YellowString(s)
	default:
		return color.GreenString(s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	sorenessCmd.Flags().StringVar(&sorenessGroup, "group", "", "only show muscles in this group")
	sorenessCmd.Flags().BoolVarP(&sorenessAll, "all", "a", false, "include muscles with no current soreness")
	sorenessCmd.Flags().BoolVar(&sorenessJSON, "json", false, "output JSON")
	groupsCmd.Flags().BoolVar(&groupsJSON, "json", false, "output JSON")
	rootCmd.AddCommand(sorenessCmd)
	rootCmd.AddCommand(groupsCmd)
}
