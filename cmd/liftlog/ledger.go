// ABOUTME: CLI commands for the max-soreness ledgers (baselines).
// ABOUTME: Show, raise, or reset the per-muscle and per-group baselines.
package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/spf13/cobra"
)

var (
	ledgerGranularity string
	ledgerSkipConfirm bool
)

var ledgerCmd = &cobra.Command{
	Use:     "ledger",
	Aliases: []string{"baseline"},
	Short:   "Manage soreness baselines",
	Long: `Baselines are the highest soreness ever recorded per muscle and per
muscle group. They only go up on their own; use 'ledger reset' to start
over, e.g. after a long break.`,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show baselines",
	Long: `Show baselines for muscles (default) or muscle groups.

EXAMPLES:

  liftlog ledger show                  # Every muscle baseline
  liftlog ledger show -g group         # Every group baseline
  liftlog ledger show Chest -g group   # One group`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := parseGranularity(ledgerGranularity)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			v, err := svc.GetMax(cmd.Context(), currentUser(), g, args[0])
			if err != nil {
				return fmt.Errorf("failed to read baseline: %w", err)
			}
			fmt.Fprintf(out, "%s %.2f\n", padRight(args[0], 22), v)
			return nil
		}

		rows, err := store.ListMaxSoreness(cmd.Context(), currentUser(), g)
		if err != nil {
			return fmt.Errorf("failed to read baselines: %w", err)
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No baselines recorded.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range rows {
			fmt.Fprintf(out, "%s %8.2f %s\n",
				padRight(r.Key, 22),
				r.MaxSoreness,
				faint.Sprint(r.LastUpdated.Local().Format("2006-01-02 15:04")))
		}
		return nil
	},
}

var ledgerUpdateCmd = &cobra.Command{
	Use:   "update <key> <value>",
	Short: "Fold an observed soreness into a baseline",
	Long: `Record an observed soreness for a muscle or group. The baseline becomes
the larger of its current value and the observation; it never goes down.

EXAMPLES:

  liftlog ledger update Chest 1200
  liftlog ledger update Legs 0.9 -g group`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := parseGranularity(ledgerGranularity)
		if err != nil {
			return err
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value: %s", args[1])
		}

		stored, err := svc.UpdateMax(cmd.Context(), currentUser(), g, args[0], value)
		if err != nil {
			return statsError(err)
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %s baseline is %.2f\n", args[0], stored)
		return nil
	},
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all baselines",
	Long: `Clear every muscle and group baseline for the current user. Current
soreness and logged sets are kept. The next recompute starts new baselines.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ledgerSkipConfirm {
			ok, err := confirm(cmd, fmt.Sprintf("Reset all baselines for %s?", currentUser()))
			if err != nil || !ok {
				return err
			}
		}
		if err := svc.ResetLedger(cmd.Context(), currentUser()); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Baselines reset")
		return nil
	},
}

func parseGranularity(s string) (models.Granularity, error) {
	g := models.Granularity(s)
	if !g.IsValid() {
		return "", fmt.Errorf("unknown granularity: %s (use muscle or group)", s)
	}
	return g, nil
}

func init() {
	ledgerCmd.PersistentFlags().StringVarP(&ledgerGranularity, "granularity", "g", string(models.GranularityMuscle), "muscle or group")
	ledgerResetCmd.Flags().BoolVarP(&ledgerSkipConfirm, "yes", "y", false, "Skip confirmation prompt")

	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerUpdateCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)
	rootCmd.AddCommand(ledgerCmd)
}
