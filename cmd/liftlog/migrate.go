// ABOUTME: CLI command for copying data between storage backends.
// ABOUTME: Moves the current user's data from the configured backend to another one.
package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/config"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateTo     string
	migrateToDir  string
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy data to another storage backend",
	Long: `Copy the current user's sets, soreness, baselines, and history from the
configured backend to another one.

IMPORTANT:

  - The destination must not already have data for the user
  - The source is left untouched
  - Run with --dry-run first to see what would be copied

USAGE:

  liftlog migrate --to badger --dry-run   # Preview
  liftlog migrate --to badger             # Copy SQLite data into Badger

AFTER MIGRATION:

  Switch backends with 'liftlog --backend badger config save'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		target := config.Config{Backend: migrateTo, DataDir: migrateToDir}
		if target.DataDir == "" {
			target.DataDir = cfg.GetDataDir()
		}
		if err := target.Validate(); err != nil {
			return err
		}
		if target.GetBackend() == cfg.GetBackend() && target.GetDataDir() == cfg.GetDataDir() {
			return errors.New("source and destination are the same store")
		}

		if migrateDryRun {
			summary, err := storage.Count(ctx, store, currentUser())
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}
			color.New(color.FgYellow).Fprintln(out, "Dry run mode - no changes will be made")
			printMigrateSummary(out, "Would copy", summary)
			return nil
		}

		dst, err := target.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer dst.Close()

		summary, err := storage.MigrateData(ctx, store, dst, currentUser())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Migrated %s data to %s (%s)\n", currentUser(), target.GetBackend(), target.GetDataDir())
		printMigrateSummary(out, "Copied", summary)
		return nil
	},
}

func printMigrateSummary(w io.Writer, verb string, s *storage.MigrateSummary) {
	fmt.Fprintf(w, "%s %d set(s), %d soreness row(s), %d muscle and %d group baseline(s), %d history sample(s)\n",
		verb, s.Sets, s.Soreness, s.MuscleMax, s.GroupMax, s.History)
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend: sqlite or badger")
	migrateCmd.Flags().StringVar(&migrateToDir, "to-dir", "", "destination data directory (default: same data dir)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}
