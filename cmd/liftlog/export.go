// ABOUTME: CLI commands for exporting and importing soreness data.
// ABOUTME: Supports JSON, YAML, and Markdown export; imports JSON exports back in.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export soreness data",
	Long: `Export logged sets and soreness data in various formats.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export grouped by muscle group (human-readable)
  markdown   Markdown tables (for documentation/sharing)

OPTIONS:

  --output, -o   Write to file instead of stdout

EXAMPLES:

  liftlog export json                  # Export all data as JSON
  liftlog export json -o backup.json   # Save to file
  liftlog export yaml                  # Export as YAML
  liftlog export markdown              # Soreness tables per group`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format := args[0]

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = storage.ExportJSON(ctx, store, currentUser())
		case "yaml":
			data, err = storage.ExportYAML(ctx, store, currentUser())
		case "markdown", "md":
			var md string
			md, err = storage.ExportMarkdown(ctx, store, currentUser())
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", format)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", exportOutput)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}

		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import sets, baselines, and history from a JSON export",
	Long: `Import logged sets, baselines, and soreness history from a previously
exported JSON file into the current user.

Everything in the file is checked before anything is written, and the
import commits as one transaction. Sets and history samples that are
already stored are skipped, so importing the same file twice adds nothing.
Baselines can only raise existing baselines. The exported soreness
snapshot is not copied; soreness is recomputed from the imported sets.

EXAMPLES:

  liftlog import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		raw, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		var data storage.ExportData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("failed to parse export: %w", err)
		}
		if data.Version != storage.ExportVersion {
			return fmt.Errorf("unsupported export version %q (want %s)", data.Version, storage.ExportVersion)
		}

		out := cmd.OutOrStdout()
		res, err := svc.Import(cmd.Context(), currentUser(), &data)
		if errors.Is(err, soreness.ErrRecompute) {
			fmt.Fprintf(out, "Imported %d set(s).\n", res.SetsAdded)
			return statsError(err)
		}
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Imported %d set(s), %d baseline(s), and %d history sample(s) from %s\n",
			res.SetsAdded, res.Baselines, res.History, filename)
		if res.SetsSkipped > 0 {
			fmt.Fprintf(out, "  %d set(s) were already stored and skipped.\n", res.SetsSkipped)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
