// ABOUTME: CLI commands for viewing and writing the config file.
// ABOUTME: Shows effective settings and persists flag overrides.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or save settings",
	Long: `Settings live in ~/.config/liftlog/config.json. Flags such as --backend,
--data-dir, --user, and --strategy override the file for one command;
'config save' writes them back.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		rows := [][2]string{
			{"config file", config.GetConfigPath()},
			{"backend", cfg.GetBackend()},
			{"data dir", cfg.GetDataDir()},
			{"user", cfg.GetUserID()},
			{"strategy", cfg.GetStrategy()},
			{"window", cfg.GetWindow().String()},
			{"half-life", cfg.GetHalfLife().String()},
			{"log level", cfg.GetLogLevel()},
		}
		for _, r := range rows {
			fmt.Fprintf(out, "%s %s\n", faint.Sprint(padRight(r[0], 12)), r[1])
		}
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write current settings, including flag overrides, to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Saved %s\n", config.GetConfigPath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	rootCmd.AddCommand(configCmd)
}
