// ABOUTME: CLI command for deleting all of a user's data.
// ABOUTME: Removes sets, soreness, baselines, and history after confirmation.
package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var wipeSkipConfirm bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all data for the current user",
	Long: `Delete every logged set, soreness value, baseline, and history sample
for the current user. The catalog is kept. This cannot be undone; export
first if you want a backup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeSkipConfirm {
			ok, err := confirm(cmd, fmt.Sprintf("Delete ALL liftlog data for %s?", currentUser()))
			if err != nil || !ok {
				return err
			}
		}
		if err := svc.WipeUser(cmd.Context(), currentUser()); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Wiped data for %s\n", currentUser())
		return nil
	},
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Fprintln(out, "Canceled.")
		return false, nil
	}
	return true, nil
}

func init() {
	wipeCmd.Flags().BoolVarP(&wipeSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(wipeCmd)
}
