// ABOUTME: CLI command for inspecting the intensity catalog.
// ABOUTME: Lists muscle groups with ratio tables, or exercises with the muscles they train.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogExercises bool

var catalogCmd = &cobra.Command{
	Use:   "catalog [exercise]",
	Short: "Show the intensity catalog",
	Long: `Show the muscle groups and exercises soreness is computed from.

EXAMPLES:

  liftlog catalog               # Groups and their muscle ratios
  liftlog catalog --exercises   # Every exercise id
  liftlog catalog bench_press   # Muscles trained by one exercise`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := svc.Catalog()
		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		bold := color.New(color.Bold)

		if len(args) == 1 {
			muscles := cat.ExerciseMuscles(args[0])
			if len(muscles) == 0 {
				return fmt.Errorf("exercise not in catalog: %s", args[0])
			}
			bold.Fprintln(out, args[0])
			for _, m := range muscles {
				fmt.Fprintf(out, "  %s %s %.2f\n", padRight(m.Muscle, 22), faint.Sprint(padRight(m.MuscleGroup, 12)), m.Intensity)
			}
			return nil
		}

		if catalogExercises {
			for _, id := range cat.Exercises() {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		for _, g := range cat.Groups() {
			ratios, weighted := cat.GroupRatios(g)
			if weighted {
				bold.Fprintln(out, g)
			} else {
				bold.Fprint(out, g)
				faint.Fprintln(out, " (unweighted)")
			}
			for _, m := range cat.MusclesIn(g) {
				if weighted {
					fmt.Fprintf(out, "  %s %.2f\n", padRight(m, 22), ratios[m])
				} else {
					fmt.Fprintf(out, "  %s\n", m)
				}
			}
		}

		for _, v := range cat.CheckRatios(catalog.RatioTolerance) {
			color.New(color.FgYellow).Fprintf(out, "warning: %s ratios sum to %.3f, not 1.0\n", v.Group, v.Sum)
		}
		return nil
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogExercises, "exercises", false, "list exercise ids")
	rootCmd.AddCommand(catalogCmd)
}
