// ABOUTME: CLI command for logging completed sets.
// ABOUTME: Saves sets from arguments or a YAML session file and updates soreness for the trained muscles.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	logAt    string
	logGroup string
	logFile  string
)

var logCmd = &cobra.Command{
	Use:     "log [exercise] [REPSxWEIGHT...]",
	Aliases: []string{"add", "l"},
	Short:   "Log completed sets",
	Long: `Log one or more completed sets of an exercise.

Each set is REPS or REPSxWEIGHT. Sets without a weight are scored as
bodyweight (reps only). Soreness for the muscles the exercise trains is
updated right away.

SESSION FILES:

  Use --file to log a whole session from YAML:

    - exercise: bench_press
      reps: 5
      weight: 80
    - exercise: pull_up
      reps: 8
      at: 2026-03-10 18:30

EXAMPLES:

  liftlog log bench_press 5x80 5x80 8x60
  liftlog log pull_up 8 8 6 --group Back
  liftlog log squat 5x100 --at "2026-03-10 18:00"
  liftlog log --file session.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var sets []*models.LoggedSet
		var err error

		switch {
		case logFile != "":
			if len(args) > 0 {
				return errors.New("use either --file or arguments, not both")
			}
			sets, err = readSessionFile(logFile, currentUser())
		case len(args) >= 2:
			sets, err = parseSetArgs(currentUser(), args[0], args[1:])
		default:
			return errors.New("expected an exercise and at least one set, e.g. 'liftlog log bench_press 5x80'")
		}
		if err != nil {
			return err
		}

		unknown := make(map[string]bool)
		for _, s := range sets {
			if !svc.Catalog().HasExercise(s.ExerciseID) {
				unknown[s.ExerciseID] = true
			}
		}

		out := cmd.OutOrStdout()
		res, err := svc.RecordSession(cmd.Context(), currentUser(), sets)
		if errors.Is(err, soreness.ErrRecompute) {
			fmt.Fprintf(out, "Saved %d set(s).\n", len(sets))
			return statsError(err)
		}
		if err != nil {
			return fmt.Errorf("failed to log sets: %w", err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Logged %d set(s)\n", len(sets))
		for id := range unknown {
			color.New(color.FgYellow).Fprintf(out, "  %s is not in the catalog; it won't count toward soreness\n", id)
		}
		printRaised(out, res)
		return nil
	},
}

// sessionEntry is one set in a YAML session file.
type sessionEntry struct {
	Exercise string  `yaml:"exercise"`
	Reps     int     `yaml:"reps"`
	Weight   float64 `yaml:"weight"`
	Group    string  `yaml:"group"`
	At       string  `yaml:"at"`
}

func readSessionFile(path, userID string) ([]*models.LoggedSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var entries []sessionEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("session file has no sets")
	}

	sets := make([]*models.LoggedSet, 0, len(entries))
	for i, e := range entries {
		if e.Exercise == "" {
			return nil, fmt.Errorf("set %d: exercise is required", i+1)
		}
		if e.Reps <= 0 {
			return nil, fmt.Errorf("set %d: reps must be positive", i+1)
		}
		if e.Weight < 0 {
			return nil, fmt.Errorf("set %d: weight must be non-negative", i+1)
		}
		s := models.NewLoggedSet(userID, e.Exercise, e.Weight, e.Reps)
		if e.Group != "" {
			s.WithMuscleGroup(e.Group)
		} else if logGroup != "" {
			s.WithMuscleGroup(logGroup)
		}
		at := e.At
		if at == "" {
			at = logAt
		}
		if at != "" {
			t, err := parseTime(at)
			if err != nil {
				return nil, fmt.Errorf("set %d: invalid time %q: %w", i+1, at, err)
			}
			s.WithPerformedAt(t)
		}
		sets = append(sets, s)
	}
	return sets, nil
}

func parseSetArgs(userID, exercise string, specs []string) ([]*models.LoggedSet, error) {
	var performedAt time.Time
	if logAt != "" {
		t, err := parseTime(logAt)
		if err != nil {
			return nil, fmt.Errorf("invalid --at time: %w", err)
		}
		performedAt = t
	}

	sets := make([]*models.LoggedSet, 0, len(specs))
	for _, spec := range specs {
		reps, weight, err := parseSetSpec(spec)
		if err != nil {
			return nil, err
		}
		s := models.NewLoggedSet(userID, exercise, weight, reps)
		if logGroup != "" {
			s.WithMuscleGroup(logGroup)
		}
		if !performedAt.IsZero() {
			s.WithPerformedAt(performedAt)
		}
		sets = append(sets, s)
	}
	return sets, nil
}

// parseSetSpec parses "REPS" or "REPSxWEIGHT".
func parseSetSpec(spec string) (int, float64, error) {
	repsPart, weightPart, hasWeight := strings.Cut(strings.ToLower(spec), "x")

	reps, err := strconv.Atoi(repsPart)
	if err != nil || reps <= 0 {
		return 0, 0, fmt.Errorf("invalid set %q: reps must be a positive number", spec)
	}
	if !hasWeight {
		return reps, 0, nil
	}

	weight, err := strconv.ParseFloat(weightPart, 64)
	if err != nil || weight < 0 {
		return 0, 0, fmt.Errorf("invalid set %q: weight must be a non-negative number", spec)
	}
	return reps, weight, nil
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func init() {
	logCmd.Flags().StringVar(&logAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")
	logCmd.Flags().StringVarP(&logGroup, "group", "g", "", "muscle group the sets were logged under")
	logCmd.Flags().StringVarP(&logFile, "file", "f", "", "YAML session file")
	rootCmd.AddCommand(logCmd)
}
