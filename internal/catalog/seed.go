// ABOUTME: Embedded catalog seed and its YAML parser.
// ABOUTME: Flattens the seed into the row shapes persisted by storage.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// RatioRow is one muscle's share of its muscle group (MuscleRatio table).
type RatioRow struct {
	MuscleGroup string  `json:"muscle_group" yaml:"muscle_group"`
	Muscle      string  `json:"muscle_name" yaml:"muscle_name"`
	Ratio       float64 `json:"ratio" yaml:"ratio"`
}

// ExerciseMuscleRow is one (exercise, muscle) intensity (ExerciseMuscles table).
// MuscleGroup is empty when the muscle belongs to no known group.
type ExerciseMuscleRow struct {
	ExerciseID  string  `json:"exercise_id" yaml:"exercise_id"`
	Muscle      string  `json:"muscle_id" yaml:"muscle_id"`
	MuscleGroup string  `json:"muscle_group_id,omitempty" yaml:"muscle_group_id,omitempty"`
	Intensity   float64 `json:"intensity" yaml:"intensity"`
}

// Seed is the flattened content of a catalog seed file.
type Seed struct {
	Ratios          []RatioRow
	ExerciseMuscles []ExerciseMuscleRow
}

type seedFile struct {
	Ratios           map[string]map[string]float64 `yaml:"ratios"`
	UnweightedGroups map[string][]string           `yaml:"unweighted_groups"`
	Exercises        map[string]map[string]float64 `yaml:"exercises"`
}

// DefaultSeed parses the embedded seed.
func DefaultSeed() (*Seed, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed parses a YAML seed. Rows come back sorted so repeated seeding is deterministic.
func ParseSeed(data []byte) (*Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}

	muscleGroup := make(map[string]string)
	seed := &Seed{}

	for group, muscles := range f.Ratios {
		for muscle, ratio := range muscles {
			if ratio < 0 || ratio > 1 {
				return nil, fmt.Errorf("ratio for %s/%s out of range: %v", group, muscle, ratio)
			}
			if prev, ok := muscleGroup[muscle]; ok && prev != group {
				return nil, fmt.Errorf("muscle %s listed in both %s and %s", muscle, prev, group)
			}
			muscleGroup[muscle] = group
			seed.Ratios = append(seed.Ratios, RatioRow{MuscleGroup: group, Muscle: muscle, Ratio: ratio})
		}
	}
	for group, muscles := range f.UnweightedGroups {
		if _, ok := f.Ratios[group]; ok {
			return nil, fmt.Errorf("group %s has a ratio table and is also listed as unweighted", group)
		}
		for _, muscle := range muscles {
			if prev, ok := muscleGroup[muscle]; ok && prev != group {
				return nil, fmt.Errorf("muscle %s listed in both %s and %s", muscle, prev, group)
			}
			muscleGroup[muscle] = group
		}
	}

	for exerciseID, muscles := range f.Exercises {
		for muscle, intensity := range muscles {
			if intensity < 0 || intensity > 1 {
				return nil, fmt.Errorf("intensity for %s/%s out of range: %v", exerciseID, muscle, intensity)
			}
			seed.ExerciseMuscles = append(seed.ExerciseMuscles, ExerciseMuscleRow{
				ExerciseID:  exerciseID,
				Muscle:      muscle,
				MuscleGroup: muscleGroup[muscle],
				Intensity:   intensity,
			})
		}
	}

	sort.Slice(seed.Ratios, func(i, j int) bool {
		a, b := seed.Ratios[i], seed.Ratios[j]
		if a.MuscleGroup != b.MuscleGroup {
			return a.MuscleGroup < b.MuscleGroup
		}
		return a.Muscle < b.Muscle
	})
	sort.Slice(seed.ExerciseMuscles, func(i, j int) bool {
		a, b := seed.ExerciseMuscles[i], seed.ExerciseMuscles[j]
		if a.ExerciseID != b.ExerciseID {
			return a.ExerciseID < b.ExerciseID
		}
		return a.Muscle < b.Muscle
	})

	return seed, nil
}
