// ABOUTME: Immutable intensity catalog: exercise -> muscle intensities and group ratio tables.
// ABOUTME: Built once at startup and passed to the soreness service; never mutated afterwards.
package catalog

import (
	"math"
	"sort"

	"github.com/harperreed/liftlog/internal/models"
)

// RatioTolerance is how far a group's ratios may drift from 1.0 before CheckRatios flags it.
const RatioTolerance = 0.001

// Catalog is a read-only lookup over the seeded catalog tables.
// All accessors return copies, so callers cannot mutate shared state.
type Catalog struct {
	ratios      map[string]map[string]float64
	exercises   map[string][]models.MuscleIntensity
	muscleGroup map[string]string
}

// New builds a Catalog from persisted rows.
// Later rows for the same key overwrite earlier ones.
func New(ratios []RatioRow, exerciseMuscles []ExerciseMuscleRow) *Catalog {
	c := &Catalog{
		ratios:      make(map[string]map[string]float64),
		exercises:   make(map[string][]models.MuscleIntensity),
		muscleGroup: make(map[string]string),
	}

	for _, r := range ratios {
		if c.ratios[r.MuscleGroup] == nil {
			c.ratios[r.MuscleGroup] = make(map[string]float64)
		}
		c.ratios[r.MuscleGroup][r.Muscle] = r.Ratio
		c.muscleGroup[r.Muscle] = r.MuscleGroup
	}

	for _, em := range exerciseMuscles {
		group := em.MuscleGroup
		if group == "" {
			group = c.muscleGroup[em.Muscle]
		} else if _, ok := c.muscleGroup[em.Muscle]; !ok {
			c.muscleGroup[em.Muscle] = group
		}

		list := c.exercises[em.ExerciseID]
		replaced := false
		for i := range list {
			if list[i].Muscle == em.Muscle {
				list[i] = models.MuscleIntensity{Muscle: em.Muscle, MuscleGroup: group, Intensity: em.Intensity}
				replaced = true
			}
		}
		if !replaced {
			list = append(list, models.MuscleIntensity{Muscle: em.Muscle, MuscleGroup: group, Intensity: em.Intensity})
		}
		c.exercises[em.ExerciseID] = list
	}

	return c
}

// FromSeed builds a Catalog directly from a parsed seed.
func FromSeed(s *Seed) *Catalog {
	return New(s.Ratios, s.ExerciseMuscles)
}

// Default builds a Catalog from the embedded seed.
func Default() (*Catalog, error) {
	s, err := DefaultSeed()
	if err != nil {
		return nil, err
	}
	return FromSeed(s), nil
}

// GroupRatios returns the muscle -> ratio table for a group.
// ok is false when the group has no ratio table; callers fall back to an unweighted mean.
func (c *Catalog) GroupRatios(group string) (map[string]float64, bool) {
	table, ok := c.ratios[group]
	if !ok || len(table) == 0 {
		return nil, false
	}
	out := make(map[string]float64, len(table))
	for m, r := range table {
		out[m] = r
	}
	return out, true
}

// ExerciseMuscles returns the muscles an exercise trains, or nil for unknown exercises.
func (c *Catalog) ExerciseMuscles(exerciseID string) []models.MuscleIntensity {
	list := c.exercises[exerciseID]
	if len(list) == 0 {
		return nil
	}
	out := make([]models.MuscleIntensity, len(list))
	copy(out, list)
	return out
}

// HasExercise reports whether the exercise maps to at least one muscle.
func (c *Catalog) HasExercise(exerciseID string) bool {
	return len(c.exercises[exerciseID]) > 0
}

// GroupOf returns the muscle group a muscle belongs to.
func (c *Catalog) GroupOf(muscle string) (string, bool) {
	g, ok := c.muscleGroup[muscle]
	return g, ok && g != ""
}

// Groups returns every known muscle group, weighted or not, sorted by name.
func (c *Catalog) Groups() []string {
	seen := make(map[string]struct{})
	for g := range c.ratios {
		seen[g] = struct{}{}
	}
	for _, g := range c.muscleGroup {
		if g != "" {
			seen[g] = struct{}{}
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// MusclesIn returns the muscles that belong to a group, sorted by name.
func (c *Catalog) MusclesIn(group string) []string {
	var muscles []string
	for m, g := range c.muscleGroup {
		if g == group {
			muscles = append(muscles, m)
		}
	}
	sort.Strings(muscles)
	return muscles
}

// Exercises returns all exercise ids, sorted.
func (c *Catalog) Exercises() []string {
	ids := make([]string, 0, len(c.exercises))
	for id := range c.exercises {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RatioViolation describes a group whose ratios do not sum to 1.0.
type RatioViolation struct {
	Group string
	Sum   float64
}

// CheckRatios returns every ratio table whose sum is further than tolerance from 1.0.
// A violation is a data bug in the seed, not a runtime error.
func (c *Catalog) CheckRatios(tolerance float64) []RatioViolation {
	var out []RatioViolation
	for group, table := range c.ratios {
		var sum float64
		for _, r := range table {
			sum += r
		}
		if math.Abs(sum-1.0) > tolerance {
			out = append(out, RatioViolation{Group: group, Sum: sum})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}
