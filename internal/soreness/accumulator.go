// ABOUTME: Soreness accumulator: raw per-muscle soreness from logged sets in a window.
// ABOUTME: Distributes each set across muscles using catalog intensities and a Scorer.
package soreness

import (
	"time"

	"github.com/harperreed/liftlog/internal/catalog"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/sirupsen/logrus"
)

// Snapshot is the raw soreness state computed from one window of sets.
type Snapshot struct {
	// Scores maps muscle to raw soreness.
	Scores map[string]float64
	// Groups maps muscle to its muscle group; "" when none could be resolved.
	Groups map[string]string
	// Counted is the number of sets that contributed.
	Counted int
	// Unmapped is the number of in-window sets whose exercise trains no muscle.
	Unmapped int
}

// GroupValues returns the raw scores of group's muscles as aggregator input.
func (s Snapshot) GroupValues() map[string][]MuscleValue {
	out := make(map[string][]MuscleValue)
	for muscle, score := range s.Scores {
		g := s.Groups[muscle]
		if g == "" {
			continue
		}
		out[g] = append(out[g], MuscleValue{Muscle: muscle, Value: score})
	}
	return out
}

// Accumulator computes raw soreness. It holds no per-user state, so the
// same inputs always give the same Snapshot.
type Accumulator struct {
	catalog *catalog.Catalog
	scorer  Scorer
	window  time.Duration
	log     *logrus.Entry
}

// NewAccumulator builds an Accumulator. A window <= 0 counts every set up to now.
func NewAccumulator(cat *catalog.Catalog, scorer Scorer, window time.Duration, log *logrus.Entry) *Accumulator {
	if scorer == nil {
		scorer = VolumeScorer{HalfLife: DefaultHalfLife}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Accumulator{catalog: cat, scorer: scorer, window: window, log: log}
}

// Window returns the accumulation window.
func (a *Accumulator) Window() time.Duration {
	return a.window
}

// Scorer returns the per-set scoring strategy.
func (a *Accumulator) Scorer() Scorer {
	return a.scorer
}

// Since returns the exclusive lower bound of the window ending at now.
func (a *Accumulator) Since(now time.Time) time.Time {
	if a.window <= 0 {
		return time.Time{}
	}
	return now.Add(-a.window)
}

// Compute sums intensity x Score(set) per muscle over sets performed in
// (now-window, now]. Sets outside the window are ignored.
func (a *Accumulator) Compute(sets []*models.LoggedSet, now time.Time) Snapshot {
	snap := Snapshot{
		Scores: make(map[string]float64),
		Groups: make(map[string]string),
	}
	since := a.Since(now)

	for _, set := range sets {
		if set.PerformedAt.After(now) || !set.PerformedAt.After(since) {
			continue
		}

		muscles := a.catalog.ExerciseMuscles(set.ExerciseID)
		if len(muscles) == 0 {
			snap.Unmapped++
			a.log.WithFields(logrus.Fields{
				"exercise_id": set.ExerciseID,
				"set_id":      set.ID,
			}).Warn("exercise trains no catalogued muscle, set skipped")
			continue
		}

		score := a.scorer.Score(set, now.Sub(set.PerformedAt))
		for _, mi := range muscles {
			snap.Scores[mi.Muscle] += mi.Intensity * score
			if _, seen := snap.Groups[mi.Muscle]; !seen {
				snap.Groups[mi.Muscle] = a.resolveGroup(mi, set)
			}
		}
		snap.Counted++
	}

	return snap
}

// resolveGroup picks a muscle's group from the exercise mapping, then the
// catalog ratio tables, then the group the logger attached to the set.
func (a *Accumulator) resolveGroup(mi models.MuscleIntensity, set *models.LoggedSet) string {
	if mi.MuscleGroup != "" {
		return mi.MuscleGroup
	}
	if g, ok := a.catalog.GroupOf(mi.Muscle); ok {
		return g
	}
	if set.MuscleGroup != nil && *set.MuscleGroup != "" {
		return *set.MuscleGroup
	}
	a.log.WithField("muscle", mi.Muscle).Warn("muscle has no muscle group")
	return ""
}
