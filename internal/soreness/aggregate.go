// ABOUTME: Weighted muscle-group aggregator rolling per-muscle values up to a group.
// ABOUTME: Partial coverage is not renormalized; a missing ratio table falls back to the mean.
package soreness

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// RatioSource supplies a muscle group's ratio table. ok is false when the
// group has no table.
type RatioSource interface {
	GroupRatios(group string) (map[string]float64, bool)
}

// MuscleValue is one muscle's contribution to a group roll-up.
type MuscleValue struct {
	Muscle string
	Value  float64
}

// GroupResult is the output of one roll-up.
type GroupResult struct {
	Value float64
	// Weighted is false when the mean fallback was used.
	Weighted bool
	// Coverage is the ratio mass of the muscles present. The mean fallback
	// reports 1 whenever it had values.
	Coverage float64
}

// Aggregator combines per-muscle values into one muscle-group value.
type Aggregator struct {
	Ratios RatioSource
	Log    *logrus.Entry
	// OnFallback, if set, is called each time a group with values has no ratio table.
	OnFallback func(group string)
}

// Aggregate rolls normalized per-muscle values up to group and clamps the
// result to [0, 1].
func (a *Aggregator) Aggregate(group string, values []MuscleValue) GroupResult {
	res := a.Combine(group, values)
	res.Value = clamp01(res.Value)
	return res
}

// Combine is Aggregate without the clamp, for raw (unnormalized) scores.
func (a *Aggregator) Combine(group string, values []MuscleValue) GroupResult {
	byMuscle := make(map[string]float64, len(values))
	for _, v := range values {
		byMuscle[v.Muscle] = v.Value
	}

	ratios, ok := a.Ratios.GroupRatios(group)
	if !ok {
		return a.mean(group, byMuscle)
	}

	// Sorted so the float sum is deterministic.
	muscles := make([]string, 0, len(byMuscle))
	for m := range byMuscle {
		muscles = append(muscles, m)
	}
	sort.Strings(muscles)

	var res GroupResult
	res.Weighted = true
	for _, m := range muscles {
		ratio, inGroup := ratios[m]
		if !inGroup {
			a.logger().WithFields(logrus.Fields{
				"muscle_group": group,
				"muscle":       m,
			}).Debug("muscle has no ratio in group, ignored")
			continue
		}
		res.Value += ratio * byMuscle[m]
		res.Coverage += ratio
	}
	return res
}

func (a *Aggregator) mean(group string, byMuscle map[string]float64) GroupResult {
	if len(byMuscle) == 0 {
		return GroupResult{}
	}

	a.logger().WithFields(logrus.Fields{
		"muscle_group": group,
		"muscles":      len(byMuscle),
	}).Warn("no ratio table for muscle group, using unweighted mean")
	if a.OnFallback != nil {
		a.OnFallback(group)
	}

	muscles := make([]string, 0, len(byMuscle))
	for m := range byMuscle {
		muscles = append(muscles, m)
	}
	sort.Strings(muscles)

	var sum float64
	for _, m := range muscles {
		sum += byMuscle[m]
	}
	return GroupResult{Value: sum / float64(len(byMuscle)), Coverage: 1}
}

func (a *Aggregator) logger() *logrus.Entry {
	if a.Log != nil {
		return a.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
