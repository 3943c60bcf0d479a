// ABOUTME: Pluggable per-set scoring strategies feeding the accumulator.
// ABOUTME: "intensity" counts each set once; "volume" weighs load and decays with age.
package soreness

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harperreed/liftlog/internal/models"
)

const (
	StrategyIntensity = "intensity"
	StrategyVolume    = "volume"

	DefaultWindow   = 7 * 24 * time.Hour
	DefaultHalfLife = 48 * time.Hour
)

// ErrUnknownStrategy is returned by ScorerByName for names it does not know.
var ErrUnknownStrategy = errors.New("unknown scoring strategy")

// Scorer turns one logged set into the multiplier applied to each of its
// muscle intensities. age is how long before the computation the set was performed.
type Scorer interface {
	Name() string
	Score(set *models.LoggedSet, age time.Duration) float64
}

// IntensityScorer scores every set as 1, so a muscle's soreness is the sum
// of the catalog intensities of the sets that trained it.
type IntensityScorer struct{}

func (IntensityScorer) Name() string { return StrategyIntensity }

func (IntensityScorer) Score(*models.LoggedSet, time.Duration) float64 { return 1 }

// VolumeScorer scores a set by weight x reps (reps alone for bodyweight
// sets), halved every HalfLife. A zero HalfLife disables decay.
type VolumeScorer struct {
	HalfLife time.Duration
}

func (VolumeScorer) Name() string { return StrategyVolume }

func (v VolumeScorer) Score(set *models.LoggedSet, age time.Duration) float64 {
	if set.Reps <= 0 {
		return 0
	}
	load := float64(set.Reps)
	if set.Weight > 0 {
		load *= set.Weight
	}
	if v.HalfLife <= 0 || age <= 0 {
		return load
	}
	return load * math.Pow(0.5, float64(age)/float64(v.HalfLife))
}

// ScorerByName returns the named strategy. An empty name selects volume.
func ScorerByName(name string, halfLife time.Duration) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyIntensity:
		return IntensityScorer{}, nil
	case StrategyVolume, "":
		return VolumeScorer{HalfLife: halfLife}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
