// ABOUTME: LoggedSet model for completed sets handed over by the session logger.
// ABOUTME: A set is the raw input to soreness accumulation.
package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoggedSet represents one completed set of an exercise.
type LoggedSet struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	UserID      string    `json:"user_id" yaml:"user_id"`
	ExerciseID  string    `json:"exercise_id" yaml:"exercise_id"`
	Weight      float64   `json:"weight" yaml:"weight"`
	Reps        int       `json:"reps" yaml:"reps"`
	MuscleGroup *string   `json:"muscle_group_id,omitempty" yaml:"muscle_group_id,omitempty"`
	PerformedAt time.Time `json:"performed_at" yaml:"performed_at"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// NewLoggedSet creates a new LoggedSet with generated UUID and current timestamp.
func NewLoggedSet(userID, exerciseID string, weight float64, reps int) *LoggedSet {
	now := time.Now()
	return &LoggedSet{
		ID:          uuid.New(),
		UserID:      userID,
		ExerciseID:  exerciseID,
		Weight:      weight,
		Reps:        reps,
		PerformedAt: now,
		CreatedAt:   now,
	}
}

// WithMuscleGroup sets the muscle group the logger attributed this set to.
func (s *LoggedSet) WithMuscleGroup(group string) *LoggedSet {
	s.MuscleGroup = &group
	return s
}

// WithPerformedAt sets a custom performed_at timestamp.
func (s *LoggedSet) WithPerformedAt(t time.Time) *LoggedSet {
	s.PerformedAt = t
	return s
}

// Validate reports the first field that makes the set unusable as input.
func (s *LoggedSet) Validate() error {
	switch {
	case strings.TrimSpace(s.ExerciseID) == "":
		return errors.New("exercise_id is required")
	case s.Reps <= 0:
		return errors.New("reps must be positive")
	case s.Weight < 0 || math.IsNaN(s.Weight) || math.IsInf(s.Weight, 0):
		return errors.New("weight must be non-negative")
	}
	return nil
}

// MuscleIntensity is how strongly an exercise trains one muscle (0..1).
type MuscleIntensity struct {
	Muscle      string  `json:"muscle_id" yaml:"muscle"`
	MuscleGroup string  `json:"muscle_group_id,omitempty" yaml:"group,omitempty"`
	Intensity   float64 `json:"intensity" yaml:"intensity"`
}
