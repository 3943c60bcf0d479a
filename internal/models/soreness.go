// ABOUTME: Derived soreness models: per-muscle snapshots, baselines, and history.
// ABOUTME: Also defines the read models handed to CLI, MCP, and export callers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Granularity selects which max-soreness ledger a baseline belongs to.
type Granularity string

const (
	GranularityMuscle Granularity = "muscle"
	GranularityGroup  Granularity = "group"
)

// IsValid reports whether g is a known ledger granularity.
func (g Granularity) IsValid() bool {
	return g == GranularityMuscle || g == GranularityGroup
}

// MuscleSoreness is the current (non-normalized) soreness of one muscle for a user.
type MuscleSoreness struct {
	UserID      string    `json:"user_id" yaml:"user_id"`
	Muscle      string    `json:"muscle_id" yaml:"muscle_id"`
	MuscleGroup string    `json:"muscle_group_id,omitempty" yaml:"muscle_group_id,omitempty"`
	Score       float64   `json:"soreness_score" yaml:"soreness_score"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// MaxSoreness is a ledger row: the highest soreness ever observed for a key.
// Key is a muscle name for GranularityMuscle and a group name for GranularityGroup.
type MaxSoreness struct {
	UserID      string      `json:"user_id" yaml:"user_id"`
	Granularity Granularity `json:"granularity" yaml:"granularity"`
	Key         string      `json:"key" yaml:"key"`
	MaxSoreness float64     `json:"max_soreness" yaml:"max_soreness"`
	LastUpdated time.Time   `json:"last_updated" yaml:"last_updated"`
}

// HistoryEntry is one append-only sample of a muscle group's soreness.
type HistoryEntry struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	UserID      string    `json:"user_id" yaml:"user_id"`
	MuscleGroup string    `json:"muscle_group_id" yaml:"muscle_group_id"`
	Score       float64   `json:"soreness_score" yaml:"soreness_score"`
	RecordedAt  time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// NewHistoryEntry creates a HistoryEntry with a generated UUID.
func NewHistoryEntry(userID, group string, score float64, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:          uuid.New(),
		UserID:      userID,
		MuscleGroup: group,
		Score:       score,
		RecordedAt:  at,
	}
}

// MuscleReading is the per-muscle view served to the UI layer.
type MuscleReading struct {
	Muscle      string  `json:"muscle_id"`
	MuscleGroup string  `json:"muscle_group_id,omitempty"`
	Current     float64 `json:"current"`
	Max         float64 `json:"max"`
	Normalized  float64 `json:"normalized_value"`
}

// GroupReading is the per-muscle-group view served to the UI layer.
type GroupReading struct {
	Group      string  `json:"group"`
	Normalized float64 `json:"normalized_value"`
	// Weighted is false when the group had no ratio table and the plain mean was used.
	Weighted bool `json:"weighted"`
	// Coverage is the ratio mass of the muscles that contributed (0..1).
	Coverage float64 `json:"coverage"`
	Baseline float64 `json:"baseline"`
}
