// ABOUTME: Export of a user's logged sets and derived soreness state.
// ABOUTME: Supports JSON, YAML, and Markdown export formats over any Store.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportVersion is bumped whenever the ExportData shape changes.
const ExportVersion = "1.0"

// ExportData represents the full export format for one user.
type ExportData struct {
	Version    string                  `json:"version" yaml:"version"`
	ExportedAt time.Time               `json:"exported_at" yaml:"exported_at"`
	Tool       string                  `json:"tool" yaml:"tool"`
	UserID     string                  `json:"user_id" yaml:"user_id"`
	Sets       []*models.LoggedSet     `json:"sets" yaml:"sets"`
	Soreness   []models.MuscleSoreness `json:"soreness" yaml:"soreness"`
	MuscleMax  []models.MaxSoreness    `json:"muscle_max" yaml:"muscle_max"`
	GroupMax   []models.MaxSoreness    `json:"group_max" yaml:"group_max"`
	History    []models.HistoryEntry   `json:"history" yaml:"history"`
}

// GetAllData gathers everything stored for userID.
func GetAllData(ctx context.Context, s Store, userID string) (*ExportData, error) {
	sets, err := s.ListSets(ctx, userID, time.Time{}, time.Now().Add(100*365*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	soreness, err := s.ListSoreness(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list soreness: %w", err)
	}

	muscleMax, err := s.ListMaxSoreness(ctx, userID, models.GranularityMuscle)
	if err != nil {
		return nil, fmt.Errorf("list muscle ledger: %w", err)
	}

	groupMax, err := s.ListMaxSoreness(ctx, userID, models.GranularityGroup)
	if err != nil {
		return nil, fmt.Errorf("list group ledger: %w", err)
	}

	history, err := s.ListHistory(ctx, userID, "", time.Time{})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Tool:       "liftlog",
		UserID:     userID,
		Sets:       sets,
		Soreness:   soreness,
		MuscleMax:  muscleMax,
		GroupMax:   groupMax,
		History:    history,
	}, nil
}

// ExportJSON exports all of userID's data as JSON.
func ExportJSON(ctx context.Context, s Store, userID string) ([]byte, error) {
	data, err := GetAllData(ctx, s, userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all of userID's data as YAML, with soreness and
// history grouped by muscle group.
func ExportYAML(ctx context.Context, s Store, userID string) ([]byte, error) {
	data, err := GetAllData(ctx, s, userID)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string                    `yaml:"version"`
		ExportedAt string                    `yaml:"exported_at"`
		Tool       string                    `yaml:"tool"`
		UserID     string                    `yaml:"user_id"`
		Sets       []yamlSet                 `yaml:"sets"`
		Soreness   map[string][]yamlSoreness `yaml:"soreness"`
		Baselines  yamlBaselines             `yaml:"baselines"`
		History    map[string][]yamlSample   `yaml:"history"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		UserID:     data.UserID,
		Sets:       make([]yamlSet, 0, len(data.Sets)),
		Soreness:   make(map[string][]yamlSoreness),
		Baselines: yamlBaselines{
			Muscles: make(map[string]float64, len(data.MuscleMax)),
			Groups:  make(map[string]float64, len(data.GroupMax)),
		},
		History: make(map[string][]yamlSample),
	}

	for _, s := range data.Sets {
		ys := yamlSet{
			ID:          s.ID.String()[:8],
			Exercise:    s.ExerciseID,
			Weight:      s.Weight,
			Reps:        s.Reps,
			PerformedAt: s.PerformedAt.Format(time.RFC3339),
		}
		if s.MuscleGroup != nil {
			ys.MuscleGroup = *s.MuscleGroup
		}
		yamlData.Sets = append(yamlData.Sets, ys)
	}

	for _, r := range data.Soreness {
		group := groupLabel(r.MuscleGroup)
		yamlData.Soreness[group] = append(yamlData.Soreness[group], yamlSoreness{
			Muscle: r.Muscle,
			Score:  r.Score,
		})
	}

	for _, m := range data.MuscleMax {
		yamlData.Baselines.Muscles[m.Key] = m.MaxSoreness
	}
	for _, m := range data.GroupMax {
		yamlData.Baselines.Groups[m.Key] = m.MaxSoreness
	}

	for _, h := range data.History {
		yamlData.History[h.MuscleGroup] = append(yamlData.History[h.MuscleGroup], yamlSample{
			Score:      h.Score,
			RecordedAt: h.RecordedAt.Format(time.RFC3339),
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlSet struct {
	ID          string  `yaml:"id"`
	Exercise    string  `yaml:"exercise"`
	Weight      float64 `yaml:"weight"`
	Reps        int     `yaml:"reps"`
	MuscleGroup string  `yaml:"muscle_group,omitempty"`
	PerformedAt string  `yaml:"performed_at"`
}

type yamlSoreness struct {
	Muscle string  `yaml:"muscle"`
	Score  float64 `yaml:"score"`
}

type yamlBaselines struct {
	Muscles map[string]float64 `yaml:"muscles"`
	Groups  map[string]float64 `yaml:"groups"`
}

type yamlSample struct {
	Score      float64 `yaml:"score"`
	RecordedAt string  `yaml:"recorded_at"`
}

// ExportMarkdown renders the current snapshot and baselines as Markdown tables.
func ExportMarkdown(ctx context.Context, s Store, userID string) (string, error) {
	data, err := GetAllData(ctx, s, userID)
	if err != nil {
		return "", err
	}

	muscleMax := make(map[string]float64, len(data.MuscleMax))
	for _, m := range data.MuscleMax {
		muscleMax[m.Key] = m.MaxSoreness
	}

	grouped := make(map[string][]models.MuscleSoreness)
	for _, r := range data.Soreness {
		group := groupLabel(r.MuscleGroup)
		grouped[group] = append(grouped[group], r)
	}
	groups := make([]string, 0, len(grouped))
	for g := range grouped {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Soreness Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("## %s\n\n", g))
		sb.WriteString("| Muscle | Current | Max | Updated |\n")
		sb.WriteString("|--------|---------|-----|---------|\n")
		for _, r := range grouped[g] {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %s |\n",
				r.Muscle, r.Score, muscleMax[r.Muscle],
				r.UpdatedAt.Format("2006-01-02 15:04")))
		}
		sb.WriteString("\n")
	}

	if len(data.GroupMax) > 0 {
		sb.WriteString("## Group Baselines\n\n")
		sb.WriteString("| Group | Max | Last Updated |\n")
		sb.WriteString("|-------|-----|--------------|\n")
		for _, m := range data.GroupMax {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %s |\n",
				m.Key, m.MaxSoreness, m.LastUpdated.Format("2006-01-02 15:04")))
		}
	}

	return sb.String(), nil
}

func groupLabel(group string) string {
	if group == "" {
		return "Ungrouped"
	}
	return group
}
