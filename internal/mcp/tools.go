// ABOUTME: MCP tool implementations for soreness tracking.
// ABOUTME: Exposes soreness reads, set logging, recompute, and group history.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxSetsPerCall bounds a single log_sets request.
const maxSetsPerCall = 200

func (s *Server) registerTools() {
	// get_muscle_soreness
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_muscle_soreness",
		Description: "Get normalized soreness (0-1) for every tracked muscle",
	}, s.handleGetMuscleSoreness)

	// get_muscle_group_soreness
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_muscle_group_soreness",
		Description: "Get normalized soreness (0-1) per muscle group, weighted by muscle ratios",
	}, s.handleGetMuscleGroupSoreness)

	// log_sets
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_sets",
		Description: "Record completed sets from a session and update soreness for the affected muscles",
	}, s.handleLogSets)

	// recompute_soreness
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recompute_soreness",
		Description: "Rebuild the soreness snapshot from every set in the accumulation window",
	}, s.handleRecompute)

	// get_soreness_history
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_soreness_history",
		Description: "List recorded muscle group soreness samples, optionally for one group",
	}, s.handleGetHistory)
}

// Tool input/output types

type userInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User to read; defaults to the configured user"`
}

type muscleSorenessOutput struct {
	UserID  string                 `json:"user_id"`
	Muscles []models.MuscleReading `json:"muscles"`
}

type groupSorenessOutput struct {
	UserID string                `json:"user_id"`
	Groups []models.GroupReading `json:"groups"`
}

type setInput struct {
	ExerciseID  string  `json:"exercise_id" jsonschema:"Exercise identifier from the catalog"`
	Weight      float64 `json:"weight,omitempty" jsonschema:"Load lifted; 0 for bodyweight"`
	Reps        int     `json:"reps" jsonschema:"Repetitions completed"`
	MuscleGroup string  `json:"muscle_group_id,omitempty" jsonschema:"Muscle group the set was logged under"`
	PerformedAt string  `json:"performed_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
}

type logSetsInput struct {
	UserID string     `json:"user_id,omitempty" jsonschema:"User who performed the sets; defaults to the configured user"`
	Sets   []setInput `json:"sets" jsonschema:"Completed sets from one session"`
}

type muscleScore struct {
	Muscle      string  `json:"muscle_id"`
	MuscleGroup string  `json:"muscle_group_id,omitempty"`
	Score       float64 `json:"soreness_score"`
}

type recomputeOutput struct {
	UserID        string             `json:"user_id"`
	Mode          string             `json:"mode"`
	At            string             `json:"at"`
	SetsCounted   int                `json:"sets_counted"`
	SetsUnmapped  int                `json:"sets_unmapped"`
	Muscles       []muscleScore      `json:"muscles"`
	GroupScores   map[string]float64 `json:"group_scores"`
	RaisedMuscles []string           `json:"raised_muscles"`
	RaisedGroups  []string           `json:"raised_groups"`
}

type historyInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"User to read; defaults to the configured user"`
	Group  string `json:"muscle_group_id,omitempty" jsonschema:"Only return samples for this muscle group"`
	Days   int    `json:"days,omitempty" jsonschema:"How many days back to look (default 7)"`
}

type historySample struct {
	MuscleGroup string  `json:"muscle_group_id"`
	Score       float64 `json:"soreness_score"`
	RecordedAt  string  `json:"recorded_at"`
}

type historyOutput struct {
	UserID  string          `json:"user_id"`
	Since   string          `json:"since"`
	Samples []historySample `json:"samples"`
}

// Tool handlers

func (s *Server) handleGetMuscleSoreness(ctx context.Context, req *mcp.CallToolRequest, input userInput) (*mcp.CallToolResult, muscleSorenessOutput, error) {
	userID := s.user(input.UserID)
	readings, err := s.svc.GetMuscleSoreness(ctx, userID)
	if err != nil {
		return nil, muscleSorenessOutput{}, fmt.Errorf("failed to read muscle soreness: %w", err)
	}
	if readings == nil {
		readings = []models.MuscleReading{}
	}
	return nil, muscleSorenessOutput{UserID: userID, Muscles: readings}, nil
}

func (s *Server) handleGetMuscleGroupSoreness(ctx context.Context, req *mcp.CallToolRequest, input userInput) (*mcp.CallToolResult, groupSorenessOutput, error) {
	userID := s.user(input.UserID)
	readings, err := s.svc.GetMuscleGroupSoreness(ctx, userID)
	if err != nil {
		return nil, groupSorenessOutput{}, fmt.Errorf("failed to read muscle group soreness: %w", err)
	}
	if readings == nil {
		readings = []models.GroupReading{}
	}
	return nil, groupSorenessOutput{UserID: userID, Groups: readings}, nil
}

func (s *Server) handleLogSets(ctx context.Context, req *mcp.CallToolRequest, input logSetsInput) (*mcp.CallToolResult, recomputeOutput, error) {
	if len(input.Sets) == 0 {
		return nil, recomputeOutput{}, errors.New("at least one set is required")
	}
	if len(input.Sets) > maxSetsPerCall {
		return nil, recomputeOutput{}, fmt.Errorf("too many sets: %d (max %d)", len(input.Sets), maxSetsPerCall)
	}

	userID := s.user(input.UserID)
	sets := make([]*models.LoggedSet, 0, len(input.Sets))
	for i, in := range input.Sets {
		set := models.NewLoggedSet(userID, in.ExerciseID, in.Weight, in.Reps)
		if err := set.Validate(); err != nil {
			return nil, recomputeOutput{}, fmt.Errorf("set %d: %w", i+1, err)
		}
		if in.MuscleGroup != "" {
			set.WithMuscleGroup(in.MuscleGroup)
		}
		if in.PerformedAt != "" {
			t, err := parseTimestamp(in.PerformedAt)
			if err != nil {
				return nil, recomputeOutput{}, fmt.Errorf("set %d: %w", i+1, err)
			}
			set.WithPerformedAt(t)
		}
		sets = append(sets, set)
	}

	res, err := s.svc.RecordSession(ctx, userID, sets)
	if errors.Is(err, soreness.ErrRecompute) {
		return statsErrorResult(len(sets), err), recomputeOutput{}, nil
	}
	if err != nil {
		return nil, recomputeOutput{}, fmt.Errorf("failed to log sets: %w", err)
	}
	return nil, toRecomputeOutput(res), nil
}

func (s *Server) handleRecompute(ctx context.Context, req *mcp.CallToolRequest, input userInput) (*mcp.CallToolResult, recomputeOutput, error) {
	res, err := s.svc.RecomputeAll(ctx, s.user(input.UserID))
	if err != nil {
		return statsErrorResult(0, err), recomputeOutput{}, nil
	}
	return nil, toRecomputeOutput(res), nil
}

func (s *Server) handleGetHistory(ctx context.Context, req *mcp.CallToolRequest, input historyInput) (*mcp.CallToolResult, historyOutput, error) {
	days := input.Days
	if days <= 0 {
		days = 7
	}
	if days > 365 {
		days = 365
	}

	userID := s.user(input.UserID)
	since := time.Now().UTC().AddDate(0, 0, -days)
	entries, err := s.svc.History(ctx, userID, input.Group, since)
	if err != nil {
		return nil, historyOutput{}, fmt.Errorf("failed to read history: %w", err)
	}

	out := historyOutput{
		UserID:  userID,
		Since:   since.Format(time.RFC3339),
		Samples: make([]historySample, 0, len(entries)),
	}
	for _, e := range entries {
		out.Samples = append(out.Samples, historySample{
			MuscleGroup: e.MuscleGroup,
			Score:       e.Score,
			RecordedAt:  e.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// statsErrorResult reports a failed soreness update without failing the call.
func statsErrorResult(saved int, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("couldn't update your stats: %v", err)
	if saved > 0 {
		msg = fmt.Sprintf("%d set(s) saved, but %s", saved, msg)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func toRecomputeOutput(res *soreness.Result) recomputeOutput {
	out := recomputeOutput{
		UserID:        res.UserID,
		Mode:          res.Mode,
		At:            res.At.UTC().Format(time.RFC3339),
		SetsCounted:   res.SetsCounted,
		SetsUnmapped:  res.SetsUnmapped,
		Muscles:       make([]muscleScore, 0, len(res.Muscles)),
		GroupScores:   res.GroupScores,
		RaisedMuscles: res.RaisedMuscles,
		RaisedGroups:  res.RaisedGroups,
	}
	for _, m := range res.Muscles {
		out.Muscles = append(out.Muscles, muscleScore{Muscle: m.Muscle, MuscleGroup: m.MuscleGroup, Score: m.Score})
	}
	if out.GroupScores == nil {
		out.GroupScores = map[string]float64{}
	}
	if out.RaisedMuscles == nil {
		out.RaisedMuscles = []string{}
	}
	if out.RaisedGroups == nil {
		out.RaisedGroups = []string{}
	}
	return out
}

// parseTimestamp accepts RFC 3339 or a plain "YYYY-MM-DD HH:MM" local time.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", s)
	}
	return t, nil
}
