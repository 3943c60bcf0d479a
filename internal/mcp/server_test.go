// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, and resource handlers against a real SQLite store.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/liftlog/internal/metrics"
	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setupTestDB creates a test database in a temp directory.
func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "liftlog-mcp-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := storage.Open(filepath.Join(tmpDir, "liftlog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// setupTestServer builds a server over the seeded catalog with intensity scoring.
func setupTestServer(t *testing.T, store storage.Store) *Server {
	t.Helper()

	svc, err := soreness.NewService(context.Background(), store, soreness.Options{
		Scorer:  soreness.IntensityScorer{},
		Metrics: metrics.NewTestManager(),
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	server, err := NewServer(svc, store, "alex")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))

	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.svc == nil {
		t.Error("Expected non-nil service")
	}
	if server.userID != "alex" {
		t.Errorf("Expected user alex, got %q", server.userID)
	}
}

func TestNewServerRequiresUserAndService(t *testing.T) {
	db := setupTestDB(t)
	svc, err := soreness.NewService(context.Background(), db, soreness.Options{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if _, err := NewServer(svc, db, ""); !errors.Is(err, soreness.ErrNoUser) {
		t.Errorf("Expected ErrNoUser, got %v", err)
	}
	if _, err := NewServer(nil, db, "alex"); err == nil {
		t.Error("Expected error for nil service")
	}
}

func TestHandleLogSets(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		input     logSetsInput
		wantErr   bool
		errSubstr string
	}{
		{
			name:  "single set",
			input: logSetsInput{Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}}},
		},
		{
			name: "set with RFC3339 timestamp",
			input: logSetsInput{Sets: []setInput{{
				ExerciseID:  "bench_press",
				Weight:      80,
				Reps:        5,
				PerformedAt: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
			}}},
		},
		{
			name: "set with simple timestamp",
			input: logSetsInput{Sets: []setInput{{
				ExerciseID:  "bench_press",
				Reps:        12,
				PerformedAt: time.Now().Add(-2 * time.Hour).Format("2006-01-02 15:04"),
			}}},
		},
		{
			name:      "no sets",
			input:     logSetsInput{},
			wantErr:   true,
			errSubstr: "at least one set",
		},
		{
			name:      "missing exercise",
			input:     logSetsInput{Sets: []setInput{{Reps: 5}}},
			wantErr:   true,
			errSubstr: "exercise_id is required",
		},
		{
			name:      "zero reps",
			input:     logSetsInput{Sets: []setInput{{ExerciseID: "bench_press", Weight: 80}}},
			wantErr:   true,
			errSubstr: "reps must be positive",
		},
		{
			name:      "negative weight",
			input:     logSetsInput{Sets: []setInput{{ExerciseID: "bench_press", Weight: -10, Reps: 5}}},
			wantErr:   true,
			errSubstr: "weight must be non-negative",
		},
		{
			name:      "invalid timestamp",
			input:     logSetsInput{Sets: []setInput{{ExerciseID: "bench_press", Reps: 5, PerformedAt: "yesterday"}}},
			wantErr:   true,
			errSubstr: "invalid timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, output, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, tt.input)

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("Expected error containing %q, got %q", tt.errSubstr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result != nil && result.IsError {
				t.Fatalf("Unexpected error result: %+v", result.Content)
			}
			if output.UserID != "alex" {
				t.Errorf("Expected default user alex, got %q", output.UserID)
			}
			if output.Mode != metrics.ModeSession {
				t.Errorf("Expected session mode, got %q", output.Mode)
			}
			if output.SetsCounted == 0 {
				t.Error("Expected logged set to be counted")
			}
			if _, ok := output.GroupScores["Chest"]; !ok {
				t.Errorf("Expected Chest group score, got %v", output.GroupScores)
			}
		})
	}
}

func TestHandleLogSetsTooMany(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))

	sets := make([]setInput, maxSetsPerCall+1)
	for i := range sets {
		sets[i] = setInput{ExerciseID: "bench_press", Reps: 5}
	}

	_, _, err := server.handleLogSets(context.Background(), &mcp.CallToolRequest{}, logSetsInput{Sets: sets})
	if err == nil || !strings.Contains(err.Error(), "too many sets") {
		t.Errorf("Expected too many sets error, got %v", err)
	}
}

func TestHandleLogSetsRejectsWholeBatch(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{Sets: []setInput{
		{ExerciseID: "bench_press", Weight: 80, Reps: 5},
		{ExerciseID: "bench_press", Weight: 80, Reps: 0},
	}})
	if err == nil || !strings.Contains(err.Error(), "set 2") {
		t.Fatalf("Expected error for set 2, got %v", err)
	}

	sets, err := server.store.ListSets(ctx, "alex", time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("Expected no sets saved from a rejected call, got %d", len(sets))
	}
}

func TestHandleGetMuscleSoreness(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, output, err := server.handleGetMuscleSoreness(ctx, &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("handleGetMuscleSoreness failed: %v", err)
	}
	if output.Muscles == nil || len(output.Muscles) != 0 {
		t.Errorf("Expected empty non-nil muscles before logging, got %v", output.Muscles)
	}

	_, _, err = server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	_, output, err = server.handleGetMuscleSoreness(ctx, &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("handleGetMuscleSoreness failed: %v", err)
	}

	var chestFound bool
	for _, m := range output.Muscles {
		if m.Normalized < 0 || m.Normalized > 1 {
			t.Errorf("Normalized value out of range for %s: %v", m.Muscle, m.Normalized)
		}
		if m.Muscle == "Chest" {
			chestFound = true
			if m.Normalized != 1 {
				t.Errorf("Expected first session to normalize Chest to 1, got %v", m.Normalized)
			}
		}
	}
	if !chestFound {
		t.Error("Expected Chest in muscle soreness")
	}
}

func TestHandleGetMuscleSorenessOtherUser(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		UserID: "sam",
		Sets:   []setInput{{ExerciseID: "bench_press", Weight: 60, Reps: 8}},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	_, output, err := server.handleGetMuscleSoreness(ctx, &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("handleGetMuscleSoreness failed: %v", err)
	}
	if len(output.Muscles) != 0 {
		t.Errorf("Expected default user to see nothing, got %d muscles", len(output.Muscles))
	}

	_, output, err = server.handleGetMuscleSoreness(ctx, &mcp.CallToolRequest{}, userInput{UserID: "sam"})
	if err != nil {
		t.Fatalf("handleGetMuscleSoreness failed: %v", err)
	}
	if len(output.Muscles) == 0 {
		t.Error("Expected sam to have muscle soreness")
	}
}

func TestHandleGetMuscleGroupSoreness(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	_, output, err := server.handleGetMuscleGroupSoreness(ctx, &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("handleGetMuscleGroupSoreness failed: %v", err)
	}

	groups := make(map[string]float64)
	for _, g := range output.Groups {
		if g.Normalized < 0 || g.Normalized > 1 {
			t.Errorf("Group %s out of range: %v", g.Group, g.Normalized)
		}
		groups[g.Group] = g.Normalized
	}
	if groups["Chest"] <= 0 {
		t.Errorf("Expected Chest group soreness > 0, got %v", groups["Chest"])
	}
	if v, ok := groups["Legs"]; !ok || v != 0 {
		t.Errorf("Expected untrained Legs listed at 0, got %v (present=%v)", v, ok)
	}
}

func TestHandleRecompute(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	result, output, err := server.handleRecompute(ctx, &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("handleRecompute failed: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("Unexpected error result: %+v", result.Content)
	}
	if output.Mode != metrics.ModeFull {
		t.Errorf("Expected full mode, got %q", output.Mode)
	}
	if len(output.Muscles) == 0 {
		t.Error("Expected muscles in recompute output")
	}
	if output.RaisedMuscles == nil || output.RaisedGroups == nil {
		t.Error("Expected non-nil raised slices")
	}
}

// failingUpdateStore rejects every write transaction.
type failingUpdateStore struct {
	storage.Store
}

func (f *failingUpdateStore) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	return errors.New("database is locked")
}

func TestHandleLogSetsRecomputeFailure(t *testing.T) {
	db := setupTestDB(t)
	server := setupTestServer(t, &failingUpdateStore{Store: db})
	ctx := context.Background()

	result, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}},
	})
	if err != nil {
		t.Fatalf("Expected tool result, got error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("Expected IsError result")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "couldn't update your stats") || !strings.Contains(text, "1 set(s) saved") {
		t.Errorf("Unexpected message: %q", text)
	}

	// The sets were still saved.
	sets, err := db.ListSets(ctx, "alex", time.Time{}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 1 {
		t.Errorf("Expected 1 saved set, got %d", len(sets))
	}
}

func TestHandleRecomputeFailure(t *testing.T) {
	server := setupTestServer(t, &failingUpdateStore{Store: setupTestDB(t)})

	result, _, err := server.handleRecompute(context.Background(), &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("Expected tool result, got error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("Expected IsError result")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.HasPrefix(text, "couldn't update your stats: ") {
		t.Errorf("Unexpected message: %q", text)
	}
}

func TestHandleGetHistory(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{
			{ExerciseID: "bench_press", Weight: 80, Reps: 5},
			{ExerciseID: "squat", Weight: 100, Reps: 5},
		},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	_, output, err := server.handleGetHistory(ctx, &mcp.CallToolRequest{}, historyInput{})
	if err != nil {
		t.Fatalf("handleGetHistory failed: %v", err)
	}
	if len(output.Samples) == 0 {
		t.Fatal("Expected history samples after logging")
	}

	_, output, err = server.handleGetHistory(ctx, &mcp.CallToolRequest{}, historyInput{Group: "Chest", Days: 1})
	if err != nil {
		t.Fatalf("handleGetHistory failed: %v", err)
	}
	if len(output.Samples) != 1 {
		t.Fatalf("Expected 1 Chest sample, got %d", len(output.Samples))
	}
	if output.Samples[0].MuscleGroup != "Chest" {
		t.Errorf("Expected Chest sample, got %q", output.Samples[0].MuscleGroup)
	}
}

func TestHandleGetHistoryEmpty(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))

	_, output, err := server.handleGetHistory(context.Background(), &mcp.CallToolRequest{}, historyInput{Days: 1000})
	if err != nil {
		t.Fatalf("handleGetHistory failed: %v", err)
	}
	if output.Samples == nil || len(output.Samples) != 0 {
		t.Errorf("Expected empty non-nil samples, got %v", output.Samples)
	}
}

func TestHandleSorenessResource(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	result, err := server.handleSorenessResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleSorenessResource failed: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("Expected 1 content, got %d", len(result.Contents))
	}
	if result.Contents[0].URI != sorenessURI {
		t.Errorf("Expected URI %s, got %s", sorenessURI, result.Contents[0].URI)
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &data); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if data["strategy"] != soreness.StrategyIntensity {
		t.Errorf("Expected intensity strategy, got %v", data["strategy"])
	}
	if _, ok := data["muscles"]; !ok {
		t.Error("Expected muscles key in resource")
	}
	if _, ok := data["groups"]; !ok {
		t.Error("Expected groups key in resource")
	}
}

func TestHandleCatalogResource(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))

	result, err := server.handleCatalogResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleCatalogResource failed: %v", err)
	}

	var data struct {
		Groups []struct {
			Group  string             `json:"group"`
			Ratios map[string]float64 `json:"ratios"`
		} `json:"groups"`
		Exercises map[string]json.RawMessage `json:"exercises"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &data); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	var chest, forearms bool
	for _, g := range data.Groups {
		switch g.Group {
		case "Chest":
			chest = g.Ratios["Chest"] == 0.6
		case "Forearms":
			forearms = len(g.Ratios) == 0
		}
	}
	if !chest {
		t.Error("Expected Chest group with its ratio table")
	}
	if !forearms {
		t.Error("Expected Forearms group without a ratio table")
	}
	if _, ok := data.Exercises["bench_press"]; !ok {
		t.Error("Expected bench_press in exercises")
	}
}

func TestHandleExportResource(t *testing.T) {
	server := setupTestServer(t, setupTestDB(t))
	ctx := context.Background()

	_, _, err := server.handleLogSets(ctx, &mcp.CallToolRequest{}, logSetsInput{
		Sets: []setInput{{ExerciseID: "bench_press", Weight: 80, Reps: 5}},
	})
	if err != nil {
		t.Fatalf("handleLogSets failed: %v", err)
	}

	result, err := server.handleExportResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleExportResource failed: %v", err)
	}

	var data storage.ExportData
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &data); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if data.UserID != "alex" {
		t.Errorf("Expected user alex, got %q", data.UserID)
	}
	if len(data.Sets) != 1 {
		t.Errorf("Expected 1 set, got %d", len(data.Sets))
	}
}

func TestParseTimestamp(t *testing.T) {
	if _, err := parseTimestamp("2026-03-10T08:00:00Z"); err != nil {
		t.Errorf("RFC3339 should parse: %v", err)
	}
	if _, err := parseTimestamp("2026-03-10 08:00"); err != nil {
		t.Errorf("simple format should parse: %v", err)
	}
	if _, err := parseTimestamp("03/10/2026"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
