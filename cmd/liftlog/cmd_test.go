// ABOUTME: Tests for CLI helper functions and command execution.
// ABOUTME: Runs commands end to end against temp SQLite and Badger data dirs.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"date and time with space", "2025-01-31 08:30", false},
		{"date and time with T", "2025-01-31T08:30", false},
		{"date only", "2025-01-31", false},
		{"RFC3339", "2025-01-31T08:30:00Z", false},
		{"RFC3339 with offset", "2025-01-31T08:30:00+05:00", false},
		{"invalid format", "31-01-2025", true},
		{"invalid random string", "not a date", true},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseTime(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("parseTime(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseTime(%q) unexpected error: %v", tt.input, err)
				return
			}
			if result.IsZero() {
				t.Errorf("parseTime(%q) returned zero time", tt.input)
			}
		})
	}
}

func TestParseSetSpec(t *testing.T) {
	tests := []struct {
		spec       string
		wantReps   int
		wantWeight float64
		wantErr    bool
	}{
		{"5", 5, 0, false},
		{"5x80", 5, 80, false},
		{"8X62.5", 8, 62.5, false},
		{"12x0", 12, 0, false},
		{"0x80", 0, 0, true},
		{"-3", 0, 0, true},
		{"5x", 0, 0, true},
		{"5x-10", 0, 0, true},
		{"x80", 0, 0, true},
		{"five", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			reps, weight, err := parseSetSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseSetSpec(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSetSpec(%q) unexpected error: %v", tt.spec, err)
			}
			if reps != tt.wantReps || weight != tt.wantWeight {
				t.Errorf("parseSetSpec(%q) = %d, %v; want %d, %v", tt.spec, reps, weight, tt.wantReps, tt.wantWeight)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world this is a long string", 10, "hello w..."},
		{"", 10, ""},
		{"hello", 3, "..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input  string
		length int
		want   string
	}{
		{"hi", 5, "hi   "},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello world"},
		{"", 3, "   "},
	}

	for _, tt := range tests {
		if got := padRight(tt.input, tt.length); got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
		}
	}
}

func TestBarWidth(t *testing.T) {
	for _, v := range []float64{-1, 0, 0.33, 0.5, 1, 7} {
		got := bar(v, 10)
		if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 10 {
			t.Errorf("bar(%v) has %d cells, want 10", v, n)
		}
	}
}

func TestRootCmdFlags(t *testing.T) {
	if rootCmd.Use != "liftlog" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "liftlog")
	}
	for _, name := range []string{"data-dir", "backend", "user", "strategy", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected --%s persistent flag", name)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"log", "soreness", "groups", "recompute", "history", "catalog", "ledger", "wipe", "export", "import", "migrate", "mcp", "config"}

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("Expected %q command to be registered", name)
		}
	}
}

func TestLedgerCmdSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range ledgerCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"show", "update", "reset"} {
		if !names[name] {
			t.Errorf("Expected ledger %s subcommand", name)
		}
	}
}

func TestExportCmdValidArgs(t *testing.T) {
	want := map[string]bool{"json": true, "yaml": true, "markdown": true}
	for _, arg := range exportCmd.ValidArgs {
		delete(want, arg)
	}
	if len(want) != 0 {
		t.Errorf("Missing export formats: %v", want)
	}
}

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	dataDirFlag, backendFlag, userFlag, strategyFlag, verboseFlag = "", "", "", "", false
	logAt, logGroup, logFile = "", "", ""
	sorenessGroup, sorenessJSON, sorenessAll, groupsJSON = "", false, false, false
	historyDays = 7
	catalogExercises = false
	ledgerGranularity, ledgerSkipConfirm = string(models.GranularityMuscle), false
	wipeSkipConfirm = false
	exportOutput = ""
	migrateTo, migrateToDir, migrateDryRun = "", "", false
	skillSkipConfirm = false
}

// setupTestCLI points config and data at temp dirs and returns the data dir.
func setupTestCLI(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	resetFlags()
	t.Cleanup(resetFlags)

	return filepath.Join(tmpDir, "data", "liftlog")
}

// runCLI executes the root command with fresh flags and stdin, and returns
// combined output. Cobra keeps flag values between executions.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := Execute()
	return buf.String(), err
}

// openTestStore opens the SQLite store the CLI wrote, after the command closed it.
func openTestStore(t *testing.T, dataDir string) *storage.DB {
	t.Helper()

	db, err := storage.Open(filepath.Join(dataDir, "liftlog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLogCmdWithDB(t *testing.T) {
	dataDir := setupTestCLI(t)

	output, err := runCLI(t, "", "log", "bench_press", "5x80", "5x80", "8x60")
	if err != nil {
		t.Fatalf("log command failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Logged 3 set(s)") {
		t.Errorf("Unexpected output: %q", output)
	}

	db := openTestStore(t, dataDir)
	sets, err := db.ListSets(t.Context(), "local", time.Time{}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("Expected 3 sets, got %d", len(sets))
	}
	if sets[2].Reps != 8 || sets[2].Weight != 60 {
		t.Errorf("Expected last set 8x60, got %dx%v", sets[2].Reps, sets[2].Weight)
	}

	rows, err := db.ListSoreness(t.Context(), "local")
	if err != nil {
		t.Fatalf("ListSoreness failed: %v", err)
	}
	if len(rows) == 0 {
		t.Error("Expected soreness rows after logging")
	}
}

func TestLogCmdWithUserAndTimestamp(t *testing.T) {
	dataDir := setupTestCLI(t)
	at := time.Now().Add(-3 * time.Hour).Format("2006-01-02 15:04")

	output, err := runCLI(t, "", "--user", "alex", "log", "squat", "5x100", "--at", at, "--group", "Legs")
	if err != nil {
		t.Fatalf("log command failed: %v\n%s", err, output)
	}

	db := openTestStore(t, dataDir)
	sets, err := db.ListSets(t.Context(), "alex", time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("Expected 1 set for alex, got %d", len(sets))
	}
	if sets[0].MuscleGroup == nil || *sets[0].MuscleGroup != "Legs" {
		t.Error("Expected muscle group Legs on the set")
	}
	if sets[0].PerformedAt.Local().Format("2006-01-02 15:04") != at {
		t.Errorf("Expected performed_at %s, got %s", at, sets[0].PerformedAt.Local())
	}
}

func TestLogCmdUnknownExercise(t *testing.T) {
	setupTestCLI(t)

	output, err := runCLI(t, "", "log", "juggling", "20")
	if err != nil {
		t.Fatalf("log command failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "not in the catalog") {
		t.Errorf("Expected unmapped warning, got %q", output)
	}
}

func TestLogCmdInvalidArgs(t *testing.T) {
	setupTestCLI(t)

	tests := [][]string{
		{"log"},
		{"log", "bench_press"},
		{"log", "bench_press", "5xheavy"},
		{"log", "bench_press", "5x80", "--at", "yesterday"},
	}
	for _, args := range tests {
		if _, err := runCLI(t, "", args...); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}

func TestLogCmdFromFile(t *testing.T) {
	dataDir := setupTestCLI(t)

	session := `- exercise: bench_press
  reps: 5
  weight: 80
- exercise: pull_up
  reps: 8
- exercise: curl
  reps: 10
  weight: 15
  group: Biceps
`
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte(session), 0600); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, "", "log", "--file", path)
	if err != nil {
		t.Fatalf("log --file failed: %v\n%s", err, output)
	}

	db := openTestStore(t, dataDir)
	sets, err := db.ListSets(t.Context(), "local", time.Time{}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 3 {
		t.Errorf("Expected 3 sets, got %d", len(sets))
	}
}

func TestLogCmdFromBadFile(t *testing.T) {
	setupTestCLI(t)

	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"missing exercise", "- reps: 5\n", "exercise is required"},
		{"zero reps", "- exercise: bench_press\n  weight: 80\n", "reps must be positive"},
		{"negative weight", "- exercise: bench_press\n  reps: 5\n  weight: -20\n", "weight must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := runCLI(t, "", "log", "--file", path)
			if err == nil || !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got %v", tt.errText, err)
			}
		})
	}
}

func TestSorenessCmd(t *testing.T) {
	setupTestCLI(t)

	output, err := runCLI(t, "", "soreness")
	if err != nil {
		t.Fatalf("soreness command failed: %v", err)
	}
	if !strings.Contains(output, "No soreness recorded") {
		t.Errorf("Expected empty message, got %q", output)
	}

	if _, err := runCLI(t, "", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	output, err = runCLI(t, "", "soreness", "--group", "chest")
	if err != nil {
		t.Fatalf("soreness command failed: %v", err)
	}
	if !strings.Contains(output, "Upper Chest") {
		t.Errorf("Expected Upper Chest in output, got %q", output)
	}
	if strings.Contains(output, "Front Delts") {
		t.Errorf("Expected group filter to drop Front Delts, got %q", output)
	}
}

func TestSorenessCmdJSON(t *testing.T) {
	setupTestCLI(t)

	if _, err := runCLI(t, "", "--strategy", "intensity", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	output, err := runCLI(t, "", "soreness", "--json")
	if err != nil {
		t.Fatalf("soreness --json failed: %v", err)
	}

	var readings []models.MuscleReading
	if err := json.Unmarshal([]byte(output), &readings); err != nil {
		t.Fatalf("Failed to parse JSON: %v\n%s", err, output)
	}
	for _, r := range readings {
		if r.Normalized < 0 || r.Normalized > 1 {
			t.Errorf("%s normalized out of range: %v", r.Muscle, r.Normalized)
		}
		if r.Muscle == "Chest" && r.Normalized != 1 {
			t.Errorf("Expected Chest at its baseline, got %v", r.Normalized)
		}
	}
}

func TestGroupsCmdJSON(t *testing.T) {
	setupTestCLI(t)

	if _, err := runCLI(t, "", "log", "squat", "5x100"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	output, err := runCLI(t, "", "groups", "--json")
	if err != nil {
		t.Fatalf("groups --json failed: %v", err)
	}

	var readings []models.GroupReading
	if err := json.Unmarshal([]byte(output), &readings); err != nil {
		t.Fatalf("Failed to parse JSON: %v\n%s", err, output)
	}

	byGroup := make(map[string]models.GroupReading)
	for _, g := range readings {
		byGroup[g.Group] = g
	}
	if byGroup["Legs"].Normalized <= 0 {
		t.Errorf("Expected Legs soreness > 0, got %+v", byGroup["Legs"])
	}
	if _, ok := byGroup["Chest"]; !ok {
		t.Error("Expected untrained Chest to be listed")
	}
}

func TestRecomputeCmd(t *testing.T) {
	dataDir := setupTestCLI(t)

	if _, err := runCLI(t, "", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	output, err := runCLI(t, "", "recompute")
	if err != nil {
		t.Fatalf("recompute command failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Recomputed") || !strings.Contains(output, "volume scoring") {
		t.Errorf("Unexpected output: %q", output)
	}

	db := openTestStore(t, dataDir)
	history, err := db.ListHistory(t.Context(), "local", "Chest", time.Time{})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected a Chest sample from log and one from recompute, got %d", len(history))
	}
}

func TestHistoryCmd(t *testing.T) {
	setupTestCLI(t)

	output, err := runCLI(t, "", "history")
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	if !strings.Contains(output, "No history found") {
		t.Errorf("Expected empty message, got %q", output)
	}

	if _, err := runCLI(t, "", "log", "squat", "5x100"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	output, err = runCLI(t, "", "history", "Legs", "--days", "1")
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	if !strings.Contains(output, "Legs") {
		t.Errorf("Expected Legs sample, got %q", output)
	}

	if _, err := runCLI(t, "", "history", "--days", "0"); err == nil {
		t.Error("Expected error for non-positive --days")
	}
}

func TestCatalogCmd(t *testing.T) {
	setupTestCLI(t)

	output, err := runCLI(t, "", "catalog")
	if err != nil {
		t.Fatalf("catalog command failed: %v", err)
	}
	if !strings.Contains(output, "Chest") || !strings.Contains(output, "(unweighted)") {
		t.Errorf("Unexpected catalog output: %q", output)
	}
	if strings.Contains(output, "warning:") {
		t.Errorf("Seed ratios should sum to 1.0: %q", output)
	}

	output, err = runCLI(t, "", "catalog", "bench_press")
	if err != nil {
		t.Fatalf("catalog bench_press failed: %v", err)
	}
	if !strings.Contains(output, "Front Delts") {
		t.Errorf("Expected Front Delts for bench_press, got %q", output)
	}

	if _, err := runCLI(t, "", "catalog", "juggling"); err == nil {
		t.Error("Expected error for unknown exercise")
	}
}

func TestLedgerCmds(t *testing.T) {
	setupTestCLI(t)

	output, err := runCLI(t, "", "ledger", "show")
	if err != nil {
		t.Fatalf("ledger show failed: %v", err)
	}
	if !strings.Contains(output, "No baselines recorded") {
		t.Errorf("Expected empty message, got %q", output)
	}

	if _, err := runCLI(t, "", "ledger", "update", "Chest", "900"); err != nil {
		t.Fatalf("ledger update failed: %v", err)
	}
	output, err = runCLI(t, "", "ledger", "update", "Chest", "400")
	if err != nil {
		t.Fatalf("ledger update failed: %v", err)
	}
	if !strings.Contains(output, "900.00") {
		t.Errorf("Expected baseline to stay at 900, got %q", output)
	}

	output, err = runCLI(t, "", "ledger", "show", "Chest")
	if err != nil {
		t.Fatalf("ledger show Chest failed: %v", err)
	}
	if !strings.Contains(output, "900.00") {
		t.Errorf("Expected 900.00, got %q", output)
	}

	output, err = runCLI(t, "", "ledger", "show", "-g", "group")
	if err != nil {
		t.Fatalf("ledger show -g group failed: %v", err)
	}
	if !strings.Contains(output, "No baselines recorded") {
		t.Errorf("Expected no group baselines, got %q", output)
	}

	if _, err := runCLI(t, "", "ledger", "show", "-g", "region"); err == nil {
		t.Error("Expected error for unknown granularity")
	}

	output, err = runCLI(t, "n\n", "ledger", "reset")
	if err != nil {
		t.Fatalf("ledger reset failed: %v", err)
	}
	if !strings.Contains(output, "Canceled") {
		t.Errorf("Expected cancel, got %q", output)
	}

	if _, err := runCLI(t, "y\n", "ledger", "reset"); err != nil {
		t.Fatalf("ledger reset failed: %v", err)
	}
	output, err = runCLI(t, "", "ledger", "show")
	if err != nil {
		t.Fatalf("ledger show failed: %v", err)
	}
	if !strings.Contains(output, "No baselines recorded") {
		t.Errorf("Expected baselines cleared, got %q", output)
	}
}

func TestWipeCmd(t *testing.T) {
	dataDir := setupTestCLI(t)

	if _, err := runCLI(t, "", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}
	if _, err := runCLI(t, "", "wipe", "--yes"); err != nil {
		t.Fatalf("wipe command failed: %v", err)
	}

	db := openTestStore(t, dataDir)
	sets, err := db.ListSets(t.Context(), "local", time.Time{}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("Expected no sets after wipe, got %d", len(sets))
	}
}

func TestExportCmds(t *testing.T) {
	setupTestCLI(t)

	if _, err := runCLI(t, "", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	for _, format := range []string{"json", "yaml", "markdown"} {
		output, err := runCLI(t, "", "export", format)
		if err != nil {
			t.Errorf("export %s failed: %v", format, err)
		}
		if !strings.Contains(output, "Chest") {
			t.Errorf("export %s missing Chest: %q", format, output)
		}
	}

	if _, err := runCLI(t, "", "export", "csv"); err == nil {
		t.Error("Expected error for invalid export format")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	dataDir := setupTestCLI(t)
	backup := filepath.Join(t.TempDir(), "backup.json")

	if _, err := runCLI(t, "", "log", "bench_press", "5x80", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}
	if _, err := runCLI(t, "", "export", "json", "-o", backup); err != nil {
		t.Fatalf("export command failed: %v", err)
	}
	if _, err := runCLI(t, "", "wipe", "-y"); err != nil {
		t.Fatalf("wipe command failed: %v", err)
	}

	output, err := runCLI(t, "", "--user", "alex", "import", backup)
	if err != nil {
		t.Fatalf("import command failed: %v\n%s", err, output)
	}

	output, err = runCLI(t, "", "--user", "alex", "import", backup)
	if err != nil {
		t.Fatalf("second import failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "2 set(s) were already stored") {
		t.Errorf("Expected repeated sets to be skipped, got %q", output)
	}

	db := openTestStore(t, dataDir)
	sets, err := db.ListSets(t.Context(), "alex", time.Time{}, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(sets) != 2 {
		t.Errorf("Expected 2 imported sets, got %d", len(sets))
	}
	rows, err := db.ListMaxSoreness(t.Context(), "alex", models.GranularityGroup)
	if err != nil {
		t.Fatalf("ListMaxSoreness failed: %v", err)
	}
	if len(rows) == 0 {
		t.Error("Expected group baselines after import")
	}

	// The exported sample plus one per import recompute.
	history, err := db.ListHistory(t.Context(), "alex", "Chest", time.Time{})
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("Expected 3 Chest history samples, got %d", len(history))
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	setupTestCLI(t)

	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version":"0.1","sets":[]}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "", "import", path); err == nil {
		t.Error("Expected error for unsupported export version")
	}
}

func TestBadgerBackend(t *testing.T) {
	dataDir := setupTestCLI(t)

	if _, err := runCLI(t, "", "--backend", "badger", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}
	output, err := runCLI(t, "", "--backend", "badger", "soreness")
	if err != nil {
		t.Fatalf("soreness command failed: %v", err)
	}
	if !strings.Contains(output, "Chest") {
		t.Errorf("Expected Chest soreness from badger, got %q", output)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "kv")); err != nil {
		t.Errorf("Expected badger kv dir: %v", err)
	}
}

func TestInvalidBackendFlag(t *testing.T) {
	setupTestCLI(t)

	if _, err := runCLI(t, "", "--backend", "csv", "soreness"); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestConfigCmds(t *testing.T) {
	setupTestCLI(t)

	output, err := runCLI(t, "", "--strategy", "intensity", "--user", "alex", "config", "save")
	if err != nil {
		t.Fatalf("config save failed: %v\n%s", err, output)
	}

	output, err = runCLI(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(output, "intensity") || !strings.Contains(output, "alex") {
		t.Errorf("Expected saved settings, got %q", output)
	}
}

func TestMetricsFileWritten(t *testing.T) {
	setupTestCLI(t)
	metricsPath := filepath.Join(t.TempDir(), "liftlog.prom")

	if _, err := runCLI(t, "", "config", "save"); err != nil {
		t.Fatalf("config save failed: %v", err)
	}
	// Point the saved config at a metrics file.
	raw, err := os.ReadFile(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "liftlog", "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	var settings map[string]interface{}
	if err := json.Unmarshal(raw, &settings); err != nil {
		t.Fatal(err)
	}
	settings["metrics_file"] = metricsPath
	raw, _ = json.Marshal(settings)
	if err := os.WriteFile(filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "liftlog", "config.json"), raw, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("Expected metrics file: %v", err)
	}
	if !strings.Contains(string(data), "liftlog_cli_soreness_recomputes") {
		t.Errorf("Expected recompute counter in metrics file, got:\n%s", data)
	}
}

func TestMigrateCmd(t *testing.T) {
	setupTestCLI(t)

	if _, err := runCLI(t, "", "log", "bench_press", "5x80"); err != nil {
		t.Fatalf("log command failed: %v", err)
	}

	output, err := runCLI(t, "", "migrate", "--to", "badger", "--dry-run")
	if err != nil {
		t.Fatalf("migrate --dry-run failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Would copy 1 set(s)") {
		t.Errorf("Unexpected dry-run output: %q", output)
	}

	output, err = runCLI(t, "", "migrate", "--to", "badger")
	if err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Copied 1 set(s)") {
		t.Errorf("Unexpected migrate output: %q", output)
	}

	output, err = runCLI(t, "", "--backend", "badger", "soreness")
	if err != nil {
		t.Fatalf("soreness on badger failed: %v", err)
	}
	if !strings.Contains(output, "Chest") {
		t.Errorf("Expected migrated soreness on badger, got %q", output)
	}

	if _, err := runCLI(t, "", "migrate", "--to", "badger"); err == nil {
		t.Error("Expected second migration into a non-empty store to fail")
	}
	if _, err := runCLI(t, "", "migrate", "--to", "sqlite"); err == nil {
		t.Error("Expected error when source and destination are the same")
	}
}
