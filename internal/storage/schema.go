// ABOUTME: SQLite schema definition, initialization, and first-launch catalog seeding.
// ABOUTME: Defines catalog, logged set, soreness, ledger, and history tables.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/liftlog/internal/catalog"
	"github.com/sirupsen/logrus"
)

// metaCatalogSeeded is the app_meta flag set once the catalog seed has run.
const metaCatalogSeeded = "catalog_seeded"

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS app_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS muscle_ratio (
		muscle_group TEXT NOT NULL,
		muscle_name TEXT NOT NULL,
		ratio REAL NOT NULL,
		PRIMARY KEY (muscle_group, muscle_name)
	);

	CREATE TABLE IF NOT EXISTS exercise_muscles (
		exercise_id TEXT NOT NULL,
		muscle_id TEXT NOT NULL,
		muscle_group_id TEXT,
		intensity REAL NOT NULL,
		PRIMARY KEY (exercise_id, muscle_id)
	);

	CREATE TABLE IF NOT EXISTS logged_sets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		exercise_id TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 0,
		reps INTEGER NOT NULL DEFAULT 0,
		muscle_group_id TEXT,
		performed_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS muscle_soreness (
		user_id TEXT NOT NULL,
		muscle_id TEXT NOT NULL,
		muscle_group_id TEXT,
		soreness_score REAL NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, muscle_id)
	);

	CREATE TABLE IF NOT EXISTS user_individual_muscle_max_soreness (
		user_id TEXT NOT NULL,
		muscle_id TEXT NOT NULL,
		max_soreness REAL NOT NULL DEFAULT 0,
		last_updated TEXT NOT NULL,
		PRIMARY KEY (user_id, muscle_id)
	);

	CREATE TABLE IF NOT EXISTS user_muscle_max_soreness (
		user_id TEXT NOT NULL,
		muscle_group_id TEXT NOT NULL,
		max_soreness REAL NOT NULL DEFAULT 0,
		last_updated TEXT NOT NULL,
		PRIMARY KEY (user_id, muscle_group_id)
	);

	CREATE TABLE IF NOT EXISTS muscle_soreness_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		muscle_group_id TEXT NOT NULL,
		soreness_score REAL NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logged_sets_user_performed ON logged_sets(user_id, performed_at);
	CREATE INDEX IF NOT EXISTS idx_exercise_muscles_muscle ON exercise_muscles(muscle_id);
	CREATE INDEX IF NOT EXISTS idx_history_user_group_recorded ON muscle_soreness_history(user_id, muscle_group_id, recorded_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// seedCatalog loads the embedded catalog into muscle_ratio and exercise_muscles
// unless the upgrade flag says it already ran.
func (d *DB) seedCatalog(ctx context.Context) error {
	seeded, err := d.metaFlag(ctx, metaCatalogSeeded)
	if err != nil {
		return err
	}
	if seeded {
		return nil
	}

	seed, err := catalog.DefaultSeed()
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range seed.Ratios {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO muscle_ratio (muscle_group, muscle_name, ratio) VALUES (?, ?, ?)`,
			r.MuscleGroup, r.Muscle, r.Ratio,
		); err != nil {
			return fmt.Errorf("insert muscle ratio: %w", err)
		}
	}
	for _, em := range seed.ExerciseMuscles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO exercise_muscles (exercise_id, muscle_id, muscle_group_id, intensity) VALUES (?, ?, ?, ?)`,
			em.ExerciseID, em.Muscle, nullString(em.MuscleGroup), em.Intensity,
		); err != nil {
			return fmt.Errorf("insert exercise muscle: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO app_meta (key, value) VALUES (?, '1')`, metaCatalogSeeded,
	); err != nil {
		return fmt.Errorf("set seed flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"ratios":           len(seed.Ratios),
		"exercise_muscles": len(seed.ExerciseMuscles),
	}).Info("catalog seeded")
	return nil
}

// metaFlag reports whether an app_meta key is present.
func (d *DB) metaFlag(ctx context.Context, key string) (bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM app_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read meta %s: %w", key, err)
	}
	return value != "", nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
