// ABOUTME: SQLite persistence for soreness snapshots, max-soreness ledgers, and history.
// ABOUTME: Writes go through sqlTx inside DB.Update; reads run on the pool directly.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/liftlog/internal/models"
)

type ledgerTable struct {
	table  string
	keyCol string
}

var ledgerTables = map[models.Granularity]ledgerTable{
	models.GranularityMuscle: {table: "user_individual_muscle_max_soreness", keyCol: "muscle_id"},
	models.GranularityGroup:  {table: "user_muscle_max_soreness", keyCol: "muscle_group_id"},
}

func tableFor(g models.Granularity) (ledgerTable, error) {
	lt, ok := ledgerTables[g]
	if !ok {
		return ledgerTable{}, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	return lt, nil
}

// ReadMax reads ledger rows for keys, or every row for the user when keys is nil.
func (t *sqlTx) ReadMax(ctx context.Context, userID string, g models.Granularity, keys []string) (map[string]models.MaxSoreness, error) {
	lt, err := tableFor(g)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.MaxSoreness)
	if keys != nil && len(keys) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT %s, max_soreness, last_updated FROM %s WHERE user_id = ?`, lt.keyCol, lt.table)
	args := []any{userID}
	if keys != nil {
		query += fmt.Sprintf(` AND %s IN (%s)`, lt.keyCol, placeholders(len(keys)))
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read %s ledger: %w", g, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row models.MaxSoreness
		var lastUpdated string
		if err := rows.Scan(&row.Key, &row.MaxSoreness, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan %s ledger: %w", g, err)
		}
		if row.LastUpdated, err = parseTime(lastUpdated); err != nil {
			return nil, fmt.Errorf("parse last_updated: %w", err)
		}
		row.UserID = userID
		row.Granularity = g
		out[row.Key] = row
	}
	return out, rows.Err()
}

// WriteMax stores ledger rows as given. Callers decide the value; this does
// not apply the max rule.
func (t *sqlTx) WriteMax(ctx context.Context, rows []models.MaxSoreness) error {
	for _, row := range rows {
		lt, err := tableFor(row.Granularity)
		if err != nil {
			return err
		}

		res, err := t.q.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET max_soreness = ?, last_updated = ? WHERE user_id = ? AND %s = ?`, lt.table, lt.keyCol),
			row.MaxSoreness, formatTime(row.LastUpdated), row.UserID, row.Key,
		)
		if err != nil {
			return fmt.Errorf("update %s ledger %s: %w", row.Granularity, row.Key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		if _, err := t.q.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id, %s, max_soreness, last_updated) VALUES (?, ?, ?, ?)`, lt.table, lt.keyCol),
			row.UserID, row.Key, row.MaxSoreness, formatTime(row.LastUpdated),
		); err != nil {
			return fmt.Errorf("insert %s ledger %s: %w", row.Granularity, row.Key, err)
		}
	}
	return nil
}

// ReplaceSoreness deletes the user's snapshot and writes rows in its place.
func (t *sqlTx) ReplaceSoreness(ctx context.Context, userID string, rows []models.MuscleSoreness) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM muscle_soreness WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear soreness: %w", err)
	}
	for _, r := range rows {
		if err := t.insertSoreness(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSoreness overwrites the given (user, muscle) rows and leaves the rest.
func (t *sqlTx) UpsertSoreness(ctx context.Context, rows []models.MuscleSoreness) error {
	for _, r := range rows {
		res, err := t.q.ExecContext(ctx, `
			UPDATE muscle_soreness SET muscle_group_id = ?, soreness_score = ?, updated_at = ?
			WHERE user_id = ? AND muscle_id = ?`,
			nullString(r.MuscleGroup), r.Score, formatTime(r.UpdatedAt), r.UserID, r.Muscle,
		)
		if err != nil {
			return fmt.Errorf("update soreness %s: %w", r.Muscle, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			if err := t.insertSoreness(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *sqlTx) insertSoreness(ctx context.Context, r models.MuscleSoreness) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO muscle_soreness (user_id, muscle_id, muscle_group_id, soreness_score, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.UserID, r.Muscle, nullString(r.MuscleGroup), r.Score, formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert soreness %s: %w", r.Muscle, err)
	}
	return nil
}

// AppendHistory inserts history samples. Rows are never updated, and a
// sample whose id is already stored is skipped.
func (t *sqlTx) AppendHistory(ctx context.Context, entries []models.HistoryEntry) error {
	for _, e := range entries {
		if _, err := t.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO muscle_soreness_history (id, user_id, muscle_group_id, soreness_score, recorded_at)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID.String(), e.UserID, e.MuscleGroup, e.Score, formatTime(e.RecordedAt),
		); err != nil {
			return fmt.Errorf("append history %s: %w", e.MuscleGroup, err)
		}
	}
	return nil
}

// ListSoreness returns the user's current per-muscle snapshot ordered by muscle.
func (d *DB) ListSoreness(ctx context.Context, userID string) ([]models.MuscleSoreness, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT muscle_id, muscle_group_id, soreness_score, updated_at
		FROM muscle_soreness WHERE user_id = ? ORDER BY muscle_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list soreness: %w", err)
	}
	defer rows.Close()

	var out []models.MuscleSoreness
	for rows.Next() {
		r := models.MuscleSoreness{UserID: userID}
		var group sql.NullString
		var updatedAt string
		if err := rows.Scan(&r.Muscle, &group, &r.Score, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan soreness: %w", err)
		}
		r.MuscleGroup = group.String
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMaxSoreness returns every ledger row of granularity g ordered by key.
func (d *DB) ListMaxSoreness(ctx context.Context, userID string, g models.Granularity) ([]models.MaxSoreness, error) {
	byKey, err := (&sqlTx{q: d.db}).ReadMax(ctx, userID, g, nil)
	if err != nil {
		return nil, err
	}
	return sortedMax(byKey), nil
}

// ListHistory returns history samples recorded at or after since, oldest first.
// An empty group returns every group.
func (d *DB) ListHistory(ctx context.Context, userID, group string, since time.Time) ([]models.HistoryEntry, error) {
	query := `SELECT id, muscle_group_id, soreness_score, recorded_at
		FROM muscle_soreness_history WHERE user_id = ? AND recorded_at >= ?`
	args := []any{userID, formatTime(since)}
	if group != "" {
		query += ` AND muscle_group_id = ?`
		args = append(args, group)
	}
	query += ` ORDER BY recorded_at ASC, muscle_group_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		e := models.HistoryEntry{UserID: userID}
		var idStr, recordedAt string
		if err := rows.Scan(&idStr, &e.MuscleGroup, &e.Score, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse history id: %w", err)
		}
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResetLedger deletes both max-soreness ledgers for the user.
func (d *DB) ResetLedger(ctx context.Context, userID string) error {
	return d.deleteUserRows(ctx, userID,
		"user_individual_muscle_max_soreness",
		"user_muscle_max_soreness",
	)
}

// WipeUser deletes every row the user owns: sets, snapshot, ledgers, and history.
func (d *DB) WipeUser(ctx context.Context, userID string) error {
	return d.deleteUserRows(ctx, userID,
		"logged_sets",
		"muscle_soreness",
		"user_individual_muscle_max_soreness",
		"user_muscle_max_soreness",
		"muscle_soreness_history",
	)
}

func (d *DB) deleteUserRows(ctx context.Context, userID string, tables ...string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?`, table), userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func sortedMax(byKey map[string]models.MaxSoreness) []models.MaxSoreness {
	out := make([]models.MaxSoreness, 0, len(byKey))
	for _, row := range byKey {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
