// ABOUTME: Logged set persistence for SQLite.
// ABOUTME: Sets are immutable once written; reads are windowed by performed_at.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/liftlog/internal/models"
)

// AddSets inserts sets in one transaction.
func (d *DB) AddSets(ctx context.Context, sets []*models.LoggedSet) error {
	if len(sets) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range sets {
		var group sql.NullString
		if s.MuscleGroup != nil {
			group = sql.NullString{String: *s.MuscleGroup, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO logged_sets (id, user_id, exercise_id, weight, reps, muscle_group_id, performed_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID.String(), s.UserID, s.ExerciseID, s.Weight, s.Reps, group,
			formatTime(s.PerformedAt), formatTime(s.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert set %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

// InsertSets inserts sets, skipping any whose id is already stored.
func (t *sqlTx) InsertSets(ctx context.Context, sets []*models.LoggedSet) (int, error) {
	inserted := 0
	for _, s := range sets {
		var group sql.NullString
		if s.MuscleGroup != nil {
			group = sql.NullString{String: *s.MuscleGroup, Valid: true}
		}
		res, err := t.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO logged_sets (id, user_id, exercise_id, weight, reps, muscle_group_id, performed_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID.String(), s.UserID, s.ExerciseID, s.Weight, s.Reps, group,
			formatTime(s.PerformedAt), formatTime(s.CreatedAt),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert set %s: %w", s.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

// ListSets returns sets with from < performed_at <= to, oldest first.
func (d *DB) ListSets(ctx context.Context, userID string, from, to time.Time) ([]*models.LoggedSet, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, exercise_id, weight, reps, muscle_group_id, performed_at, created_at
		FROM logged_sets
		WHERE user_id = ? AND performed_at > ? AND performed_at <= ?
		ORDER BY performed_at ASC, id ASC`,
		userID, formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var sets []*models.LoggedSet
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

func scanSet(rows *sql.Rows) (*models.LoggedSet, error) {
	var s models.LoggedSet
	var idStr, performedAt, createdAt string
	var group sql.NullString

	if err := rows.Scan(&idStr, &s.UserID, &s.ExerciseID, &s.Weight, &s.Reps, &group, &performedAt, &createdAt); err != nil {
		return nil, fmt.Errorf("scan set: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse set id: %w", err)
	}
	s.ID = id

	if s.PerformedAt, err = parseTime(performedAt); err != nil {
		return nil, fmt.Errorf("parse performed_at: %w", err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if group.Valid {
		g := group.String
		s.MuscleGroup = &g
	}

	return &s, nil
}
