// ABOUTME: Reads the seeded catalog tables back into an immutable Catalog.
// ABOUTME: SQLite side of Store.LoadCatalog.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/liftlog/internal/catalog"
)

// LoadCatalog builds a Catalog from muscle_ratio and exercise_muscles.
func (d *DB) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	ratioRows, err := d.db.QueryContext(ctx,
		`SELECT muscle_group, muscle_name, ratio FROM muscle_ratio ORDER BY muscle_group, muscle_name`)
	if err != nil {
		return nil, fmt.Errorf("list muscle ratios: %w", err)
	}
	defer ratioRows.Close()

	var ratios []catalog.RatioRow
	for ratioRows.Next() {
		var r catalog.RatioRow
		if err := ratioRows.Scan(&r.MuscleGroup, &r.Muscle, &r.Ratio); err != nil {
			return nil, fmt.Errorf("scan muscle ratio: %w", err)
		}
		ratios = append(ratios, r)
	}
	if err := ratioRows.Err(); err != nil {
		return nil, err
	}

	emRows, err := d.db.QueryContext(ctx,
		`SELECT exercise_id, muscle_id, muscle_group_id, intensity FROM exercise_muscles ORDER BY exercise_id, muscle_id`)
	if err != nil {
		return nil, fmt.Errorf("list exercise muscles: %w", err)
	}
	defer emRows.Close()

	var exerciseMuscles []catalog.ExerciseMuscleRow
	for emRows.Next() {
		var em catalog.ExerciseMuscleRow
		var group sql.NullString
		if err := emRows.Scan(&em.ExerciseID, &em.Muscle, &group, &em.Intensity); err != nil {
			return nil, fmt.Errorf("scan exercise muscle: %w", err)
		}
		em.MuscleGroup = group.String
		exerciseMuscles = append(exerciseMuscles, em)
	}
	if err := emRows.Err(); err != nil {
		return nil, err
	}

	return catalog.New(ratios, exerciseMuscles), nil
}
