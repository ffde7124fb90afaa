package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

// InsertWorkoutSets batch-inserts normalized set rows. Returns count inserted.
// Rows that collide on (user_id, session_key, exercise, set_index) are skipped,
// so re-importing the same export file is a no-op.
func (db *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO workout_sets (user_id, session_key, exercise, series_role,
		set_index, reps, weight_kg, skipped, performed_on, region,
		muscles_primary, muscles_secondary) VALUES `
	args := make([]any, 0, len(rows)*12)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 12
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args, r.UserID, r.SessionKey, r.Exercise, string(r.SeriesRole),
			r.SetIndex, r.Reps, r.WeightKg, r.Skipped, r.PerformedOn,
			r.Region, r.MusclesPrimary, r.MusclesSecondary)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

const workoutSetColumns = `user_id, session_key, exercise, series_role,
		set_index, reps, weight_kg, skipped, performed_on, region,
		muscles_primary, muscles_secondary`

// QueryWorkoutSets retrieves all of a user's sets, optionally filtered to one
// exercise. Ordering matches the analytics engines' expectations: session date
// first (dateless sessions last), then session key, then set position.
func (db *DB) QueryWorkoutSets(ctx context.Context, userID int, exercise string) ([]models.WorkoutSetRow, error) {
	query := `SELECT ` + workoutSetColumns + `
		 FROM workout_sets
		 WHERE user_id = $1`
	args := []any{userID}
	if exercise != "" {
		query += ` AND exercise = $2`
		args = append(args, exercise)
	}
	query += ` ORDER BY performed_on ASC NULLS LAST, session_key ASC, exercise ASC, set_index ASC`

	return db.queryWorkoutSets(ctx, query, args...)
}

// QueryWorkoutSetsRange retrieves a user's sets with a session date inside
// [start, end). Sets from dateless sessions are excluded.
func (db *DB) QueryWorkoutSetsRange(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSetRow, error) {
	return db.queryWorkoutSets(ctx,
		`SELECT `+workoutSetColumns+`
		 FROM workout_sets
		 WHERE user_id = $1 AND performed_on >= $2 AND performed_on < $3
		 ORDER BY performed_on ASC, session_key ASC, exercise ASC, set_index ASC`,
		userID, start, end)
}

func (db *DB) queryWorkoutSets(ctx context.Context, query string, args ...any) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		var role string
		if err := rows.Scan(&r.UserID, &r.SessionKey, &r.Exercise, &role,
			&r.SetIndex, &r.Reps, &r.WeightKg, &r.Skipped, &r.PerformedOn,
			&r.Region, &r.MusclesPrimary, &r.MusclesSecondary); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		r.SeriesRole = models.SeriesRole(role)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListExercises returns the distinct exercise names a user has logged,
// alphabetically.
func (db *DB) ListExercises(ctx context.Context, userID int) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT exercise FROM workout_sets WHERE user_id = $1 ORDER BY exercise`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning exercise name: %w", err)
		}
		result = append(result, name)
	}
	return result, rows.Err()
}
