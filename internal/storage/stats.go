package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored data.
type DataStats struct {
	TotalSets       int64          `json:"total_sets"`
	WorkingSets     int64          `json:"working_sets"`
	TotalSessions   int64          `json:"total_sessions"`
	TotalExercises  int64          `json:"total_exercises"`
	EarliestSession *time.Time     `json:"earliest_session"`
	LatestSession   *time.Time     `json:"latest_session"`
	SetsByExercise  []ExerciseStat `json:"sets_by_exercise"`
}

// ExerciseStat holds summary stats for a single exercise.
type ExerciseStat struct {
	Name        string   `json:"name"`
	Sets        int64    `json:"sets"`
	Sessions    int64    `json:"sessions"`
	MaxWeightKg *float64 `json:"max_weight_kg,omitempty"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	// Set counts
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE series_role = 'working_set' AND NOT skipped)
		 FROM workout_sets WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSets, &stats.WorkingSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	// Sessions and distinct exercises
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSessions)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT exercise) FROM workout_sets WHERE user_id = $1`, userID,
	).Scan(&stats.TotalExercises)
	if err != nil {
		return nil, fmt.Errorf("counting exercises: %w", err)
	}

	// Date range over dated sessions
	err = db.Pool.QueryRow(ctx,
		`SELECT MIN(performed_on), MAX(performed_on)
		 FROM sessions WHERE user_id = $1 AND performed_on IS NOT NULL`, userID,
	).Scan(&stats.EarliestSession, &stats.LatestSession)
	if err != nil {
		return nil, fmt.Errorf("querying date range: %w", err)
	}

	// Sets by exercise
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise, COUNT(*), COUNT(DISTINCT session_key), MAX(weight_kg)
		 FROM workout_sets
		 WHERE user_id = $1
		 GROUP BY exercise
		 ORDER BY COUNT(*) DESC, exercise ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets by exercise: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseStat
		if err := rows.Scan(&s.Name, &s.Sets, &s.Sessions, &s.MaxWeightKg); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.SetsByExercise = append(stats.SetsByExercise, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
