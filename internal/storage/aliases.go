package storage

import (
	"context"
	"fmt"
)

// ExerciseAlias maps a raw exercise name from an export file to its canonical
// form. Disabled aliases are kept for reference but not applied.
type ExerciseAlias struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
	Enabled   bool   `json:"enabled"`
}

// GetExerciseAliases returns all exercise aliases.
func (db *DB) GetExerciseAliases(ctx context.Context) ([]ExerciseAlias, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT alias, canonical, enabled FROM exercise_aliases ORDER BY canonical, alias`)
	if err != nil {
		return nil, fmt.Errorf("querying exercise aliases: %w", err)
	}
	defer rows.Close()

	var result []ExerciseAlias
	for rows.Next() {
		var a ExerciseAlias
		if err := rows.Scan(&a.Alias, &a.Canonical, &a.Enabled); err != nil {
			return nil, fmt.Errorf("scanning exercise alias: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AliasMap returns the enabled aliases as a lookup map.
func (db *DB) AliasMap(ctx context.Context) (map[string]string, error) {
	aliases, err := db.GetExerciseAliases(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(aliases))
	for _, a := range aliases {
		if a.Enabled {
			m[a.Alias] = a.Canonical
		}
	}
	return m, nil
}
