package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/repsight/internal/storage"
)

// ReapplyAliases renames stored sets whose exercise matches an enabled alias.
// This covers rows imported before the alias existed, so the same movement
// aggregates under one name without a re-import.
//
// Rows whose rename would collide with the (user, session, exercise, set_index)
// unique key are left alone: that session already logged the movement under
// both names, and merging them would silently drop sets.
func ReapplyAliases(ctx context.Context, db *storage.DB, log *slog.Logger) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_sets ws
		 SET exercise = ea.canonical
		 FROM exercise_aliases ea
		 WHERE ea.enabled
		   AND lower(ws.exercise) = lower(ea.alias)
		   AND ws.exercise <> ea.canonical
		   AND NOT EXISTS (
		       SELECT 1 FROM workout_sets dup
		       WHERE dup.user_id = ws.user_id
		         AND dup.session_key = ws.session_key
		         AND dup.exercise = ea.canonical
		         AND dup.set_index = ws.set_index
		   )`)
	if err != nil {
		return 0, fmt.Errorf("renaming aliased exercises: %w", err)
	}

	updated := tag.RowsAffected()
	if updated > 0 {
		log.Info("reapplied exercise aliases", "sets_renamed", updated)
	}
	return updated, nil
}
