package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/meltforce/repsight/internal/models"
)

// InsertSessions batch-upserts session rows. A session that already exists for
// the user keeps its row but picks up a date or name the earlier import was
// missing. Returns the number of rows written.
func (db *DB) InsertSessions(ctx context.Context, rows []models.SessionRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO sessions (user_id, session_key, name, performed_on, source) VALUES `
	args := make([]any, 0, len(rows)*5)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 5
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5,
		))
		args = append(args, r.UserID, r.SessionKey, r.Name, r.PerformedOn, r.Source)
	}

	query += strings.Join(valueStrings, ",") + ` ON CONFLICT (user_id, session_key) DO UPDATE
		SET performed_on = COALESCE(EXCLUDED.performed_on, sessions.performed_on),
		    name = COALESCE(NULLIF(EXCLUDED.name, ''), sessions.name)`

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QuerySessions returns a user's sessions, oldest first, dateless sessions last.
func (db *DB) QuerySessions(ctx context.Context, userID int) ([]models.SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, session_key, name, performed_on, source
		 FROM sessions
		 WHERE user_id = $1
		 ORDER BY performed_on ASC NULLS LAST, session_key ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		var r models.SessionRow
		if err := rows.Scan(&r.UserID, &r.SessionKey, &r.Name, &r.PerformedOn, &r.Source); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
