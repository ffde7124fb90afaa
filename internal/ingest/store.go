package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/meltforce/repsight/internal/models"
	"github.com/meltforce/repsight/internal/storage"
)

// Store normalizes parsed rows the rest of the way and writes them. Rows
// without a parseable date are dropped and counted. Session identity is
// (date, training name); set indexes are assigned per (session, exercise)
// in file order, so re-importing the same export hits the unique key and
// inserts nothing new.
func Store(ctx context.Context, db *storage.DB, log *slog.Logger, userID int, source string, rows []Row) (*Result, error) {
	result := &Result{}

	aliases, err := db.AliasMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exercise aliases: %w", err)
	}
	lowerAliases := make(map[string]string, len(aliases))
	for alias, canonical := range aliases {
		lowerAliases[strings.ToLower(alias)] = canonical
	}

	sessions := make(map[string]models.SessionRow)
	setIndex := make(map[string]int) // session key + exercise -> next index
	var setRows []models.WorkoutSetRow

	for _, row := range rows {
		if row.Date == nil {
			result.RowsDropped++
			continue
		}

		exercise := canonicalWithAliases(row.Exercise, lowerAliases, result)

		training := row.Training
		if training == "" {
			training = "session"
		}
		key := row.Date.Format("2006-01-02") + "/" + training
		if _, ok := sessions[key]; !ok {
			sessions[key] = models.SessionRow{
				UserID:      userID,
				SessionKey:  key,
				Name:        training,
				PerformedOn: row.Date,
				Source:      source,
			}
		}

		idxKey := key + "\x00" + exercise
		setIndex[idxKey]++

		setRows = append(setRows, models.WorkoutSetRow{
			UserID:           userID,
			SessionKey:       key,
			Exercise:         exercise,
			SeriesRole:       row.Role,
			SetIndex:         setIndex[idxKey],
			Reps:             intPtrOrNil(row.Reps),
			WeightKg:         floatPtrOrNil(row.WeightKg),
			Skipped:          row.Skipped,
			PerformedOn:      row.Date,
			Region:           NormalizeRegion(row.Region),
			MusclesPrimary:   row.MusclesPrimary,
			MusclesSecondary: row.MusclesSecondary,
		})
	}

	sessionRows := make([]models.SessionRow, 0, len(sessions))
	for _, row := range sessions {
		sessionRows = append(sessionRows, row)
	}
	slices.SortFunc(sessionRows, func(a, b models.SessionRow) int {
		return strings.Compare(a.SessionKey, b.SessionKey)
	})

	sessionsInserted, err := db.InsertSessions(ctx, sessionRows)
	if err != nil {
		return nil, fmt.Errorf("inserting sessions: %w", err)
	}
	setsInserted, err := db.InsertWorkoutSets(ctx, setRows)
	if err != nil {
		return nil, fmt.Errorf("inserting sets: %w", err)
	}

	result.SetsReceived = len(setRows)
	result.SetsInserted = setsInserted
	result.SetsSkipped = int64(len(setRows)) - setsInserted
	result.SessionsSeen = len(sessionRows)
	result.SessionsInserted = sessionsInserted
	if result.RowsDropped > 0 {
		result.Message = fmt.Sprintf("dropped %d rows without a parseable date", result.RowsDropped)
		log.Warn("dropped undated rows", "count", result.RowsDropped, "source", source)
	}
	return result, nil
}

// canonicalWithAliases resolves an exercise name. The alias table wins over
// the built-in canonicalization so users can correct mappings without a
// re-deploy; lookups are case-insensitive on the cleaned label.
func canonicalWithAliases(raw string, lowerAliases map[string]string, result *Result) string {
	cleaned := CleanText(raw)
	if canonical, ok := lowerAliases[strings.ToLower(cleaned)]; ok {
		result.AliasesApplied++
		return canonical
	}
	return CanonicalExercise(cleaned)
}

func intPtrOrNil(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

func floatPtrOrNil(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
