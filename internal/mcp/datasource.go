package mcp

import (
	"context"
	"time"

	"github.com/meltforce/repsight/internal/models"
	"github.com/meltforce/repsight/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface; the analytics
// engines run on the returned rows either way.
type DataSource interface {
	QueryWorkoutSets(ctx context.Context, userID int, exercise string) ([]models.WorkoutSetRow, error)
	QueryWorkoutSetsRange(ctx context.Context, userID int, start, end time.Time) ([]models.WorkoutSetRow, error)
	ListExercises(ctx context.Context, userID int) ([]string, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
