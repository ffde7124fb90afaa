package models

import "time"

// SessionRow is a row ready for insertion into the sessions table.
type SessionRow struct {
	UserID      int
	SessionKey  string
	Name        string
	PerformedOn *time.Time
	Source      string
}

// WorkoutSetRow is a row ready for insertion into the workout_sets table.
type WorkoutSetRow struct {
	UserID           int
	SessionKey       string
	Exercise         string
	SeriesRole       SeriesRole
	SetIndex         int
	Reps             *int
	WeightKg         *float64
	Skipped          bool
	PerformedOn      *time.Time
	Region           string
	MusclesPrimary   []string
	MusclesSecondary []string
}

// Record converts a storage row back to the normalized form the analytics
// engines consume.
func (r WorkoutSetRow) Record() SetRecord {
	return SetRecord{
		SessionID:        r.SessionKey,
		Exercise:         r.Exercise,
		Role:             r.SeriesRole,
		SetIndex:         r.SetIndex,
		Reps:             r.Reps,
		WeightKg:         r.WeightKg,
		Skipped:          r.Skipped,
		PerformedAt:      r.PerformedOn,
		Region:           r.Region,
		MusclesPrimary:   r.MusclesPrimary,
		MusclesSecondary: r.MusclesSecondary,
	}
}

// SetRecords converts storage rows to analytics records.
func SetRecords(rows []WorkoutSetRow) []SetRecord {
	records := make([]SetRecord, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return records
}
