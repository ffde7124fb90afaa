package models

import (
	"strings"
	"time"
)

// SeriesRole classifies a set within a session.
type SeriesRole string

const (
	RoleWorkingSet SeriesRole = "working_set"
	RoleWarmup     SeriesRole = "warmup"
	RoleCooldown   SeriesRole = "cooldown"
	RoleUnknown    SeriesRole = "unknown"
)

// ParseSeriesRole maps raw series-type labels to a SeriesRole. It accepts
// both the normalized names and the labels found in log exports
// ("principale", "échauffement", "récupération"). Unrecognized labels
// map to RoleUnknown.
func ParseSeriesRole(raw string) SeriesRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "working_set", "principale", "work", "travail":
		return RoleWorkingSet
	case "warmup", "warm_up", "échauffement", "echauffement":
		return RoleWarmup
	case "cooldown", "cool_down", "récupération", "recuperation":
		return RoleCooldown
	default:
		return RoleUnknown
	}
}

// SetRecord is one normalized strength-training set. Reps and WeightKg are
// pointers because exports routinely omit them (bodyweight movements,
// skipped sets); analytics treat nil as missing, never as zero.
type SetRecord struct {
	SessionID        string     `json:"session_id"`
	Exercise         string     `json:"exercise"`
	Role             SeriesRole `json:"series_role"`
	SetIndex         int        `json:"set_index"`
	Reps             *int       `json:"reps,omitempty"`
	WeightKg         *float64   `json:"weight_kg,omitempty"`
	Skipped          bool       `json:"skipped"`
	PerformedAt      *time.Time `json:"performed_at,omitempty"`
	Region           string     `json:"region,omitempty"`
	MusclesPrimary   []string   `json:"muscles_primary,omitempty"`
	MusclesSecondary []string   `json:"muscles_secondary,omitempty"`
}

// IsWorking reports whether the set is a non-skipped working set, the only
// kind that feeds one-rep-max and progression analytics.
func (s SetRecord) IsWorking() bool {
	return !s.Skipped && s.Role == RoleWorkingSet
}

// SessionRecord is one training session as stored, independent of its sets.
type SessionRecord struct {
	SessionID   string     `json:"session_id"`
	Name        string     `json:"name,omitempty"`
	PerformedAt *time.Time `json:"performed_at,omitempty"`
	Source      string     `json:"source,omitempty"`
}
