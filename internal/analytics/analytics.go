// Package analytics implements the feature and progression engines that
// turn normalized set records into training insights: volume aggregates,
// one-rep-max estimates, trend and plateau detection, and derived
// per-set and per-session features.
package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Options tunes the analytics engines. The zero value is usable; any field
// left at zero falls back to its default, except WeekStart, whose zero
// value (Sunday) is itself a valid choice. DefaultOptions uses Monday.
type Options struct {
	// Formula is the estimation formula used wherever a single one-rep-max
	// series is needed (progression, plateaus, performance metrics).
	Formula Formula

	// WeekStart is the weekday weekly volume buckets begin on.
	WeekStart time.Weekday

	SecondsPerRep float64 // estimated seconds per repetition
	RestSeconds   float64 // estimated rest after each set, seconds

	RollingWindow  int // sessions in a rolling-volume window
	MinTrendPoints int // points required for a formal linear trend

	PlateauWindow     int     // trailing sessions inspected for a plateau
	PlateauCV         float64 // coefficient-of-variation bound
	PlateauSlopeRatio float64 // slope bound as a fraction of the window mean
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		Formula:           FormulaEpley,
		WeekStart:         time.Monday,
		SecondsPerRep:     4,
		RestSeconds:       60,
		RollingWindow:     7,
		MinTrendPoints:    5,
		PlateauWindow:     5,
		PlateauCV:         0.02,
		PlateauSlopeRatio: 0.01,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SecondsPerRep <= 0 {
		o.SecondsPerRep = def.SecondsPerRep
	}
	if o.RestSeconds <= 0 {
		o.RestSeconds = def.RestSeconds
	}
	if o.RollingWindow < 1 {
		o.RollingWindow = def.RollingWindow
	}
	if o.MinTrendPoints < 2 {
		o.MinTrendPoints = def.MinTrendPoints
	}
	if o.PlateauWindow < 2 {
		o.PlateauWindow = def.PlateauWindow
	}
	if o.PlateauCV <= 0 {
		o.PlateauCV = def.PlateauCV
	}
	if o.PlateauSlopeRatio <= 0 {
		o.PlateauSlopeRatio = def.PlateauSlopeRatio
	}
	return o
}

// ParseWeekday maps a weekday name ("monday", "Mon", ...) to its
// time.Weekday. Unknown names are a validation error, never a silent
// default.
func ParseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
}
