package analytics

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

// Formula identifies a one-rep-max estimation formula.
type Formula int

const (
	FormulaEpley Formula = iota
	FormulaBrzycki
	FormulaLander
	FormulaOConner
	FormulaBlend
)

// Formulas lists every supported formula in a stable order.
var Formulas = []Formula{FormulaEpley, FormulaBrzycki, FormulaLander, FormulaOConner, FormulaBlend}

func (f Formula) String() string {
	switch f {
	case FormulaEpley:
		return "epley"
	case FormulaBrzycki:
		return "brzycki"
	case FormulaLander:
		return "lander"
	case FormulaOConner:
		return "oconner"
	case FormulaBlend:
		return "blend"
	default:
		return fmt.Sprintf("formula(%d)", int(f))
	}
}

// ParseFormula maps a formula name to its Formula value. Unknown names are
// a validation error, never a silent default.
func ParseFormula(name string) (Formula, error) {
	switch name {
	case "epley":
		return FormulaEpley, nil
	case "brzycki":
		return FormulaBrzycki, nil
	case "lander":
		return FormulaLander, nil
	case "oconner":
		return FormulaOConner, nil
	case "blend":
		return FormulaBlend, nil
	default:
		return 0, fmt.Errorf("unknown one-rep-max formula %q", name)
	}
}

// Brzycki and Lander have singularities at high rep counts; past these
// bounds the estimate falls back to Epley.
const (
	brzyckiMaxReps = 36
	landerMaxReps  = 37
)

// OneRMCalculator estimates one-rep maxes. Formula warnings (range
// fallbacks, unusable inputs) are logged once per (formula, reason) pair
// per calculator; a nil logger suppresses them entirely.
type OneRMCalculator struct {
	log *slog.Logger

	mu     sync.Mutex
	warned map[string]struct{}
}

func NewOneRMCalculator(log *slog.Logger) *OneRMCalculator {
	return &OneRMCalculator{log: log, warned: make(map[string]struct{})}
}

func (c *OneRMCalculator) warnOnce(f Formula, reason string, args ...any) {
	if c.log == nil {
		return
	}
	key := f.String() + "/" + reason
	c.mu.Lock()
	_, seen := c.warned[key]
	if !seen {
		c.warned[key] = struct{}{}
	}
	c.mu.Unlock()
	if seen {
		return
	}
	c.log.Warn("one-rep-max estimate degraded",
		append([]any{"formula", f.String(), "reason", reason}, args...)...)
}

// Estimate computes the one-rep max for weight and reps under the given
// formula. Reps at or below zero return the weight itself. The bool result
// is false when no estimate is defined, which happens for non-positive
// weight.
func (c *OneRMCalculator) Estimate(f Formula, weightKg float64, reps int) (float64, bool) {
	if weightKg <= 0 {
		c.warnOnce(f, "non-positive weight", "weight_kg", weightKg)
		return 0, false
	}
	if reps <= 0 {
		return weightKg, true
	}
	r := float64(reps)
	switch f {
	case FormulaEpley:
		return weightKg * (1 + r/30), true
	case FormulaBrzycki:
		if reps > brzyckiMaxReps {
			c.warnOnce(FormulaBrzycki, "reps beyond formula range", "reps", reps)
			return weightKg * (1 + r/30), true
		}
		return weightKg / (1.0278 - 0.0278*r), true
	case FormulaLander:
		if reps > landerMaxReps {
			c.warnOnce(FormulaLander, "reps beyond formula range", "reps", reps)
			return weightKg * (1 + r/30), true
		}
		return 100 * weightKg / (101.3 - 2.67123*r), true
	case FormulaOConner:
		return weightKg * (1 + 0.025*r), true
	case FormulaBlend:
		epley, _ := c.Estimate(FormulaEpley, weightKg, reps)
		brzycki, _ := c.Estimate(FormulaBrzycki, weightKg, reps)
		lander, _ := c.Estimate(FormulaLander, weightKg, reps)
		oconner, _ := c.Estimate(FormulaOConner, weightKg, reps)
		return 0.4*epley + 0.4*brzycki + 0.2*(lander+oconner)/2, true
	default:
		c.warnOnce(f, "unsupported formula")
		return 0, false
	}
}

// EstimateSet computes the one-rep max for a normalized set. Skipped sets,
// non-working sets, and sets without weight or reps have no estimate.
func (c *OneRMCalculator) EstimateSet(f Formula, s models.SetRecord) (float64, bool) {
	if !s.IsWorking() || s.WeightKg == nil || s.Reps == nil {
		return 0, false
	}
	return c.Estimate(f, *s.WeightKg, *s.Reps)
}

// OneRMEstimate is a single estimate together with the set that produced it.
type OneRMEstimate struct {
	Value     float64    `json:"value"`
	SessionID string     `json:"session_id"`
	WeightKg  float64    `json:"weight_kg"`
	Reps      int        `json:"reps"`
	Date      *time.Time `json:"date,omitempty"`
}

// OneRMSetStats describes the working sets behind an exercise's estimates.
// Averages are over the estimated sets, Sessions counts distinct sessions.
type OneRMSetStats struct {
	MaxWeightKg float64 `json:"max_weight_kg"`
	AvgWeightKg float64 `json:"avg_weight_kg"`
	MinReps     int     `json:"min_reps"`
	MaxReps     int     `json:"max_reps"`
	AvgReps     float64 `json:"avg_reps"`
	Sessions    int     `json:"sessions"`
}

// ExerciseOneRM reports the best and most recent estimates for one exercise
// under one formula, with descriptive stats over the sets that produced them.
type ExerciseOneRM struct {
	Exercise   string         `json:"exercise"`
	Formula    string         `json:"formula"`
	Best       *OneRMEstimate `json:"best,omitempty"`
	Current    *OneRMEstimate `json:"current,omitempty"`
	SampleSets int            `json:"sample_sets"`
	Stats      *OneRMSetStats `json:"set_stats,omitempty"`
}

// ExerciseOneRM scans working sets of the exercise and reports the best
// estimate overall and the best of the chronologically last session.
func (c *OneRMCalculator) ExerciseOneRM(sets []models.SetRecord, exercise string, f Formula) ExerciseOneRM {
	tl := BuildTimeline(sets)
	out := ExerciseOneRM{Exercise: exercise, Formula: f.String()}

	lastPos := -1
	var weightSum, repsSum float64
	estimates := make(map[string][]OneRMEstimate) // session -> estimates
	for _, s := range sets {
		if s.Exercise != exercise {
			continue
		}
		v, ok := c.EstimateSet(f, s)
		if !ok {
			continue
		}
		out.SampleSets++
		est := OneRMEstimate{Value: round2(v), SessionID: s.SessionID, WeightKg: *s.WeightKg, Reps: *s.Reps}
		if d, ok := tl.Date(s.SessionID); ok {
			est.Date = &d
		}
		estimates[s.SessionID] = append(estimates[s.SessionID], est)
		if p := tl.Position(s.SessionID); p > lastPos {
			lastPos = p
		}
		if out.Best == nil || est.Value > out.Best.Value {
			b := est
			out.Best = &b
		}

		weightSum += est.WeightKg
		repsSum += float64(est.Reps)
		if out.Stats == nil {
			out.Stats = &OneRMSetStats{MaxWeightKg: est.WeightKg, MinReps: est.Reps, MaxReps: est.Reps}
		} else {
			out.Stats.MaxWeightKg = max(out.Stats.MaxWeightKg, est.WeightKg)
			out.Stats.MinReps = min(out.Stats.MinReps, est.Reps)
			out.Stats.MaxReps = max(out.Stats.MaxReps, est.Reps)
		}
	}

	if out.Stats != nil {
		out.Stats.AvgWeightKg = round2(weightSum / float64(out.SampleSets))
		out.Stats.AvgReps = round2(repsSum / float64(out.SampleSets))
		out.Stats.Sessions = len(estimates)
	}

	if lastPos >= 0 {
		lastID := tl.Sessions()[lastPos]
		for _, est := range estimates[lastID] {
			if out.Current == nil || est.Value > out.Current.Value {
				cur := est
				out.Current = &cur
			}
		}
	}
	return out
}

// EstimateRow is one set's estimates under each requested formula, keyed by
// formula name. Sets with no defined estimate under a formula carry no entry
// for it.
type EstimateRow struct {
	SessionID string             `json:"session_id"`
	Exercise  string             `json:"exercise"`
	WeightKg  *float64           `json:"weight_kg,omitempty"`
	Reps      *int               `json:"reps,omitempty"`
	Date      *time.Time         `json:"date,omitempty"`
	Estimates map[string]float64 `json:"estimates"`
}

// EstimateTable computes per-set estimates under each of the given formulas,
// one row per input set in input order. An empty formula list means all
// formulas.
func (c *OneRMCalculator) EstimateTable(sets []models.SetRecord, formulas []Formula) []EstimateRow {
	if len(formulas) == 0 {
		formulas = Formulas
	}
	tl := BuildTimeline(sets)
	out := make([]EstimateRow, 0, len(sets))
	for _, s := range sets {
		row := EstimateRow{
			SessionID: s.SessionID,
			Exercise:  s.Exercise,
			WeightKg:  s.WeightKg,
			Reps:      s.Reps,
			Estimates: make(map[string]float64, len(formulas)),
		}
		if d, ok := tl.Date(s.SessionID); ok {
			row.Date = &d
		}
		for _, f := range formulas {
			if v, ok := c.EstimateSet(f, s); ok {
				row.Estimates[f.String()] = round2(v)
			}
		}
		out = append(out, row)
	}
	return out
}

// AllOneRM reports per-exercise estimates for every exercise present in the
// sets, ordered by exercise name.
func (c *OneRMCalculator) AllOneRM(sets []models.SetRecord, f Formula) []ExerciseOneRM {
	exercises := exerciseNames(sets)
	out := make([]ExerciseOneRM, 0, len(exercises))
	for _, ex := range exercises {
		out = append(out, c.ExerciseOneRM(sets, ex, f))
	}
	return out
}

// BestByFormula returns the best estimate for the exercise under every
// formula, keyed by formula name. Exercises with no usable working sets
// yield an empty map.
func (c *OneRMCalculator) BestByFormula(sets []models.SetRecord, exercise string) map[string]float64 {
	out := make(map[string]float64, len(Formulas))
	for _, f := range Formulas {
		var best float64
		var found bool
		for _, s := range sets {
			if s.Exercise != exercise {
				continue
			}
			v, ok := c.EstimateSet(f, s)
			if !ok {
				continue
			}
			if !found || v > best {
				best = v
				found = true
			}
		}
		if found {
			out[f.String()] = round2(best)
		}
	}
	return out
}
