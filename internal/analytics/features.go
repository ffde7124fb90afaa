package analytics

import (
	"log/slog"
	"math"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

// FeatureCalculator derives per-set and per-session features and assembles
// the complete analysis document.
type FeatureCalculator struct {
	opts  Options
	onerm *OneRMCalculator
	prog  *ProgressionAnalyzer
}

func NewFeatureCalculator(opts Options, log *slog.Logger) *FeatureCalculator {
	return &FeatureCalculator{
		opts:  opts.withDefaults(),
		onerm: NewOneRMCalculator(log),
		prog:  NewProgressionAnalyzer(opts, log),
	}
}

// EstimatedSetDuration estimates how long a set takes in seconds, including
// the rest that follows it. Sets without a positive rep count have no
// duration.
func (c *FeatureCalculator) EstimatedSetDuration(reps int) (float64, bool) {
	if reps <= 0 {
		return 0, false
	}
	return float64(reps)*c.opts.SecondsPerRep + c.opts.RestSeconds, true
}

// RelativeIntensity is a set's weight as a fraction of the heaviest working
// set of the same exercise in the dataset. Undefined when that maximum is
// not positive or the set has no weight.
func (c *FeatureCalculator) RelativeIntensity(s models.SetRecord, maxWorkingWeight float64) (float64, bool) {
	if s.WeightKg == nil || maxWorkingWeight <= 0 {
		return 0, false
	}
	return *s.WeightKg / maxWorkingWeight, true
}

// MaxWorkingWeights returns, per exercise, the heaviest weight lifted in a
// non-skipped working set.
func MaxWorkingWeights(sets []models.SetRecord) map[string]float64 {
	out := make(map[string]float64)
	for _, s := range sets {
		if !s.IsWorking() || s.WeightKg == nil {
			continue
		}
		if cur, ok := out[s.Exercise]; !ok || *s.WeightKg > cur {
			out[s.Exercise] = *s.WeightKg
		}
	}
	return out
}

// SetFeatures is one set annotated with its derived features. Duration and
// RelativeIntensity are nil when undefined.
type SetFeatures struct {
	SessionID         string   `json:"session_id"`
	Exercise          string   `json:"exercise"`
	SetIndex          int      `json:"set_index"`
	Volume            float64  `json:"volume"`
	DurationSec       *float64 `json:"estimated_duration_sec,omitempty"`
	RelativeIntensity *float64 `json:"relative_intensity,omitempty"`
}

// AnnotateSets computes per-set features for the whole dataset, preserving
// input order.
func (c *FeatureCalculator) AnnotateSets(sets []models.SetRecord) []SetFeatures {
	maxes := MaxWorkingWeights(sets)
	out := make([]SetFeatures, 0, len(sets))
	for _, s := range sets {
		f := SetFeatures{
			SessionID: s.SessionID,
			Exercise:  s.Exercise,
			SetIndex:  s.SetIndex,
			Volume:    round2(SetVolume(s)),
		}
		if s.Reps != nil {
			if d, ok := c.EstimatedSetDuration(*s.Reps); ok {
				f.DurationSec = &d
			}
		}
		if ri, ok := c.RelativeIntensity(s, maxes[s.Exercise]); ok {
			ri = round2(ri)
			f.RelativeIntensity = &ri
		}
		out = append(out, f)
	}
	return out
}

// FatigueIndex is the drop-off (or ramp-up) between the first and last
// working set of an exercise within one session, as percent change of
// weight and reps. Either field is nil when the first value is zero or
// missing; the whole comparison needs at least two working sets.
type FatigueIndex struct {
	SessionID       string   `json:"session_id"`
	Exercise        string   `json:"exercise"`
	WorkingSets     int      `json:"working_sets"`
	WeightChangePct *float64 `json:"weight_change_pct,omitempty"`
	RepsChangePct   *float64 `json:"reps_change_pct,omitempty"`
}

// FatigueIndexes computes the fatigue index for every (session, exercise)
// pair with enough working sets, ordered chronologically.
func (c *FeatureCalculator) FatigueIndexes(sets []models.SetRecord) []FatigueIndex {
	tl := BuildTimeline(sets)
	ordered := sortSetsChrono(tl, sets)

	type key struct{ session, exercise string }
	var keys []key
	grouped := make(map[key][]models.SetRecord)
	for _, s := range ordered {
		if !s.IsWorking() {
			continue
		}
		k := key{s.SessionID, s.Exercise}
		if _, ok := grouped[k]; !ok {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], s)
	}

	out := make([]FatigueIndex, 0, len(keys))
	for _, k := range keys {
		group := grouped[k]
		fi := FatigueIndex{SessionID: k.session, Exercise: k.exercise, WorkingSets: len(group)}
		if len(group) >= 2 {
			first, last := group[0], group[len(group)-1]
			fi.WeightChangePct = pctChange(first.WeightKg, last.WeightKg)
			fi.RepsChangePct = pctChangeInt(first.Reps, last.Reps)
		}
		out = append(out, fi)
	}
	return out
}

func pctChange(first, last *float64) *float64 {
	if first == nil || last == nil || *first == 0 {
		return nil
	}
	pct := round2((*last - *first) / *first * 100)
	return &pct
}

func pctChangeInt(first, last *int) *float64 {
	if first == nil || last == nil || *first == 0 {
		return nil
	}
	pct := round2(float64(*last-*first) / float64(*first) * 100)
	return &pct
}

// SessionSummary is the per-session report: volume, set mix, duration
// estimate, density, and fatigue.
type SessionSummary struct {
	SessionID            string         `json:"session_id"`
	Date                 *time.Time     `json:"date,omitempty"`
	TotalVolume          float64        `json:"total_volume"`
	TotalSets            int            `json:"total_sets"`
	WorkingSets          int            `json:"working_sets"`
	WarmupSets           int            `json:"warmup_sets"`
	CooldownSets         int            `json:"cooldown_sets"`
	SkippedSets          int            `json:"skipped_sets"`
	Exercises            []string       `json:"exercises"`
	EstimatedDurationMin float64        `json:"estimated_duration_min"`
	VolumeDensity        *float64       `json:"volume_density_kg_per_min,omitempty"`
	Fatigue              []FatigueIndex `json:"fatigue"`
}

// SessionSummaries builds one summary per session in chronological order.
// Skipped sets count toward the set mix but not toward duration or volume.
func (c *FeatureCalculator) SessionSummaries(sets []models.SetRecord) []SessionSummary {
	tl := BuildTimeline(sets)
	fatigue := c.FatigueIndexes(sets)

	bySession := make(map[string][]models.SetRecord)
	for _, s := range sets {
		bySession[s.SessionID] = append(bySession[s.SessionID], s)
	}

	out := make([]SessionSummary, 0, len(bySession))
	for _, id := range tl.Sessions() {
		group := bySession[id]
		sum := SessionSummary{SessionID: id, TotalSets: len(group), Fatigue: []FatigueIndex{}}
		if d, ok := tl.Date(id); ok {
			sum.Date = &d
		}

		seenEx := make(map[string]struct{})
		var durationSec float64
		for _, s := range group {
			sum.TotalVolume += SetVolume(s)
			if s.Skipped {
				sum.SkippedSets++
			} else {
				switch s.Role {
				case models.RoleWorkingSet:
					sum.WorkingSets++
				case models.RoleWarmup:
					sum.WarmupSets++
				case models.RoleCooldown:
					sum.CooldownSets++
				}
			}
			if _, ok := seenEx[s.Exercise]; !ok {
				seenEx[s.Exercise] = struct{}{}
				sum.Exercises = append(sum.Exercises, s.Exercise)
			}
			if !s.Skipped && s.Reps != nil {
				if d, ok := c.EstimatedSetDuration(*s.Reps); ok {
					durationSec += d
				}
			}
		}
		sum.TotalVolume = round2(sum.TotalVolume)
		sum.EstimatedDurationMin = round2(durationSec / 60)
		if durationSec > 0 {
			density := round2(sum.TotalVolume / (durationSec / 60))
			sum.VolumeDensity = &density
		}
		for _, fi := range fatigue {
			if fi.SessionID == id {
				sum.Fatigue = append(sum.Fatigue, fi)
			}
		}
		out = append(out, sum)
	}
	return out
}

// ExerciseReport is the condensed per-exercise block of the complete
// analysis.
type ExerciseReport struct {
	Exercise         string   `json:"exercise"`
	TotalVolume      float64  `json:"total_volume"`
	AvgVolumePerSet  float64  `json:"avg_volume_per_set"`
	Best1RMEpley     *float64 `json:"best_1rm_epley,omitempty"`
	Best1RMBrzycki   *float64 `json:"best_1rm_brzycki,omitempty"`
	Best1RMLander    *float64 `json:"best_1rm_lander,omitempty"`
	Best1RMOConner   *float64 `json:"best_1rm_oconner,omitempty"`
	Best1RMBlend     *float64 `json:"best_1rm_blend,omitempty"`
	ProgressionTrend string   `json:"progression_trend"`
	PlateauDetected  bool     `json:"plateau_detected"`
	DaysSinceLastPR  *int     `json:"days_since_last_pr,omitempty"`
}

// GlobalMetrics aggregates progression across every exercise. An exercise is
// progressing when its total one-rep-max gain exceeds 5 percent. The mean is
// over exercises with a measurable change.
type GlobalMetrics struct {
	Progressing        int     `json:"exercises_progressing"`
	Plateaued          int     `json:"exercises_plateaued"`
	MeanProgressionPct float64 `json:"mean_progression_pct"`
}

// CompleteAnalysis is the full analytics document for a dataset.
type CompleteAnalysis struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	Volume          VolumeSummary        `json:"volume_summary"`
	Global          GlobalMetrics        `json:"global_metrics"`
	Exercises       []ExerciseReport     `json:"exercises"`
	Metrics         []PerformanceMetrics `json:"performance_metrics"`
	VolumeTrends    []VolumeTrend        `json:"volume_trends"`
	Recommendations []Recommendation     `json:"recommendations"`
	SyntheticDates  bool                 `json:"synthetic_dates"`
}

func globalMetrics(metrics []PerformanceMetrics) GlobalMetrics {
	var g GlobalMetrics
	var sum float64
	var measured int
	for _, m := range metrics {
		if m.PlateauDetected {
			g.Plateaued++
		}
		if m.ChangePct == nil {
			continue
		}
		if *m.ChangePct > 5 {
			g.Progressing++
		}
		sum += *m.ChangePct
		measured++
	}
	if measured > 0 {
		g.MeanProgressionPct = round2(sum / float64(measured))
	}
	return g
}

// Analyze runs every engine over the dataset and assembles the complete
// analysis document.
func (c *FeatureCalculator) Analyze(sets []models.SetRecord, trendDays int) CompleteAnalysis {
	tl := BuildTimeline(sets)
	out := CompleteAnalysis{
		GeneratedAt:    time.Now().UTC(),
		Volume:         SummarizeVolume(sets),
		Exercises:      []ExerciseReport{},
		SyntheticDates: tl.Synthetic,
	}

	out.Metrics = c.prog.AllMetrics(sets)
	out.Global = globalMetrics(out.Metrics)
	out.VolumeTrends = c.prog.VolumeTrends(sets, trendDays)
	out.Recommendations = c.prog.Recommend(out.Metrics, out.VolumeTrends)

	metricsByEx := make(map[string]PerformanceMetrics, len(out.Metrics))
	for _, m := range out.Metrics {
		metricsByEx[m.Exercise] = m
	}

	for _, ex := range exerciseNames(sets) {
		rep := ExerciseReport{Exercise: ex, ProgressionTrend: TrendUnknown}

		var vol float64
		var count int
		for _, s := range sets {
			if s.Exercise != ex {
				continue
			}
			vol += SetVolume(s)
			count++
		}
		rep.TotalVolume = round2(vol)
		if count > 0 {
			rep.AvgVolumePerSet = round2(rep.TotalVolume / float64(count))
		}

		best := c.onerm.BestByFormula(sets, ex)
		rep.Best1RMEpley = bestValue(best, FormulaEpley)
		rep.Best1RMBrzycki = bestValue(best, FormulaBrzycki)
		rep.Best1RMLander = bestValue(best, FormulaLander)
		rep.Best1RMOConner = bestValue(best, FormulaOConner)
		rep.Best1RMBlend = bestValue(best, FormulaBlend)

		if m, ok := metricsByEx[ex]; ok {
			rep.PlateauDetected = m.PlateauDetected
			rep.DaysSinceLastPR = m.DaysSinceLastPR
			rep.ProgressionTrend = c.classifyProgression(sets, ex)
		}
		out.Exercises = append(out.Exercises, rep)
	}
	return out
}

// classifyProgression labels the direction of an exercise's one-rep-max
// series: the fitted change over the whole history relative to its mean.
func (c *FeatureCalculator) classifyProgression(sets []models.SetRecord, exercise string) string {
	prog := c.prog.Progression(sets, exercise)
	values := make([]float64, len(prog.Points))
	for i, p := range prog.Points {
		values[i] = p.BestOneRM
	}
	slope, mean, ok := olsSlope(values)
	if !ok || mean <= 0 {
		return TrendUnknown
	}
	pct := slope / mean * 100 * float64(len(values))
	return classifyTrendPct(math.Max(-100, math.Min(100, pct)))
}

func bestValue(m map[string]float64, f Formula) *float64 {
	v, ok := m[f.String()]
	if !ok {
		return nil
	}
	return &v
}
