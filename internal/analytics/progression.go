package analytics

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meltforce/repsight/internal/models"
)

// ProgressionAnalyzer detects trends, plateaus, and regressions in training
// data. One-rep-max series use the formula configured in Options.
type ProgressionAnalyzer struct {
	opts  Options
	log   *slog.Logger
	onerm *OneRMCalculator
}

func NewProgressionAnalyzer(opts Options, log *slog.Logger) *ProgressionAnalyzer {
	return &ProgressionAnalyzer{
		opts:  opts.withDefaults(),
		log:   log,
		onerm: NewOneRMCalculator(log),
	}
}

// TrendResult is an ordinary-least-squares fit over a series. OK is false
// when the fit is not meaningful: too few points, or no x variance.
type TrendResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	PValue    float64 `json:"p_value"`
	N         int     `json:"n"`
	OK        bool    `json:"ok"`
}

// LinearTrend fits ys against xs and reports slope, intercept, R², and the
// two-sided p-value of the slope. Fewer than the configured minimum number
// of points, or a degenerate x axis, yields a zero trend with OK false. A
// perfectly flat series is a valid zero-slope trend with R² 0 and p 1.
func (a *ProgressionAnalyzer) LinearTrend(xs, ys []float64) TrendResult {
	n := len(ys)
	res := TrendResult{N: n, PValue: 1}
	if len(xs) != n || n < a.opts.MinTrendPoints {
		return res
	}

	sxx := stat.Variance(xs, nil) * float64(n-1)
	if sxx == 0 {
		return res
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	res.Intercept = alpha

	sst := stat.Variance(ys, nil) * float64(n-1)
	if sst == 0 {
		res.OK = true
		return res
	}

	res.Slope = beta
	res.R2 = stat.RSquared(xs, ys, nil, alpha, beta)
	res.OK = true

	sse := (1 - res.R2) * sst
	if sse <= 0 {
		// Perfect fit: the slope is exact.
		res.R2 = 1
		res.PValue = 0
		return res
	}
	se := math.Sqrt(sse / float64(n-2) / sxx)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	res.PValue = 2 * t.CDF(-math.Abs(beta/se))
	return res
}

// olsSlope fits values against their indexes without the minimum-points
// gate. Used for plateau windows and trend percentages, where short series
// are expected.
func olsSlope(values []float64) (slope, mean float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	xs := indexXs(len(values))
	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta, stat.Mean(values, nil), true
}

func indexXs(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

// ProgressionPoint is one session of an exercise's history. RollingMean
// smooths the one-rep-max series over the trailing window; ProgressionAbs
// and ProgressionPct measure the change since the first session, so the
// first point is always 0/0. TrendSlope is the slope over the history up
// to and including this point, valid once TrendOK is true.
type ProgressionPoint struct {
	SessionID      string    `json:"session_id"`
	Date           time.Time `json:"date"`
	BestOneRM      float64   `json:"best_1rm"`
	TotalVolume    float64   `json:"total_volume"`
	AvgWeightKg    float64   `json:"avg_weight_kg"`
	RollingMean    float64   `json:"rolling_mean"`
	ProgressionAbs float64   `json:"progression_abs"`
	ProgressionPct float64   `json:"progression_pct"`
	TrendSlope     float64   `json:"trend_slope"`
	TrendOK        bool      `json:"trend_ok"`
}

// ExerciseProgression is the session-by-session history of one exercise,
// built from working sets only.
type ExerciseProgression struct {
	Exercise       string             `json:"exercise"`
	Formula        string             `json:"formula"`
	Points         []ProgressionPoint `json:"points"`
	SyntheticDates bool               `json:"synthetic_dates"`
}

/// Progression builds the per-session history of an exercise: best one-rep
// max, working volume, and mean weight, with a prefix trend per point.
func (a *ProgressionAnalyzer) Progression(sets []models.SetRecord, exercise string) ExerciseProgression {
	tl := BuildTimeline(sets)
	out := ExerciseProgression{
		Exercise:       exercise,
		Formula:        a.opts.Formula.String(),
		Points:         []ProgressionPoint{},
		SyntheticDates: tl.Synthetic,
	}

	type acc struct {
		best      float64
		hasBest   bool
		volume    float64
		weightSum float64
		weightN   int
	}
	bySession := make(map[string]*acc)
	for _, s := range sets {
		if s.Exercise != exercise || !s.IsWorking() {
			continue
		}
		ac := bySession[s.SessionID]
		if ac == nil {
			ac = &acc{}
			bySession[s.SessionID] = ac
		}
		ac.volume += SetVolume(s)
		if s.WeightKg != nil {
			ac.weightSum += *s.WeightKg
			ac.weightN++
		}
		if v, ok := a.onerm.EstimateSet(a.opts.Formula, s); ok && (!ac.hasBest || v > ac.best) {
			ac.best = v
			ac.hasBest = true
		}
	}

	for _, id := range tl.Sessions() {
		ac := bySession[id]
		if ac == nil || !ac.hasBest {
			continue
		}
		d, _ := tl.Date(id)
		p := ProgressionPoint{
			SessionID:   id,
			Date:        d,
			BestOneRM:   round2(ac.best),
			TotalVolume: round2(ac.volume),
		}
		if ac.weightN > 0 {
			p.AvgWeightKg = round2(ac.weightSum / float64(ac.weightN))
		}
		out.Points = append(out.Points, p)
	}

	series := make([]float64, len(out.Points))
	for i, p := range out.Points {
		series[i] = p.BestOneRM
	}
	for i := range out.Points {
		// Trailing rolling mean, averaging whatever history exists early on.
		lo := i - a.opts.RollingWindow + 1
		if lo < 0 {
			lo = 0
		}
		var sum float64
		for j := lo; j <= i; j++ {
			sum += series[j]
		}
		out.Points[i].RollingMean = round2(sum / float64(i-lo+1))

		out.Points[i].ProgressionAbs = round2(series[i] - series[0])
		if series[0] != 0 {
			out.Points[i].ProgressionPct = round2((series[i] - series[0]) / series[0] * 100)
		}

		if i+1 < a.opts.MinTrendPoints {
			continue
		}
		prefix := series[:i+1]
		tr := a.LinearTrend(indexXs(len(prefix)), prefix)
		out.Points[i].TrendSlope = tr.Slope
		out.Points[i].TrendOK = tr.OK
	}
	return out
}

// DetectPlateau flags, for each index, whether the trailing window of
// values before that index is flat: coefficient of variation below the
// configured bound and near-zero slope. The current value is not part of
// its own window, and no flag is raised before a full window exists. A
// window below 2 falls back to the configured default.
func (a *ProgressionAnalyzer) DetectPlateau(values []float64, window int) []bool {
	if window < 2 {
		window = a.opts.PlateauWindow
	}
	flags := make([]bool, len(values))
	for i := window; i < len(values); i++ {
		flags[i] = a.flatWindow(values[i-window : i])
	}
	return flags
}

func (a *ProgressionAnalyzer) flatWindow(win []float64) bool {
	slope, mean, ok := olsSlope(win)
	if !ok {
		return false
	}
	sd := stat.StdDev(win, nil)

	// A zero mean has no meaningful scale: cv flattens to 0 and the slope
	// bound becomes absolute.
	var cv float64
	slopeBound := a.opts.PlateauSlopeRatio
	if mean != 0 {
		cv = sd / math.Abs(mean)
		slopeBound = a.opts.PlateauSlopeRatio * math.Abs(mean)
	}
	return cv < a.opts.PlateauCV && math.Abs(slope) < slopeBound
}

// ExercisePlateau reports whether an exercise is currently plateaued on its
// one-rep-max series. CV and Slope describe the last evaluated window and
// are only meaningful when Evaluated is true.
type ExercisePlateau struct {
	Exercise  string  `json:"exercise"`
	Sessions  int     `json:"sessions"`
	Window    int     `json:"window"`
	Evaluated bool    `json:"evaluated"`
	Plateaued bool    `json:"plateaued"`
	CV        float64 `json:"cv"`
	Slope     float64 `json:"slope"`
}

// Plateaus evaluates every exercise in the dataset against the configured
// plateau window, ordered by exercise name.
func (a *ProgressionAnalyzer) Plateaus(sets []models.SetRecord) []ExercisePlateau {
	out := make([]ExercisePlateau, 0)
	for _, ex := range exerciseNames(sets) {
		prog := a.Progression(sets, ex)
		series := make([]float64, len(prog.Points))
		for i, p := range prog.Points {
			series[i] = p.BestOneRM
		}

		ep := ExercisePlateau{Exercise: ex, Sessions: len(series), Window: a.opts.PlateauWindow}
		if len(series) > a.opts.PlateauWindow {
			win := series[len(series)-1-a.opts.PlateauWindow : len(series)-1]
			slope, mean, _ := olsSlope(win)
			sd := stat.StdDev(win, nil)
			ep.Evaluated = true
			ep.Plateaued = a.flatWindow(win)
			ep.Slope = slope
			if mean != 0 {
				ep.CV = sd / math.Abs(mean)
			}
		}
		out = append(out, ep)
	}
	return out
}

// PerformanceMetrics condenses an exercise's history into its headline
// numbers. ChangePct is the percent change of the one-rep max from the
// first to the last session; DaysSinceLastPR counts days since the session
// that set the all-time best. Both are nil when undefined.
type PerformanceMetrics struct {
	Exercise        string      `json:"exercise"`
	Sessions        int         `json:"sessions"`
	LatestOneRM     float64     `json:"latest_1rm"`
	BestOneRM       float64     `json:"best_1rm"`
	LatestVolume    float64     `json:"latest_volume"`
	Trend           TrendResult `json:"trend"`
	PlateauDetected bool        `json:"plateau_detected"`
	ChangePct       *float64    `json:"change_pct,omitempty"`
	DaysSinceLastPR *int        `json:"days_since_last_pr,omitempty"`
	SyntheticDates  bool        `json:"synthetic_dates"`
}

// Metrics computes PerformanceMetrics for one exercise.
func (a *ProgressionAnalyzer) Metrics(sets []models.SetRecord, exercise string) PerformanceMetrics {
	prog := a.Progression(sets, exercise)
	m := PerformanceMetrics{
		Exercise:       exercise,
		Sessions:       len(prog.Points),
		SyntheticDates: prog.SyntheticDates,
		Trend:          TrendResult{PValue: 1},
	}
	if len(prog.Points) == 0 {
		return m
	}

	series := make([]float64, len(prog.Points))
	for i, p := range prog.Points {
		series[i] = p.BestOneRM
	}
	last := prog.Points[len(prog.Points)-1]
	m.LatestOneRM = last.BestOneRM
	m.LatestVolume = last.TotalVolume

	bestIdx := 0
	for i, v := range series {
		if v > series[bestIdx] {
			bestIdx = i
		}
	}
	m.BestOneRM = series[bestIdx]
	days := int(last.Date.Sub(prog.Points[bestIdx].Date).Hours() / 24)
	m.DaysSinceLastPR = &days

	m.Trend = a.LinearTrend(indexXs(len(series)), series)
	flags := a.DetectPlateau(series, a.opts.PlateauWindow)
	m.PlateauDetected = flags[len(flags)-1]

	if len(series) >= 2 && series[0] != 0 {
		pct := round2((series[len(series)-1] - series[0]) / series[0] * 100)
		m.ChangePct = &pct
	}
	return m
}

// AllMetrics computes PerformanceMetrics for every exercise, ordered by
// exercise name.
func (a *ProgressionAnalyzer) AllMetrics(sets []models.SetRecord) []PerformanceMetrics {
	out := make([]PerformanceMetrics, 0)
	for _, ex := range exerciseNames(sets) {
		out = append(out, a.Metrics(sets, ex))
	}
	return out
}

// VolumeTrend classifies the recent direction of an exercise's volume.
type VolumeTrend struct {
	Exercise   string  `json:"exercise"`
	Direction  string  `json:"direction"`
	TrendPct   float64 `json:"trend_pct"`
	Sessions   int     `json:"sessions"`
	WindowDays int     `json:"window_days"`
}

// Trend directions.
const (
	TrendPositive = "positive"
	TrendNegative = "negative"
	TrendStable   = "stable"
	TrendUnknown  = "unknown"
)

// VolumeTrends reports the volume direction per exercise over the last
// days. Short periods (30 days or less) use the last max(2, days/3)
// sessions instead of a date cutoff, so sparse logging still yields a
// trend. The percentage is the fitted change over the window relative to
// its mean, clamped to [-100, 100].
func (a *ProgressionAnalyzer) VolumeTrends(sets []models.SetRecord, days int) []VolumeTrend {
	if days <= 0 {
		days = 30
	}
	tl := BuildTimeline(sets)

	daily := make(map[string]map[time.Time]float64) // exercise -> date -> volume
	for _, s := range sets {
		d, ok := tl.Date(s.SessionID)
		if !ok {
			continue
		}
		m := daily[s.Exercise]
		if m == nil {
			m = make(map[time.Time]float64)
			daily[s.Exercise] = m
		}
		m[d] += SetVolume(s)
	}

	latest, _ := tl.Latest()
	shortPeriod := days <= 30

	out := make([]VolumeTrend, 0, len(daily))
	for _, ex := range exerciseNames(sets) {
		byDate := daily[ex]
		if byDate == nil {
			continue
		}
		dates := make([]time.Time, 0, len(byDate))
		for d := range byDate {
			dates = append(dates, d)
		}
		slices.SortFunc(dates, func(x, y time.Time) int { return x.Compare(y) })

		var values []float64
		if shortPeriod {
			keep := max(2, days/3)
			if keep > len(dates) {
				keep = len(dates)
			}
			for _, d := range dates[len(dates)-keep:] {
				values = append(values, byDate[d])
			}
		} else {
			cutoff := latest.AddDate(0, 0, -days)
			for _, d := range dates {
				if !d.Before(cutoff) {
					values = append(values, byDate[d])
				}
			}
		}

		vt := VolumeTrend{Exercise: ex, Direction: TrendUnknown, Sessions: len(values), WindowDays: days}
		if slope, mean, ok := olsSlope(values); ok && mean > 0 {
			pct := slope / mean * 100 * float64(len(values))
			vt.TrendPct = round2(math.Max(-100, math.Min(100, pct)))
			vt.Direction = classifyTrendPct(vt.TrendPct)
		}
		out = append(out, vt)
	}
	return out
}

func classifyTrendPct(pct float64) string {
	switch {
	case pct > 5:
		return TrendPositive
	case pct < -5:
		return TrendNegative
	default:
		return TrendStable
	}
}

// Recommendation is one piece of programming advice. Exercise is empty for
// dataset-wide recommendations.
type Recommendation struct {
	Exercise string `json:"exercise,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Recommendation kinds.
const (
	RecPlateau      = "plateau"
	RecReinforce    = "reinforce"
	RecSlowProgress = "slow_progress"
	RecRegression   = "regression"
	RecDeload       = "deload"
)

// Recommend turns per-exercise metrics and volume trends into programming
// advice. More than half of the tracked exercises plateauing triggers a
// dataset-wide deload recommendation.
func (a *ProgressionAnalyzer) Recommend(metrics []PerformanceMetrics, trends []VolumeTrend) []Recommendation {
	out := make([]Recommendation, 0)

	plateaued := 0
	for _, m := range metrics {
		if !m.PlateauDetected {
			continue
		}
		plateaued++
		out = append(out, Recommendation{
			Exercise: m.Exercise,
			Kind:     RecPlateau,
			Message:  fmt.Sprintf("%s has plateaued: vary rep ranges or reduce load for a week.", m.Exercise),
		})
	}

	for _, t := range trends {
		if t.Direction == TrendUnknown {
			continue
		}
		switch {
		case t.TrendPct > 20:
			out = append(out, Recommendation{
				Exercise: t.Exercise,
				Kind:     RecReinforce,
				Message:  fmt.Sprintf("%s volume is up %+.1f%%: current programming is working, keep it.", t.Exercise, t.TrendPct),
			})
		case t.TrendPct >= 0 && t.TrendPct <= 5:
			out = append(out, Recommendation{
				Exercise: t.Exercise,
				Kind:     RecSlowProgress,
				Message:  fmt.Sprintf("%s is progressing slowly (%+.1f%%): consider an extra set or a small load increase.", t.Exercise, t.TrendPct),
			})
		case t.TrendPct < 0:
			out = append(out, Recommendation{
				Exercise: t.Exercise,
				Kind:     RecRegression,
				Message:  fmt.Sprintf("%s volume is down %.1f%%: check recovery, sleep, and scheduling.", t.Exercise, math.Abs(t.TrendPct)),
			})
		}
	}

	if len(metrics) > 0 && float64(plateaued)/float64(len(metrics)) > 0.5 {
		out = append(out, Recommendation{
			Kind:    RecDeload,
			Message: "More than half of the tracked exercises are plateaued: schedule a deload week.",
		})
	}
	return out
}

func exerciseNames(sets []models.SetRecord) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range sets {
		if _, ok := seen[s.Exercise]; !ok {
			seen[s.Exercise] = struct{}{}
			names = append(names, s.Exercise)
		}
	}
	slices.Sort(names)
	return names
}
