package analytics

import (
	"math"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/meltforce/repsight/internal/models"
)

// SetVolume returns the volume of a single set in kg: weight times reps.
// Sets that were skipped, have no weight, or have no positive rep count
// contribute zero.
func SetVolume(s models.SetRecord) float64 {
	if s.Skipped || s.Reps == nil || *s.Reps <= 0 || s.WeightKg == nil {
		return 0
	}
	return *s.WeightKg * float64(*s.Reps)
}

// SessionVolume aggregates one exercise within one session.
type SessionVolume struct {
	SessionID       string     `json:"session_id"`
	Exercise        string     `json:"exercise"`
	Date            *time.Time `json:"date,omitempty"`
	TotalVolume     float64    `json:"total_volume"`
	SetCount        int        `json:"set_count"`
	AvgVolumePerSet float64    `json:"avg_volume_per_set"`
	TotalReps       int        `json:"total_reps"`
	AvgReps         float64    `json:"avg_reps"`
	MaxWeightKg     float64    `json:"max_weight_kg"`
	AvgWeightKg     float64    `json:"avg_weight_kg"`
}

// SessionVolumes groups non-skipped working sets by (session, exercise)
// and aggregates volume, reps, and weight. Warmups, cooldowns, and skipped
// sets stay out of every figure, set counts included. Rep and weight
// averages also skip sets where the value is missing.
func SessionVolumes(sets []models.SetRecord) []SessionVolume {
	tl := BuildTimeline(sets)

	type key struct{ session, exercise string }
	groups := make(map[key][]models.SetRecord)
	for _, s := range sets {
		if !s.IsWorking() {
			continue
		}
		k := key{s.SessionID, s.Exercise}
		groups[k] = append(groups[k], s)
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := strings.Compare(a.session, b.session); c != 0 {
			return c
		}
		return strings.Compare(a.exercise, b.exercise)
	})

	out := make([]SessionVolume, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		sv := SessionVolume{SessionID: k.session, Exercise: k.exercise, SetCount: len(group)}
		if d, ok := tl.Date(k.session); ok {
			sv.Date = &d
		}

		var repCount, weightCount, repSum int
		var weightSum, maxWeight float64
		for _, s := range group {
			sv.TotalVolume += SetVolume(s)
			if s.Reps != nil {
				repCount++
				repSum += *s.Reps
			}
			if s.WeightKg != nil {
				weightCount++
				weightSum += *s.WeightKg
				if weightCount == 1 || *s.WeightKg > maxWeight {
					maxWeight = *s.WeightKg
				}
			}
		}
		sv.TotalVolume = round2(sv.TotalVolume)
		sv.AvgVolumePerSet = round2(sv.TotalVolume / float64(sv.SetCount))
		sv.TotalReps = repSum
		if repCount > 0 {
			sv.AvgReps = round2(float64(repSum) / float64(repCount))
		}
		if weightCount > 0 {
			sv.MaxWeightKg = round2(maxWeight)
			sv.AvgWeightKg = round2(weightSum / float64(weightCount))
		}
		out = append(out, sv)
	}
	return out
}

// WeeklyVolume aggregates one exercise within one calendar week.
type WeeklyVolume struct {
	WeekStart    time.Time `json:"week_start"`
	Exercise     string    `json:"exercise"`
	TotalVolume  float64   `json:"total_volume"`
	SessionCount int       `json:"session_count"`
	SetCount     int       `json:"set_count"`
}

// WeeklyVolumes buckets working-set volume into weeks beginning on the
// given weekday. Sets from sessions without real dates land in proxy-dated
// weeks (see BuildTimeline).
func WeeklyVolumes(sets []models.SetRecord, start time.Weekday) []WeeklyVolume {
	tl := BuildTimeline(sets)

	type key struct {
		week     time.Time
		exercise string
	}
	type agg struct {
		volume   float64
		sets     int
		sessions map[string]struct{}
	}
	groups := make(map[key]*agg)
	for _, s := range sets {
		if !s.IsWorking() {
			continue
		}
		d, ok := tl.Date(s.SessionID)
		if !ok {
			continue
		}
		k := key{weekStart(d, start), s.Exercise}
		a := groups[k]
		if a == nil {
			a = &agg{sessions: make(map[string]struct{})}
			groups[k] = a
		}
		a.volume += SetVolume(s)
		a.sets++
		a.sessions[s.SessionID] = struct{}{}
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := a.week.Compare(b.week); c != 0 {
			return c
		}
		return strings.Compare(a.exercise, b.exercise)
	})

	out := make([]WeeklyVolume, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		out = append(out, WeeklyVolume{
			WeekStart:    k.week,
			Exercise:     k.exercise,
			TotalVolume:  round2(a.volume),
			SessionCount: len(a.sessions),
			SetCount:     a.sets,
		})
	}
	return out
}

// RollingVolume is one session's volume for an exercise together with the
// rolling mean over the trailing window.
type RollingVolume struct {
	Exercise    string    `json:"exercise"`
	SessionID   string    `json:"session_id"`
	Date        time.Time `json:"date"`
	Volume      float64   `json:"volume"`
	RollingMean float64   `json:"rolling_mean"`
}

// RollingVolumes computes, per exercise, each session's working-set volume
// and the mean over the last window sessions including the current one.
// Early points average whatever history exists. A window below 1 is
// treated as 1.
func RollingVolumes(sets []models.SetRecord, window int) []RollingVolume {
	if window < 1 {
		window = 1
	}
	tl := BuildTimeline(sets)

	perExercise := make(map[string]map[string]float64) // exercise -> session -> volume
	for _, s := range sets {
		if !s.IsWorking() {
			continue
		}
		m := perExercise[s.Exercise]
		if m == nil {
			m = make(map[string]float64)
			perExercise[s.Exercise] = m
		}
		m[s.SessionID] += SetVolume(s)
	}

	exercises := make([]string, 0, len(perExercise))
	for ex := range perExercise {
		exercises = append(exercises, ex)
	}
	slices.Sort(exercises)

	out := make([]RollingVolume, 0, len(sets))
	for _, ex := range exercises {
		bySession := perExercise[ex]
		var series []RollingVolume
		for _, id := range tl.Sessions() {
			v, ok := bySession[id]
			if !ok {
				continue
			}
			d, _ := tl.Date(id)
			series = append(series, RollingVolume{Exercise: ex, SessionID: id, Date: d, Volume: round2(v)})
		}
		for i := range series {
			lo := i - window + 1
			if lo < 0 {
				lo = 0
			}
			var sum float64
			for j := lo; j <= i; j++ {
				sum += series[j].Volume
			}
			series[i].RollingMean = round2(sum / float64(i-lo+1))
		}
		out = append(out, series...)
	}
	return out
}

// VolumeDistribution describes the spread of per-set volumes. Std is a
// sample standard deviation and is only meaningful when StdOK is true,
// which requires at least two sets.
type VolumeDistribution struct {
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
	StdOK  bool    `json:"std_ok"`
}

// VolumeSummary is the dataset-wide volume report over non-skipped working
// sets.
type VolumeSummary struct {
	TotalVolume         float64            `json:"total_volume"`
	TotalSets           int                `json:"total_sets"`
	TotalSessions       int                `json:"total_sessions"`
	TotalExercises      int                `json:"total_exercises"`
	AvgVolumePerSet     float64            `json:"avg_volume_per_set"`
	AvgVolumePerSession float64            `json:"avg_volume_per_session"`
	Distribution        VolumeDistribution `json:"set_volume_distribution"`
	SyntheticDates      bool               `json:"synthetic_dates"`
}

// SummarizeVolume reports working-set totals and the distribution of
// per-set volumes.
func SummarizeVolume(sets []models.SetRecord) VolumeSummary {
	tl := BuildTimeline(sets)
	sum := VolumeSummary{SyntheticDates: tl.Synthetic}

	perSession := make(map[string]struct{})
	exercises := make(map[string]struct{})
	var volumes []float64
	for _, s := range sets {
		if !s.IsWorking() {
			continue
		}
		v := SetVolume(s)
		volumes = append(volumes, v)
		sum.TotalVolume += v
		perSession[s.SessionID] = struct{}{}
		exercises[s.Exercise] = struct{}{}
	}
	if len(volumes) == 0 {
		sum.TotalVolume = 0
		return sum
	}
	sum.TotalSets = len(volumes)
	sum.TotalSessions = len(perSession)
	sum.TotalExercises = len(exercises)
	sum.TotalVolume = round2(sum.TotalVolume)
	sum.AvgVolumePerSet = round2(sum.TotalVolume / float64(sum.TotalSets))
	sum.AvgVolumePerSession = round2(sum.TotalVolume / float64(sum.TotalSessions))

	slices.Sort(volumes)

	d := VolumeDistribution{
		Min:    round2(volumes[0]),
		Q25:    round2(stat.Quantile(0.25, stat.LinInterp, volumes, nil)),
		Median: round2(stat.Quantile(0.5, stat.LinInterp, volumes, nil)),
		Q75:    round2(stat.Quantile(0.75, stat.LinInterp, volumes, nil)),
		Max:    round2(volumes[len(volumes)-1]),
	}
	if len(volumes) >= 2 {
		d.Std = round2(stat.StdDev(volumes, nil))
		d.StdOK = true
	}
	sum.Distribution = d
	return sum
}

// RegionVolume aggregates volume for one muscle region.
type RegionVolume struct {
	Region      string  `json:"region"`
	TotalVolume float64 `json:"total_volume"`
	SetCount    int     `json:"set_count"`
	PctOfTotal  float64 `json:"pct_of_total"`
	Status      string  `json:"status"`
}

// Region balance statuses. A region is flagged when its volume sits more
// than 30% away from the mean region volume.
const (
	RegionBalanced       = "balanced"
	RegionUnderdeveloped = "underdeveloped"
	RegionOverdeveloped  = "overdeveloped"
)

const regionBalanceThreshold = 0.30

// RegionVolumes aggregates volume by muscle region. Sets without a region
// label land in "Other". Results are sorted by volume, highest first.
func RegionVolumes(sets []models.SetRecord) []RegionVolume {
	type agg struct {
		volume float64
		sets   int
	}
	groups := make(map[string]*agg)
	var total float64
	for _, s := range sets {
		region := s.Region
		if region == "" {
			region = "Other"
		}
		a := groups[region]
		if a == nil {
			a = &agg{}
			groups[region] = a
		}
		v := SetVolume(s)
		a.volume += v
		a.sets++
		total += v
	}
	if len(groups) == 0 {
		return []RegionVolume{}
	}

	var mean float64
	for _, a := range groups {
		mean += a.volume
	}
	mean /= float64(len(groups))

	out := make([]RegionVolume, 0, len(groups))
	for region, a := range groups {
		rv := RegionVolume{
			Region:      region,
			TotalVolume: round2(a.volume),
			SetCount:    a.sets,
			Status:      RegionBalanced,
		}
		if total > 0 {
			rv.PctOfTotal = round2(a.volume / total * 100)
		}
		switch {
		case a.volume < mean*(1-regionBalanceThreshold):
			rv.Status = RegionUnderdeveloped
		case a.volume > mean*(1+regionBalanceThreshold):
			rv.Status = RegionOverdeveloped
		}
		out = append(out, rv)
	}
	slices.SortFunc(out, func(a, b RegionVolume) int {
		if a.TotalVolume != b.TotalVolume {
			if a.TotalVolume > b.TotalVolume {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Region, b.Region)
	})
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
