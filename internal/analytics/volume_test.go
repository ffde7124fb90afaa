package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 0.01
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

// twoSessionFixture is two full-body sessions a week apart: bench and squat
// in each, all working sets.
func twoSessionFixture() []models.SetRecord {
	d1 := day(2024, 1, 1)
	d2 := day(2024, 1, 8)
	return []models.SetRecord{
		setAt("s1", "bench press", 100, 10, &d1),
		setAt("s1", "bench press", 110, 8, &d1),
		setAt("s1", "squat", 120, 12, &d1),
		setAt("s2", "bench press", 105, 10, &d2),
		setAt("s2", "bench press", 115, 8, &d2),
		setAt("s2", "squat", 125, 12, &d2),
	}
}

func TestSetVolume(t *testing.T) {
	cases := []struct {
		name string
		set  models.SetRecord
		want float64
	}{
		{"basic", models.SetRecord{WeightKg: ptrF(100), Reps: ptrI(10)}, 1000},
		{"skipped", models.SetRecord{WeightKg: ptrF(100), Reps: ptrI(10), Skipped: true}, 0},
		{"zero reps", models.SetRecord{WeightKg: ptrF(100), Reps: ptrI(0)}, 0},
		{"negative reps", models.SetRecord{WeightKg: ptrF(100), Reps: ptrI(-3)}, 0},
		{"missing reps", models.SetRecord{WeightKg: ptrF(100)}, 0},
		{"missing weight", models.SetRecord{Reps: ptrI(10)}, 0},
		{"negative weight passes through", models.SetRecord{WeightKg: ptrF(-100), Reps: ptrI(10)}, -1000},
		{"warmup still counts", models.SetRecord{Role: models.RoleWarmup, WeightKg: ptrF(60), Reps: ptrI(5)}, 300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SetVolume(tc.set); !approx(got, tc.want) {
				t.Errorf("SetVolume() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSessionVolumes(t *testing.T) {
	got := SessionVolumes(twoSessionFixture())
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4 groups", len(got))
	}

	// Sorted by (session, exercise): s1/bench first.
	bench := got[0]
	if bench.SessionID != "s1" || bench.Exercise != "bench press" {
		t.Fatalf("first group = %s/%s, want s1/bench press", bench.SessionID, bench.Exercise)
	}
	if !approx(bench.TotalVolume, 1880) {
		t.Errorf("TotalVolume = %v, want 1880", bench.TotalVolume)
	}
	if bench.SetCount != 2 || bench.TotalReps != 18 {
		t.Errorf("SetCount/TotalReps = %d/%d, want 2/18", bench.SetCount, bench.TotalReps)
	}
	if !approx(bench.AvgVolumePerSet, 940) {
		t.Errorf("AvgVolumePerSet = %v, want 940", bench.AvgVolumePerSet)
	}
	if !approx(bench.AvgReps, 9) || !approx(bench.MaxWeightKg, 110) || !approx(bench.AvgWeightKg, 105) {
		t.Errorf("AvgReps/MaxWeight/AvgWeight = %v/%v/%v, want 9/110/105",
			bench.AvgReps, bench.MaxWeightKg, bench.AvgWeightKg)
	}
	if bench.Date == nil || !bench.Date.Equal(day(2024, 1, 1)) {
		t.Errorf("Date = %v, want 2024-01-01", bench.Date)
	}
}

func TestSessionVolumesSkippedExcluded(t *testing.T) {
	d := day(2024, 1, 1)
	sets := []models.SetRecord{
		setAt("s1", "deadlift", 140, 5, &d),
		{SessionID: "s1", Exercise: "deadlift", Role: models.RoleWorkingSet,
			WeightKg: ptrF(140), Reps: ptrI(5), Skipped: true, PerformedAt: &d},
	}
	got := SessionVolumes(sets)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !approx(got[0].TotalVolume, 700) {
		t.Errorf("TotalVolume = %v, want 700 (skipped set excluded)", got[0].TotalVolume)
	}
	if got[0].SetCount != 1 {
		t.Errorf("SetCount = %d, want 1 (skipped set excluded)", got[0].SetCount)
	}
}

func TestSessionVolumesWarmupsExcluded(t *testing.T) {
	d := day(2024, 1, 1)
	warmup := setAt("s1", "bench press", 50, 10, &d)
	warmup.Role = models.RoleWarmup
	sets := []models.SetRecord{
		warmup,
		setAt("s1", "bench press", 100, 10, &d),
	}
	got := SessionVolumes(sets)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !approx(got[0].TotalVolume, 1000) {
		t.Errorf("TotalVolume = %v, want 1000 (warmup excluded)", got[0].TotalVolume)
	}
	if got[0].SetCount != 1 || got[0].TotalReps != 10 {
		t.Errorf("SetCount/TotalReps = %d/%d, want 1/10", got[0].SetCount, got[0].TotalReps)
	}
}

func TestWeeklyVolumes(t *testing.T) {
	got := WeeklyVolumes(twoSessionFixture(), time.Monday)
	// Two Mondays a week apart, two exercises each.
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	first := got[0]
	if !first.WeekStart.Equal(day(2024, 1, 1)) || first.Exercise != "bench press" {
		t.Fatalf("first bucket = %v/%s, want 2024-01-01/bench press", first.WeekStart, first.Exercise)
	}
	if !approx(first.TotalVolume, 1880) || first.SessionCount != 1 || first.SetCount != 2 {
		t.Errorf("bucket = %+v, want volume 1880, 1 session, 2 sets", first)
	}
}

func TestWeeklyVolumesSameWeekMerges(t *testing.T) {
	d1 := day(2024, 1, 1) // Monday
	d2 := day(2024, 1, 4) // Thursday, same week
	sets := []models.SetRecord{
		setAt("s1", "row", 60, 10, &d1),
		setAt("s2", "row", 65, 10, &d2),
	}
	got := WeeklyVolumes(sets, time.Monday)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 merged bucket", len(got))
	}
	if got[0].SessionCount != 2 || !approx(got[0].TotalVolume, 1250) {
		t.Errorf("bucket = %+v, want 2 sessions, volume 1250", got[0])
	}

	// A Sunday week start splits nothing here, but shifts the bucket label
	// back to the preceding Sunday.
	got = WeeklyVolumes(sets, time.Sunday)
	if len(got) != 1 || !got[0].WeekStart.Equal(day(2023, 12, 31)) {
		t.Errorf("sunday buckets = %+v, want one bucket starting 2023-12-31", got)
	}
}

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"monday", time.Monday, false},
		{"Sun", time.Sunday, false},
		{" Friday ", time.Friday, false},
		{"someday", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseWeekday(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseWeekday(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestRollingVolumes(t *testing.T) {
	d1, d2, d3 := day(2024, 1, 1), day(2024, 1, 3), day(2024, 1, 5)
	sets := []models.SetRecord{
		setAt("s1", "bench press", 100, 10, &d1), // 1000
		setAt("s2", "bench press", 100, 12, &d2), // 1200
		setAt("s3", "bench press", 100, 8, &d3),  // 800
	}
	got := RollingVolumes(sets, 2)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantMeans := []float64{1000, 1100, 1000}
	for i, want := range wantMeans {
		if !approx(got[i].RollingMean, want) {
			t.Errorf("point %d RollingMean = %v, want %v", i, got[i].RollingMean, want)
		}
	}
	if !approx(got[1].Volume, 1200) {
		t.Errorf("point 1 Volume = %v, want 1200", got[1].Volume)
	}
}

func TestRollingVolumesWindowBelowOne(t *testing.T) {
	d := day(2024, 1, 1)
	sets := []models.SetRecord{setAt("s1", "row", 50, 10, &d)}
	got := RollingVolumes(sets, 0)
	if len(got) != 1 || !approx(got[0].RollingMean, 500) {
		t.Errorf("got %+v, want single point with mean 500", got)
	}
}

func TestSummarizeVolume(t *testing.T) {
	sum := SummarizeVolume(twoSessionFixture())

	if !approx(sum.TotalVolume, 6790) {
		t.Errorf("TotalVolume = %v, want 6790", sum.TotalVolume)
	}
	if sum.TotalSets != 6 || sum.TotalSessions != 2 || sum.TotalExercises != 2 {
		t.Errorf("counts = %d/%d/%d, want 6/2/2", sum.TotalSets, sum.TotalSessions, sum.TotalExercises)
	}
	if !approx(sum.AvgVolumePerSet, 1131.67) {
		t.Errorf("AvgVolumePerSet = %v, want 1131.67", sum.AvgVolumePerSet)
	}
	if !approx(sum.AvgVolumePerSession, 3395) {
		t.Errorf("AvgVolumePerSession = %v, want 3395", sum.AvgVolumePerSession)
	}
	if sum.SyntheticDates {
		t.Error("SyntheticDates = true with dated sessions")
	}

	d := sum.Distribution
	// Per-set volumes sorted: 880, 920, 1000, 1050, 1440, 1500.
	if !approx(d.Min, 880) || !approx(d.Max, 1500) {
		t.Errorf("Min/Max = %v/%v, want 880/1500", d.Min, d.Max)
	}
	if !d.StdOK || !approx(d.Std, 269.4) {
		t.Errorf("Std = %v (ok=%v), want 269.40 (ok=true)", d.Std, d.StdOK)
	}
	if d.Q25 < d.Min || d.Median < d.Q25 || d.Q75 < d.Median || d.Max < d.Q75 {
		t.Errorf("quantiles out of order: %+v", d)
	}
}

func TestSummarizeVolumeSingleSession(t *testing.T) {
	d := day(2024, 1, 1)
	sum := SummarizeVolume([]models.SetRecord{setAt("s1", "squat", 100, 10, &d)})
	if sum.Distribution.StdOK {
		t.Error("StdOK = true with a single session")
	}
	if !approx(sum.Distribution.Min, 1000) || !approx(sum.Distribution.Median, 1000) || !approx(sum.Distribution.Max, 1000) {
		t.Errorf("single-session distribution = %+v, want all 1000", sum.Distribution)
	}
}

func TestSummarizeVolumeWorkingSetsOnly(t *testing.T) {
	d := day(2024, 1, 1)
	warmup := setAt("s1", "bench press", 50, 10, &d)
	warmup.Role = models.RoleWarmup
	sum := SummarizeVolume([]models.SetRecord{
		warmup,
		setAt("s1", "bench press", 100, 10, &d),
	})
	if !approx(sum.TotalVolume, 1000) || sum.TotalSets != 1 {
		t.Errorf("TotalVolume/TotalSets = %v/%d, want 1000/1", sum.TotalVolume, sum.TotalSets)
	}
	if !approx(sum.AvgVolumePerSet, 1000) {
		t.Errorf("AvgVolumePerSet = %v, want 1000", sum.AvgVolumePerSet)
	}
}

func TestSummarizeVolumeEmpty(t *testing.T) {
	sum := SummarizeVolume(nil)
	if sum.TotalVolume != 0 || sum.TotalSets != 0 || sum.TotalSessions != 0 {
		t.Errorf("empty summary = %+v, want zeros", sum)
	}
}

func TestSummarizeVolumeSyntheticFlag(t *testing.T) {
	sets := []models.SetRecord{
		setAt("s1", "squat", 100, 10, nil),
		setAt("s2", "squat", 105, 10, nil),
	}
	if sum := SummarizeVolume(sets); !sum.SyntheticDates {
		t.Error("SyntheticDates = false, want true for dateless sessions")
	}
}

func TestRegionVolumes(t *testing.T) {
	d := day(2024, 1, 1)
	regionSet := func(exercise, region string, weight float64, reps int) models.SetRecord {
		s := setAt("s1", exercise, weight, reps, &d)
		s.Region = region
		return s
	}
	sets := []models.SetRecord{
		regionSet("bench press", "Chest", 100, 10), // 1000
		regionSet("bench press", "Chest", 100, 10), // 1000
		regionSet("squat", "Legs", 100, 9),         // 900
		regionSet("curl", "Arms", 20, 10),          // 200
	}

	regions := RegionVolumes(sets)
	if len(regions) != 3 {
		t.Fatalf("got %d regions, want 3", len(regions))
	}
	// Sorted by volume: Chest 2000, Legs 900, Arms 200.
	if regions[0].Region != "Chest" || !approx(regions[0].TotalVolume, 2000) {
		t.Errorf("regions[0] = %+v, want Chest 2000", regions[0])
	}
	if regions[0].SetCount != 2 {
		t.Errorf("Chest SetCount = %d, want 2", regions[0].SetCount)
	}
	if !approx(regions[0].PctOfTotal, 64.52) {
		t.Errorf("Chest PctOfTotal = %v, want 64.52", regions[0].PctOfTotal)
	}
	// Mean region volume is 1033.33; 30% band is [723.33, 1343.33].
	if regions[0].Status != RegionOverdeveloped {
		t.Errorf("Chest status = %s, want overdeveloped", regions[0].Status)
	}
	if regions[1].Region != "Legs" || regions[1].Status != RegionBalanced {
		t.Errorf("regions[1] = %+v, want balanced Legs", regions[1])
	}
	if regions[2].Region != "Arms" || regions[2].Status != RegionUnderdeveloped {
		t.Errorf("regions[2] = %+v, want underdeveloped Arms", regions[2])
	}
}

func TestRegionVolumesUnlabeled(t *testing.T) {
	d := day(2024, 1, 1)
	regions := RegionVolumes([]models.SetRecord{setAt("s1", "squat", 100, 10, &d)})
	if len(regions) != 1 || regions[0].Region != "Other" {
		t.Fatalf("regions = %+v, want single Other bucket", regions)
	}
	if !approx(regions[0].PctOfTotal, 100) {
		t.Errorf("PctOfTotal = %v, want 100", regions[0].PctOfTotal)
	}
}

func TestRegionVolumesEmpty(t *testing.T) {
	if regions := RegionVolumes(nil); len(regions) != 0 {
		t.Errorf("regions = %+v, want empty", regions)
	}
}
