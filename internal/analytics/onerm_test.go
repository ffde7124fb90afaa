package analytics

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/meltforce/repsight/internal/models"
)

func TestParseFormula(t *testing.T) {
	cases := []struct {
		name    string
		want    Formula
		wantErr bool
	}{
		{"epley", FormulaEpley, false},
		{"brzycki", FormulaBrzycki, false},
		{"lander", FormulaLander, false},
		{"oconner", FormulaOConner, false},
		{"blend", FormulaBlend, false},
		{"average", 0, true},
		{"", 0, true},
		{"Epley", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFormula(tc.name)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseFormula(%q) error = nil, want error", tc.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormula(%q) error = %v", tc.name, err)
			}
			if got != tc.want {
				t.Errorf("ParseFormula(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	c := NewOneRMCalculator(nil)

	cases := []struct {
		name    string
		formula Formula
		weight  float64
		reps    int
		want    float64
		wantOK  bool
	}{
		{"epley single rep", FormulaEpley, 100, 1, 100 * (1 + 1.0/30), true},
		{"epley ten reps", FormulaEpley, 100, 10, 100 * (1 + 10.0/30), true},
		{"brzycki five reps", FormulaBrzycki, 100, 5, 100 / (1.0278 - 0.0278*5), true},
		{"lander five reps", FormulaLander, 100, 5, 100 * 100 / (101.3 - 2.67123*5), true},
		{"oconner five reps", FormulaOConner, 100, 5, 100 * (1 + 0.025*5), true},
		{"zero reps returns weight", FormulaEpley, 100, 0, 100, true},
		{"negative reps returns weight", FormulaBrzycki, 80, -2, 80, true},
		{"zero weight undefined", FormulaEpley, 0, 10, 0, false},
		{"negative weight undefined", FormulaBlend, -50, 10, 0, false},
		{"brzycki last valid rep count", FormulaBrzycki, 100, 36, 100 / (1.0278 - 0.0278*36), true},
		{"lander last valid rep count", FormulaLander, 100, 37, 100 * 100 / (101.3 - 2.67123*37), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.Estimate(tc.formula, tc.weight, tc.reps)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && !approx(got, tc.want) {
				t.Errorf("Estimate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEstimateHighRepFallback(t *testing.T) {
	c := NewOneRMCalculator(nil)

	epley, _ := c.Estimate(FormulaEpley, 100, 40)
	brzycki, ok := c.Estimate(FormulaBrzycki, 100, 40)
	if !ok || !approx(brzycki, epley) {
		t.Errorf("brzycki(100, 40) = %v, want epley fallback %v", brzycki, epley)
	}
	lander, ok := c.Estimate(FormulaLander, 100, 40)
	if !ok || !approx(lander, epley) {
		t.Errorf("lander(100, 40) = %v, want epley fallback %v", lander, epley)
	}
}

func TestEstimateBlend(t *testing.T) {
	c := NewOneRMCalculator(nil)

	epley, _ := c.Estimate(FormulaEpley, 100, 5)
	brzycki, _ := c.Estimate(FormulaBrzycki, 100, 5)
	lander, _ := c.Estimate(FormulaLander, 100, 5)
	oconner, _ := c.Estimate(FormulaOConner, 100, 5)
	want := 0.4*epley + 0.4*brzycki + 0.2*(lander+oconner)/2

	got, ok := c.Estimate(FormulaBlend, 100, 5)
	if !ok || !approx(got, want) {
		t.Errorf("blend(100, 5) = %v (ok=%v), want %v", got, ok, want)
	}

	// Components that fall back still count as defined.
	if _, ok := c.Estimate(FormulaBlend, 100, 40); !ok {
		t.Error("blend(100, 40) undefined, want defined via fallbacks")
	}
}

// captureHandler counts records by message. Safe for concurrent use.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func TestWarnOncePerFormulaAndReason(t *testing.T) {
	h := &captureHandler{}
	c := NewOneRMCalculator(slog.New(h))

	c.Estimate(FormulaBrzycki, 100, 40)
	c.Estimate(FormulaBrzycki, 90, 38)
	c.Estimate(FormulaBrzycki, 80, 37)
	if got := h.count(); got != 1 {
		t.Errorf("repeated brzycki fallback logged %d times, want 1", got)
	}

	// Different formula, same reason: its own warning.
	c.Estimate(FormulaLander, 100, 40)
	if got := h.count(); got != 2 {
		t.Errorf("lander fallback not logged separately, count = %d, want 2", got)
	}

	// Different reason for an already-warned formula.
	c.Estimate(FormulaBrzycki, 0, 5)
	if got := h.count(); got != 3 {
		t.Errorf("distinct reason not logged, count = %d, want 3", got)
	}
}

func TestWarnSuppressedWithNilLogger(t *testing.T) {
	c := NewOneRMCalculator(nil)
	// Must not panic and must still compute the fallback.
	if v, ok := c.Estimate(FormulaBrzycki, 100, 40); !ok || v <= 0 {
		t.Errorf("Estimate with nil logger = %v, %v; want fallback value", v, ok)
	}
}

func TestWarnOnceConcurrent(t *testing.T) {
	h := &captureHandler{}
	c := NewOneRMCalculator(slog.New(h))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Estimate(FormulaBrzycki, 100, 40)
		}()
	}
	wg.Wait()
	if got := h.count(); got != 1 {
		t.Errorf("concurrent fallback logged %d times, want 1", got)
	}
}

func TestEstimateSetFiltersNonWorking(t *testing.T) {
	c := NewOneRMCalculator(nil)
	weight, reps := 100.0, 5

	cases := []struct {
		name   string
		set    models.SetRecord
		wantOK bool
	}{
		{"working", models.SetRecord{Role: models.RoleWorkingSet, WeightKg: &weight, Reps: &reps}, true},
		{"warmup excluded", models.SetRecord{Role: models.RoleWarmup, WeightKg: &weight, Reps: &reps}, false},
		{"skipped excluded", models.SetRecord{Role: models.RoleWorkingSet, WeightKg: &weight, Reps: &reps, Skipped: true}, false},
		{"missing weight", models.SetRecord{Role: models.RoleWorkingSet, Reps: &reps}, false},
		{"missing reps", models.SetRecord{Role: models.RoleWorkingSet, WeightKg: &weight}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := c.EstimateSet(FormulaEpley, tc.set); ok != tc.wantOK {
				t.Errorf("ok = %v, want %v", ok, tc.wantOK)
			}
		})
	}
}

func TestExerciseOneRM(t *testing.T) {
	c := NewOneRMCalculator(nil)
	sets := twoSessionFixture()

	got := c.ExerciseOneRM(sets, "bench press", FormulaEpley)
	if got.SampleSets != 4 {
		t.Fatalf("SampleSets = %d, want 4", got.SampleSets)
	}
	// Best across both sessions: 115x8 -> 115*(1+8/30) = 145.67.
	if got.Best == nil || !approx(got.Best.Value, 145.67) {
		t.Fatalf("Best = %+v, want 145.67", got.Best)
	}
	if got.Best.WeightKg != 115 || got.Best.Reps != 8 || got.Best.SessionID != "s2" {
		t.Errorf("Best set = %+v, want 115x8 in s2", got.Best)
	}
	// Current: best of the last session, which is the same set here.
	if got.Current == nil || !approx(got.Current.Value, 145.67) {
		t.Errorf("Current = %+v, want 145.67", got.Current)
	}
}

func TestExerciseOneRMSetStats(t *testing.T) {
	c := NewOneRMCalculator(nil)

	got := c.ExerciseOneRM(twoSessionFixture(), "bench press", FormulaEpley)
	if got.Stats == nil {
		t.Fatal("Stats = nil, want populated")
	}
	// Bench sets: 100x10, 110x8, 105x10, 115x8 across two sessions.
	st := got.Stats
	if !approx(st.MaxWeightKg, 115) || !approx(st.AvgWeightKg, 107.5) {
		t.Errorf("MaxWeightKg/AvgWeightKg = %v/%v, want 115/107.5", st.MaxWeightKg, st.AvgWeightKg)
	}
	if st.MinReps != 8 || st.MaxReps != 10 || !approx(st.AvgReps, 9) {
		t.Errorf("reps stats = %d/%d/%v, want 8/10/9", st.MinReps, st.MaxReps, st.AvgReps)
	}
	if st.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", st.Sessions)
	}

	if empty := c.ExerciseOneRM(twoSessionFixture(), "curl", FormulaEpley); empty.Stats != nil {
		t.Errorf("Stats for absent exercise = %+v, want nil", empty.Stats)
	}
}

func TestEstimateTable(t *testing.T) {
	c := NewOneRMCalculator(nil)
	d := day(2024, 1, 1)
	warmup := setAt("s1", "bench press", 50, 10, &d)
	warmup.Role = models.RoleWarmup
	sets := []models.SetRecord{
		setAt("s1", "bench press", 100, 5, &d),
		warmup,
		setAt("s1", "squat", 120, 8, &d),
	}

	rows := c.EstimateTable(sets, []Formula{FormulaEpley, FormulaBrzycki})
	if len(rows) != 3 {
		t.Fatalf("len = %d, want one row per input set", len(rows))
	}
	if rows[0].Exercise != "bench press" || rows[2].Exercise != "squat" {
		t.Errorf("row order = %s/%s, want input order", rows[0].Exercise, rows[2].Exercise)
	}
	if !approx(rows[0].Estimates["epley"], 116.67) {
		t.Errorf("epley estimate = %v, want 116.67", rows[0].Estimates["epley"])
	}
	if _, ok := rows[0].Estimates["brzycki"]; !ok {
		t.Error("missing brzycki estimate on a valid set")
	}
	if _, ok := rows[0].Estimates["lander"]; ok {
		t.Error("lander estimate present but not requested")
	}
	// Warmups have no defined estimate; the row stays, its map stays empty.
	if len(rows[1].Estimates) != 0 {
		t.Errorf("warmup row estimates = %v, want none", rows[1].Estimates)
	}
	if rows[1].WeightKg == nil || *rows[1].WeightKg != 50 {
		t.Errorf("warmup row WeightKg = %v, want 50", rows[1].WeightKg)
	}

	// An empty formula list means every formula.
	rows = c.EstimateTable(sets, nil)
	if len(rows[0].Estimates) != len(Formulas) {
		t.Errorf("estimates = %d formulas, want %d", len(rows[0].Estimates), len(Formulas))
	}
}

func TestAllOneRM(t *testing.T) {
	c := NewOneRMCalculator(nil)
	got := c.AllOneRM(twoSessionFixture(), FormulaEpley)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 exercises", len(got))
	}
	if got[0].Exercise != "bench press" || got[1].Exercise != "squat" {
		t.Errorf("order = %s, %s; want bench press, squat", got[0].Exercise, got[1].Exercise)
	}
	// Squat best: 125x12 -> 125*(1+12/30) = 175.
	if got[1].Best == nil || !approx(got[1].Best.Value, 175) {
		t.Errorf("squat Best = %+v, want 175", got[1].Best)
	}
}

func TestBestByFormula(t *testing.T) {
	c := NewOneRMCalculator(nil)
	best := c.BestByFormula(twoSessionFixture(), "bench press")

	for _, f := range Formulas {
		if _, ok := best[f.String()]; !ok {
			t.Errorf("missing formula %s in %v", f, best)
		}
	}
	if !approx(best["epley"], 145.67) {
		t.Errorf("best epley = %v, want 145.67", best["epley"])
	}

	if got := c.BestByFormula(twoSessionFixture(), "curl"); len(got) != 0 {
		t.Errorf("unknown exercise BestByFormula = %v, want empty", got)
	}
}
