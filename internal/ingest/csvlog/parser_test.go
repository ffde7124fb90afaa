package csvlog

import (
	"strings"
	"testing"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

const sampleCSV = `Date,Entraînement,Heure,Exercice,Région,Groupes musculaires (Primaires),Groupes musculaires (Secondaires),Série / Série d'échauffement / Série de récupération,Répétitions / Temps,Poids / Distance,Notes,Sautée
15/01/2024,Push,18:30,Développé couché,Pectoraux,"Pectoraux, Triceps",Épaules,Série d'échauffement,10 répétitions,"40,0 kg",,Non
15/01/2024,Push,18:30,Développé couché,Pectoraux,"Pectoraux, Triceps",Épaules,Série,8 répétitions,"80,0 kg",,Non
15/01/2024,Push,18:30,Développé couché,Pectoraux,"Pectoraux, Triceps",Épaules,Série,8 répétitions,"82,5 kg",RPE 8,Non
15/01/2024,Push,18:30,Dips,Pectoraux,Pectoraux,Triceps,Série,12 répétitions,"0,00 kg",,Oui
17/01/2024,Legs,19:00,Squat,Jambes,Quadriceps,"Fessiers, Ischio-jambiers",Série,5 répétitions,100 kg,,Non
`

// TestParseSampleExport covers the happy path end-to-end: French headers,
// decimal commas, dd/mm/yyyy dates, role phrases, and quoted muscle lists.
func TestParseSampleExport(t *testing.T) {
	rows, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(rows))
	}

	r0 := rows[0]
	wantDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if r0.Date == nil || !r0.Date.Equal(wantDate) {
		t.Errorf("r0.Date = %v, want %v", r0.Date, wantDate)
	}
	if r0.Training != "Push" || r0.TimeOfDay != "18:30" {
		t.Errorf("r0 training/time = %q/%q", r0.Training, r0.TimeOfDay)
	}
	if r0.Exercise != "Développé couché" {
		t.Errorf("r0.Exercise = %q", r0.Exercise)
	}
	if r0.Role != models.RoleWarmup {
		t.Errorf("r0.Role = %s, want warmup", r0.Role)
	}
	if r0.Reps != 10 || r0.WeightKg != 40 {
		t.Errorf("r0 reps/weight = %d/%v, want 10/40", r0.Reps, r0.WeightKg)
	}
	if len(r0.MusclesPrimary) != 2 || r0.MusclesPrimary[0] != "Pectoraux" || r0.MusclesPrimary[1] != "Triceps" {
		t.Errorf("r0.MusclesPrimary = %v", r0.MusclesPrimary)
	}
	if r0.Region != "Pectoraux" {
		t.Errorf("r0.Region = %q", r0.Region)
	}
	if r0.Skipped {
		t.Error("r0.Skipped = true, want false")
	}

	if rows[1].Role != models.RoleWorkingSet || rows[1].WeightKg != 80 {
		t.Errorf("r1 = %+v, want working set at 80 kg", rows[1])
	}
	if rows[2].WeightKg != 82.5 || rows[2].Notes != "RPE 8" {
		t.Errorf("r2 weight/notes = %v/%q, want 82.5/RPE 8", rows[2].WeightKg, rows[2].Notes)
	}
	if !rows[3].Skipped || rows[3].WeightKg != 0 {
		t.Errorf("r3 = %+v, want skipped bodyweight set", rows[3])
	}

	r4 := rows[4]
	if r4.Date == nil || !r4.Date.Equal(time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("r4.Date = %v, want 2024-01-17", r4.Date)
	}
	if r4.Reps != 5 || r4.WeightKg != 100 {
		t.Errorf("r4 reps/weight = %d/%v, want 5/100", r4.Reps, r4.WeightKg)
	}
}

func TestParseAlternateHeaders(t *testing.T) {
	csv := "date,exercise,Type de série,reps,Poids\n2024-01-15,Squat,principale,5,100\n"
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Exercise != "Squat" || rows[0].Role != models.RoleWorkingSet || rows[0].WeightKg != 100 {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestParseBOMHeader(t *testing.T) {
	csv := "\ufeffDate,Exercice,Répétitions,Poids\n15/01/2024,Squat,5,100\n"
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 1 || rows[0].Exercise != "Squat" {
		t.Fatalf("rows = %+v, want single Squat row", rows)
	}
}

func TestParseMissingRequiredColumns(t *testing.T) {
	csv := "Date,Exercice,Notes\n15/01/2024,Squat,test\n"
	_, err := Parse(strings.NewReader(csv))
	if err == nil {
		t.Fatal("expected error for missing reps and weight columns")
	}
	if !strings.Contains(err.Error(), "reps") || !strings.Contains(err.Error(), "weight") {
		t.Errorf("error = %v, want mention of reps and weight", err)
	}
}

func TestParseUnparseableCells(t *testing.T) {
	csv := "Date,Exercice,Répétitions,Poids\nbad date,Squat,max,beaucoup\n"
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	r := rows[0]
	if r.Date != nil || r.Reps != 0 || r.WeightKg != 0 {
		t.Errorf("row = %+v, want nil date and zero reps/weight", r)
	}
}

func TestParseEmpty(t *testing.T) {
	rows, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}
