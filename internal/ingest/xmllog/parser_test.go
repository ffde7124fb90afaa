package xmllog

import (
	"strings"
	"testing"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<workouts>
  <workout>
    <date>15/01/2024</date>
    <entrainement>Push</entrainement>
    <exercice>Développé couché</exercice>
    <type_serie>échauffement</type_serie>
    <répétitions>10</répétitions>
    <poids>40,0</poids>
    <sautée>non</sautée>
  </workout>
  <workout date="17/01/2024" exercise="Squat" type="série">
    <reps>5</reps>
    <charge>100</charge>
    <region>jambes</region>
    <muscles_primary>
      <muscle>Quadriceps</muscle>
      <muscle>Fessiers</muscle>
    </muscles_primary>
  </workout>
</workouts>
`

// TestParseSampleExport covers record detection, French tag variants,
// attribute fields, and nested muscle lists.
func TestParseSampleExport(t *testing.T) {
	rows, err := Parse(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	r0 := rows[0]
	if r0.Date == nil || !r0.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("r0.Date = %v, want 2024-01-15", r0.Date)
	}
	if r0.Training != "Push" || r0.Exercise != "Développé couché" {
		t.Errorf("r0 training/exercise = %q/%q", r0.Training, r0.Exercise)
	}
	if r0.Role != models.RoleWarmup {
		t.Errorf("r0.Role = %s, want warmup", r0.Role)
	}
	if r0.Reps != 10 || r0.WeightKg != 40 {
		t.Errorf("r0 reps/weight = %d/%v, want 10/40", r0.Reps, r0.WeightKg)
	}
	if r0.Skipped {
		t.Error("r0.Skipped = true, want false")
	}

	r1 := rows[1]
	if r1.Date == nil || !r1.Date.Equal(time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("r1.Date = %v, want 2024-01-17", r1.Date)
	}
	if r1.Exercise != "Squat" || r1.Role != models.RoleWorkingSet {
		t.Errorf("r1 exercise/role = %q/%s", r1.Exercise, r1.Role)
	}
	if r1.Reps != 5 || r1.WeightKg != 100 {
		t.Errorf("r1 reps/weight = %d/%v, want 5/100", r1.Reps, r1.WeightKg)
	}
	if r1.Region != "jambes" {
		t.Errorf("r1.Region = %q, want jambes", r1.Region)
	}
	if len(r1.MusclesPrimary) != 2 || r1.MusclesPrimary[0] != "Quadriceps" || r1.MusclesPrimary[1] != "Fessiers" {
		t.Errorf("r1.MusclesPrimary = %v", r1.MusclesPrimary)
	}
}

func TestParseLogElements(t *testing.T) {
	xml := `<logs>
		<log><date>2024-01-15</date><exercise>squat</exercise><reps>5</reps><weight>100</weight></log>
		<log><date>2024-01-17</date><exercise>squat</exercise><reps>5</reps><weight>102,5</weight></log>
	</logs>`
	rows, err := Parse(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1].WeightKg != 102.5 {
		t.Errorf("rows[1].WeightKg = %v, want 102.5", rows[1].WeightKg)
	}
}

func TestParseSessionWrappingSets(t *testing.T) {
	// Sets nested inside a session are the records; session metadata that
	// only lives on the wrapper is not repeated per set.
	xml := `<session>
		<set><date>15/01/2024</date><exercise>dips</exercise><reps>12</reps><weight>0</weight></set>
		<set><date>15/01/2024</date><exercise>dips</exercise><reps>10</reps><weight>0</weight></set>
	</session>`
	rows, err := Parse(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Reps != 12 || rows[1].Reps != 10 {
		t.Errorf("reps = %d/%d, want 12/10", rows[0].Reps, rows[1].Reps)
	}
}

func TestParseSingleRecordRoot(t *testing.T) {
	xml := `<workout><date>15/01/2024</date><exercise>squat</exercise><reps>5</reps><weight>100</weight></workout>`
	rows, err := Parse(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 1 || rows[0].Exercise != "squat" {
		t.Fatalf("rows = %+v, want single squat row", rows)
	}
}

func TestParseUnknownRecordElements(t *testing.T) {
	// No known record names: the root's direct children are the records.
	xml := `<data>
		<row><date>15/01/2024</date><exercise>squat</exercise><reps>5</reps><weight>100</weight></row>
	</data>`
	rows, err := Parse(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(rows) != 1 || rows[0].Exercise != "squat" {
		t.Fatalf("rows = %+v, want single squat row", rows)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse(strings.NewReader("<workouts><workout>")); err == nil {
		t.Fatal("expected error for truncated XML")
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
