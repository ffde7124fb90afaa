// Package csvlog parses French training-log CSV exports: comma-separated,
// quoted fields, decimal commas, dd/mm/yyyy dates, and headers like
// "Entraînement" or "Série / Série d'échauffement / Série de récupération".
package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/meltforce/repsight/internal/ingest"
)

// columnAliases maps each normalized column to the header labels that
// exports use for it. Matching is case-insensitive after whitespace
// cleanup.
var columnAliases = map[string][]string{
	"date":     {"date"},
	"training": {"entraînement", "entrainement", "training", "workout"},
	"time":     {"heure", "time", "hour"},
	"exercise": {"exercice", "exercise"},
	"region":   {"région", "region", "zone"},
	"muscles_primary": {
		"groupes musculaires (primaires)",
		"muscles primaires",
		"muscles_primary",
		"primary_muscles",
	},
	"muscles_secondary": {
		"groupes musculaires (secondaires)",
		"muscles secondaires",
		"muscles_secondary",
		"secondary_muscles",
	},
	"series_type": {
		"série / série d'échauffement / série de récupération",
		"type de série",
		"series_type",
		"set_type",
	},
	"reps":    {"répétitions / temps", "répétitions", "reps", "repetitions"},
	"weight":  {"poids / distance", "poids", "weight"},
	"notes":   {"notes", "commentaires"},
	"skipped": {"sautée", "sautee", "skipped", "skip"},
}

// requiredColumns must all resolve for a file to parse.
var requiredColumns = []string{"date", "exercise", "reps", "weight"}

// Parse reads a training-log CSV export and returns normalized rows.
func Parse(r io.Reader) ([]ingest.Row, error) {
	cr := csv.NewReader(ingest.DecodeText(r))
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	columns, err := resolveColumns(records[0])
	if err != nil {
		return nil, err
	}

	get := func(record []string, column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	rows := make([]ingest.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		rows = append(rows, ingest.Row{
			Date:             ingest.ParseDate(get(record, "date")),
			TimeOfDay:        ingest.ParseTimeOfDay(get(record, "time")),
			Training:         ingest.CleanText(get(record, "training")),
			Exercise:         ingest.CleanText(get(record, "exercise")),
			Region:           ingest.CleanText(get(record, "region")),
			MusclesPrimary:   ingest.SplitMuscles(get(record, "muscles_primary")),
			MusclesSecondary: ingest.SplitMuscles(get(record, "muscles_secondary")),
			Role:             ingest.ParseRole(get(record, "series_type")),
			Reps:             ingest.ParseReps(get(record, "reps")),
			WeightKg:         ingest.ParseFrenchDecimal(get(record, "weight")),
			Notes:            ingest.CleanText(get(record, "notes")),
			Skipped:          ingest.ParseBool(get(record, "skipped")),
		})
	}
	return rows, nil
}

// resolveColumns matches the header row against the alias lists and checks
// that the required columns are present.
func resolveColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, raw := range header {
		label := strings.ToLower(ingest.CleanText(strings.TrimPrefix(raw, "\ufeff")))
		for column, aliases := range columnAliases {
			if _, taken := columns[column]; taken {
				continue
			}
			for _, alias := range aliases {
				if label == alias {
					columns[column] = i
					break
				}
			}
		}
	}

	var missing []string
	for _, column := range requiredColumns {
		if _, ok := columns[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
