package ingest

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/meltforce/repsight/internal/models"
)

// Row is one normalized export line, independent of the source format.
// Exercise holds the cleaned raw name; canonicalization happens at store
// time so the alias table can take precedence.
type Row struct {
	Date             *time.Time
	TimeOfDay        string
	Training         string
	Exercise         string
	Region           string
	MusclesPrimary   []string
	MusclesSecondary []string
	Role             models.SeriesRole
	Reps             int
	WeightKg         float64
	Notes            string
	Skipped          bool
}

var (
	multiSpaceRe = regexp.MustCompile(`\s+`)
	unitsRe      = regexp.MustCompile(`(?i)\s*(kg|kilogrammes?|grammes?|g|lbs?|pounds?|répétitions?|reps?)\s*`)
	intRe        = regexp.MustCompile(`\d+`)
	slugDropRe   = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)
)

// CleanText replaces non-breaking spaces, collapses runs of whitespace, and
// trims. Export files from spreadsheet tools are full of U+00A0.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return multiSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParseFrenchDecimal converts a French decimal string ("102,5") to a float.
// Unit suffixes are stripped, and stray extra comma segments are ignored
// ("12,5,5" reads as 12.5). Empty or unparseable input yields 0.
func ParseFrenchDecimal(s string) float64 {
	cleaned := unitsRe.ReplaceAllString(CleanText(s), "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0
	}
	parts := strings.Split(cleaned, ",")
	if len(parts) > 1 {
		intPart := parts[0]
		if intPart == "" {
			intPart = "0"
		}
		fracPart := parts[1]
		if fracPart == "" {
			fracPart = "0"
		}
		cleaned = intPart + "." + fracPart
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseReps extracts the first integer from a reps cell ("12 répétitions",
// "8"). Missing or non-numeric input yields 0.
func ParseReps(s string) int {
	m := intRe.FindString(CleanText(s))
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}

var dateLayouts = []string{"02/01/2006", "02-01-2006", "02.01.2006", "2006-01-02"}

// ParseDate parses a French-style date (dd/mm/yyyy and common variants).
// Returns nil when the cell is empty or unparseable.
func ParseDate(s string) *time.Time {
	cleaned := CleanText(s)
	if cleaned == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, cleaned, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

var timeLayouts = []string{"15:04", "15:04:05", "15.04", "15h04"}

// ParseTimeOfDay normalizes a time cell to "HH:MM", or "" when unparseable.
func ParseTimeOfDay(s string) string {
	cleaned := CleanText(s)
	if cleaned == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

// ParseBool parses French and English truthy labels (oui/yes/true/1/vrai).
// Everything else, including empty, is false.
func ParseBool(s string) bool {
	switch strings.ToLower(CleanText(s)) {
	case "oui", "yes", "true", "1", "vrai":
		return true
	}
	return false
}

// ParseRole maps a series-type cell to a role. Export files label the cell
// with phrases like "Série d'échauffement", so matching is by substring,
// most specific first. Plain working sets are the default.
func ParseRole(s string) models.SeriesRole {
	cleaned := strings.ToLower(CleanText(s))
	switch {
	case strings.Contains(cleaned, "échauffement"), strings.Contains(cleaned, "echauffement"),
		strings.Contains(cleaned, "warm"):
		return models.RoleWarmup
	case strings.Contains(cleaned, "récupération"), strings.Contains(cleaned, "recuperation"),
		strings.Contains(cleaned, "recovery"), strings.Contains(cleaned, "cooldown"):
		return models.RoleCooldown
	default:
		return models.RoleWorkingSet
	}
}

// exercisePairs maps known exercise labels to canonical slugs. Order
// matters: more specific labels come first so "développé couché" wins over
// "développé".
var exercisePairs = []struct{ label, canonical string }{
	{"traction à la barre fixe", "pull-up"},
	{"tractions barre fixe", "pull-up"},
	{"traction", "pull-up"},
	{"pull-up", "pull-up"},
	{"développé couché", "bench-press"},
	{"développé couche", "bench-press"},
	{"développé", "bench-press"},
	{"bench press", "bench-press"},
	{"squat arrière", "back-squat"},
	{"squat à la barre", "squat"},
	{"squat", "squat"},
	{"soulevé de terre", "deadlift"},
	{"deadlift", "deadlift"},
	{"overhead press", "overhead-press"},
	{"développé militaire", "overhead-press"},
	{"curl biceps", "bicep-curl"},
	{"curl haltères", "bicep-curl"},
	{"curl", "bicep-curl"},
	{"dips", "dips"},
	{"pompes", "push-up"},
	{"push-up", "push-up"},
}

// CanonicalExercise maps an exercise label to its canonical slug. Known
// labels match fuzzily in either direction; unknown labels are slugified
// (lowercased, punctuation dropped, spaces to hyphens). Empty input maps
// to "unknown".
func CanonicalExercise(s string) string {
	cleaned := strings.ToLower(CleanText(s))
	if cleaned == "" {
		return "unknown"
	}
	for _, p := range exercisePairs {
		if strings.Contains(cleaned, p.label) || strings.Contains(p.label, cleaned) {
			return p.canonical
		}
	}
	slug := slugDropRe.ReplaceAllString(cleaned, "")
	slug = multiSpaceRe.ReplaceAllString(strings.TrimSpace(slug), "-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

// regionPairs maps body-region labels to canonical English names.
var regionPairs = []struct{ label, canonical string }{
	{"dos", "Back"},
	{"back", "Back"},
	{"pectoraux", "Chest"},
	{"chest", "Chest"},
	{"pecs", "Chest"},
	{"jambes", "Legs"},
	{"legs", "Legs"},
	{"quadriceps", "Legs"},
	{"ischio", "Legs"},
	{"épaules", "Shoulders"},
	{"shoulders", "Shoulders"},
	{"deltoïdes", "Shoulders"},
	{"bras", "Arms"},
	{"arms", "Arms"},
	{"biceps", "Arms"},
	{"triceps", "Arms"},
	{"abdominaux", "Core"},
	{"core", "Core"},
	{"abs", "Core"},
}

// NormalizeRegion maps a body-region label to its canonical English name.
// Unknown labels are kept, title-cased. Empty stays empty.
func NormalizeRegion(s string) string {
	cleaned := strings.ToLower(CleanText(s))
	if cleaned == "" {
		return ""
	}
	for _, p := range regionPairs {
		if strings.Contains(cleaned, p.label) {
			return p.canonical
		}
	}
	return titleCase(cleaned)
}

// SplitMuscles splits a comma-separated muscle list into trimmed entries.
func SplitMuscles(s string) []string {
	cleaned := CleanText(s)
	if cleaned == "" {
		return nil
	}
	var muscles []string
	for _, part := range strings.Split(cleaned, ",") {
		if p := strings.TrimSpace(part); p != "" {
			muscles = append(muscles, p)
		}
	}
	return muscles
}

func titleCase(s string) string {
	var b strings.Builder
	startOfWord := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			startOfWord = true
			b.WriteRune(r)
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DecodeText wraps an export stream with BOM-aware decoding. Files written
// by spreadsheet tools on Windows are frequently UTF-16 with a BOM; plain
// UTF-8 (with or without BOM) passes through unchanged.
func DecodeText(r io.Reader) io.Reader {
	decoder := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
	return transform.NewReader(r, decoder)
}
