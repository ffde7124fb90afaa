// Package xmllog parses XML training-log exports. The format is loose:
// record elements may be named log, workout, session, set, or entry, field
// values may sit in child elements or attributes, and tags come in French
// and English variants.
package xmllog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/meltforce/repsight/internal/ingest"
)

// tagAliases maps normalized field names to the XML tags and attributes
// that exports use for them.
var tagAliases = map[string][]string{
	"date":              {"date"},
	"training":          {"training", "workout", "entraînement", "entrainement"},
	"time":              {"time", "heure", "hour", "start_time"},
	"exercise":          {"exercise", "exercice"},
	"region":            {"region", "région", "zone", "muscle_group"},
	"muscles_primary":   {"muscles_primary", "primary_muscles", "muscles_primaires"},
	"muscles_secondary": {"muscles_secondary", "secondary_muscles", "muscles_secondaires"},
	"series_type":       {"series_type", "set_type", "type_serie", "type"},
	"reps":              {"reps", "repetitions", "répétitions", "rep"},
	"weight":            {"weight", "poids", "load", "charge"},
	"notes":             {"notes", "comment", "commentaire", "remarks"},
	"skipped":           {"skipped", "sautee", "sautée", "skip"},
}

// recordNames are the element names that mark one record. The outermost
// match wins, so a <session> wrapping <set> children is one record with
// the sets flattened into it.
var recordNames = map[string]bool{
	"log": true, "workout": true, "session": true, "set": true, "entry": true,
}

type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

// Parse reads an XML training-log export and returns normalized rows.
func Parse(r io.Reader) ([]ingest.Row, error) {
	data, err := io.ReadAll(ingest.DecodeText(r))
	if err != nil {
		return nil, fmt.Errorf("reading XML: %w", err)
	}
	data = cleanContent(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var root element
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	records := findRecords(root)
	rows := make([]ingest.Row, 0, len(records))
	for _, record := range records {
		fields := extractFields(record)
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, ingest.Row{
			Date:             ingest.ParseDate(fields["date"]),
			TimeOfDay:        ingest.ParseTimeOfDay(fields["time"]),
			Training:         ingest.CleanText(fields["training"]),
			Exercise:         ingest.CleanText(fields["exercise"]),
			Region:           ingest.CleanText(fields["region"]),
			MusclesPrimary:   ingest.SplitMuscles(fields["muscles_primary"]),
			MusclesSecondary: ingest.SplitMuscles(fields["muscles_secondary"]),
			Role:             ingest.ParseRole(fields["series_type"]),
			Reps:             ingest.ParseReps(fields["reps"]),
			WeightKg:         ingest.ParseFrenchDecimal(fields["weight"]),
			Notes:            ingest.CleanText(fields["notes"]),
			Skipped:          ingest.ParseBool(fields["skipped"]),
		})
	}
	return rows, nil
}

// cleanContent strips NUL bytes and turns non-breaking spaces into plain
// ones before the decoder sees them.
func cleanContent(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte{0}, nil)
	return bytes.ReplaceAll(data, []byte(" "), []byte(" "))
}

// findRecords walks the tree collecting record elements without descending
// into them. When the document has none, the root's direct children serve
// as records, and a childless root is itself the single record.
func findRecords(root element) []element {
	var records []element
	var walk func(el element)
	walk = func(el element) {
		if recordNames[strings.ToLower(el.XMLName.Local)] {
			records = append(records, el)
			return
		}
		for _, child := range el.Children {
			walk(child)
		}
	}
	for _, child := range root.Children {
		walk(child)
	}

	if len(records) == 0 {
		if recordNames[strings.ToLower(root.XMLName.Local)] || len(root.Children) == 0 {
			return []element{root}
		}
		return root.Children
	}
	return records
}

// extractFields maps a record's attributes and children onto normalized
// field names. A child that itself has children (a list of muscles, say)
// contributes its sub-values joined with commas.
func extractFields(record element) map[string]string {
	fields := make(map[string]string)

	for _, attr := range record.Attrs {
		if name, ok := mapTag(attr.Name.Local); ok {
			fields[name] = attr.Value
		}
	}

	for _, child := range record.Children {
		name, ok := mapTag(child.XMLName.Local)
		if !ok {
			continue
		}
		if len(child.Children) > 0 {
			var parts []string
			for _, sub := range child.Children {
				if text := strings.TrimSpace(sub.Text); text != "" {
					parts = append(parts, text)
				}
			}
			fields[name] = strings.Join(parts, ", ")
			continue
		}
		fields[name] = strings.TrimSpace(child.Text)
	}
	return fields
}

// mapTag resolves an XML tag or attribute name, with any namespace prefix
// already stripped by the decoder, to a normalized field name.
func mapTag(tag string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(tag))
	for name, aliases := range tagAliases {
		for _, alias := range aliases {
			if cleaned == alias {
				return name, true
			}
		}
	}
	return "", false
}
