package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/meltforce/repsight/internal/models"
)

// proxyStart is the first date assigned when a dataset has sessions without
// real dates. Sessions are then dated by session id order, one day apart,
// so every date-based analytic still has a usable axis.
var proxyStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Timeline resolves every session id in a dataset to a date and a stable
// chronological position. If any session lacks a real date, all sessions
// get synthetic dates; real and synthetic dates are never mixed.
type Timeline struct {
	Synthetic bool

	dates map[string]time.Time
	pos   map[string]int
	seq   []string
}

// BuildTimeline scans the sets and resolves session dates. Sessions keep
// their recorded dates only when every session has one; otherwise ids are
// sorted ascending and dated from proxyStart one day apart.
func BuildTimeline(sets []models.SetRecord) Timeline {
	recorded := make(map[string]time.Time)
	seen := make(map[string]struct{})
	var ids []string
	for _, s := range sets {
		if _, ok := seen[s.SessionID]; !ok {
			seen[s.SessionID] = struct{}{}
			ids = append(ids, s.SessionID)
		}
		if s.PerformedAt != nil {
			if _, ok := recorded[s.SessionID]; !ok {
				recorded[s.SessionID] = dateOnly(*s.PerformedAt)
			}
		}
	}

	tl := Timeline{
		dates: make(map[string]time.Time, len(ids)),
		pos:   make(map[string]int, len(ids)),
	}
	if len(ids) == 0 {
		return tl
	}

	if len(recorded) < len(ids) {
		tl.Synthetic = true
		slices.Sort(ids)
		for i, id := range ids {
			tl.dates[id] = proxyStart.AddDate(0, 0, i)
		}
	} else {
		for id, d := range recorded {
			tl.dates[id] = d
		}
		slices.SortFunc(ids, func(a, b string) int {
			if c := tl.dates[a].Compare(tl.dates[b]); c != 0 {
				return c
			}
			return strings.Compare(a, b)
		})
	}

	tl.seq = ids
	for i, id := range ids {
		tl.pos[id] = i
	}
	return tl
}

// Date returns the resolved date for a session id.
func (t Timeline) Date(sessionID string) (time.Time, bool) {
	d, ok := t.dates[sessionID]
	return d, ok
}

// Sessions returns session ids in chronological order.
func (t Timeline) Sessions() []string {
	return t.seq
}

// Position returns the chronological index of a session id, or -1 when the
// id is not part of the timeline.
func (t Timeline) Position(sessionID string) int {
	p, ok := t.pos[sessionID]
	if !ok {
		return -1
	}
	return p
}

// Len returns the number of sessions on the timeline.
func (t Timeline) Len() int {
	return len(t.seq)
}

// Latest returns the date of the chronologically last session.
func (t Timeline) Latest() (time.Time, bool) {
	if len(t.seq) == 0 {
		return time.Time{}, false
	}
	return t.dates[t.seq[len(t.seq)-1]], true
}

// Span returns the number of days between the first and last session.
func (t Timeline) Span() int {
	if len(t.seq) < 2 {
		return 0
	}
	first := t.dates[t.seq[0]]
	last := t.dates[t.seq[len(t.seq)-1]]
	return int(last.Sub(first).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart truncates a date to the most recent occurrence of the given
// weekday, that day included.
func weekStart(t time.Time, start time.Weekday) time.Time {
	d := dateOnly(t)
	offset := (int(d.Weekday()) - int(start) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// sortSetsChrono orders sets by timeline position, then by set index, so
// first/last comparisons inside a session are stable.
func sortSetsChrono(tl Timeline, sets []models.SetRecord) []models.SetRecord {
	out := slices.Clone(sets)
	slices.SortStableFunc(out, func(a, b models.SetRecord) int {
		pa, pb := tl.Position(a.SessionID), tl.Position(b.SessionID)
		if pa != pb {
			return pa - pb
		}
		return a.SetIndex - b.SetIndex
	})
	return out
}
