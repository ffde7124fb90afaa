package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/repsight/internal/analytics"
	"github.com/meltforce/repsight/internal/models"
)

// defaultTrendDays is the window for volume trends and recommendations
// when the request does not specify one.
const defaultTrendDays = 30

func (s *Server) handleVolumeSummary(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.SummarizeVolume(sets))
}

func (s *Server) handleSessionVolumes(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.SessionVolumes(sets))
}

func (s *Server) handleWeeklyVolumes(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	start := s.opts.WeekStart
	if name := r.URL.Query().Get("week_start"); name != "" {
		wd, err := analytics.ParseWeekday(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		start = wd
	}
	writeJSON(w, http.StatusOK, analytics.WeeklyVolumes(sets, start))
}

func (s *Server) handleRollingVolumes(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	window := intQuery(r, "window", s.opts.RollingWindow)
	writeJSON(w, http.StatusOK, analytics.RollingVolumes(sets, window))
}

func (s *Server) handleRegionVolumes(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.RegionVolumes(sets))
}

func (s *Server) handleAllOneRM(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	f, ok := s.formulaFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.onerm.AllOneRM(sets, f))
}

// oneRMResponse is the single-exercise estimate plus the best value under
// every formula, so clients can compare without extra requests.
type oneRMResponse struct {
	analytics.ExerciseOneRM
	ByFormula map[string]float64 `json:"by_formula"`
}

func (s *Server) handleExerciseOneRM(w http.ResponseWriter, r *http.Request) {
	exercise, ok := requireExercise(w, r)
	if !ok {
		return
	}
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	f, ok := s.formulaFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, oneRMResponse{
		ExerciseOneRM: s.onerm.ExerciseOneRM(sets, exercise, f),
		ByFormula:     s.onerm.BestByFormula(sets, exercise),
	})
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	exercise, ok := requireExercise(w, r)
	if !ok {
		return
	}
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.prog.Progression(sets, exercise))
}

func (s *Server) handlePlateaus(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.prog.Plateaus(sets))
}

func (s *Server) handleAllMetrics(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.prog.AllMetrics(sets))
}

func (s *Server) handleExerciseMetrics(w http.ResponseWriter, r *http.Request) {
	exercise, ok := requireExercise(w, r)
	if !ok {
		return
	}
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.prog.Metrics(sets, exercise))
}

func (s *Server) handleSessionSummaries(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.features.SessionSummaries(sets))
}

func (s *Server) handleCompleteAnalysis(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	days := intQuery(r, "days", defaultTrendDays)
	writeJSON(w, http.StatusOK, s.features.Analyze(sets, days))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	sets, ok := s.loadSets(w, r)
	if !ok {
		return
	}
	days := intQuery(r, "days", defaultTrendDays)
	metrics := s.prog.AllMetrics(sets)
	trends := s.prog.VolumeTrends(sets, days)
	writeJSON(w, http.StatusOK, map[string]any{
		"window_days":     days,
		"recommendations": s.prog.Recommend(metrics, trends),
	})
}

// handleSets returns the caller's raw set rows, honoring the same filters
// as the analytics endpoints. This is the feed for remote MCP clients.
func (s *Server) handleSets(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.loadRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// loadRows fetches the caller's set rows, honoring optional exercise and
// start/end query filters. On failure the error response is already written.
func (s *Server) loadRows(w http.ResponseWriter, r *http.Request) ([]models.WorkoutSetRow, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return nil, false
	}

	start, end, bounded, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}

	exercise := r.URL.Query().Get("exercise")

	var rows []models.WorkoutSetRow
	if bounded {
		rows, err = s.db.QueryWorkoutSetsRange(r.Context(), uid, start, end)
		if err == nil && exercise != "" {
			filtered := rows[:0]
			for _, row := range rows {
				if row.Exercise == exercise {
					filtered = append(filtered, row)
				}
			}
			rows = filtered
		}
	} else {
		rows, err = s.db.QueryWorkoutSets(r.Context(), uid, exercise)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return rows, true
}

func (s *Server) loadSets(w http.ResponseWriter, r *http.Request) ([]models.SetRecord, bool) {
	rows, ok := s.loadRows(w, r)
	if !ok {
		return nil, false
	}
	return models.SetRecords(rows), true
}

func (s *Server) formulaFromQuery(w http.ResponseWriter, r *http.Request) (analytics.Formula, bool) {
	name := r.URL.Query().Get("formula")
	if name == "" {
		return s.opts.Formula, true
	}
	f, err := analytics.ParseFormula(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, false
	}
	return f, true
}

// requireExercise extracts the exercise path parameter, decoding
// percent-escapes so accented names round-trip.
func requireExercise(w http.ResponseWriter, r *http.Request) (string, bool) {
	exercise := chi.URLParam(r, "exercise")
	if decoded, err := url.PathUnescape(exercise); err == nil {
		exercise = decoded
	}
	if exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise is required"})
		return "", false
	}
	return exercise, true
}

func intQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseDateRange reads optional start/end query parameters. Dates may be
// YYYY-MM-DD or RFC 3339; a date-only end is made inclusive by advancing to
// the next day. bounded reports whether either bound was supplied.
func parseDateRange(r *http.Request) (start, end time.Time, bounded bool, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" && endStr == "" {
		return time.Time{}, time.Time{}, false, nil
	}

	end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if startStr != "" {
		start, err = parseDateParam(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
	}
	if endStr != "" {
		end, err = parseDateParam(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
		if len(endStr) == len("2006-01-02") {
			// End of day for date-only
			end = end.AddDate(0, 0, 1)
		}
	}
	return start, end, true, nil
}

func parseDateParam(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
	}
	return t, err
}
