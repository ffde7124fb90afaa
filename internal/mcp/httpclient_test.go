package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meltforce/repsight/internal/models"
	"github.com/meltforce/repsight/internal/storage"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by path. Verifies the HTTP client sends correct paths and query params.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }
func timePtr(v time.Time) *time.Time { return &v }

// TestQueryWorkoutSets verifies the HTTP client forwards the exercise filter
// and correctly parses the JSON array response.
func TestQueryWorkoutSets(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("exercise"); got != "Squat" {
				t.Errorf("exercise=%q, want Squat", got)
			}
			if r.URL.Query().Has("start") || r.URL.Query().Has("end") {
				t.Error("unexpected start/end params on unbounded query")
			}

			writeTestJSON(t, w, []models.WorkoutSetRow{
				{
					SessionKey:  "2024-01-15|Legs",
					Exercise:    "Squat",
					SeriesRole:  models.RoleWorkingSet,
					SetIndex:    1,
					Reps:        intPtr(5),
					WeightKg:    floatPtr(100),
					PerformedOn: timePtr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	rows, err := client.QueryWorkoutSets(context.Background(), 1, "Squat")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Exercise != "Squat" {
		t.Errorf("exercise = %q, want Squat", rows[0].Exercise)
	}
	if rows[0].WeightKg == nil || *rows[0].WeightKg != 100 {
		t.Errorf("weight = %v, want 100", rows[0].WeightKg)
	}
}

// TestQueryWorkoutSetsRange verifies the client sends RFC3339 start/end params.
func TestQueryWorkoutSetsRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/sets": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != "2024-01-01T00:00:00Z" {
				t.Errorf("start=%q, want 2024-01-01T00:00:00Z", got)
			}
			if got := r.URL.Query().Get("end"); got != "2024-02-01T00:00:00Z" {
				t.Errorf("end=%q, want 2024-02-01T00:00:00Z", got)
			}

			writeTestJSON(t, w, []models.WorkoutSetRow{
				{SessionKey: "2024-01-15|Push", Exercise: "Développé couché", SetIndex: 1},
				{SessionKey: "2024-01-17|Push", Exercise: "Développé couché", SetIndex: 1},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	rows, err := client.QueryWorkoutSetsRange(context.Background(), 1, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].SessionKey != "2024-01-17|Push" {
		t.Errorf("session_key = %q, want 2024-01-17|Push", rows[1].SessionKey)
	}
}

// TestListExercises verifies the exercises endpoint returns a flat array.
func TestListExercises(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, []string{"Développé couché", "Squat", "Tractions"})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	exercises, err := client.ListExercises(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(exercises) != 3 {
		t.Fatalf("got %d exercises, want 3", len(exercises))
	}
	if exercises[0] != "Développé couché" {
		t.Errorf("exercises[0] = %q, want Développé couché", exercises[0])
	}
}

// TestGetDataStats verifies the client correctly parses a single struct response.
func TestGetDataStats(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/stats": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, storage.DataStats{
				TotalSets:      420,
				WorkingSets:    360,
				TotalSessions:  58,
				TotalExercises: 12,
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	stats, err := client.GetDataStats(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSets != 420 {
		t.Errorf("total_sets = %d, want 420", stats.TotalSets)
	}
	if stats.TotalSessions != 58 {
		t.Errorf("total_sessions = %d, want 58", stats.TotalSessions)
	}
}

// TestHTTPClientServerError verifies the client returns an error on non-200 responses.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/exercises": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"database down"}`))
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	_, err := client.ListExercises(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
