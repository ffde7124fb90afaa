package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/repsight/internal/analytics"
	"github.com/meltforce/repsight/internal/models"
)

// timeRange parses optional start/end tool arguments into query bounds.
// Open bounds cover all stored history; a date-only end is made inclusive.
func timeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start time.Time
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if len(endStr) == len("2006-01-02") {
			end = end.AddDate(0, 0, 1)
		}
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// loadSets fetches the caller's sets honoring the shared start/end/exercise
// tool arguments.
func (h *handlers) loadSets(ctx context.Context, req mcp.CallToolRequest) ([]models.SetRecord, error) {
	uid := UserIDFromContext(ctx)
	startStr := req.GetString("start", "")
	endStr := req.GetString("end", "")
	exercise := req.GetString("exercise", "")

	var rows []models.WorkoutSetRow
	var err error
	if startStr != "" || endStr != "" {
		var start, end time.Time
		start, end, err = timeRange(startStr, endStr)
		if err != nil {
			return nil, err
		}
		rows, err = h.ds.QueryWorkoutSetsRange(ctx, uid, start, end)
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
		rows, err = h.ds.QueryWorkoutSets(ctx, uid, exercise)
	}
	if err != nil {
		return nil, err
	}
	return models.SetRecords(rows), nil
}

// --- Tool definitions ---

var toolGetVolumeSummary = mcp.NewTool("get_volume_summary",
	mcp.WithDescription("Aggregate training volume (weight x reps over non-skipped working sets): totals, per-set and per-session averages, and the session volume distribution. Flags synthetic dates when session order had to be inferred."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to all history.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to all history.")),
	mcp.WithString("exercise", mcp.Description("Filter to one exercise (canonical name, e.g. 'bench-press')")),
)

var toolGetOneRM = mcp.NewTool("get_one_rm",
	mcp.WithDescription("Estimated one-rep max for an exercise: best and most recent estimates under the chosen formula, plus the best value under every supported formula."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Canonical exercise name (e.g. 'bench-press', 'squat')")),
	mcp.WithString("formula", mcp.Description("Estimation formula. Defaults to the configured one."), mcp.Enum("epley", "brzycki", "lander", "oconner", "blend")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to all history.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to all history.")),
)

var toolGetProgression = mcp.NewTool("get_progression",
	mcp.WithDescription("Session-by-session progression for an exercise: best one-rep max, total volume, and average weight per session, with a cumulative linear trend slope."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Canonical exercise name")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to all history.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to all history.")),
)

var toolGetPlateaus = mcp.NewTool("get_plateaus",
	mcp.WithDescription("Plateau detection across all exercises: flags exercises whose recent one-rep-max estimates are flat (low variation and near-zero slope over the trailing window)."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to all history.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to all history.")),
)

var toolGetRecommendations = mcp.NewTool("get_recommendations",
	mcp.WithDescription("Training recommendations derived from progression trends and plateau detection: reinforce, deload, or investigate per exercise."),
	mcp.WithNumber("days", mcp.Description("Volume trend window in days. Defaults to 30.")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to all history.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to all history.")),
)

var toolGetSessionSummary = mcp.NewTool("get_session_summary",
	mcp.WithDescription("Per-session summaries: volume, set counts by role, exercises performed, estimated duration, volume density, and per-exercise fatigue (first-to-last set weight and rep change)."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to all history.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to all history.")),
)

var toolGetDataStats = mcp.NewTool("get_data_stats",
	mcp.WithDescription("Aggregate statistics about stored training data: set and session counts, date range, and per-exercise set counts with max weights."),
)

// --- Tool handlers ---

func (h *handlers) getVolumeSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sets, err := h.loadSets(ctx, req)
	if err != nil {
		h.log.Error("mcp get_volume_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(analytics.SummarizeVolume(sets))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getOneRM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	f := h.opts.Formula
	if name := req.GetString("formula", ""); name != "" {
		f, err = analytics.ParseFormula(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	sets, err := h.loadSets(ctx, req)
	if err != nil {
		h.log.Error("mcp get_one_rm", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"estimate":   h.onerm.ExerciseOneRM(sets, exercise, f),
		"by_formula": h.onerm.BestByFormula(sets, exercise),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	sets, err := h.loadSets(ctx, req)
	if err != nil {
		h.log.Error("mcp get_progression", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(h.prog.Progression(sets, exercise))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPlateaus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sets, err := h.loadSets(ctx, req)
	if err != nil {
		h.log.Error("mcp get_plateaus", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(h.prog.Plateaus(sets))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRecommendations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sets, err := h.loadSets(ctx, req)
	if err != nil {
		h.log.Error("mcp get_recommendations", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	days := req.GetInt("days", 30)
	metrics := h.prog.AllMetrics(sets)
	trends := h.prog.VolumeTrends(sets, days)

	result, err := mcp.NewToolResultJSON(map[string]any{
		"window_days":     days,
		"recommendations": h.prog.Recommend(metrics, trends),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sets, err := h.loadSets(ctx, req)
	if err != nil {
		h.log.Error("mcp get_session_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(h.features.SessionSummaries(sets))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getDataStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	stats, err := h.ds.GetDataStats(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_data_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
