package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/repsight/internal/models"
)

// recentSessionCount bounds the recent_sessions resource.
const recentSessionCount = 10

func (h *handlers) trainingOverview(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	rows, err := h.ds.QueryWorkoutSets(ctx, uid, "")
	if err != nil {
		return nil, err
	}

	analysis := h.features.Analyze(models.SetRecords(rows), 30)

	data, err := json.Marshal(analysis)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	rows, err := h.ds.QueryWorkoutSets(ctx, uid, "")
	if err != nil {
		return nil, err
	}

	summaries := h.features.SessionSummaries(models.SetRecords(rows))
	if len(summaries) > recentSessionCount {
		summaries = summaries[len(summaries)-recentSessionCount:]
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	exercises, err := h.ds.ListExercises(ctx, uid)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(exercises)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
