package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/repsight/internal/analytics"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, opts analytics.Options, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RepSight", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RepSight strength training analytics server. Query training volume, one-rep-max estimates, progression trends, plateau detection, session summaries, and recommendations. All data is scoped to the authenticated user."),
	)

	h := &handlers{
		ds:       ds,
		opts:     opts,
		onerm:    analytics.NewOneRMCalculator(log),
		prog:     analytics.NewProgressionAnalyzer(opts, log),
		features: analytics.NewFeatureCalculator(opts, log),
		log:      log,
	}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetVolumeSummary, Handler: h.getVolumeSummary},
		server.ServerTool{Tool: toolGetOneRM, Handler: h.getOneRM},
		server.ServerTool{Tool: toolGetProgression, Handler: h.getProgression},
		server.ServerTool{Tool: toolGetPlateaus, Handler: h.getPlateaus},
		server.ServerTool{Tool: toolGetRecommendations, Handler: h.getRecommendations},
		server.ServerTool{Tool: toolGetSessionSummary, Handler: h.getSessionSummary},
		server.ServerTool{Tool: toolGetDataStats, Handler: h.getDataStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resTrainingOverview, Handler: h.trainingOverview},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds       DataSource
	opts     analytics.Options
	onerm    *analytics.OneRMCalculator
	prog     *analytics.ProgressionAnalyzer
	features *analytics.FeatureCalculator
	log      *slog.Logger
}

// --- Resource definitions ---

var resTrainingOverview = mcp.NewResource(
	"repsight://training_overview",
	"Training Overview",
	mcp.WithResourceDescription("Complete analysis of all stored training data: volume summary, per-exercise reports, performance metrics, volume trends, and recommendations"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"repsight://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Summaries of the ten most recent training sessions"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"repsight://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises present in the stored training data, by canonical name"),
	mcp.WithMIMEType("application/json"),
)
