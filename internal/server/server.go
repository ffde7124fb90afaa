package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"

	"github.com/meltforce/repsight/internal/analytics"
	"github.com/meltforce/repsight/internal/ingest"
	"github.com/meltforce/repsight/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        *storage.DB
	providers map[string]ingest.Provider
	log       *slog.Logger
	apiKey    string
	opts      analytics.Options
	onerm     *analytics.OneRMCalculator
	prog      *analytics.ProgressionAnalyzer
	features  *analytics.FeatureCalculator
	router    chi.Router

	tsMu sync.Mutex
	ts   *local.Client
}

// New creates a new Server with all routes configured. Providers are keyed
// by their format name and selected per upload.
func New(db *storage.DB, providers []ingest.Provider, apiKey string, opts analytics.Options, log *slog.Logger) *Server {
	s := &Server{
		db:        db,
		providers: make(map[string]ingest.Provider, len(providers)),
		log:       log,
		apiKey:    apiKey,
		opts:      opts,
		onerm:     analytics.NewOneRMCalculator(log),
		prog:      analytics.NewProgressionAnalyzer(opts, log),
		features:  analytics.NewFeatureCalculator(opts, log),
		router:    chi.NewRouter(),
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Import endpoints (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.identity)
		r.Post("/upload", s.handleUpload)
	})

	// Analytics API endpoints (tsnet identity when attached)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/api/v1/me", s.handleMe)

		r.Get("/api/v1/volume/summary", s.handleVolumeSummary)
		r.Get("/api/v1/volume/sessions", s.handleSessionVolumes)
		r.Get("/api/v1/volume/weekly", s.handleWeeklyVolumes)
		r.Get("/api/v1/volume/rolling", s.handleRollingVolumes)
		r.Get("/api/v1/volume/regions", s.handleRegionVolumes)

		r.Get("/api/v1/onerm", s.handleAllOneRM)
		r.Get("/api/v1/onerm/{exercise}", s.handleExerciseOneRM)

		r.Get("/api/v1/progression/plateaus", s.handlePlateaus)
		r.Get("/api/v1/progression/{exercise}", s.handleProgression)

		r.Get("/api/v1/metrics", s.handleAllMetrics)
		r.Get("/api/v1/metrics/{exercise}", s.handleExerciseMetrics)

		r.Get("/api/v1/sets", s.handleSets)
		r.Get("/api/v1/sessions", s.handleSessionSummaries)
		r.Get("/api/v1/analysis", s.handleCompleteAnalysis)
		r.Get("/api/v1/recommendations", s.handleRecommendations)

		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/import-logs", s.handleImportLogs)
		r.Get("/api/v1/exercises", s.handleExercises)
		r.Get("/api/v1/aliases", s.handleAliases)
	})
}
