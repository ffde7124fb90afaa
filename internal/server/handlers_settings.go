package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/meltforce/repsight/internal/ingest"
	"github.com/meltforce/repsight/internal/storage"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.db.GetDataStats(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := intQuery(r, "limit", 50)
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	exercises, err := s.db.ListExercises(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := s.db.GetExerciseAliases(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, aliases)
}

// beginImportLog records a running import and returns its log ID. Returns 0
// when the insert fails; finishImportLog then degrades to a plain insert.
func (s *Server) beginImportLog(uid int, source string, meta map[string]any) int64 {
	entry := storage.ImportLog{
		UserID: uid,
		Source: source,
		Status: "running",
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			raw := json.RawMessage(b)
			entry.Metadata = &raw
		}
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	id, err := s.db.InsertImportLog(ctx, entry)
	if err != nil {
		s.log.Error("failed to log import start", "source", source, "error", err)
		return 0
	}
	return id
}

// finishImportLog completes the entry created by beginImportLog.
func (s *Server) finishImportLog(id int64, uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}

	entry := storage.ImportLog{
		UserID:       uid,
		Source:       source,
		Status:       status,
		DurationMs:   &durationMs,
		ErrorMessage: errMsg,
	}
	if result != nil {
		entry.SetsReceived = result.SetsReceived
		entry.SetsInserted = result.SetsInserted
		entry.SessionsSeen = result.SessionsSeen
		entry.SessionsInserted = result.SessionsInserted
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if id == 0 {
		if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
			s.log.Error("failed to log import", "source", source, "error", err)
		}
		return
	}
	if err := s.db.UpdateImportLog(ctx, id, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
