package server

import (
	"fmt"
	"maps"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// handleUpload ingests one export file sent as multipart form data under the
// "file" field. The format comes from the optional "format" field, falling
// back to the file extension.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field: " + err.Error()})
		return
	}
	defer file.Close()

	format := r.FormValue("format")
	if format == "" {
		format = formatFromName(header.Filename)
	}
	provider, ok := s.providers[format]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported format %q (expected %s)",
				format, strings.Join(slices.Sorted(maps.Keys(s.providers)), " or ")),
		})
		return
	}

	logID := s.beginImportLog(uid, provider.Name(), map[string]any{
		"filename": header.Filename,
		"size":     header.Size,
	})

	started := time.Now()
	result, err := provider.Ingest(r.Context(), file, uid)
	durationMs := int(time.Since(started).Milliseconds())

	s.finishImportLog(logID, uid, provider.Name(), result, err, durationMs)

	if err != nil {
		s.log.Error("upload ingest failed",
			"format", provider.Name(), "filename", header.Filename, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.log.Info("upload ingested",
		"format", provider.Name(),
		"filename", header.Filename,
		"sets_inserted", result.SetsInserted,
		"sessions_inserted", result.SessionsInserted,
		"duration_ms", durationMs,
	)
	writeJSON(w, http.StatusOK, result)
}

// formatFromName maps an upload's file extension to a provider format name.
func formatFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "csv"
	case ".xml":
		return "xml"
	}
	return ""
}
