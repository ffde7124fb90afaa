package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/repsight/internal/ingest"
	"github.com/meltforce/repsight/internal/ingest/csvlog"
	"github.com/meltforce/repsight/internal/ingest/xmllog"
	"github.com/meltforce/repsight/internal/storage"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	SetsParsed       int
	SetsInserted     int64
	SetsSkipped      int64
	SessionsInserted int64
	RowsDropped      int
	AliasesApplied   int
	AliasesReapplied int64
}

// Importer reads training export files from a directory tree and inserts
// the parsed data into the database.
type Importer struct {
	db     *storage.DB
	log    *slog.Logger
	userID int
	runID  uuid.UUID
	dryRun bool
	stats  Stats
}

// New creates a new Importer for the given user.
func New(db *storage.DB, userID int, dryRun bool, log *slog.Logger) *Importer {
	return &Importer{db: db, log: log, userID: userID, runID: uuid.New(), dryRun: dryRun}
}

// RunID identifies this import run in import log metadata.
func (imp *Importer) RunID() uuid.UUID { return imp.runID }

// exportFormat maps a filename to its parser, or "" for files we ignore.
// A trailing .gz is stripped first; archived exports are often gzipped.
func exportFormat(path string) string {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(name) {
	case ".csv":
		return "csv"
	case ".xml":
		return "xml"
	}
	return ""
}

// Import processes all export files under dir.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if exportFormat(path) != "" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return &imp.stats, fmt.Errorf("walking %s: %w", dir, err)
	}

	// Phase 1: parse and store each file
	for _, path := range paths {
		if err := imp.importFile(ctx, path); err != nil {
			imp.log.Warn("import failed", "file", path, "error", err)
			imp.stats.FilesErrored++
		}
	}

	// Phase 2: rename previously stored sets per the current alias table
	if !imp.dryRun {
		reapplied, err := ReapplyAliases(ctx, imp.db, imp.log)
		if err != nil {
			return &imp.stats, fmt.Errorf("reapplying aliases: %w", err)
		}
		imp.stats.AliasesReapplied = reapplied
	}

	return &imp.stats, nil
}

// importFile parses one export file and stores its rows.
func (imp *Importer) importFile(ctx context.Context, path string) error {
	r, closeFile, err := openExport(path)
	if err != nil {
		return err
	}
	defer func() { _ = closeFile() }()

	format := exportFormat(path)
	var rows []ingest.Row
	switch format {
	case "csv":
		rows, err = csvlog.Parse(r)
	case "xml":
		rows, err = xmllog.Parse(r)
	}
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	if len(rows) == 0 {
		imp.stats.FilesSkipped++
		return nil
	}
	imp.stats.SetsParsed += len(rows)

	if imp.dryRun {
		imp.stats.FilesProcessed++
		imp.log.Info("dry-run: parsed", "file", path, "rows", len(rows))
		return nil
	}

	started := time.Now()
	result, err := ingest.Store(ctx, imp.db, imp.log, imp.userID, format, rows)
	durationMs := int(time.Since(started).Milliseconds())
	imp.logRun(ctx, path, format, result, err, durationMs)
	if err != nil {
		return err
	}

	imp.stats.FilesProcessed++
	imp.stats.SetsInserted += result.SetsInserted
	imp.stats.SetsSkipped += result.SetsSkipped
	imp.stats.SessionsInserted += result.SessionsInserted
	imp.stats.RowsDropped += result.RowsDropped
	imp.stats.AliasesApplied += result.AliasesApplied

	imp.log.Info("imported",
		"file", path,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
		"sessions_inserted", result.SessionsInserted,
	)
	return nil
}

// logRun records one file's outcome in import_logs, tagged with the run ID.
func (imp *Importer) logRun(ctx context.Context, path, format string, result *ingest.Result, importErr error, durationMs int) {
	entry := storage.ImportLog{
		UserID:     imp.userID,
		Source:     format,
		Status:     "success",
		DurationMs: &durationMs,
	}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.SetsReceived = result.SetsReceived
		entry.SetsInserted = result.SetsInserted
		entry.SessionsSeen = result.SessionsSeen
		entry.SessionsInserted = result.SessionsInserted
	}

	meta, err := json.Marshal(map[string]any{
		"run_id":   imp.runID.String(),
		"filename": filepath.Base(path),
	})
	if err == nil {
		raw := json.RawMessage(meta)
		entry.Metadata = &raw
	}

	if _, err := imp.db.InsertImportLog(ctx, entry); err != nil {
		imp.log.Warn("failed to write import log", "file", path, "error", err)
	}
}
