package upload

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SetsInserted     int64
	SetsSkipped      int64
	SessionsInserted int64
	AliasesApplied   int
}

// Uploader walks an export directory, finds new or changed CSV/XML export
// files, and POSTs them to the RepSight server.
type Uploader struct {
	client *Client
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader rooted at dir.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		root:   dir,
		dryRun: dryRun,
		log:    log,
	}
}

// formatForFile maps a file extension to an upload format, or "" if the
// file is not an export we handle.
func formatForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".xml":
		return "xml"
	}
	return ""
}

// Run executes the upload pipeline: walk the tree, skip unchanged files,
// upload the rest.
func (u *Uploader) Run() (*Stats, error) {
	err := filepath.WalkDir(u.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold app state, not exports
			if path != u.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		format := formatForFile(path)
		if format == "" {
			return nil
		}

		u.stats.FilesTotal++
		if err := u.processFile(path, format); err != nil {
			u.log.Warn("upload failed", "file", path, "error", err)
			u.stats.FilesErrored++
		}
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.root, err)
	}

	return &u.stats, nil
}

// processFile uploads a single export file unless the state DB says it was
// already sent unchanged.
func (u *Uploader) processFile(path, format string) error {
	relPath, err := filepath.Rel(u.root, path)
	if err != nil {
		relPath = path
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	size := info.Size()
	mtime := info.ModTime().Unix()

	uploaded, err := u.state.IsUploaded(relPath, size, mtime)
	if err != nil {
		return fmt.Errorf("state check: %w", err)
	}
	if uploaded {
		u.stats.FilesSkipped++
		return nil
	}

	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	// Same content under a fresh mtime: refresh the record, skip the send.
	same, err := u.state.HasHash(relPath, hash)
	if err != nil {
		return fmt.Errorf("state check: %w", err)
	}
	if same {
		if err := u.state.MarkUploaded(relPath, size, mtime, hash); err != nil {
			u.log.Warn("failed to refresh state", "file", relPath, "error", err)
		}
		u.stats.FilesSkipped++
		return nil
	}

	if u.dryRun {
		u.log.Info("dry-run: would upload", "file", relPath, "format", format, "bytes", size)
		u.stats.FilesUploaded++
		return nil
	}

	result, err := u.client.Upload(path, format)
	if err != nil {
		return err
	}

	u.stats.SetsInserted += result.SetsInserted
	u.stats.SetsSkipped += result.SetsSkipped
	u.stats.SessionsInserted += result.SessionsInserted
	u.stats.AliasesApplied += result.AliasesApplied

	if err := u.state.MarkUploaded(relPath, size, mtime, hash); err != nil {
		u.log.Warn("failed to mark uploaded", "file", relPath, "error", err)
	}
	u.stats.FilesUploaded++

	u.log.Info("uploaded",
		"file", relPath,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
		"sessions_inserted", result.SessionsInserted,
	)

	return nil
}
