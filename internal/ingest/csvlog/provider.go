package csvlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/meltforce/repsight/internal/ingest"
	"github.com/meltforce/repsight/internal/storage"
)

// Provider processes French training-log CSV exports.
type Provider struct {
	db  *storage.DB
	log *slog.Logger
}

// NewProvider creates a new CSV ingest provider.
func NewProvider(db *storage.DB, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Name implements ingest.Provider.
func (p *Provider) Name() string { return "csv" }

// Ingest parses a CSV export and stores the normalized set data.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	rows, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return ingest.Store(ctx, p.db, p.log, userID, p.Name(), rows)
}
