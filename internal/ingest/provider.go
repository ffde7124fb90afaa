package ingest

import (
	"context"
	"io"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	SetsReceived     int   `json:"sets_received"`
	SetsInserted     int64 `json:"sets_inserted"`
	SetsSkipped      int64 `json:"sets_skipped"`
	SessionsSeen     int   `json:"sessions_seen"`
	SessionsInserted int64 `json:"sessions_inserted"`
	RowsDropped      int   `json:"rows_dropped,omitempty"`
	AliasesApplied   int   `json:"aliases_applied,omitempty"`

	Message string `json:"message,omitempty"`
}

// Provider parses one export format and stores the normalized data.
type Provider interface {
	// Name identifies the provider in import logs ("csv", "xml").
	Name() string
	// Ingest parses an export stream and stores the data for a user.
	Ingest(ctx context.Context, r io.Reader, userID int) (*Result, error)
}
