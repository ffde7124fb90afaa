package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// uploadResult mirrors ingest.Result without importing the ingest package
// (which would pull in pgx and other server-side dependencies).
type uploadResult struct {
	SetsReceived     int    `json:"sets_received"`
	SetsInserted     int64  `json:"sets_inserted"`
	SetsSkipped      int64  `json:"sets_skipped"`
	SessionsSeen     int    `json:"sessions_seen"`
	SessionsInserted int64  `json:"sessions_inserted"`
	RowsDropped      int    `json:"rows_dropped"`
	AliasesApplied   int    `json:"aliases_applied"`
	Message          string `json:"message"`
}

// Client sends export files to the RepSight server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new HTTP client for the RepSight server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Upload POSTs a single export file to the server's upload endpoint as
// multipart form data. Retries up to 3 times with exponential backoff.
func (c *Client) Upload(path, format string) (*uploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.WriteField("format", format); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building form: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt-1)) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/import/upload", bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			var result uploadResult
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decoding response: %w", err)
			}
			return &result, nil
		}
		lastErr = fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, body)

		// Client errors won't fix themselves on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
