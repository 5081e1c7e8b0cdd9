// Package upload publishes merged case records to the DataMate-style
// ingestion API in fixed-size batches. A failed batch is logged with
// enough context to replay it by hand and never aborts the run.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ruipath/pathoprep/internal/table"
)

// DefaultBaseURL is the in-cluster ingestion API root.
const DefaultBaseURL = "http://datamate-backend:8080"

// DefaultBatchSize is the number of rows posted per request.
const DefaultBatchSize = 1000

// Record kinds posted per batch. Every batch yields one request per kind.
const (
	KindSlide     = "slide"
	KindThumbnail = "thumbnail"
)

// Column names the uploader derives records from.
const (
	colSlidePath     = "slide_path"
	colThumbnailPath = "thumbnail_path"
)

// FileRecord is one entry of the ingestion payload. Slide records carry
// the remaining row columns as metadata; thumbnail records carry only the
// file path.
type FileRecord struct {
	FilePath string            `json:"filePath"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BatchResult records the outcome of one batch/kind request.
type BatchResult struct {
	Kind     string
	StartRow int
	EndRow   int
	Records  int
	Err      error
}

// Report summarizes a publish call for the run ledger.
type Report struct {
	Batches []BatchResult
}

// Failed returns the number of batch/kind requests that errored.
func (r Report) Failed() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err != nil {
			n++
		}
	}
	return n
}

// Config holds uploader configuration.
type Config struct {
	// BaseURL is the ingestion API root, e.g. "http://datamate-backend:8080".
	BaseURL string
	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
	// HTTPClient is the client used for POSTs (http.DefaultClient if nil).
	HTTPClient *http.Client
	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger
}

// Client posts record batches to the ingestion endpoint.
type Client struct {
	baseURL    string
	batchSize  int
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an upload client.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		batchSize:  batchSize,
		httpClient: httpClient,
		logger:     logger,
	}
}

// EndpointFor returns the upload endpoint for a dataset name.
func (c *Client) EndpointFor(dataset string) string {
	return fmt.Sprintf("%s/api/data-management/datasets/%s/files/upload/add", c.baseURL, dataset)
}

// Publish partitions the table into batches and posts slide and thumbnail
// records for each batch. Any per-batch failure is logged and skipped;
// Publish itself never fails the pipeline. The table is not modified.
func (c *Client) Publish(ctx context.Context, t *table.Table, dataset string) Report {
	endpoint := c.EndpointFor(dataset)
	c.logger.Info("publishing records to ingestion API",
		"endpoint", endpoint, "rows", t.Len(), "batch_size", c.batchSize)

	kinds := []string{KindSlide, KindThumbnail}
	if !t.HasColumn(colThumbnailPath) {
		c.logger.Warn("table has no thumbnail_path column, skipping thumbnail records")
		kinds = kinds[:1]
	}

	var report Report
	for start := 0; start < t.Len(); start += c.batchSize {
		end := start + c.batchSize
		if end > t.Len() {
			end = t.Len()
		}

		slides, thumbs := buildRecords(t, start, end)
		for _, kind := range kinds {
			records := slides
			if kind == KindThumbnail {
				records = thumbs
			}

			err := c.postBatch(ctx, endpoint, records)
			if err != nil {
				c.logger.Error("failed to upload batch, continuing",
					"kind", kind, "batch_start", start, "batch_end", end,
					"endpoint", endpoint, "error", err)
			} else {
				c.logger.Info("uploaded batch",
					"kind", kind, "batch_start", start, "batch_end", end,
					"records", len(records))
			}
			report.Batches = append(report.Batches, BatchResult{
				Kind:     kind,
				StartRow: start,
				EndRow:   end,
				Records:  len(records),
				Err:      err,
			})
		}
	}
	return report
}

// buildRecords derives the two record sets for rows [start, end). Slide
// metadata carries every column except slide_path itself.
func buildRecords(t *table.Table, start, end int) (slides, thumbs []FileRecord) {
	slides = make([]FileRecord, 0, end-start)
	thumbs = make([]FileRecord, 0, end-start)
	for _, row := range t.Rows[start:end] {
		metadata := make(map[string]string, len(t.Columns)-1)
		for _, col := range t.Columns {
			if col != colSlidePath {
				metadata[col] = row.Get(col)
			}
		}
		slides = append(slides, FileRecord{FilePath: row.Get(colSlidePath), Metadata: metadata})
		thumbs = append(thumbs, FileRecord{FilePath: row.Get(colThumbnailPath)})
	}
	return slides, thumbs
}

// postBatch sends one {"files": [...]} request and checks for a 2xx
// response. On failure it logs a reproduction curl command at debug level.
func (c *Client) postBatch(ctx context.Context, endpoint string, records []FileRecord) error {
	body, err := json.Marshal(map[string][]FileRecord{"files": records})
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	c.logger.Debug("upload reproduction command",
		"curl", fmt.Sprintf(`curl -X POST %q -H "Content-Type: application/json" -d '%s'`, endpoint, body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
