// Package state provides the SQLite run ledger: one row per pipeline run
// plus one row per upload batch attempt. The ledger is best-effort
// bookkeeping; callers log and continue when a write fails.
package state

import "time"

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusSkipped   = "skipped"
	RunStatusFailed    = "failed"
)

// Batch status values.
const (
	BatchStatusUploaded = "uploaded"
	BatchStatusFailed   = "failed"
)

// Run is one pipeline invocation for one sample file.
type Run struct {
	ID          string
	SampleFile  string
	Status      string
	RowsMerged  int
	RowsKept    int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// UploadBatch is one batch/kind upload attempt within a run.
type UploadBatch struct {
	ID          string
	RunID       string
	Kind        string
	StartRow    int
	EndRow      int
	RecordCount int
	Status      string
	Error       string
	CreatedAt   time.Time
}

// Store is the run ledger interface.
type Store interface {
	// CreateRun inserts a running entry for a sample file and returns it.
	CreateRun(sampleFile string) (*Run, error)
	// FinishRun sets the terminal status, row counts, and optional error.
	FinishRun(id, status string, rowsMerged, rowsKept int, runErr string) error
	// RecordBatch inserts one upload batch outcome.
	RecordBatch(batch *UploadBatch) error
	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)
	// ListBatches returns the batches of a run in insertion order.
	ListBatches(runID string) ([]*UploadBatch, error)
	// Close releases the underlying database.
	Close() error
}
