package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite ledger instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun creates a new running ledger entry.
func (s *SQLiteStore) CreateRun(sampleFile string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:         generateID(),
		SampleFile: sampleFile,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, sample_file, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.SampleFile, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// FinishRun records the terminal state of a run.
func (s *SQLiteStore) FinishRun(id, status string, rowsMerged, rowsKept int, runErr string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, rows_merged = ?, rows_kept = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, rowsMerged, rowsKept, time.Now().UTC(), runErr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordBatch inserts one upload batch outcome.
func (s *SQLiteStore) RecordBatch(batch *UploadBatch) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if batch.ID == "" {
		batch.ID = generateID()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO upload_batches (id, run_id, kind, start_row, end_row, record_count, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.RunID, batch.Kind, batch.StartRow, batch.EndRow,
		batch.RecordCount, batch.Status, batch.Error, batch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, sample_file, status, rows_merged, rows_kept, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.SampleFile, &run.Status, &run.RowsMerged,
			&run.RowsKept, &run.StartedAt, &completedAt, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListBatches returns the batches of a run in insertion order.
func (s *SQLiteStore) ListBatches(runID string) ([]*UploadBatch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, kind, start_row, end_row, record_count, status, error, created_at
		 FROM upload_batches WHERE run_id = ? ORDER BY created_at, start_row, kind`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*UploadBatch
	for rows.Next() {
		b := &UploadBatch{}
		if err := rows.Scan(&b.ID, &b.RunID, &b.Kind, &b.StartRow, &b.EndRow,
			&b.RecordCount, &b.Status, &b.Error, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
