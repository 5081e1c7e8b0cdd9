package preprocess

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruipath/pathoprep/internal/operator"
	"github.com/ruipath/pathoprep/internal/state"
	"github.com/ruipath/pathoprep/internal/testutil"
	"github.com/ruipath/pathoprep/internal/upload"
)

const (
	diagnosisCSV = "case_no,diagnosis\nc1,benign\nc2,malignant\nc9,orphan\n"
	slideCSV     = "case_no,slide_path,thumbnail_path\nc1,slides/c1.svs,thumbs/c1.png\nc2,slides/c2.sdpc,thumbs/c2.png\nc8,slides/orphan.svs,\n"
)

// ingestStub records upload requests and optionally fails them all.
type ingestStub struct {
	mu       sync.Mutex
	requests int
	failAll  bool
}

func (s *ingestStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
	if s.failAll {
		http.Error(w, "down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ingestStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// newTestOperator builds an operator against a stub ingestion backend.
func newTestOperator(t *testing.T, opts Options, stub *ingestStub) *Preprocess {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	logger := testutil.NewTestLogger(t)
	return New(Config{
		Options: opts,
		Logger:  logger,
		Uploader: upload.New(upload.Config{
			BaseURL: srv.URL,
			Logger:  logger,
		}),
	})
}

func newSample(filePath string) operator.Sample {
	return operator.Sample{
		operator.KeyText:       "",
		operator.KeyFileName:   filepath.Base(filePath),
		operator.KeyFileType:   "csv",
		operator.KeyFilePath:   filePath,
		operator.KeyExportPath: "/data/exports/ds1",
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
	writeFile(t, dir, "slides.csv", slideCSV)

	stub := &ingestStub{}
	op := newTestOperator(t, Options{PathTransform: "/mnt/data"}, stub)

	result, err := op.Run(context.Background(), newSample(diag))
	require.NoError(t, err)

	// One batch, two kinds.
	assert.Equal(t, 2, stub.count())

	assert.Equal(t, OutputFileName, result[operator.KeyFileName])
	assert.Equal(t, "json", result[operator.KeyFileType])

	var records []map[string]string
	require.NoError(t, json.Unmarshal([]byte(result[operator.KeyText].(string)), &records))

	// c1 and c2 match; c9 and c8 are dropped by the inner join.
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0]["case_no"])
	assert.Equal(t, "benign", records[0]["diagnosis"])
	assert.Equal(t, "/mnt/data/slides/c1.svs", records[0]["slide_path"])
	assert.Equal(t, "/mnt/data/thumbs/c1.png", records[0]["thumbnail_path"])
	assert.Equal(t, "c2", records[1]["case_no"])
}

func TestRun_InputContractViolations(t *testing.T) {
	op := newTestOperator(t, Options{}, &ingestStub{})
	ctx := context.Background()

	tests := []struct {
		name   string
		sample operator.Sample
	}{
		{"missing filePath", operator.Sample{}},
		{"empty filePath", operator.Sample{operator.KeyFilePath: ""}},
		{"non-string filePath", operator.Sample{operator.KeyFilePath: 42}},
		{"non-csv filePath", operator.Sample{operator.KeyFilePath: "/data/cases.xlsx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := op.Run(ctx, tt.sample)
			assert.Error(t, err)
		})
	}
}

func TestRun_MissingDiagnosisColumnsSkips(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", "case_no,notes\nc1,x\n")
	writeFile(t, dir, "slides.csv", slideCSV)

	stub := &ingestStub{}
	op := newTestOperator(t, Options{}, stub)

	sample := newSample(diag)
	result, err := op.Run(context.Background(), sample)
	require.NoError(t, err)

	assert.Equal(t, "", result[operator.KeyText], "sample returned untouched")
	assert.Equal(t, "csv", result[operator.KeyFileType])
	assert.Equal(t, 0, stub.count(), "nothing uploaded")
}

func TestRun_MissingSlideColumnsSkips(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
	writeFile(t, dir, "slides.csv", "case_no,location\nc1,somewhere\n")

	stub := &ingestStub{}
	op := newTestOperator(t, Options{}, stub)

	result, err := op.Run(context.Background(), newSample(diag))
	require.NoError(t, err)
	assert.Equal(t, "", result[operator.KeyText])
	assert.Equal(t, 0, stub.count())
}

func TestRun_SiblingAmbiguitySkips(t *testing.T) {
	t.Run("no sibling", func(t *testing.T) {
		dir := t.TempDir()
		diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)

		op := newTestOperator(t, Options{}, &ingestStub{})
		result, err := op.Run(context.Background(), newSample(diag))
		require.NoError(t, err)
		assert.Equal(t, "", result[operator.KeyText])
	})

	t.Run("multiple siblings", func(t *testing.T) {
		dir := t.TempDir()
		diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
		writeFile(t, dir, "slides.csv", slideCSV)
		writeFile(t, dir, "extra.csv", slideCSV)

		stub := &ingestStub{}
		op := newTestOperator(t, Options{}, stub)
		result, err := op.Run(context.Background(), newSample(diag))
		require.NoError(t, err)
		assert.Equal(t, "", result[operator.KeyText])
		assert.Equal(t, 0, stub.count())
	})
}

func TestRun_MissingThumbnailColumnForcesSDPCIgnore(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
	writeFile(t, dir, "slides.csv", "case_no,slide_path\nc1,slides/c1.svs\nc2,slides/c2.sdpc\n")

	stub := &ingestStub{}
	// Constructed with IgnoreSDPC false; the missing column forces it on.
	op := newTestOperator(t, Options{PathTransform: "/mnt/data", IgnoreSDPC: false}, stub)

	result, err := op.Run(context.Background(), newSample(diag))
	require.NoError(t, err)

	var records []map[string]string
	require.NoError(t, json.Unmarshal([]byte(result[operator.KeyText].(string)), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0]["case_no"])

	// No thumbnail column means no thumbnail uploads: one kind, one batch.
	assert.Equal(t, 1, stub.count())

	// The forced flag is per-run state, not persisted configuration.
	assert.False(t, op.opts.IgnoreSDPC)
}

func TestRun_MissingExportPathSkips(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
	writeFile(t, dir, "slides.csv", slideCSV)

	stub := &ingestStub{}
	op := newTestOperator(t, Options{}, stub)

	sample := newSample(diag)
	delete(sample, operator.KeyExportPath)

	result, err := op.Run(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "", result[operator.KeyText])
	assert.Equal(t, 0, stub.count())
}

func TestRun_EmptySlidePathYieldsEmptyArray(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", "case_no,diagnosis\nc1,benign\nc9,orphan\n")
	writeFile(t, dir, "slides.csv", "case_no,slide_path,thumbnail_path\nc1,,\nc8,slides/x.svs,\n")

	op := newTestOperator(t, Options{}, &ingestStub{})

	result, err := op.Run(context.Background(), newSample(diag))
	require.NoError(t, err)
	assert.Equal(t, "[]", result[operator.KeyText])
	assert.Equal(t, OutputFileName, result[operator.KeyFileName])
}

func TestRun_UploadFailuresDoNotAbort(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
	writeFile(t, dir, "slides.csv", slideCSV)

	stub := &ingestStub{failAll: true}
	op := newTestOperator(t, Options{}, stub)

	result, err := op.Run(context.Background(), newSample(diag))
	require.NoError(t, err)

	// Both kinds were attempted despite every request failing, and the
	// sample was still rewritten.
	assert.Equal(t, 2, stub.count())
	assert.Equal(t, OutputFileName, result[operator.KeyFileName])
	assert.NotEqual(t, "", result[operator.KeyText])
}

func TestRun_RecordsLedger(t *testing.T) {
	dir := t.TempDir()
	diag := writeFile(t, dir, "diagnosis.csv", diagnosisCSV)
	writeFile(t, dir, "slides.csv", slideCSV)

	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	defer store.Close()

	srv := httptest.NewServer(&ingestStub{})
	defer srv.Close()

	logger := testutil.NewTestLogger(t)
	op := New(Config{
		Logger:   logger,
		Uploader: upload.New(upload.Config{BaseURL: srv.URL, Logger: logger}),
		Ledger:   store,
	})

	_, err := op.Run(context.Background(), newSample(diag))
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].RowsMerged)
	assert.Equal(t, 2, runs[0].RowsKept)

	batches, err := store.ListBatches(runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestConfigure(t *testing.T) {
	op := New(Config{})

	require.NoError(t, op.Configure(map[string]any{
		"pathTransformer": "storage/:/mnt/data/",
		"ignoreSdpc":      true,
	}))
	assert.Equal(t, "storage/:/mnt/data/", op.opts.PathTransform)
	assert.True(t, op.opts.IgnoreSDPC)

	require.NoError(t, op.Configure(map[string]any{}))
	assert.Equal(t, DefaultPathTransform, op.opts.PathTransform)
	assert.False(t, op.opts.IgnoreSDPC)

	assert.Error(t, op.Configure(map[string]any{"ignoreSdpc": "not-a-bool"}))
}
