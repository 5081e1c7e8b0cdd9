// Package preprocess implements the pathology preprocessing operator. It
// joins a diagnosis CSV with its sibling slide CSV on the case number,
// cleans and rewrites the file path references, publishes the merged
// records to the ingestion API, and rewrites the sample payload with the
// merged table as JSON records.
package preprocess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/ruipath/pathoprep/internal/operator"
	"github.com/ruipath/pathoprep/internal/state"
	"github.com/ruipath/pathoprep/internal/table"
	"github.com/ruipath/pathoprep/internal/upload"
)

// Name is the operator's registry name.
const Name = "patho_sys_preprocess"

// Column names of the source tables.
const (
	colCaseNo        = "case_no"
	colDiagnosis     = "diagnosis"
	colSlidePath     = "slide_path"
	colThumbnailPath = "thumbnail_path"
)

const (
	inputExtension = ".csv"
	sdpcExtension  = ".sdpc"

	// OutputFileName is the fixed name written into processed samples.
	OutputFileName = "case_diagnosis_slides.json"
	outputFileType = "json"
)

// DefaultPathTransform is the default mount point prepended to slide and
// thumbnail paths. See the pathmap package for the rule syntax.
const DefaultPathTransform = "/mnt/ruipath/hospital_data/"

func init() {
	operator.Register(Name, func() operator.Operator {
		return New(Config{})
	})
}

// Options are the operator's metadata-level knobs.
type Options struct {
	// PathTransform selects the path rewrite rule: blank for identity,
	// "old:new" for prefix substitution, anything else as a mount point.
	PathTransform string `mapstructure:"pathTransformer"`
	// IgnoreSDPC drops every SDPC slide regardless of thumbnail presence.
	IgnoreSDPC bool `mapstructure:"ignoreSdpc"`
}

// RowPredicate is a pluggable row filter applied after the built-in
// cleanup. Returning false drops the row.
type RowPredicate func(table.Row) (bool, error)

// Config holds operator construction options.
type Config struct {
	// Options are the initial operator options (Configure may replace them).
	Options Options
	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger
	// Uploader publishes merged records (a default client if nil).
	Uploader *upload.Client
	// Ledger records runs and batch outcomes (disabled if nil).
	Ledger state.Store
	// ExtraFilters are optional domain-specific row predicates.
	ExtraFilters []RowPredicate
}

// Preprocess is the pipeline operator. One instance may be reused across
// sequential runs; the SDPC flag derived from a run's slide schema is
// never written back to the options.
type Preprocess struct {
	opts     Options
	logger   *slog.Logger
	uploader *upload.Client
	ledger   state.Store
	extra    []RowPredicate
}

// New creates the operator.
func New(cfg Config) *Preprocess {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := cfg.Options
	if opts.PathTransform == "" {
		opts.PathTransform = DefaultPathTransform
	}

	uploader := cfg.Uploader
	if uploader == nil {
		uploader = upload.New(upload.Config{BaseURL: upload.DefaultBaseURL, Logger: logger})
	}

	return &Preprocess{
		opts:     opts,
		logger:   logger,
		uploader: uploader,
		ledger:   cfg.Ledger,
		extra:    cfg.ExtraFilters,
	}
}

// Name returns the operator's registry name.
func (p *Preprocess) Name() string {
	return Name
}

// Configure decodes the raw option map from the host metadata. Unknown
// keys are ignored; absent keys keep their defaults.
func (p *Preprocess) Configure(options map[string]any) error {
	opts := Options{PathTransform: DefaultPathTransform}
	if err := mapstructure.Decode(options, &opts); err != nil {
		return fmt.Errorf("invalid operator options: %w", err)
	}
	if opts.PathTransform == "" {
		opts.PathTransform = DefaultPathTransform
	}
	p.opts = opts
	return nil
}

// Run executes the pipeline for one sample. Only descriptor-contract
// violations return an error; every other failure mode logs and hands the
// original sample back unchanged.
func (p *Preprocess) Run(ctx context.Context, sample operator.Sample) (operator.Sample, error) {
	filePath, err := validateSample(sample)
	if err != nil {
		return sample, err
	}

	p.logger.Info("processing sample", "file", filePath)
	run := p.beginRun(filePath)

	diagnosis, err := table.ReadCSV(filePath)
	if err != nil {
		p.finishRun(run, state.RunStatusFailed, 0, 0, err.Error())
		return sample, fmt.Errorf("failed to load diagnosis table: %w", err)
	}
	if !diagnosis.HasColumns(colCaseNo, colDiagnosis) {
		p.logger.Warn("diagnosis table missing required columns, skipping sample",
			"file", filePath, "required", []string{colCaseNo, colDiagnosis})
		p.finishRun(run, state.RunStatusSkipped, 0, 0, "diagnosis table missing required columns")
		return sample, nil
	}

	slideFile, ok := p.findSlideFile(filepath.Dir(filePath), filepath.Base(filePath))
	if !ok {
		p.finishRun(run, state.RunStatusSkipped, 0, 0, "no unambiguous slide file")
		return sample, nil
	}

	slide, err := table.ReadCSV(slideFile)
	if err != nil {
		p.logger.Error("failed to load slide table, skipping sample",
			"file", slideFile, "error", err)
		p.finishRun(run, state.RunStatusSkipped, 0, 0, err.Error())
		return sample, nil
	}
	if !slide.HasColumns(colCaseNo, colSlidePath) {
		p.logger.Warn("slide table missing required columns, skipping sample",
			"file", slideFile, "required", []string{colCaseNo, colSlidePath})
		p.finishRun(run, state.RunStatusSkipped, 0, 0, "slide table missing required columns")
		return sample, nil
	}

	// The flag is derived per run, never written back to p.opts.
	ignoreSDPC := p.opts.IgnoreSDPC
	if !slide.HasColumn(colThumbnailPath) {
		p.logger.Warn("slide table has no thumbnail_path column, all SDPC files will be ignored",
			"file", slideFile)
		ignoreSDPC = true
	}

	p.logger.Info("tables loaded",
		"diagnosis_rows", diagnosis.Len(), "slide_rows", slide.Len())

	merged := table.InnerJoin(diagnosis, slide, colCaseNo)
	p.logger.Info("tables merged", "rows", merged.Len())

	processed, err := p.process(merged, ignoreSDPC)
	if err != nil {
		p.logger.Error("data processing failed, skipping sample", "error", err)
		p.finishRun(run, state.RunStatusFailed, merged.Len(), 0, err.Error())
		return sample, nil
	}
	p.logger.Info("data processed", "rows", processed.Len())

	exportPath, ok := sample.String(operator.KeyExportPath)
	if !ok {
		p.logger.Error("sample missing 'export_path' value, skipping upload")
		p.finishRun(run, state.RunStatusSkipped, merged.Len(), processed.Len(), "missing export_path")
		return sample, nil
	}

	report := p.uploader.Publish(ctx, processed, filepath.Base(exportPath))
	p.recordBatches(run, report)

	text, err := processed.RecordsJSON()
	if err != nil {
		p.logger.Error("failed to serialize processed table, skipping sample", "error", err)
		p.finishRun(run, state.RunStatusFailed, merged.Len(), processed.Len(), err.Error())
		return sample, nil
	}

	sample[operator.KeyText] = text
	sample[operator.KeyFileName] = OutputFileName
	sample[operator.KeyFileType] = outputFileType

	p.finishRun(run, state.RunStatusCompleted, merged.Len(), processed.Len(), "")
	p.logger.Info("sample updated with processed data",
		"rows", processed.Len(), "failed_batches", report.Failed())
	return sample, nil
}

// validateSample enforces the descriptor input contract. Violations here
// are the only errors Run raises to the caller.
func validateSample(sample operator.Sample) (string, error) {
	v, ok := sample[operator.KeyFilePath]
	if !ok || v == nil || v == "" {
		return "", fmt.Errorf("sample must contain a valid 'filePath' value")
	}
	filePath, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("'filePath' must be a string, got %T", v)
	}
	if !strings.HasSuffix(filePath, inputExtension) {
		return "", fmt.Errorf("'filePath' must point to a CSV file, got %s", filePath)
	}
	return filePath, nil
}

// findSlideFile locates the single sibling file next to the diagnosis
// file. Zero or multiple siblings are malformed inputs: both log and skip
// rather than silently picking one.
func (p *Preprocess) findSlideFile(dir, diagnosisName string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.logger.Error("failed to list diagnosis directory", "dir", dir, "error", err)
		return "", false
	}

	var siblings []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == diagnosisName {
			continue
		}
		siblings = append(siblings, e.Name())
	}

	switch len(siblings) {
	case 0:
		p.logger.Error("no slide file found next to the diagnosis file", "dir", dir)
		return "", false
	case 1:
		return filepath.Join(dir, siblings[0]), true
	default:
		p.logger.Error("expected exactly one slide file next to the diagnosis file",
			"dir", dir, "found", len(siblings))
		return "", false
	}
}

// Ledger helpers. The ledger is best-effort: failures are logged and the
// pipeline continues.

func (p *Preprocess) beginRun(sampleFile string) *state.Run {
	if p.ledger == nil {
		return nil
	}
	run, err := p.ledger.CreateRun(sampleFile)
	if err != nil {
		p.logger.Warn("failed to record run in ledger", "error", err)
		return nil
	}
	return run
}

func (p *Preprocess) finishRun(run *state.Run, status string, rowsMerged, rowsKept int, msg string) {
	if run == nil {
		return
	}
	if err := p.ledger.FinishRun(run.ID, status, rowsMerged, rowsKept, msg); err != nil {
		p.logger.Warn("failed to finish run in ledger", "run", run.ID, "error", err)
	}
}

func (p *Preprocess) recordBatches(run *state.Run, report upload.Report) {
	if run == nil {
		return
	}
	for _, b := range report.Batches {
		batch := &state.UploadBatch{
			RunID:       run.ID,
			Kind:        b.Kind,
			StartRow:    b.StartRow,
			EndRow:      b.EndRow,
			RecordCount: b.Records,
			Status:      state.BatchStatusUploaded,
		}
		if b.Err != nil {
			batch.Status = state.BatchStatusFailed
			batch.Error = b.Err.Error()
		}
		if err := p.ledger.RecordBatch(batch); err != nil {
			p.logger.Warn("failed to record upload batch in ledger", "run", run.ID, "error", err)
		}
	}
}
