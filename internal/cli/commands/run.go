package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ruipath/pathoprep/internal/operator"
	"github.com/ruipath/pathoprep/internal/preprocess"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Watch bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process all samples in the dataset directory",
		Long: `Discover diagnosis CSVs under <dataset-root>/source and run the
preprocessing pipeline for each: join with the sibling slide CSV, filter
and rewrite file paths, upload the merged records, and rewrite the sample
payload.`,
		Example: `  # Process the default ./dataset directory
  pathoprep run

  # Process a specific dataset with a prefix substitution rule
  pathoprep run --dataset-root /data/batch7 --path-transform "storage/:/mnt/ruipath/hospital_data/"

  # Keep watching the source directory for new exports
  pathoprep run --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Keep watching <dataset-root>/source and reprocess on change")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cfg := getConfig()
	logger := getLogger(cmd)

	op, cleanup, err := newOperator(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if err := processAll(ctx, cmd, op, cfg.DatasetRoot); err != nil {
		return err
	}

	if opts.Watch {
		return watchAndProcess(ctx, cmd, op, cfg.DatasetRoot)
	}
	return nil
}

// processAll runs the operator over every discovered sample and prints a
// summary table.
func processAll(ctx context.Context, cmd *cobra.Command, op *preprocess.Preprocess, datasetRoot string) error {
	startTime := time.Now()

	samples, err := DiscoverSamples(datasetRoot)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Found %d samples\n", len(samples))
	if len(samples) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"FILE", "RESULT"})

	for _, sample := range samples {
		name, _ := sample.String(operator.KeyFileName)
		result, err := op.Run(ctx, sample)
		switch {
		case err != nil:
			t.AppendRow(table.Row{name, fmt.Sprintf("error: %v", err)})
		case isProcessed(result):
			t.AppendRow(table.Row{name, "processed"})
		default:
			t.AppendRow(table.Row{name, "skipped"})
		}
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "Completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// isProcessed reports whether the operator rewrote the sample payload.
func isProcessed(sample operator.Sample) bool {
	name, _ := sample.String(operator.KeyFileName)
	return name == preprocess.OutputFileName
}

// watchAndProcess reprocesses the dataset whenever a CSV under
// <root>/source changes. Events are debounced since exports arrive as
// bursts of writes.
func watchAndProcess(ctx context.Context, cmd *cobra.Command, op *preprocess.Preprocess, datasetRoot string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	sourceDir := filepath.Join(datasetRoot, "source")
	if err := watcher.Add(sourceDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", sourceDir, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes...\n", sourceDir)

	var debounce *time.Timer
	reprocess := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".csv" {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case reprocess <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)

		case <-reprocess:
			if err := processAll(ctx, cmd, op, datasetRoot); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "reprocess failed: %v\n", err)
			}
		}
	}
}
