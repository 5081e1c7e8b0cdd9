package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit   int
	Batches string
}

// NewRunsCommand creates the runs command, which prints the run ledger.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&opts.Batches, "batches", "", "Show upload batches for the given run ID")

	return cmd
}

func runRuns(cmd *cobra.Command, opts *RunsOptions) error {
	cfg := getConfig()

	store, err := openLedger(cfg)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer store.Close()

	if opts.Batches != "" {
		batches, err := store.ListBatches(opts.Batches)
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"KIND", "ROWS", "RECORDS", "STATUS", "ERROR"})
		for _, b := range batches {
			t.AppendRow(table.Row{b.Kind, fmt.Sprintf("%d-%d", b.StartRow, b.EndRow), b.RecordCount, b.Status, b.Error})
		}
		t.Render()
		return nil
	}

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "FILE", "STATUS", "MERGED", "KEPT", "STARTED"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.SampleFile, r.Status, r.RowsMerged, r.RowsKept,
			r.StartedAt.Local().Format(time.RFC3339)})
	}
	t.Render()
	return nil
}
