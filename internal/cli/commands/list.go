package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ruipath/pathoprep/internal/operator"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the samples that would be processed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()

			samples, err := DiscoverSamples(cfg.DatasetRoot)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Samples (%d total):\n", len(samples))
			if len(samples) == 0 {
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"FILE", "SIZE", "EXPORT PATH"})
			for _, s := range samples {
				name, _ := s.String(operator.KeyFileName)
				size, _ := s.String(operator.KeyFileSize)
				export, _ := s.String(operator.KeyExportPath)
				t.AppendRow(table.Row{name, size, export})
			}
			t.Render()
			return nil
		},
	}
}
