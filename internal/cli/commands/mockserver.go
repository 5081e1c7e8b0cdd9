package commands

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ruipath/pathoprep/internal/mockserver"
)

// MockServerOptions holds options for the mock-server command.
type MockServerOptions struct {
	Addr      string
	FailEvery int
}

// NewMockServerCommand creates the mock-server command, a stub ingestion
// backend for local development.
func NewMockServerCommand() *cobra.Command {
	opts := &MockServerOptions{}

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a stub ingestion API for local development",
		Long: `Serve a local stand-in for the DataMate ingestion endpoint. Point
--api-url at it to exercise the pipeline without a backend. Use
--fail-every to make every Nth upload request fail and observe the
pipeline's partial-failure tolerance.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getLogger(cmd)

			srv := mockserver.New(mockserver.Config{
				FailEvery: opts.FailEvery,
				Logger:    logger,
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Mock ingestion API listening on %s\n", opts.Addr)
			err := http.ListenAndServe(opts.Addr, srv.Router())
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "Listen address")
	cmd.Flags().IntVar(&opts.FailEvery, "fail-every", 0, "Fail every Nth upload request (0 = never)")

	return cmd
}
