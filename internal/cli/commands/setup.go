package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ruipath/pathoprep/internal/cli/config"
	"github.com/ruipath/pathoprep/internal/preprocess"
	"github.com/ruipath/pathoprep/internal/state"
	"github.com/ruipath/pathoprep/internal/upload"
)

// getConfig returns the current configuration, falling back to defaults
// when no LoadConfig call has happened (e.g. in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		DatasetRoot:   config.DefaultDatasetRoot,
		APIBaseURL:    upload.DefaultBaseURL,
		PathTransform: preprocess.DefaultPathTransform,
		StatePath:     config.DefaultStateFile,
	}
}

// getLogger returns the logger stored in the command context.
func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

// openLedger opens (and migrates) the run ledger at the configured path.
func openLedger(cfg *config.Config) (*state.SQLiteStore, error) {
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// newOperator wires the preprocess operator from the CLI configuration.
// The returned cleanup closes the ledger and must be called (typically
// via defer).
func newOperator(cfg *config.Config, logger *slog.Logger) (*preprocess.Preprocess, func(), error) {
	ledger, err := openLedger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	uploader := upload.New(upload.Config{
		BaseURL:   cfg.APIBaseURL,
		BatchSize: cfg.BatchSize,
		Logger:    logger,
	})

	op := preprocess.New(preprocess.Config{
		Options: preprocess.Options{
			PathTransform: cfg.PathTransform,
			IgnoreSDPC:    cfg.IgnoreSDPC,
		},
		Logger:   logger,
		Uploader: uploader,
		Ledger:   ledger,
	})

	cleanup := func() {
		_ = ledger.Close()
	}
	return op, cleanup, nil
}
