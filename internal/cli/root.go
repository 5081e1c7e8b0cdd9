// Package cli provides the command-line interface for pathoprep.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ruipath/pathoprep/internal/cli/commands"
	"github.com/ruipath/pathoprep/internal/cli/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pathoprep",
		Short: "pathoprep - pathology case preprocessing pipeline",
		Long: `pathoprep links pathology diagnosis records to their slide and
thumbnail files, rewrites the file paths for the ingestion mount, uploads
the merged records to the DataMate ingestion API in batches, and writes
the merged table back into the sample as JSON records.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))

			ctx := context.WithValue(cmd.Context(), config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pathoprep.yaml)")
	rootCmd.PersistentFlags().String("dataset-root", "", "Dataset directory (samples under <root>/source)")
	rootCmd.PersistentFlags().String("api-url", "", "Ingestion API base URL")
	rootCmd.PersistentFlags().String("path-transform", "", "Path rewrite rule: blank, old:new, or a mount point")
	rootCmd.PersistentFlags().Bool("ignore-sdpc", false, "Drop all SDPC slides regardless of thumbnails")
	rootCmd.PersistentFlags().Int("batch-size", 0, "Upload batch size override (0 = default)")
	rootCmd.PersistentFlags().String("state", "", "Path to the run ledger database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewMockServerCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
