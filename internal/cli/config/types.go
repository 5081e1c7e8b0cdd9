// Package config provides configuration management for the pathoprep CLI.
// Values come from (lowest to highest precedence) built-in defaults, a
// pathoprep.yaml config file, PATHOPREP_* environment variables, and
// command-line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	// DatasetRoot is the dataset directory; samples are discovered under
	// <root>/source and exported to <root>/output.
	DatasetRoot string `koanf:"dataset_root"`
	// APIBaseURL is the ingestion API root.
	APIBaseURL string `koanf:"api_base_url"`
	// PathTransform is the slide/thumbnail path rewrite rule.
	PathTransform string `koanf:"path_transform"`
	// IgnoreSDPC drops all SDPC slides regardless of thumbnails.
	IgnoreSDPC bool `koanf:"ignore_sdpc"`
	// BatchSize overrides the upload batch size when positive.
	BatchSize int `koanf:"batch_size"`
	// StatePath is the run ledger database path.
	StatePath string `koanf:"state_path"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultDatasetRoot = "./dataset"
	DefaultStateFile   = ".pathoprep/state.db"
)
