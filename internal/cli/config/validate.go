package config

import (
	"fmt"
	"net/url"
)

// Validate checks a loaded configuration for values the pipeline cannot
// work with.
func Validate(cfg *Config) error {
	if cfg.DatasetRoot == "" {
		return fmt.Errorf("dataset_root must not be empty")
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative, got %d", cfg.BatchSize)
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid api_base_url %q: %w", cfg.APIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", cfg.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api_base_url is missing a host: %q", cfg.APIBaseURL)
	}

	return nil
}
