// Package pathmap rewrites slide and thumbnail file paths according to a
// configurable transform rule. Hospital exports reference image files
// relative to whatever storage the scanner wrote to; the rule maps those
// references onto the mount the ingestion side can actually read.
//
// Three mutually exclusive modes, selected by the literal form of the
// rule string:
//
//   - blank (after trimming): identity, paths pass through unchanged
//   - "old:new": prefix substitution on the first colon only
//   - anything else: treated as a mount point directory to prepend
package pathmap

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Transform rewrites a single path per the rule. It never fails: a rule
// that does not apply (prefix miss) logs a warning and returns the path
// unchanged.
func Transform(path, rule string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if strings.TrimSpace(rule) == "" {
		return path
	}

	if idx := strings.Index(rule, ":"); idx >= 0 {
		oldPrefix := rule[:idx]
		newPrefix := rule[idx+1:]
		if !strings.HasPrefix(path, oldPrefix) {
			logger.Warn("path transform prefix not found, leaving path unchanged",
				"path", path, "prefix", oldPrefix)
			return path
		}
		return filepath.Clean(newPrefix + strings.TrimPrefix(path, oldPrefix))
	}

	// Mount point mode: an absolute source path is reinterpreted as
	// relative to the mount, not appended verbatim.
	rel := path
	if filepath.IsAbs(rel) {
		rel = strings.TrimLeft(rel[len(filepath.VolumeName(rel)):], `/\`)
	}
	return filepath.Join(rule, rel)
}
