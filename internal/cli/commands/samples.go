package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ruipath/pathoprep/internal/operator"
)

// DiscoverSamples builds a sample descriptor for every CSV file under
// <root>/source. The export path for all samples is <root>/output.
func DiscoverSamples(root string) ([]operator.Sample, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset root: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("dataset root does not exist: %s", absRoot)
	}

	sourceDir := filepath.Join(absRoot, "source")
	matches, err := filepath.Glob(filepath.Join(sourceDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", sourceDir, err)
	}

	exportPath := filepath.Join(absRoot, "output")

	var samples []operator.Sample
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		samples = append(samples, operator.Sample{
			operator.KeyText:       "",
			operator.KeyFileName:   filepath.Base(path),
			operator.KeyFileType:   strings.TrimPrefix(filepath.Ext(path), "."),
			operator.KeyFileID:     uuid.NewString(),
			operator.KeyFilePath:   path,
			operator.KeyFileSize:   strconv.FormatInt(info.Size(), 10),
			operator.KeyExportPath: exportPath,
		})
	}
	return samples, nil
}
