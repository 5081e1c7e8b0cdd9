// Package operator defines the contract the host registry loads
// preprocessing operators through, plus the sample descriptor type that
// flows between the host and an operator.
package operator

import "context"

// Sample is the descriptor an operator consumes and rewrites. Beyond the
// keys an operator reads, all fields pass through untouched.
type Sample map[string]any

// Well-known sample keys.
const (
	KeyFilePath   = "filePath"
	KeyExportPath = "export_path"
	KeyText       = "text"
	KeyFileName   = "fileName"
	KeyFileType   = "fileType"
	KeyFileSize   = "fileSize"
	KeyFileID     = "fileId"
)

// String returns the sample value for key when it is a non-empty string.
func (s Sample) String(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

// Clone returns a shallow copy of the sample.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Operator is a registered processing step. Configure receives the raw
// option map from the host's operator metadata; Run consumes one sample
// and returns it (possibly rewritten).
type Operator interface {
	Name() string
	Configure(options map[string]any) error
	Run(ctx context.Context, sample Sample) (Sample, error)
}
