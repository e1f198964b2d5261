package ensemble

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Load reads and validates an artifact from path.
func Load(path string) (*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("open model artifact %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes and validates an artifact.
func Parse(r io.Reader) (*Ensemble, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if a.Format != Format {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrMalformed, a.Format, Format)
	}
	return New(a.FeatureNames, a.Aggregation, a.BaseScore, a.Trees)
}

// Save writes the ensemble to path in the artifact format.
func (e *Ensemble) Save(path string) error {
	payload, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}
	return os.WriteFile(path, payload, 0o600)
}
