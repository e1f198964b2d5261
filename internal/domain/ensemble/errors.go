package ensemble

import "errors"

// Sentinel kinds for ensemble errors.
var (
	ErrArtifactMissing = errors.New("model artifact not found")
	ErrMalformed       = errors.New("malformed model artifact")
	ErrFeatureMismatch = errors.New("feature vector length mismatch")
	ErrAttribution     = errors.New("attribution failed")
)
