// Package verr defines the sentinel errors surfaced across the index
// builder and query engine.
package verr

import "errors"

// Sentinel errors for the error kinds in the error handling design.
var (
	// ErrCorpusNotFound means the corpus path given to Build does not exist.
	ErrCorpusNotFound = errors.New("corpus not found")

	// ErrIndexNotReady means index.meta.json is missing: the index has
	// never finished building, or a build is still in progress.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrUnsupportedLanguage means a caller-supplied language override is
	// not in the supported set.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrMalformedRecord means a corpus line inside a worker's batch range
	// failed to parse as JSON. Fatal to that worker and to the build.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInternalIO wraps an unexpected filesystem error.
	ErrInternalIO = errors.New("internal I/O failure")
)
