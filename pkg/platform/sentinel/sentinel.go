package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and callers translate them into domain errors.
//
// For validation failures use pkg/domain-errors directly.
var (
	// ErrNotFound: the resource was never published or downloaded.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable: a backing service could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
