package source

import "errors"

// Sentinel errors for source reads. Check them with errors.Is.
var (
	// ErrMissingSource indicates a referenced file cannot be read
	ErrMissingSource = errors.New("missing source")

	// ErrRemoteUnavailable indicates a remote file could not be downloaded
	// and no usable cached copy exists
	ErrRemoteUnavailable = errors.New("remote file unavailable")
)
