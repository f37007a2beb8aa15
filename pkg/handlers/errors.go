package handlers

import "errors"

var (
	// ErrManifestCycle is returned when a manifest includes itself, directly or not
	ErrManifestCycle = errors.New("manifest includes itself")
	// ErrUnsupportedSource is returned for a source a handler cannot process,
	// such as a template that only exists remotely
	ErrUnsupportedSource = errors.New("unsupported source")
)
