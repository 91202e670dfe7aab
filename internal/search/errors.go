package search

import "errors"

var (
	// ErrInvalidScope is returned for an unrecognized scope name, or for
	// the mp_only scope without a procedure id.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrIndexUnavailable is returned only when both the lexical and the
	// vector signal failed for a request.
	ErrIndexUnavailable = errors.New("index unavailable")
)
