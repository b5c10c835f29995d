package domain

import "errors"

var (
	// ErrValidation marks caller-supplied data as malformed. Wrapped with %w
	// so handlers can map it to a 400.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAdmissionDenied is returned when the per-client submission limit is
	// exceeded. Nothing is persisted or sent in that case.
	ErrAdmissionDenied = errors.New("rate limit exceeded")

	// ErrStoreUnavailable is returned by a message store that has no backing
	// credentials. It fails fast instead of blocking or crashing.
	ErrStoreUnavailable = errors.New("message store unavailable")
)
