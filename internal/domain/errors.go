package domain

import "errors"

// Error taxonomy for sync passes. All of these are captured as values inside
// the pass result set and logged at operator level; none of them aborts a pass.
var (
	// ErrProviderUnavailable - network failure, timeout, or non-success status
	// from a price source. Isolated to one holding; previous price retained.
	ErrProviderUnavailable = errors.New("price provider unavailable")

	// ErrReferenceResolution - crypto id lookup failed with no cached fallback.
	// The holding is skipped for the pass, treated like a provider failure.
	ErrReferenceResolution = errors.New("reference data resolution failed")

	// ErrPersistence - a durable write failed. Does not roll back other
	// holdings' successful writes in the same pass.
	ErrPersistence = errors.New("persistence failed")
)
